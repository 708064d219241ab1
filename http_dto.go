package kanban

import "time"

// Response DTOs. Mapping is explicit field by field so the wire shape stays
// stable when the storage models grow columns.

// UserResponse is the public view of a user.
type UserResponse struct {
	Username    string     `json:"username"`
	Displayname string     `json:"displayname"`
	Email       string     `json:"email"`
	Language    string     `json:"language"`
	Roles       []UserRole `json:"roles"`
	Enabled     bool       `json:"enabled"`
}

func userResponse(u *User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		Username:    u.Username,
		Displayname: u.Displayname,
		Email:       u.Email,
		Language:    u.Language,
		Roles:       u.Roles,
		Enabled:     u.Enabled,
	}
}

// BoardResponse is the public view of a board, tasks included when loaded.
type BoardResponse struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Owner   *UserResponse   `json:"owner,omitempty"`
	Private bool            `json:"is_private"`
	Members []*UserResponse `json:"members"`
	Tasks   []*TaskResponse `json:"tasks,omitempty"`
	Version int64           `json:"version"`
}

func boardResponse(b *Board) *BoardResponse {
	if b == nil {
		return nil
	}

	members := make([]*UserResponse, 0, len(b.Members))
	for _, m := range b.Members {
		members = append(members, userResponse(m))
	}

	out := &BoardResponse{
		ID:      b.ID.String(),
		Name:    b.Name,
		Owner:   userResponse(b.Owner),
		Private: b.Private,
		Members: members,
		Version: b.Version,
	}
	if len(b.Tasks) > 0 {
		out.Tasks = taskResponses(b.Tasks)
	}
	return out
}

func boardResponses(boards []*Board) []*BoardResponse {
	out := make([]*BoardResponse, 0, len(boards))
	for _, b := range boards {
		out = append(out, boardResponse(b))
	}
	return out
}

// TaskResponse is the public view of a card.
type TaskResponse struct {
	ID          string                `json:"id"`
	BoardID     string                `json:"board_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    TaskCategory          `json:"category"`
	Creator     *UserResponse         `json:"creator,omitempty"`
	DueDate     *time.Time            `json:"due_date,omitempty"`
	Assignees   []*UserResponse       `json:"assignees"`
	Files       []*AttachmentResponse `json:"files,omitempty"`
}

func taskResponse(t *Task) *TaskResponse {
	if t == nil {
		return nil
	}

	assignees := make([]*UserResponse, 0, len(t.Assignees))
	for _, a := range t.Assignees {
		assignees = append(assignees, userResponse(a))
	}

	out := &TaskResponse{
		ID:          t.ID.String(),
		BoardID:     t.BoardID.String(),
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Creator:     userResponse(t.Creator),
		DueDate:     t.DueDate,
		Assignees:   assignees,
	}
	if len(t.Attachments) > 0 {
		out.Files = attachmentResponses(t.Attachments)
	}
	return out
}

func taskResponses(tasks []*Task) []*TaskResponse {
	out := make([]*TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskResponse(t))
	}
	return out
}

// AttachmentResponse is the public view of attachment metadata.
type AttachmentResponse struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
}

func attachmentResponse(a *Attachment) *AttachmentResponse {
	if a == nil {
		return nil
	}
	return &AttachmentResponse{
		ID:          a.ID.String(),
		Filename:    a.Filename,
		ContentType: a.ContentType,
		Size:        a.Size,
	}
}

func attachmentResponses(files []*Attachment) []*AttachmentResponse {
	out := make([]*AttachmentResponse, 0, len(files))
	for _, a := range files {
		out = append(out, attachmentResponse(a))
	}
	return out
}

// FileUploadResponse pairs the stored metadata with the presigned PUT URL.
type FileUploadResponse struct {
	File      *AttachmentResponse `json:"file"`
	UploadURL string              `json:"upload_url"`
}

// FileDownloadResponse carries the presigned GET URL.
type FileDownloadResponse struct {
	DownloadURL string `json:"download_url"`
}
