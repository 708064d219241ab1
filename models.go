package kanban

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is a role granted to a user. Roles form a flat set; RoleAdmin is
// treated as a superset permission in every authorization check.
type UserRole string

const (
	// RoleUser is granted to every account at registration
	RoleUser UserRole = "USER"
	// RoleAdmin bypasses ownership and membership checks
	RoleAdmin UserRole = "ADMIN"
)

// DefaultLanguage is used for mail templates when a token carries no
// language claim.
const DefaultLanguage = "DE"

// User is the identity model. Username and email are unique across all
// users; email is normalized to lower case at registration.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username     string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Displayname  string     `bun:"displayname,notnull" json:"displayname,omitempty"`
	Email        string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash string     `bun:"password_hash" json:"-"`
	Roles        []UserRole `bun:"roles" json:"roles,omitempty"`
	Language     string     `bun:"language" json:"language,omitempty"`

	Enabled            bool `bun:"is_enabled" json:"is_enabled"`
	Locked             bool `bun:"is_locked" json:"is_locked"`
	CredentialsExpired bool `bun:"credentials_expired" json:"credentials_expired"`

	// At most one secondary token of each kind; replaced silently on request.
	ActivationToken    *SecondaryToken `bun:"embed:activation_" json:"-"`
	PasswordResetToken *SecondaryToken `bun:"embed:reset_" json:"-"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// HasRole reports whether the user has been granted the given role.
func (u *User) HasRole(role UserRole) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// GrantRole adds a role to the user's role set, once.
func (u *User) GrantRole(role UserRole) *User {
	if !u.HasRole(role) {
		u.Roles = append(u.Roles, role)
	}
	return u
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	return u != nil && u.Enabled && !u.Locked && !u.CredentialsExpired
}

// Board has exactly one owner and a set of members. The owner is never part
// of the member set; every authorization check tests owner OR member
// explicitly.
type Board struct {
	bun.BaseModel `bun:"table:boards,alias:brd"`

	ID      uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name    string    `bun:"name,notnull" json:"name,omitempty"`
	OwnerID uuid.UUID `bun:"owner_id,notnull,type:uuid" json:"-"`
	Owner   *User     `bun:"rel:belongs-to,join:owner_id=id" json:"owner,omitempty"`
	Private bool      `bun:"is_private" json:"is_private"`

	Members []*User `bun:"m2m:board_members,join:Board=User" json:"members,omitempty"`
	Tasks   []*Task `bun:"rel:has-many,join:id=board_id" json:"tasks,omitempty"`

	// Version implements optimistic concurrency: updates carry the version
	// they read and fail with a conflict when it moved underneath them.
	Version int64 `bun:"version,notnull,default:0" json:"version"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsOwner reports whether the user owns the board.
func (b *Board) IsOwner(u *User) bool {
	return b != nil && u != nil && b.OwnerID == u.ID
}

// HasMember reports whether the user is in the board's member set. Ownership
// does not imply membership.
func (b *Board) HasMember(u *User) bool {
	if b == nil || u == nil {
		return false
	}
	for _, m := range b.Members {
		if m.ID == u.ID {
			return true
		}
	}
	return false
}

// BoardMember is the board/user join model.
type BoardMember struct {
	bun.BaseModel `bun:"table:board_members,alias:bmb"`

	BoardID uuid.UUID `bun:"board_id,pk,type:uuid"`
	Board   *Board    `bun:"rel:belongs-to,join:board_id=id"`
	UserID  uuid.UUID `bun:"user_id,pk,type:uuid"`
	User    *User     `bun:"rel:belongs-to,join:user_id=id"`
}

// TaskCategory is the kanban column a task sits in.
type TaskCategory string

const (
	CategoryTodo  TaskCategory = "TODO"
	CategoryDoing TaskCategory = "DOING"
	CategoryDone  TaskCategory = "DONE"
)

// ParseTaskCategory parses a wire value into a TaskCategory.
func ParseTaskCategory(s string) (TaskCategory, bool) {
	switch TaskCategory(s) {
	case CategoryTodo, CategoryDoing, CategoryDone:
		return TaskCategory(s), true
	default:
		return "", false
	}
}

// Task belongs to exactly one board; the back reference is immutable. Tasks
// cannot outlive their board.
type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:tsk"`

	ID          uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	BoardID     uuid.UUID    `bun:"board_id,notnull,type:uuid" json:"board_id,omitempty"`
	Title       string       `bun:"title,notnull" json:"title,omitempty"`
	Description string       `bun:"description" json:"description,omitempty"`
	Category    TaskCategory `bun:"category,notnull" json:"category,omitempty"`
	CreatorID   uuid.UUID    `bun:"creator_id,notnull,type:uuid" json:"-"`
	Creator     *User        `bun:"rel:belongs-to,join:creator_id=id" json:"creator,omitempty"`
	DueDate     *time.Time   `bun:"due_date,nullzero" json:"due_date,omitempty"`

	Assignees   []*User       `bun:"m2m:task_assignees,join:Task=User" json:"assignees,omitempty"`
	Attachments []*Attachment `bun:"rel:has-many,join:id=task_id" json:"attachments,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// HasAssignee reports whether the user is assigned to the task.
func (t *Task) HasAssignee(u *User) bool {
	if t == nil || u == nil {
		return false
	}
	for _, a := range t.Assignees {
		if a.ID == u.ID {
			return true
		}
	}
	return false
}

// TaskAssignee is the task/user join model.
type TaskAssignee struct {
	bun.BaseModel `bun:"table:task_assignees,alias:tas"`

	TaskID uuid.UUID `bun:"task_id,pk,type:uuid"`
	Task   *Task     `bun:"rel:belongs-to,join:task_id=id"`
	UserID uuid.UUID `bun:"user_id,pk,type:uuid"`
	User   *User     `bun:"rel:belongs-to,join:user_id=id"`
}

// Attachment is file metadata for a task; the bytes live in the blob store
// under StorageKey.
type Attachment struct {
	bun.BaseModel `bun:"table:attachments,alias:att"`

	ID          uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	TaskID      uuid.UUID `bun:"task_id,notnull,type:uuid" json:"task_id,omitempty"`
	Filename    string    `bun:"filename,notnull" json:"filename,omitempty"`
	ContentType string    `bun:"content_type" json:"content_type,omitempty"`
	Size        int64     `bun:"size" json:"size,omitempty"`
	StorageKey  string    `bun:"storage_key,notnull" json:"-"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
