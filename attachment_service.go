package kanban

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AttachmentService manages task attachments. Metadata lives in the store,
// bytes in the blob store; clients exchange the actual content through
// presigned URLs so file traffic never crosses the API server.
type AttachmentService struct {
	repo   RepositoryManager
	blobs  BlobStore
	tasks  *TaskService
	logger Logger
}

// NewAttachmentService returns an attachment service. It reuses the task
// service's board scoping so file access follows the exact same rules as the
// task it hangs off.
func NewAttachmentService(repo RepositoryManager, blobs BlobStore, tasks *TaskService) *AttachmentService {
	return &AttachmentService{
		repo:   repo,
		blobs:  blobs,
		tasks:  tasks,
		logger: defLogger{},
	}
}

func (s *AttachmentService) WithLogger(logger Logger) *AttachmentService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// AttachmentUpload is the metadata the client announces before uploading.
type AttachmentUpload struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// PendingUpload pairs the stored metadata with the one-time upload URL.
type PendingUpload struct {
	Attachment *Attachment `json:"attachment"`
	UploadURL  string      `json:"upload_url"`
}

// Upload records the attachment and hands back a presigned PUT URL for the
// bytes.
func (s *AttachmentService) Upload(ctx context.Context, principal *User, boardID, taskID string, req AttachmentUpload) (*PendingUpload, error) {
	task, err := s.tasks.Get(ctx, principal, boardID, taskID)
	if err != nil {
		return nil, err
	}

	record := &Attachment{
		ID:          uuid.New(),
		TaskID:      task.ID,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Size:        req.Size,
	}
	record.StorageKey = storageKeyFor(task, record)

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err = s.repo.Attachments().Create(ctx, tx, record)
		return err
	})
	if err != nil {
		return nil, err
	}

	url, err := s.blobs.PresignUpload(ctx, record.StorageKey)
	if err != nil {
		return nil, err
	}

	return &PendingUpload{Attachment: record, UploadURL: url}, nil
}

// List returns the task's attachment metadata.
func (s *AttachmentService) List(ctx context.Context, principal *User, boardID, taskID string) ([]*Attachment, error) {
	task, err := s.tasks.Get(ctx, principal, boardID, taskID)
	if err != nil {
		return nil, err
	}
	return s.repo.Attachments().ListForTask(ctx, task.ID)
}

// Download returns a presigned GET URL for the attachment bytes.
func (s *AttachmentService) Download(ctx context.Context, principal *User, boardID, taskID, attachmentID string) (string, error) {
	record, err := s.attachmentOnTask(ctx, principal, boardID, taskID, attachmentID)
	if err != nil {
		return "", err
	}
	return s.blobs.PresignDownload(ctx, record.StorageKey)
}

// Delete removes the metadata row and the stored object.
func (s *AttachmentService) Delete(ctx context.Context, principal *User, boardID, taskID, attachmentID string) error {
	record, err := s.attachmentOnTask(ctx, principal, boardID, taskID, attachmentID)
	if err != nil {
		return err
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return s.repo.Attachments().Delete(ctx, tx, record)
	})
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, record.StorageKey); err != nil {
		s.logger.Error("failed to delete attachment object %q: %v", record.StorageKey, err)
	}
	return nil
}

// attachmentOnTask loads the attachment and confirms it hangs off the given
// task, which in turn must belong to the given board.
func (s *AttachmentService) attachmentOnTask(ctx context.Context, principal *User, boardID, taskID, attachmentID string) (*Attachment, error) {
	task, err := s.tasks.Get(ctx, principal, boardID, taskID)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.Attachments().GetByID(ctx, attachmentID)
	if err != nil {
		return nil, err
	}
	if record.TaskID != task.ID {
		return nil, ErrAttachmentNotFound
	}
	return record, nil
}

func storageKeyFor(task *Task, att *Attachment) string {
	return fmt.Sprintf("boards/%s/tasks/%s/%s", task.BoardID, task.ID, att.ID)
}
