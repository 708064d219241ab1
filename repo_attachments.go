package kanban

import (
	"context"
	"database/sql"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Attachments stores file metadata; the bytes themselves live in the blob
// store under each record's StorageKey.
type Attachments interface {
	GetByID(ctx context.Context, id string) (*Attachment, error)
	ListForTask(ctx context.Context, taskID uuid.UUID) ([]*Attachment, error)
	// ListForBoard returns the attachments of every task on the board. Used
	// to clean the blob store before a board delete.
	ListForBoard(ctx context.Context, tx bun.IDB, boardID uuid.UUID) ([]*Attachment, error)
	Create(ctx context.Context, tx bun.IDB, record *Attachment) (*Attachment, error)
	Delete(ctx context.Context, tx bun.IDB, record *Attachment) error
}

type attachments struct {
	db *bun.DB
}

var _ Attachments = (*attachments)(nil)

// NewAttachmentsRepository returns the bun-backed Attachments store.
func NewAttachmentsRepository(db *bun.DB) Attachments {
	return &attachments{db: db}
}

func (a *attachments) GetByID(ctx context.Context, id string) (*Attachment, error) {
	record := &Attachment{}
	err := a.db.NewSelect().Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttachmentNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "attachment lookup failed")
	}
	return record, nil
}

func (a *attachments) ListForTask(ctx context.Context, taskID uuid.UUID) ([]*Attachment, error) {
	var records []*Attachment
	err := a.db.NewSelect().Model(&records).
		Where("?TableAlias.task_id = ?", taskID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list task attachments")
	}
	return records, nil
}

func (a *attachments) ListForBoard(ctx context.Context, tx bun.IDB, boardID uuid.UUID) ([]*Attachment, error) {
	var records []*Attachment
	err := tx.NewSelect().Model(&records).
		Join("JOIN tasks AS tsk ON tsk.id = ?TableAlias.task_id").
		Where("tsk.board_id = ?", boardID).
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list board attachments")
	}
	return records, nil
}

func (a *attachments) Create(ctx context.Context, tx bun.IDB, record *Attachment) (*Attachment, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create attachment")
	}
	return record, nil
}

func (a *attachments) Delete(ctx context.Context, tx bun.IDB, record *Attachment) error {
	if _, err := tx.NewDelete().Model(record).WherePK().Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete attachment")
	}
	return nil
}
