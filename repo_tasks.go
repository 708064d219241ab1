package kanban

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Tasks is the task store. Tasks are always reached through their board; the
// cross-board queries exist for per-user listings and due-date reminders.
type Tasks interface {
	GetByID(ctx context.Context, id string) (*Task, error)
	GetForBoard(ctx context.Context, boardID uuid.UUID) ([]*Task, error)
	FindByAssignee(ctx context.Context, userID uuid.UUID) ([]*Task, error)
	CountCreatedBy(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int, error)
	// FindDueOn returns tasks whose due date falls on the given calendar day
	// in the day's location, with assignees loaded.
	FindDueOn(ctx context.Context, day time.Time) ([]*Task, error)
	Create(ctx context.Context, tx bun.IDB, record *Task) (*Task, error)
	Update(ctx context.Context, tx bun.IDB, record *Task) (*Task, error)
	Delete(ctx context.Context, tx bun.IDB, record *Task) error
	DeleteForBoard(ctx context.Context, tx bun.IDB, boardID uuid.UUID) error
	// SetAssignees replaces the task's assignee set.
	SetAssignees(ctx context.Context, tx bun.IDB, taskID uuid.UUID, userIDs []uuid.UUID) error
	// RemoveAssigneeEverywhere drops the user from every task's assignee set.
	RemoveAssigneeEverywhere(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type tasks struct {
	db *bun.DB
}

var _ Tasks = (*tasks)(nil)

// NewTasksRepository returns the bun-backed Tasks store.
func NewTasksRepository(db *bun.DB) Tasks {
	return &tasks{db: db}
}

func (t *tasks) GetByID(ctx context.Context, id string) (*Task, error) {
	record := &Task{}
	err := t.db.NewSelect().Model(record).
		Relation("Creator").
		Relation("Assignees").
		Relation("Attachments").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "task lookup failed")
	}
	return record, nil
}

func (t *tasks) GetForBoard(ctx context.Context, boardID uuid.UUID) ([]*Task, error) {
	var records []*Task
	err := t.db.NewSelect().Model(&records).
		Relation("Creator").
		Relation("Assignees").
		Relation("Attachments").
		Where("?TableAlias.board_id = ?", boardID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list board tasks")
	}
	return records, nil
}

func (t *tasks) FindByAssignee(ctx context.Context, userID uuid.UUID) ([]*Task, error) {
	var ids []uuid.UUID
	err := t.db.NewSelect().Model((*TaskAssignee)(nil)).
		Column("task_id").
		Where("user_id = ?", userID).
		Scan(ctx, &ids)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve task assignments")
	}
	if len(ids) == 0 {
		return []*Task{}, nil
	}

	var records []*Task
	err = t.db.NewSelect().Model(&records).
		Relation("Creator").
		Relation("Assignees").
		Where("?TableAlias.id IN (?)", bun.In(ids)).
		Order("due_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list tasks for assignee")
	}
	return records, nil
}

func (t *tasks) CountCreatedBy(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int, error) {
	count, err := tx.NewSelect().Model((*Task)(nil)).
		Where("?TableAlias.creator_id = ?", userID).
		Count(ctx)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to count created tasks")
	}
	return count, nil
}

func (t *tasks) FindDueOn(ctx context.Context, day time.Time) ([]*Task, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var records []*Task
	err := t.db.NewSelect().Model(&records).
		Relation("Assignees").
		Where("?TableAlias.due_date >= ?", start).
		Where("?TableAlias.due_date < ?", end).
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list due tasks")
	}
	return records, nil
}

func (t *tasks) Create(ctx context.Context, tx bun.IDB, record *Task) (*Task, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create task")
	}
	return record, nil
}

func (t *tasks) Update(ctx context.Context, tx bun.IDB, record *Task) (*Task, error) {
	now := time.Now()
	record.UpdatedAt = &now

	_, err := tx.NewUpdate().Model(record).
		Column("title", "description", "category", "due_date", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update task")
	}
	return record, nil
}

func (t *tasks) Delete(ctx context.Context, tx bun.IDB, record *Task) error {
	if _, err := tx.NewDelete().Model((*TaskAssignee)(nil)).
		Where("task_id = ?", record.ID).
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete task assignees")
	}
	if _, err := tx.NewDelete().Model((*Attachment)(nil)).
		Where("task_id = ?", record.ID).
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete task attachments")
	}
	if _, err := tx.NewDelete().Model(record).WherePK().Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete task")
	}
	return nil
}

func (t *tasks) DeleteForBoard(ctx context.Context, tx bun.IDB, boardID uuid.UUID) error {
	var ids []uuid.UUID
	err := tx.NewSelect().Model((*Task)(nil)).
		Column("id").
		Where("board_id = ?", boardID).
		Scan(ctx, &ids)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve board tasks")
	}
	if len(ids) == 0 {
		return nil
	}

	if _, err := tx.NewDelete().Model((*TaskAssignee)(nil)).
		Where("task_id IN (?)", bun.In(ids)).
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete task assignees")
	}
	if _, err := tx.NewDelete().Model((*Attachment)(nil)).
		Where("task_id IN (?)", bun.In(ids)).
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete task attachments")
	}
	if _, err := tx.NewDelete().Model((*Task)(nil)).
		Where("board_id = ?", boardID).
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete board tasks")
	}
	return nil
}

func (t *tasks) SetAssignees(ctx context.Context, tx bun.IDB, taskID uuid.UUID, userIDs []uuid.UUID) error {
	if _, err := tx.NewDelete().Model((*TaskAssignee)(nil)).
		Where("task_id = ?", taskID).
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear task assignees")
	}
	if len(userIDs) == 0 {
		return nil
	}

	rows := make([]*TaskAssignee, 0, len(userIDs))
	for _, id := range userIDs {
		rows = append(rows, &TaskAssignee{TaskID: taskID, UserID: id})
	}
	if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to set task assignees")
	}
	return nil
}

func (t *tasks) RemoveAssigneeEverywhere(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().Model((*TaskAssignee)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove user task assignments")
	}
	return nil
}
