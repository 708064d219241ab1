package kanban

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories plus transaction handling.
type RepositoryManager interface {
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Users() Users
	Boards() Boards
	Tasks() Tasks
	Attachments() Attachments
	Validate() error
	MustValidate()
}

type mngr struct {
	db          *bun.DB
	users       Users
	boards      Boards
	tasks       Tasks
	attachments Attachments
}

// NewRepositoryManager wires the bun-backed repositories. It registers the
// m2m join models bun needs to resolve board members and task assignees.
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	db.RegisterModel((*BoardMember)(nil), (*TaskAssignee)(nil))

	return &mngr{
		db:          db,
		users:       NewUsersRepository(db),
		boards:      NewBoardsRepository(db),
		tasks:       NewTasksRepository(db),
		attachments: NewAttachmentsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}
	if m.boards == nil {
		return errors.New("repository boards should be initialized")
	}
	if m.tasks == nil {
		return errors.New("repository tasks should be initialized")
	}
	if m.attachments == nil {
		return errors.New("repository attachments should be initialized")
	}
	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Boards() Boards {
	return m.boards
}

func (m mngr) Tasks() Tasks {
	return m.tasks
}

func (m mngr) Attachments() Attachments {
	return m.attachments
}
