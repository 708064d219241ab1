package kanban

import (
	"context"
	"database/sql"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Boards is the board store. GetByID eagerly loads owner, members, and
// tasks, so the policy predicates can run against a fully populated record.
type Boards interface {
	GetByID(ctx context.Context, id string) (*Board, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id string) (*Board, error)
	ListAll(ctx context.Context) ([]*Board, error)
	// ListForUser returns boards the user owns or is a member of.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*Board, error)
	CountOwnedBy(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int, error)
	Create(ctx context.Context, record *Board) (*Board, error)
	// Update writes the board with an optimistic version check: the row is
	// only touched when its stored version still matches record.Version.
	Update(ctx context.Context, record *Board) (*Board, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *Board) (*Board, error)
	Delete(ctx context.Context, record *Board) error
	DeleteTx(ctx context.Context, tx bun.IDB, record *Board) error
	AddMember(ctx context.Context, tx bun.IDB, boardID, userID uuid.UUID) error
	RemoveMember(ctx context.Context, tx bun.IDB, boardID, userID uuid.UUID) error
	// RemoveMemberEverywhere drops the user from every board's member set.
	// Used when deleting an account.
	RemoveMemberEverywhere(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type boards struct {
	db *bun.DB
}

var _ Boards = (*boards)(nil)

// NewBoardsRepository returns the bun-backed Boards store.
func NewBoardsRepository(db *bun.DB) Boards {
	return &boards{db: db}
}

func (b *boards) GetByID(ctx context.Context, id string) (*Board, error) {
	return b.GetByIDTx(ctx, b.db, id)
}

func (b *boards) GetByIDTx(ctx context.Context, tx bun.IDB, id string) (*Board, error) {
	record := &Board{}
	err := tx.NewSelect().Model(record).
		Relation("Owner").
		Relation("Members").
		Relation("Tasks").
		Relation("Tasks.Assignees").
		Relation("Tasks.Attachments").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBoardNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "board lookup failed")
	}
	return record, nil
}

func (b *boards) ListAll(ctx context.Context) ([]*Board, error) {
	var records []*Board
	err := b.db.NewSelect().Model(&records).
		Relation("Owner").
		Relation("Members").
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list boards")
	}
	return records, nil
}

func (b *boards) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Board, error) {
	var ids []uuid.UUID
	err := b.db.NewSelect().Model((*BoardMember)(nil)).
		Column("board_id").
		Where("user_id = ?", userID).
		Scan(ctx, &ids)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve board memberships")
	}

	var records []*Board
	q := b.db.NewSelect().Model(&records).
		Relation("Owner").
		Relation("Members")
	if len(ids) > 0 {
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.owner_id = ?", userID).
				WhereOr("?TableAlias.id IN (?)", bun.In(ids))
		})
	} else {
		q = q.Where("?TableAlias.owner_id = ?", userID)
	}

	if err := q.Order("name ASC").Scan(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list boards for user")
	}
	return records, nil
}

func (b *boards) CountOwnedBy(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int, error) {
	count, err := tx.NewSelect().Model((*Board)(nil)).
		Where("?TableAlias.owner_id = ?", userID).
		Count(ctx)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to count owned boards")
	}
	return count, nil
}

func (b *boards) Create(ctx context.Context, record *Board) (*Board, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if _, err := b.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create board")
	}
	return record, nil
}

func (b *boards) Update(ctx context.Context, record *Board) (*Board, error) {
	return b.UpdateTx(ctx, b.db, record)
}

func (b *boards) UpdateTx(ctx context.Context, tx bun.IDB, record *Board) (*Board, error) {
	readVersion := record.Version
	record.Version++

	res, err := tx.NewUpdate().Model(record).
		Column("name", "owner_id", "is_private", "version", "updated_at").
		WherePK().
		Where("?TableAlias.version = ?", readVersion).
		Exec(ctx)
	if err != nil {
		record.Version = readVersion
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update board")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		record.Version = readVersion
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update board")
	}
	if affected == 0 {
		record.Version = readVersion
		// Either the row vanished or the version moved. Distinguish so the
		// client gets a 404 for the former and a 409 for the latter.
		exists, err := tx.NewSelect().Model((*Board)(nil)).
			Where("?TableAlias.id = ?", record.ID).
			Exists(ctx)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update board")
		}
		if !exists {
			return nil, ErrBoardNotFound
		}
		return nil, ErrStaleVersion
	}

	return record, nil
}

func (b *boards) Delete(ctx context.Context, record *Board) error {
	return b.DeleteTx(ctx, b.db, record)
}

// DeleteTx removes the board together with its member set. Tasks are deleted
// separately by the board service so attachments can be cleaned out of the
// blob store first.
func (b *boards) DeleteTx(ctx context.Context, tx bun.IDB, record *Board) error {
	if _, err := tx.NewDelete().Model((*BoardMember)(nil)).
		Where("board_id = ?", record.ID).
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete board members")
	}
	if _, err := tx.NewDelete().Model(record).WherePK().Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete board")
	}
	return nil
}

func (b *boards) AddMember(ctx context.Context, tx bun.IDB, boardID, userID uuid.UUID) error {
	member := &BoardMember{BoardID: boardID, UserID: userID}
	_, err := tx.NewInsert().Model(member).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to add board member")
	}
	return nil
}

func (b *boards) RemoveMember(ctx context.Context, tx bun.IDB, boardID, userID uuid.UUID) error {
	_, err := tx.NewDelete().Model((*BoardMember)(nil)).
		Where("board_id = ?", boardID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove board member")
	}
	return nil
}

func (b *boards) RemoveMemberEverywhere(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().Model((*BoardMember)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove user from boards")
	}
	return nil
}
