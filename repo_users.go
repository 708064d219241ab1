package kanban

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the identity store. Username lookups are case-sensitive; email
// lookups are case-insensitive (emails are normalized to lower case at
// registration).
type Users interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// GetByIdentifier resolves by email when the input contains an "@",
	// by username otherwise.
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	FindLike(ctx context.Context, like string) ([]*User, error)
	Create(ctx context.Context, record *User) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	Update(ctx context.Context, record *User) (*User, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	Delete(ctx context.Context, record *User) error
	DeleteTx(ctx context.Context, tx bun.IDB, record *User) error
}

type users struct {
	repo repository.Repository[*User]
	db   *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository returns the bun-backed Users store.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &users{repo: repo, db: db}
}

func (a *users) GetByID(ctx context.Context, id string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	return a.wrapLookup(record, err)
}

func (a *users) GetByUsername(ctx context.Context, username string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().Model(record).
		Where("?TableAlias.username = ?", username).
		Limit(1).
		Scan(ctx)
	return a.wrapLookup(record, err)
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().Model(record).
		Where("lower(?TableAlias.email) = lower(?)", email).
		Limit(1).
		Scan(ctx)
	return a.wrapLookup(record, err)
}

func (a *users) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return a.GetByEmail(ctx, strings.ToLower(identifier))
	}
	return a.GetByUsername(ctx, identifier)
}

func (a *users) FindLike(ctx context.Context, like string) ([]*User, error) {
	var records []*User
	pattern := "%" + like + "%"

	err := a.db.NewSelect().Model(&records).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.username LIKE ?", pattern).
				WhereOr("lower(?TableAlias.email) LIKE lower(?)", pattern).
				WhereOr("?TableAlias.displayname LIKE ?", pattern)
		}).
		Order("username ASC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to search users")
	}

	return records, nil
}

func (a *users) Create(ctx context.Context, record *User) (*User, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	created, err := a.repo.CreateTx(ctx, tx, record)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, goerrors.New("username or email already taken", goerrors.CategoryConflict).
				WithCode(goerrors.CodeConflict)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create user")
	}
	return created, nil
}

func (a *users) Update(ctx context.Context, record *User) (*User, error) {
	return a.UpdateTx(ctx, a.db, record)
}

// UpdateTx writes every mutable column explicitly. A generated update that
// omits zero-valued fields would silently drop secondary-token clears and
// flag resets; consuming a token must persist the empty value.
func (a *users) UpdateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	now := time.Now()
	record.UpdatedAt = &now

	_, err := tx.NewUpdate().Model(record).
		Column(
			"displayname",
			"email",
			"password_hash",
			"roles",
			"language",
			"is_enabled",
			"is_locked",
			"credentials_expired",
			"activation_token",
			"activation_expires_at",
			"reset_token",
			"reset_expires_at",
			"updated_at",
		).
		WherePK().
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, goerrors.New("username or email already taken", goerrors.CategoryConflict).
				WithCode(goerrors.CodeConflict)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user")
	}
	return record, nil
}

func (a *users) Delete(ctx context.Context, record *User) error {
	return a.DeleteTx(ctx, a.db, record)
}

func (a *users) DeleteTx(ctx context.Context, tx bun.IDB, record *User) error {
	if _, err := tx.NewDelete().Model(record).WherePK().Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete user")
	}
	return nil
}

func (a *users) wrapLookup(record *User, err error) (*User, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user lookup failed")
	}
	return record, nil
}

// isUniqueViolation sniffs driver-specific unique constraint failures. The
// sqlite shim reports them as plain errors with a recognizable message.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
