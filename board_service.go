package kanban

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// BoardService enforces the board rules: admins bypass everything, the owner
// and members share read/write access, and destructive operations stay with
// the owner. Existence is checked before authorization, so a missing board
// is NotFound even for strangers.
type BoardService struct {
	repo   RepositoryManager
	blobs  BlobStore
	policy Policy
	logger Logger
}

// NewBoardService returns a board service. The blob store is used to clean
// attachment objects when boards cascade away.
func NewBoardService(repo RepositoryManager, blobs BlobStore) *BoardService {
	return &BoardService{
		repo:   repo,
		blobs:  blobs,
		policy: NewPolicy(),
		logger: defLogger{},
	}
}

func (s *BoardService) WithLogger(logger Logger) *BoardService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// ListAll returns every board. Admin only.
func (s *BoardService) ListAll(ctx context.Context, principal *User) ([]*Board, error) {
	if err := Require(principal, s.policy.CanListAllBoards(principal)); err != nil {
		return nil, err
	}
	return s.repo.Boards().ListAll(ctx)
}

// ListForUser returns the boards the named user owns or is a member of.
func (s *BoardService) ListForUser(ctx context.Context, principal *User, username string) ([]*Board, error) {
	if err := Require(principal, s.policy.CanListBoardsForUser(principal, username)); err != nil {
		return nil, err
	}

	user, err := s.repo.Users().GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.repo.Boards().ListForUser(ctx, user.ID)
}

// Get returns a fully loaded board.
func (s *BoardService) Get(ctx context.Context, principal *User, boardID string) (*Board, error) {
	board, err := s.repo.Boards().GetByID(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if err := Require(principal, s.policy.CanReadBoard(principal, board)); err != nil {
		return nil, err
	}
	return board, nil
}

// Create makes the caller the owner of a fresh board. The owner does not
// join the member set.
func (s *BoardService) Create(ctx context.Context, principal *User, name string, private bool) (*Board, error) {
	if principal == nil {
		return nil, ErrUnauthenticated
	}

	board := &Board{
		Name:    name,
		OwnerID: principal.ID,
		Owner:   principal,
		Private: private,
	}
	return s.repo.Boards().Create(ctx, board)
}

// BoardUpdate carries the mutable board fields plus the version the client
// read. A stale version fails with a conflict.
type BoardUpdate struct {
	Name    string `json:"name"`
	Private *bool  `json:"is_private"`
	Version int64  `json:"version"`
}

// Update renames or re-flags the board under the optimistic version check.
func (s *BoardService) Update(ctx context.Context, principal *User, boardID string, req BoardUpdate) (*Board, error) {
	board, err := s.repo.Boards().GetByID(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if err := Require(principal, s.policy.CanUpdateBoard(principal, board)); err != nil {
		return nil, err
	}

	if req.Name != "" {
		board.Name = req.Name
	}
	if req.Private != nil {
		board.Private = *req.Private
	}
	board.Version = req.Version

	return s.repo.Boards().Update(ctx, board)
}

// Delete removes the board, its member set, its tasks, and their attachment
// blobs. Owner or admin only.
func (s *BoardService) Delete(ctx context.Context, principal *User, boardID string) error {
	board, err := s.repo.Boards().GetByID(ctx, boardID)
	if err != nil {
		return err
	}
	if err := Require(principal, s.policy.CanDeleteBoard(principal, board)); err != nil {
		return err
	}

	var orphaned []*Attachment
	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		orphaned, err = s.repo.Attachments().ListForBoard(ctx, tx, board.ID)
		if err != nil {
			return err
		}
		if err := s.repo.Tasks().DeleteForBoard(ctx, tx, board.ID); err != nil {
			return err
		}
		return s.repo.Boards().DeleteTx(ctx, tx, board)
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "board deletion transaction failed")
	}

	// Blob deletes run after commit: a failed object delete leaves an
	// orphaned blob, never a dangling metadata row.
	for _, att := range orphaned {
		if err := s.blobs.Delete(ctx, att.StorageKey); err != nil {
			s.logger.Error("failed to delete attachment object %q: %v", att.StorageKey, err)
		}
	}

	s.logger.Info("deleted board %q with %d tasks", board.Name, len(board.Tasks))
	return nil
}

// AddMember adds a user to the board's member set. Adding the owner is a
// silent no-op, re-adding an existing member likewise.
func (s *BoardService) AddMember(ctx context.Context, principal *User, boardID, username string) (*Board, error) {
	board, err := s.repo.Boards().GetByID(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if err := Require(principal, s.policy.CanChangeMembers(principal, board)); err != nil {
		return nil, err
	}

	user, err := s.repo.Users().GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if board.IsOwner(user) {
		return board, nil
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return s.repo.Boards().AddMember(ctx, tx, board.ID, user.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Boards().GetByID(ctx, boardID)
}

// RemoveMember removes a user from the member set. Removing a non-member is
// a no-op.
func (s *BoardService) RemoveMember(ctx context.Context, principal *User, boardID, username string) (*Board, error) {
	board, err := s.repo.Boards().GetByID(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if err := Require(principal, s.policy.CanChangeMembers(principal, board)); err != nil {
		return nil, err
	}

	user, err := s.repo.Users().GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return s.repo.Boards().RemoveMember(ctx, tx, board.ID, user.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Boards().GetByID(ctx, boardID)
}

// ChangeOwner hands the board to a current member. The new owner leaves the
// member set and the old owner joins it, preserving their access.
func (s *BoardService) ChangeOwner(ctx context.Context, principal *User, boardID, newOwnerUsername string) (*Board, error) {
	board, err := s.repo.Boards().GetByID(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if err := Require(principal, s.policy.CanChangeOwner(principal, board)); err != nil {
		return nil, err
	}

	newOwner, err := s.repo.Users().GetByUsername(ctx, newOwnerUsername)
	if err != nil {
		return nil, err
	}

	// Only a current member can take over the board.
	if !board.HasMember(newOwner) {
		return nil, ErrAccessDenied
	}

	oldOwnerID := board.OwnerID

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.Boards().RemoveMember(ctx, tx, board.ID, newOwner.ID); err != nil {
			return err
		}
		if err := s.repo.Boards().AddMember(ctx, tx, board.ID, oldOwnerID); err != nil {
			return err
		}

		board.OwnerID = newOwner.ID
		board.Owner = newOwner
		_, err := s.repo.Boards().UpdateTx(ctx, tx, board)
		return err
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "owner change transaction failed")
	}

	return s.repo.Boards().GetByID(ctx, boardID)
}
