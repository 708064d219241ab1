package kanban

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// UserService covers account operations that act on existing users: profile
// changes, account deletion, user search, and the reset-token probe.
type UserService struct {
	repo         RepositoryManager
	tokenService TokenService
	passwords    PasswordAuthenticator
	policy       Policy
	logger       Logger
}

// NewUserService returns a user service backed by the given repositories.
func NewUserService(repo RepositoryManager, tokenService TokenService) *UserService {
	return &UserService{
		repo:         repo,
		tokenService: tokenService,
		passwords:    NewPasswordAuthenticator(),
		policy:       NewPolicy(),
		logger:       defLogger{},
	}
}

func (s *UserService) WithLogger(logger Logger) *UserService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *UserService) WithPasswordAuthenticator(p PasswordAuthenticator) *UserService {
	if p != nil {
		s.passwords = p
	}
	return s
}

// ChangeDetails carries the optional profile updates. Empty fields are left
// untouched. OldPassword must always match the current password.
type ChangeDetails struct {
	OldPassword string `json:"old_password"`
	Displayname string `json:"displayname"`
	Password    string `json:"password"`
	Language    string `json:"language"`
}

// ChangeDetails updates the principal's own profile and returns the updated
// record plus a fresh session token reflecting the new claims.
func (s *UserService) ChangeDetails(ctx context.Context, principal *User, req ChangeDetails) (*User, string, error) {
	if principal == nil {
		return nil, "", ErrUnauthenticated
	}

	if err := s.passwords.ComparePasswordAndHash(req.OldPassword, principal.PasswordHash); err != nil {
		s.logger.Info("change details rejected for %q: password mismatch", principal.Username)
		return nil, "", ErrUnauthenticated
	}

	if req.Displayname != "" {
		principal.Displayname = req.Displayname
	}
	if req.Language != "" {
		principal.Language = req.Language
	}
	if req.Password != "" {
		hash, err := s.passwords.HashPassword(req.Password)
		if err != nil {
			return nil, "", err
		}
		principal.PasswordHash = hash
	}

	updated, err := s.repo.Users().Update(ctx, principal)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokenService.Generate(updated)
	if err != nil {
		return nil, "", err
	}

	return updated, token, nil
}

// DeleteUser removes an account. It conflicts while the target still owns
// boards or created tasks; those must be deleted or handed over first. On
// success the user also disappears from every member set and assignee list.
func (s *UserService) DeleteUser(ctx context.Context, principal *User, username string) error {
	if err := Require(principal, s.policy.CanDeleteUser(principal, username)); err != nil {
		return err
	}

	target, err := s.repo.Users().GetByUsername(ctx, username)
	if err != nil {
		return err
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		owned, err := s.repo.Boards().CountOwnedBy(ctx, tx, target.ID)
		if err != nil {
			return err
		}
		if owned > 0 {
			return goerrors.New("user still owns boards", goerrors.CategoryConflict).
				WithCode(goerrors.CodeConflict).
				WithMetadata(map[string]any{"boards": owned})
		}

		created, err := s.repo.Tasks().CountCreatedBy(ctx, tx, target.ID)
		if err != nil {
			return err
		}
		if created > 0 {
			return goerrors.New("user still owns tasks", goerrors.CategoryConflict).
				WithCode(goerrors.CodeConflict).
				WithMetadata(map[string]any{"tasks": created})
		}

		if err := s.repo.Boards().RemoveMemberEverywhere(ctx, tx, target.ID); err != nil {
			return err
		}
		if err := s.repo.Tasks().RemoveAssigneeEverywhere(ctx, tx, target.ID); err != nil {
			return err
		}

		return s.repo.Users().DeleteTx(ctx, tx, target)
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user deletion transaction failed")
	}

	s.logger.Info("deleted user %q", username)
	return nil
}

// FindUsersLike searches username, email, and displayname by substring. Any
// authenticated principal may search; the results power member pickers.
func (s *UserService) FindUsersLike(ctx context.Context, principal *User, like string) ([]*User, error) {
	if principal == nil {
		return nil, ErrUnauthenticated
	}
	return s.repo.Users().FindLike(ctx, like)
}

// Me returns the principal's own record.
func (s *UserService) Me(principal *User) (*User, error) {
	if principal == nil {
		return nil, ErrUnauthenticated
	}
	return principal, nil
}

// VerifyResetToken checks a pending reset token without consuming it, so a
// reset form can validate its link before asking for a new password. An
// expired token is still cleared.
func (s *UserService) VerifyResetToken(ctx context.Context, username, token string) error {
	user, err := s.repo.Users().GetByUsername(ctx, username)
	if err != nil {
		return err
	}

	clear, verr := VerifySecondaryToken(user.PasswordResetToken, token)
	if clear {
		user.PasswordResetToken = &SecondaryToken{}
		if _, err := s.repo.Users().Update(ctx, user); err != nil {
			s.logger.Error("failed to clear expired reset token for %q: %v", username, err)
		}
	}
	return verr
}
