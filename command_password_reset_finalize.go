package kanban

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// FinalizePasswordResetMessage redeems a reset token and replaces the
// account password. Success consumes the token and lifts a credentials
// expired flag; an expired token is cleared and the request fails.
type FinalizePasswordResetMessage struct {
	Username string `json:"username"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (e FinalizePasswordResetMessage) Type() string { return "password.reset.finalize" }

type FinalizePasswordResetHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewFinalizePasswordResetHandler(repo RepositoryManager) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{repo: repo, logger: defLogger{}}
}

func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	// Token verification errors travel in tokenErr so the expired-token
	// clear can still commit.
	var tokenErr error

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByUsername(ctx, event.Username)
		if err != nil {
			return err
		}

		clear, verr := VerifySecondaryToken(user.PasswordResetToken, event.Token)
		if verr != nil {
			tokenErr = verr
			if clear {
				user.PasswordResetToken = &SecondaryToken{}
				if _, err := h.repo.Users().UpdateTx(ctx, tx, user); err != nil {
					return err
				}
			}
			return nil
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.PasswordResetToken = &SecondaryToken{}
		user.CredentialsExpired = false
		if _, err := h.repo.Users().UpdateTx(ctx, tx, user); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password reset transaction failed")
	}

	return tokenErr
}
