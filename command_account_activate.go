package kanban

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ActivateAccountMessage redeems an activation token and enables the
// account. The token is single use: success consumes it, and an expired
// token is cleared so the same dead value cannot be retried.
type ActivateAccountMessage struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

func (e ActivateAccountMessage) Type() string { return "user.activate" }

type ActivateAccountHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewActivateAccountHandler(repo RepositoryManager) *ActivateAccountHandler {
	return &ActivateAccountHandler{repo: repo, logger: defLogger{}}
}

func (h *ActivateAccountHandler) WithLogger(logger Logger) *ActivateAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ActivateAccountHandler) Execute(ctx context.Context, event ActivateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account activation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateAccountHandler) execute(ctx context.Context, event ActivateAccountMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	// The expired-token clear must commit even though the activation fails,
	// so verification errors travel in tokenErr instead of aborting the
	// transaction.
	var tokenErr error

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByUsername(ctx, event.Username)
		if err != nil {
			return err
		}

		clear, verr := VerifySecondaryToken(user.ActivationToken, event.Token)
		if verr != nil {
			tokenErr = verr
			if clear {
				user.ActivationToken = &SecondaryToken{}
				if _, err := h.repo.Users().UpdateTx(ctx, tx, user); err != nil {
					return err
				}
			}
			return nil
		}

		user.Enabled = true
		user.ActivationToken = &SecondaryToken{}
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
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account activation transaction failed")
	}

	return tokenErr
}
