package kanban

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// InitializePasswordResetMessage starts a password reset: a fresh token is
// stored on the account and mailed to it. An unknown identifier succeeds
// silently so the endpoint cannot be used to probe which accounts exist.
// Requesting again replaces any pending token.
type InitializePasswordResetMessage struct {
	// Identifier is a username or an email address.
	Identifier string `json:"identifier"`
}

func (e InitializePasswordResetMessage) Type() string { return "password.reset.initialize" }

type InitializePasswordResetHandler struct {
	repo   RepositoryManager
	mailer NotificationMailer
	config Config
	logger Logger
}

func NewInitializePasswordResetHandler(repo RepositoryManager, mailer NotificationMailer, config Config) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:   repo,
		mailer: mailer,
		config: config,
		logger: defLogger{},
	}
}

func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByIdentifier(ctx, event.Identifier)
	if err != nil {
		if IsNotFound(err) {
			h.logger.Info("password reset requested for unknown identifier %q", event.Identifier)
			return nil
		}
		return err
	}

	reset, err := NewSecondaryToken(h.config.GetResetTokenTTL())
	if err != nil {
		return err
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user.PasswordResetToken = reset
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

	if err := h.mailer.SendPasswordReset(ctx, user, reset.Value); err != nil {
		h.logger.Error("failed to send password reset mail to %q: %v", user.Email, err)
	}

	return nil
}
