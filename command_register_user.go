package kanban

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// RegisterUserMessage creates a disabled account and mails an activation
// token. The account cannot log in until the token is redeemed.
type RegisterUserMessage struct {
	Username    string `json:"username"`
	Displayname string `json:"displayname"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Language    string `json:"language"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserHandler struct {
	repo   RepositoryManager
	mailer NotificationMailer
	config Config
	logger Logger
}

func NewRegisterUserHandler(repo RepositoryManager, mailer NotificationMailer, config Config) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:   repo,
		mailer: mailer,
		config: config,
		logger: defLogger{},
	}
}

func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		activation, err := NewSecondaryToken(h.config.GetActivationTokenTTL())
		if err != nil {
			return err
		}

		user.PasswordHash = hash
		user.Username = event.Username
		user.Displayname = event.Displayname
		user.Email = strings.ToLower(strings.TrimSpace(event.Email))
		user.Language = languageOrDefault(event.Language)
		user.Roles = []UserRole{RoleUser}
		user.Enabled = false
		user.ActivationToken = activation

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	// Mail delivery happens outside the transaction: a slow SMTP server must
	// not hold a storage lock, and the account can re-request a token.
	if err := h.mailer.SendActivation(ctx, user, user.ActivationToken.Value); err != nil {
		h.logger.Error("failed to send activation mail to %q: %v", user.Email, err)
	}

	return nil
}

func languageOrDefault(lang string) string {
	if lang == "" {
		return DefaultLanguage
	}
	return lang
}
