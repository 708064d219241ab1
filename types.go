package kanban

import (
	"context"
	"fmt"
	"time"
)

// Logger is the minimal logging surface the core needs. cmd/kanban-server
// plugs in a structured logger; tests usually pass a mock.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds the options the core reads. Implementations live with the
// application wiring.
type Config interface {
	GetSigningKey() string
	GetHostname() string
	GetTokenExpiration() time.Duration
	GetActivationTokenTTL() time.Duration
	GetResetTokenTTL() time.Duration
	GetMailFrom() string
}

// Authenticator holds methods to deal with authentication.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
	SessionFromToken(token string) (*SessionObject, error)
	PrincipalFromSession(ctx context.Context, session *SessionObject) (*User, error)
	PrincipalFromToken(ctx context.Context, token string) (*User, error)
}

// Mailer delivers already-rendered HTML mail. The core supplies recipient,
// subject, and body; template rendering lives with the implementation's
// callers in the mailer package.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// NotificationMailer renders and delivers the application's outbound mail.
// The language for each message comes from the recipient's profile.
type NotificationMailer interface {
	SendActivation(ctx context.Context, user *User, token string) error
	SendPasswordReset(ctx context.Context, user *User, token string) error
	SendTaskReminder(ctx context.Context, user *User, tasks []*Task) error
}

// BlobStore keeps attachment bytes. Keys are opaque to the core.
type BlobStore interface {
	PresignUpload(ctx context.Context, key string) (string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// PasswordAuthenticator hashes and verifies passwords.
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] KANBAN "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] KANBAN "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] KANBAN "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] KANBAN "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
