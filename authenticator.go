package kanban

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// Auther implements Authenticator: it verifies credentials at login, issues
// session tokens, and resolves tokens back into principals.
type Auther struct {
	users        Users
	tokenService TokenService
	passwords    PasswordAuthenticator
	logger       Logger
}

// NewAuthenticator returns a new Auther backed by the given user store and
// token service.
func NewAuthenticator(users Users, tokenService TokenService) *Auther {
	return &Auther{
		users:        users,
		tokenService: tokenService,
		passwords:    NewPasswordAuthenticator(),
		logger:       defLogger{},
	}
}

func (a *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		a.logger = logger
	}
	return a
}

func (a *Auther) WithPasswordAuthenticator(p PasswordAuthenticator) *Auther {
	if p != nil {
		a.passwords = p
	}
	return a
}

// Login verifies the username/password pair and returns a fresh session
// token. Disabled, locked, or credentials-expired accounts cannot log in.
// Every failure maps to the same unauthenticated error so callers cannot
// probe which check failed.
func (a *Auther) Login(ctx context.Context, username, password string) (string, error) {
	user, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			a.logger.Info("login for unknown user %q", username)
			return "", ErrUnauthenticated
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user for login")
	}

	if err := a.passwords.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		a.logger.Info("login password mismatch for %q", username)
		return "", ErrUnauthenticated
	}

	if !user.IsActive() {
		a.logger.Warn("login blocked for inactive account %q", username)
		return "", ErrUnauthenticated
	}

	return a.tokenService.Generate(user)
}

// SessionFromToken validates the raw token and returns the session it
// carries. No storage read happens here.
func (a *Auther) SessionFromToken(raw string) (*SessionObject, error) {
	claims, err := a.tokenService.Validate(raw)
	if err != nil {
		return nil, err
	}
	return sessionFromClaims(claims)
}

// PrincipalFromSession re-resolves the authoritative user record for the
// session subject. Token claims are advisory: a role granted or revoked
// server-side wins over whatever the token says, at the cost of one storage
// read per authenticated request.
func (a *Auther) PrincipalFromSession(ctx context.Context, session *SessionObject) (*User, error) {
	if session == nil || session.Username == "" {
		return nil, ErrUnauthenticated
	}

	user, err := a.users.GetByUsername(ctx, session.Username)
	if err != nil {
		if IsNotFound(err) {
			// Subject was deleted after the token was issued.
			return nil, ErrUnauthenticated
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve session principal")
	}

	return user, nil
}

// PrincipalFromToken combines SessionFromToken and PrincipalFromSession.
func (a *Auther) PrincipalFromToken(ctx context.Context, raw string) (*User, error) {
	session, err := a.SessionFromToken(raw)
	if err != nil {
		return nil, err
	}
	return a.PrincipalFromSession(ctx, session)
}

var _ Authenticator = (*Auther)(nil)
