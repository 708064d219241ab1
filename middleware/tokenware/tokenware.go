package tokenware

import (
	"github.com/goliatone/go-router"
	"github.com/kanbanhq/kanban"
)

// Config configures the session token middleware.
type Config struct {
	// Auth resolves raw tokens into sessions and principals. Required.
	Auth kanban.Authenticator

	// Filter skips the middleware for matching requests.
	Filter func(router.Context) bool

	// PrincipalKey is the locals key for the resolved *kanban.User.
	// Defaults to kanban.PrincipalContextKey.
	PrincipalKey string

	// SessionKey is the locals key for the decoded *kanban.SessionObject.
	// Defaults to kanban.SessionContextKey.
	SessionKey string

	Logger kanban.Logger
}

// New returns middleware that resolves the session token from the Cookie
// header into a principal. Resolution never fails the request: an absent,
// expired, or tampered token simply leaves the request anonymous, and the
// authorization checks downstream reject whatever needs a principal.
func New(config ...Config) router.MiddlewareFunc {
	cfg := getDefaultConfig(config...)

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw := kanban.ExtractToken(ctx)
			if raw == "" {
				return ctx.Next()
			}

			session, err := cfg.Auth.SessionFromToken(raw)
			if err != nil {
				cfg.Logger.Debug("token rejected, proceeding anonymous: %v", err)
				return ctx.Next()
			}

			principal, err := cfg.Auth.PrincipalFromSession(ctx.Context(), session)
			if err != nil {
				cfg.Logger.Debug("session subject %q unresolvable, proceeding anonymous: %v",
					session.Username, err)
				return ctx.Next()
			}

			ctx.Locals(cfg.SessionKey, session)
			ctx.Locals(cfg.PrincipalKey, principal)

			return ctx.Next()
		}
	}
}

func getDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Auth == nil {
		panic("tokenware: Config.Auth is required")
	}

	if cfg.PrincipalKey == "" {
		cfg.PrincipalKey = kanban.PrincipalContextKey
	}

	if cfg.SessionKey == "" {
		cfg.SessionKey = kanban.SessionContextKey
	}

	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}

	return cfg
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
