package kanban

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// TokenHeader is the header carrying the session token, in both directions:
// clients send `Cookie: token=<value>` and login responses return the fresh
// token the same way. Note this is the literal request header named Cookie,
// not a Set-Cookie exchange.
const TokenHeader = "Cookie"

// TokenHeaderPrefix introduces the token value inside the header.
const TokenHeaderPrefix = "token="

// PrincipalContextKey is the router.Context locals key the token middleware
// stores the resolved *User under.
const PrincipalContextKey = "principal"

// SessionContextKey is the locals key for the decoded *SessionObject.
const SessionContextKey = "session"

// ExtractToken pulls the session token out of the request's Cookie header.
// Returns "" when the header is absent or carries no token= entry.
func ExtractToken(c router.Context) string {
	header := c.GetString(TokenHeader, "")
	if header == "" {
		return ""
	}

	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, TokenHeaderPrefix) {
			return strings.TrimPrefix(part, TokenHeaderPrefix)
		}
	}
	return ""
}

// IssueTokenHeader writes the token onto the response the same way clients
// send it.
func IssueTokenHeader(c router.Context, token string) {
	c.SetHeader(TokenHeader, TokenHeaderPrefix+token)
}

// PrincipalFromContext returns the authenticated user the token middleware
// resolved, or nil for anonymous requests.
func PrincipalFromContext(c router.Context) *User {
	val := c.Locals(PrincipalContextKey)
	if val == nil {
		return nil
	}
	principal, ok := val.(*User)
	if !ok {
		return nil
	}
	return principal
}

// SessionFromContext returns the decoded session, or nil for anonymous
// requests.
func SessionFromContext(c router.Context) *SessionObject {
	val := c.Locals(SessionContextKey)
	if val == nil {
		return nil
	}
	session, ok := val.(*SessionObject)
	if !ok {
		return nil
	}
	return session
}

// HTTPErrorBody is the uniform JSON error payload.
type HTTPErrorBody struct {
	Error    string `json:"error"`
	TextCode string `json:"text_code,omitempty"`
}

// WriteError maps a domain error onto the response: category picks the
// status, message and text code form the body. Internal errors are logged
// with their metadata; everything else is the client's fault and logs at
// Info.
func WriteError(c router.Context, logger Logger, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "unexpected server error").
			WithCode(goerrors.CodeInternal)
	}

	status := statusForCategory(richErr)

	if status >= 500 {
		logger.Error("request failed: %s (category=%s metadata=%v)",
			richErr.Message, richErr.Category, richErr.Metadata)
	} else {
		logger.Info("request rejected: %s (category=%s status=%d)",
			richErr.Message, richErr.Category, status)
	}

	return c.JSON(status, HTTPErrorBody{
		Error:    richErr.Message,
		TextCode: richErr.TextCode,
	})
}

func statusForCategory(err *goerrors.Error) int {
	switch err.Category {
	case goerrors.CategoryAuth:
		return router.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return router.StatusForbidden
	case goerrors.CategoryNotFound:
		return router.StatusNotFound
	case goerrors.CategoryConflict:
		return router.StatusConflict
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return router.StatusBadRequest
	default:
		return router.StatusInternalServerError
	}
}
