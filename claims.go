package kanban

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the claims embedded in a session token. The subject is
// the username; everything else is advisory display data. Authorization
// never trusts these fields directly: the authoritative identity is always
// re-read from storage (see Auther.PrincipalFromSession).
type SessionClaims struct {
	jwt.RegisteredClaims
	Displayname string     `json:"displayname,omitempty"`
	Email       string     `json:"email,omitempty"`
	Language    string     `json:"language,omitempty"`
	Roles       []UserRole `json:"roles,omitempty"`
}

// Username returns the token subject.
func (c *SessionClaims) Username() string {
	return c.RegisteredClaims.Subject
}

// HasRole checks the advisory role set carried by the token.
func (c *SessionClaims) HasRole(role UserRole) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Expires returns the expiration time, zero if absent.
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAtTime returns the issuance time, zero if absent.
func (c *SessionClaims) IssuedAtTime() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
