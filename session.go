package kanban

import (
	"fmt"
	"time"
)

// SessionObject holds the attributes of a resolved session: the subject
// username plus the advisory claims carried by the token.
type SessionObject struct {
	Username       string     `json:"username,omitempty"`
	Displayname    string     `json:"displayname,omitempty"`
	Email          string     `json:"email,omitempty"`
	Language       string     `json:"language,omitempty"`
	Roles          []UserRole `json:"roles,omitempty"`
	Issuer         string     `json:"issuer,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

// GetUsername returns the subject username.
func (s *SessionObject) GetUsername() string {
	return s.Username
}

// GetLanguage returns the token's language claim, falling back to the
// default mail language. This is the fast path used for localization: it
// never touches storage.
func (s *SessionObject) GetLanguage() string {
	if s == nil || s.Language == "" {
		return DefaultLanguage
	}
	return s.Language
}

// HasRole checks the advisory role set. Authorization decisions use the
// re-resolved User, not this.
func (s *SessionObject) HasRole(role UserRole) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf("user=%s iss=%s iat=%s roles=%v", s.Username, s.Issuer, issuedAt, s.Roles)
}

// sessionFromClaims converts validated token claims into a SessionObject.
func sessionFromClaims(claims *SessionClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrTokenMalformed
	}

	issuedAt := claims.IssuedAtTime()
	expiresAt := claims.Expires()

	return &SessionObject{
		Username:       claims.Username(),
		Displayname:    claims.Displayname,
		Email:          claims.Email,
		Language:       claims.Language,
		Roles:          claims.Roles,
		Issuer:         claims.RegisteredClaims.Issuer,
		IssuedAt:       &issuedAt,
		ExpirationDate: &expiresAt,
	}, nil
}
