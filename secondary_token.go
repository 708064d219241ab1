package kanban

import (
	"crypto/rand"
	"math/big"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// secondaryTokenBits is the entropy of a generated token. 130 bits rendered
// base 32 yields a 26 character value.
const secondaryTokenBits = 130

// SecondaryToken is a single-use, time-limited credential attached to a user
// for account activation or password reset. It is distinct from the session
// token: opaque, stored server-side, and consumed exactly once.
type SecondaryToken struct {
	Value     string     `bun:"token" json:"-"`
	ExpiresAt *time.Time `bun:"expires_at,nullzero" json:"-"`
}

// NewSecondaryToken draws a fresh random token valid for ttl from now.
func NewSecondaryToken(ttl time.Duration) (*SecondaryToken, error) {
	return newSecondaryTokenAt(ttl, time.Now())
}

func newSecondaryTokenAt(ttl time.Duration, now time.Time) (*SecondaryToken, error) {
	max := new(big.Int).Lsh(big.NewInt(1), secondaryTokenBits)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate token")
	}

	expiry := now.Add(ttl)
	return &SecondaryToken{
		Value:     n.Text(32),
		ExpiresAt: &expiry,
	}, nil
}

// Expired reports whether the token is past its expiry at the given time.
func (t *SecondaryToken) Expired(now time.Time) bool {
	return t.ExpiresAt == nil || t.ExpiresAt.Before(now)
}

// VerifySecondaryToken checks candidate against the stored pending token.
//
// Returns (false, ErrNoSecondaryToken) when no token is pending and
// (false, ErrSecondaryTokenMismatch) when the values differ; neither changes
// state. An expired token fails with ErrSecondaryTokenExpired and returns
// clear=true: the caller must clear and persist the token so a known-dead
// value cannot be retried. A successful verification does NOT consume the
// token; clearing is the responsibility of the consuming operation.
func VerifySecondaryToken(stored *SecondaryToken, candidate string) (clear bool, err error) {
	return verifySecondaryTokenAt(stored, candidate, time.Now())
}

func verifySecondaryTokenAt(stored *SecondaryToken, candidate string, now time.Time) (bool, error) {
	if stored == nil || stored.Value == "" {
		return false, ErrNoSecondaryToken
	}

	if stored.Value != candidate {
		return false, ErrSecondaryTokenMismatch
	}

	if stored.Expired(now) {
		return true, ErrSecondaryTokenExpired
	}

	return false, nil
}
