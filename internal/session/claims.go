// Package session owns the lifecycle of the user's InferX session: decoding
// access-token claims, deciding when a token is due for refresh, refreshing
// it with at most one network call in flight, and persisting the result.
//
// Claims are read without verifying the token's signature. The backend is the
// only party that validates tokens; the client uses the payload purely to
// schedule refreshes, never to make authorization decisions.
package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RefreshMargin is how long before expiry a token counts as due for refresh.
// Refreshing this early keeps a request from racing an expiring token.
const RefreshMargin = 5 * time.Minute

// Claims is the decoded payload of an InferX access token.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// DecodeClaims parses a token's claims without signature verification.
// Anything that is not three dot-separated segments with a base64url JSON
// payload is an error.
func DecodeClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to decode token claims: %w", err)
	}
	return claims, nil
}

// ExpiresWithin reports whether the token expires within the given margin.
// A missing exp claim counts as expired.
func (c *Claims) ExpiresWithin(margin time.Duration) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !time.Now().Before(c.ExpiresAt.Time.Add(-margin))
}

// NeedsRefresh reports whether the token is expired or inside the refresh
// margin. Undecodable tokens count as expired.
func NeedsRefresh(token string, margin time.Duration) bool {
	claims, err := DecodeClaims(token)
	if err != nil {
		return true
	}
	return claims.ExpiresWithin(margin)
}

// TimeToRefresh returns how long until the token enters the refresh margin,
// or zero if it is already inside it or cannot be decoded. A zero result
// means the caller should refresh now rather than arm a timer.
func TimeToRefresh(token string, margin time.Duration) time.Duration {
	claims, err := DecodeClaims(token)
	if err != nil || claims.ExpiresAt == nil {
		return 0
	}
	d := time.Until(claims.ExpiresAt.Time) - margin
	if d < 0 {
		return 0
	}
	return d
}
