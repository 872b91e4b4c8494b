// internal/pkg/jwt/claims.go
package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of a FitPower access token. The backend issues
// either a roles array or a single role string.
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	Role  string   `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Expiry returns the exp claim and whether the token carries one.
func (c *Claims) Expiry() (time.Time, bool) {
	if c.ExpiresAt == nil {
		return time.Time{}, false
	}
	return c.ExpiresAt.Time, true
}

// RoleNames merges both role claims, in token order, without duplicates.
func (c *Claims) RoleNames() []string {
	seen := make(map[string]struct{}, len(c.Roles)+1)
	out := make([]string, 0, len(c.Roles)+1)
	for _, r := range append(append([]string{}, c.Roles...), c.Role) {
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
