// internal/pkg/jwt/resolver.go
package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformedToken = errors.New("malformed token")
	ErrMissingExpiry  = errors.New("token has no expiry claim")
	ErrTokenExpired   = errors.New("token expired")
)

// Resolver decodes access tokens issued by the backend and decides whether
// they are still usable. Without a public key it only decodes the payload;
// the backend remains the authority on signatures.
type Resolver struct {
	pub    *rsa.PublicKey
	parser *jwt.Parser
	now    func() time.Time
}

type ResolverOption func(*Resolver)

// WithPublicKey makes the resolver reject tokens without a valid RS256
// signature from key.
func WithPublicKey(key *rsa.PublicKey) ResolverOption {
	return func(r *Resolver) { r.pub = key }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		// Expiry is checked by Resolve so that exp == now counts as expired.
		parser: jwt.NewParser(jwt.WithoutClaimsValidation()),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Decode returns the token claims without looking at their timestamps.
func (r *Resolver) Decode(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMalformedToken
	}

	claims := &Claims{}
	if r.pub == nil {
		if _, _, err := r.parser.ParseUnverified(tokenString, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
		return claims, nil
	}

	_, err := r.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return r.pub, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return claims, nil
}

// Resolve decodes the token and fails unless its expiry lies strictly in
// the future.
func (r *Resolver) Resolve(tokenString string) (*Claims, error) {
	claims, err := r.Decode(tokenString)
	if err != nil {
		return nil, err
	}
	exp, ok := claims.Expiry()
	if !ok {
		return nil, ErrMissingExpiry
	}
	if !exp.After(r.now()) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// Valid reports whether Resolve would succeed.
func (r *Resolver) Valid(tokenString string) bool {
	_, err := r.Resolve(tokenString)
	return err == nil
}

// ExpiresAt returns the token expiry, or the zero time when unknown.
func (r *Resolver) ExpiresAt(tokenString string) time.Time {
	claims, err := r.Decode(tokenString)
	if err != nil {
		return time.Time{}
	}
	exp, _ := claims.Expiry()
	return exp
}
