// internal/pkg/jwt/loader.go
package jwt

import (
	"fmt"
)

type Config struct {
	// PubPath enables signature verification when set.
	PubPath string
}

// LoadResolver builds the resolver described by cfg.
func LoadResolver(cfg Config, opts ...ResolverOption) (*Resolver, error) {
	if cfg.PubPath == "" {
		return NewResolver(opts...), nil
	}

	pub, err := LoadRSAPublicKeyFromPEM(cfg.PubPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load public key from %s: %w", cfg.PubPath, err)
	}
	return NewResolver(append(opts, WithPublicKey(pub))...), nil
}
