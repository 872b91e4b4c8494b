// internal/pkg/session/scope.go
package session

import "context"

// Scope is the token store seen from one browser session. Handlers receive
// a Scope instead of reaching for a global store.
type Scope struct {
	store Store
	sid   string
}

func NewScope(store Store, sid string) *Scope {
	return &Scope{store: store, sid: sid}
}

func (s *Scope) ID() string { return s.sid }

func (s *Scope) Values(ctx context.Context) (map[string]string, error) {
	return s.store.Load(ctx, s.sid)
}

// Get returns the value under key, or "" when it is not set.
func (s *Scope) Get(ctx context.Context, key string) (string, error) {
	values, err := s.store.Load(ctx, s.sid)
	if err != nil {
		return "", err
	}
	return values[key], nil
}

func (s *Scope) Save(ctx context.Context, values map[string]string) error {
	return s.store.Save(ctx, s.sid, values)
}

func (s *Scope) Remove(ctx context.Context, keys ...string) error {
	return s.store.Remove(ctx, s.sid, keys...)
}

func (s *Scope) Clear(ctx context.Context) error {
	return s.store.Clear(ctx, s.sid)
}
