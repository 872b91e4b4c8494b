// internal/pkg/session/rate_limiter.go
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultMaxLoginAttempts = 5
	DefaultLoginWindow      = 15 * time.Minute
)

// RateLimiter counts login attempts per client address and username.
type RateLimiter struct {
	client      redis.UniversalClient
	maxAttempts int64
	window      time.Duration
}

func NewRateLimiter(client redis.UniversalClient, maxAttempts int64, window time.Duration) *RateLimiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxLoginAttempts
	}
	if window <= 0 {
		window = DefaultLoginWindow
	}
	return &RateLimiter{client: client, maxAttempts: maxAttempts, window: window}
}

// CheckLoginAttempt records an attempt and reports whether it is allowed,
// along with the attempts left in the current window.
func (r *RateLimiter) CheckLoginAttempt(ctx context.Context, ip, username string) (bool, int64, error) {
	key := loginKey(ip, username)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment login attempt: %w", err)
	}

	// Set expiration on first attempt
	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			return false, 0, fmt.Errorf("failed to set login window: %w", err)
		}
	}

	remaining := r.maxAttempts - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= r.maxAttempts, remaining, nil
}

// ResetLoginAttempts resets the login attempt counter
func (r *RateLimiter) ResetLoginAttempts(ctx context.Context, ip, username string) error {
	return r.client.Del(ctx, loginKey(ip, username)).Err()
}

func (r *RateLimiter) Window() time.Duration { return r.window }

// MemoryRateLimiter applies the same policy without Redis.
type MemoryRateLimiter struct {
	mu          sync.Mutex
	attempts    map[string]*attemptWindow
	maxAttempts int64
	window      time.Duration
	now         func() time.Time
}

type attemptWindow struct {
	count   int64
	resetAt time.Time
}

func NewMemoryRateLimiter(maxAttempts int64, window time.Duration) *MemoryRateLimiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxLoginAttempts
	}
	if window <= 0 {
		window = DefaultLoginWindow
	}
	return &MemoryRateLimiter{
		attempts:    make(map[string]*attemptWindow),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

func (r *MemoryRateLimiter) CheckLoginAttempt(_ context.Context, ip, username string) (bool, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := loginKey(ip, username)
	now := r.now()
	w, ok := r.attempts[key]
	if !ok || !now.Before(w.resetAt) {
		w = &attemptWindow{resetAt: now.Add(r.window)}
		r.attempts[key] = w
	}
	w.count++

	remaining := r.maxAttempts - w.count
	if remaining < 0 {
		remaining = 0
	}
	return w.count <= r.maxAttempts, remaining, nil
}

func (r *MemoryRateLimiter) ResetLoginAttempts(_ context.Context, ip, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempts, loginKey(ip, username))
	return nil
}

func (r *MemoryRateLimiter) Window() time.Duration { return r.window }

func loginKey(ip, username string) string {
	return fmt.Sprintf("ratelimit:login:%s:%s", ip, strings.ToLower(username))
}
