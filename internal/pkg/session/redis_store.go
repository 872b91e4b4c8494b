// internal/pkg/session/redis_store.go
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each session record in one hash so that a single DEL
// clears every key at once.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, sid string) (map[string]string, error) {
	values, err := s.client.HGetAll(ctx, s.sessionKey(sid)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session from redis: %w", err)
	}
	return values, nil
}

func (s *RedisStore) Save(ctx context.Context, sid string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	key := s.sessionKey(sid)

	fields := make([]interface{}, 0, len(values)*2)
	for k, v := range values {
		fields = append(fields, k, v)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fields...)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store session in redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, sid string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, s.sessionKey(sid), keys...).Err(); err != nil {
		return fmt.Errorf("failed to remove session keys: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, s.sessionKey(sid)).Err(); err != nil {
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	return nil
}

func (s *RedisStore) sessionKey(sid string) string {
	return fmt.Sprintf("fitpower:session:%s", sid)
}
