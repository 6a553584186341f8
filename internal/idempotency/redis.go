package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func lockKey(scope, key string) string {
	return "idemp:" + scope + ":" + key
}

func valueKey(scope, key string) string {
	return "idemp:map:" + scope + ":" + key
}

func (s *RedisStore) TryLock(ctx context.Context, scope, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, lockKey(scope, key), "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency lock: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Release(ctx context.Context, scope, key string) error {
	if err := s.rdb.Del(ctx, lockKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

func (s *RedisStore) Remember(ctx context.Context, scope, key, value string) error {
	if err := s.rdb.Set(ctx, valueKey(scope, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	return nil
}

func (s *RedisStore) Recall(ctx context.Context, scope, key string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, valueKey(scope, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("idempotency recall: %w", err)
	}
	return val, true, nil
}

var _ Store = (*RedisStore)(nil)
