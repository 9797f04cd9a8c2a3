package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultQuestionPrefix namespaces question dedupe keys.
const DefaultQuestionPrefix = "question:seen:"

// DedupeStore claims keys that must be processed once.
type DedupeStore interface {
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Close() error
}

// RedisDedupeStore implements DedupeStore with SET NX.
type RedisDedupeStore struct {
	client *redis.Client
}

func NewRedisDedupeStore(opts *redis.Options) *RedisDedupeStore {
	return &RedisDedupeStore{client: redis.NewClient(opts)}
}

// SetNX sets key only if absent and reports whether it did. A zero ttl keeps the key forever.
func (s *RedisDedupeStore) SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

func (s *RedisDedupeStore) Close() error {
	return s.client.Close()
}
