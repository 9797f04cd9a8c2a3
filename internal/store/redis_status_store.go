package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"interview-harvester/internal/models"
)

// DefaultStatusPrefix namespaces run status keys.
const DefaultStatusPrefix = "crawl:run:"

// RedisStatusStore stores crawl run status in Redis.
type RedisStatusStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStatusStore initializes a Redis-backed StatusStore.
func NewRedisStatusStore(opts *redis.Options, prefix string, ttl time.Duration) *RedisStatusStore {
	return NewRedisStatusStoreWithClient(redis.NewClient(opts), prefix, ttl)
}

// NewRedisStatusStoreWithClient builds a store around an existing client.
func NewRedisStatusStoreWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStatusStore {
	if prefix == "" {
		prefix = DefaultStatusPrefix
	}
	return &RedisStatusStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Close closes the Redis client.
func (s *RedisStatusStore) Close() error {
	return s.client.Close()
}

// SetStatus writes the status record to Redis.
func (s *RedisStatusStore) SetStatus(ctx context.Context, status models.RunStatus) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}
	key := s.prefix + status.RunID
	return s.client.Set(ctx, key, payload, s.ttl).Err()
}

// GetStatus reads the status record from Redis.
func (s *RedisStatusStore) GetStatus(ctx context.Context, runID string) (models.RunStatus, bool, error) {
	key := s.prefix + runID
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.RunStatus{}, false, nil
		}
		return models.RunStatus{}, false, err
	}

	var status models.RunStatus
	if err := json.Unmarshal([]byte(val), &status); err != nil {
		return models.RunStatus{}, false, err
	}

	return status, true, nil
}
