package cache

import (
	"context"
	"time"

	"github.com/mohamedkhairy/commodity-dashboard/internal/pubsub"
)

// RedisStore adapts the shared Redis client to the Store interface so
// multiple dashboard instances can serve the same cached snapshot.
type RedisStore struct {
	client pubsub.Client
}

// NewRedisStore wraps an existing Redis client
func NewRedisStore(client pubsub.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get unmarshals the cached value into dest
func (s *RedisStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	found, err := s.client.GetJSON(ctx, key, dest)
	if err != nil {
		return false, err
	}
	if !found {
		cacheMisses.WithLabelValues("redis").Inc()
		return false, nil
	}
	cacheHits.WithLabelValues("redis").Inc()
	return true, nil
}

// Set stores a value under key for the given TTL
func (s *RedisStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, key, value, ttl)
}

// Delete removes a key
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Delete(ctx, key)
}

// Close is a no-op; the shared Redis client is closed by its owner
func (s *RedisStore) Close() error {
	return nil
}
