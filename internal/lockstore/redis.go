package lockstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of a Redis client.  Expiry is
// handled natively by Redis TTLs, so a lock released by neither the
// holder nor a successful booking vanishes on its own even if this
// process dies.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.  The client must be
// non-nil; connection failures surface from the individual calls.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("nil redis client passed to NewRedisStore")
	}
	return &RedisStore{client: client}
}

// SetNX delegates to Redis SET NX PX, which is atomic server-side.
func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Get returns the current value for key, mapping redis.Nil to
// ErrNotFound so callers do not depend on the driver's sentinel.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// Del removes key and reports whether an entry existed.
func (s *RedisStore) Del(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
