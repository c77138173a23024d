package kvstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store using Redis string keys
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisStore creates a new Redis-backed store
func NewRedisStore(ctx context.Context, addr string, db int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisStore{
		client: client,
		ctx:    ctx,
	}
}

// GetItem retrieves a value from Redis
func (r *RedisStore) GetItem(key string) (string, error) {
	value, err := r.client.Get(r.ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoKey
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetItem stores a value in Redis without expiry; the TTL envelope on top
// of the store owns expiration semantics
func (r *RedisStore) SetItem(key, value string) error {
	return r.client.Set(r.ctx, key, value, 0).Err()
}

// RemoveItem deletes a value from Redis
func (r *RedisStore) RemoveItem(key string) error {
	return r.client.Del(r.ctx, key).Err()
}

// Keys lists all keys with the given prefix
func (r *RedisStore) Keys(prefix string) ([]string, error) {
	return r.client.Keys(r.ctx, prefix+"*").Result()
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}
