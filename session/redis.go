package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long session keys live after their last write.
const DefaultTTL = 40 * time.Minute

// RedisStorage stores session keys in Redis under "session:<id>:<key>".
type RedisStorage struct {
	client    redis.UniversalClient
	sessionID string
	ttl       time.Duration
}

// NewRedisStorage connects to the Redis instance at url and verifies it with a ping.
func NewRedisStorage(ctx context.Context, url, sessionID string) (*RedisStorage, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStorageWithClient(client, sessionID, DefaultTTL), nil
}

// NewRedisStorageWithClient wraps an existing client. A ttl <= 0 keeps keys forever.
func NewRedisStorageWithClient(client redis.UniversalClient, sessionID string, ttl time.Duration) *RedisStorage {
	return &RedisStorage{
		client:    client,
		sessionID: sessionID,
		ttl:       ttl,
	}
}

// WithTTL returns a copy of r whose writes expire after ttl.
// A ttl <= 0 keeps keys forever.
func (r *RedisStorage) WithTTL(ttl time.Duration) *RedisStorage {
	cp := *r
	cp.ttl = ttl
	return &cp
}

// Key returns the Redis key used for a session key.
func (r *RedisStorage) Key(key string) string {
	return fmt.Sprintf("session:%s:%s", r.sessionID, key)
}

func (r *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.Key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get session key %q: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisStorage) Set(ctx context.Context, key, value string) error {
	ttl := r.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.Key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("set session key %q: %w", key, err)
	}
	return nil
}

func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.Key(key)).Err(); err != nil {
		return fmt.Errorf("delete session key %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisStorage) Close() error {
	return r.client.Close()
}
