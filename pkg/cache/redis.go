package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "promptroute:cache:"

// RedisStore is a shared cache store for multi-instance deployments. SET with
// a TTL is atomic per key, which gives the last-writer-wins behavior racing
// populates are allowed to have.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to redis at the given URL and verifies the
// connection.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// Get returns the entry for a signature, or (nil, nil) on a miss.
func (s *RedisStore) Get(ctx context.Context, signature string) (*Entry, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+signature).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return &entry, nil
}

// Set stores an entry with its TTL as the redis expiration.
func (s *RedisStore) Set(ctx context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+entry.Signature, data, entry.TTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes an entry.
func (s *RedisStore) Delete(ctx context.Context, signature string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+signature).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
