// Package cache shares the current policy snapshot between service instances.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"docverify/internal/policy/models"
)

const defaultKey = "docverify:policy:snapshot"

// RedisCache stores the serialized snapshot under one key with a TTL.
type RedisCache struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

type Option func(*RedisCache)

// WithKey overrides the cache key, e.g. to isolate tenants or tests.
func WithKey(key string) Option {
	return func(c *RedisCache) { c.key = key }
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration, opts ...Option) *RedisCache {
	c := &RedisCache{client: client, key: defaultKey, ttl: ttl}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached snapshot, or nil when nothing is cached.
func (c *RedisCache) Get(ctx context.Context) (*models.Snapshot, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached snapshot: %w", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode cached snapshot: %w", err)
	}
	return &snap, nil
}

func (c *RedisCache) Set(ctx context.Context, snap *models.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache snapshot: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}
