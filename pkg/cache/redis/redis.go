// Package redis implements a cache.Cache shared between instances by
// storing JSON encoded responses in Redis
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/Luzifer/filegate/pkg/cache"
)

const keyPrefix = "filegate:response:"

type (
	// Config contains the connection settings for Redis
	Config struct {
		Addr     string
		Password string
		TTL      time.Duration
	}

	client interface {
		Get(ctx context.Context, key string) *redis.StringCmd
		Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	}

	// Cache implements the cache.Cache interface
	Cache struct {
		client client
		ttl    time.Duration
	}
)

// New connects to Redis and returns a cache whose entries expire after
// the configured TTL (0 = keep until Redis evicts them)
func New(ctx context.Context, cfg Config) (*Cache, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
	})

	if err := c.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}

	return &Cache{client: c, ttl: cfg.TTL}, nil
}

// Match implements the cache.Cache Match method
func (c *Cache) Match(ctx context.Context, key string) (*cache.Response, error) {
	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	switch {
	case err == nil:
		// This is fine

	case errors.Is(err, redis.Nil):
		return nil, cache.ErrMiss

	default:
		return nil, errors.Wrap(err, "get cached response")
	}

	resp := new(cache.Response)
	if err = json.Unmarshal(raw, resp); err != nil {
		return nil, errors.Wrap(err, "decode cached response")
	}

	return resp, nil
}

// Put implements the cache.Cache Put method
func (c *Cache) Put(ctx context.Context, key string, resp *cache.Response) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return errors.Wrap(err, "encode response")
	}

	return errors.Wrap(
		c.client.Set(ctx, keyPrefix+key, raw, c.ttl).Err(),
		"set cached response",
	)
}
