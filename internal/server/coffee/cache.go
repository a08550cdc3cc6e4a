package coffee

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/convivial/salon/internal/common"
	"github.com/redis/go-redis/v9"
)

// Cache is the small keyspace the digest uses: one entry per day's digest
// plus a reaction counter hash. Backed by the cache Redis instance, which is
// separate from the pub/sub one.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrField(ctx context.Context, key, field string) error
	Close() error
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string) *RedisCache {
	return &RedisCache{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	return b, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) IncrField(ctx context.Context, key, field string) error {
	if err := c.client.HIncrBy(ctx, key, field, 1).Err(); err != nil {
		return fmt.Errorf("cache incr %s.%s: %w", key, field, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
