package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/gcbaptista/go-vsr-engine/config"
	"github.com/gcbaptista/go-vsr-engine/internal/logger"
)

// RedisCache shares ranked results between engine replicas through Redis.
// Redis failures degrade to computing the result; they are logged, never returned.
type RedisCache struct {
	counters
	rdb    *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewRedisCache connects to Redis and verifies the connection with a PING.
func NewRedisCache(cfg config.RedisConfig) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisCache{
		rdb:    rdb,
		ttl:    cfg.CacheTTL,
		logger: logger.WithComponent("cache"),
	}, nil
}

func (c *RedisCache) get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return data, true
}

func (c *RedisCache) GetOrCompute(ctx context.Context, key string, compute func() ([]byte, error)) ([]byte, bool, error) {
	if value, ok := c.get(ctx, key); ok {
		c.hits.Add(1)
		return value, true, nil
	}
	c.misses.Add(1)

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if value, ok := c.get(ctx, key); ok {
			return value, nil
		}
		value, err := compute()
		if err != nil {
			return nil, err
		}
		if err := c.rdb.Set(ctx, key, value, c.ttl).Err(); err != nil {
			c.logger.Error("cache set failed", "key", key, "error", err)
		}
		return value, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]byte), false, nil
}

// InvalidateIndex scans for the keys of index and deletes them.
func (c *RedisCache) InvalidateIndex(ctx context.Context, index string) error {
	pattern := indexPattern(index) + "*"

	var deleted int64
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("deleting key %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning pattern %s: %w", pattern, err)
	}
	c.logger.Info("cache invalidate", "index", index, "keys_deleted", deleted)
	return nil
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
