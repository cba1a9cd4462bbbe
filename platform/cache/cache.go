// Package cache provides a Redis-backed TTL cache for dashboard reads.
// This is part of the platform layer and contains no business logic.
package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"time"

	"fieldops_backend/platform/config"

	"github.com/redis/go-redis/v9"
)

// Dashboard cache regions. Every key lives under exactly one region so a
// refresh can evict all derived dashboard data with one call.
const (
	RegionSummary = "dashboard:summary"
	RegionTrends  = "dashboard:trends"
	RegionLoad    = "dashboard:load"
	RegionMap     = "dashboard:map"
)

// Regions lists every dashboard cache region.
var Regions = []string{RegionSummary, RegionTrends, RegionLoad, RegionMap}

// Cache is a namespaced JSON cache with a fixed TTL per entry.
// A nil *Cache is valid and disables caching.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis using the configured URL. Returns a nil cache when
// no Redis URL is configured.
func New(cfg config.CacheConfig) (*Cache, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	if opt.TLSConfig != nil && cfg.GetRedisTLSInsecure() {
		opt.TLSConfig.InsecureSkipVerify = true
	} else if opt.TLSConfig == nil && cfg.GetRedisTLSInsecure() {
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return NewWithClient(redis.NewClient(opt), cfg.GetDashboardCacheTTL()), nil
}

// NewWithClient wraps an existing Redis client. Used by tests.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Cache{client: client, ttl: ttl}
}

// GetJSON loads a cached value into dest. Returns false when the key is
// absent. Decode failures are treated as misses so stale shapes self-heal.
func (c *Cache) GetJSON(ctx context.Context, region, key string, dest interface{}) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}

	raw, err := c.client.Get(ctx, region+":"+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return false, nil
	}
	return true, nil
}

// SetJSON stores a value under region:key with the cache TTL.
func (c *Cache) SetJSON(ctx context.Context, region, key string, value interface{}) error {
	if c == nil || c.client == nil {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, region+":"+key, raw, c.ttl).Err()
}

// EvictDashboard removes every key in every dashboard region.
func (c *Cache) EvictDashboard(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}

	for _, region := range Regions {
		iter := c.client.Scan(ctx, 0, region+":*", 0).Iterator()
		for iter.Next(ctx) {
			if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
				return err
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying Redis connection.
func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
