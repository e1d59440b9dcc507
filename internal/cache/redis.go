package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"subtrack/internal/stats"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "subtrack:stats"

// RedisStatsCache shares snapshots between instances. Invalidation bumps a
// generation counter that is part of every key, so stale snapshots are
// never read again and simply expire.
type RedisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient parses a redis:// URL, or a bare host:port, and checks the
// connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	if !strings.Contains(redisURL, "://") {
		redisURL = "redis://" + redisURL
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func NewRedisStatsCache(client *redis.Client, ttl time.Duration) *RedisStatsCache {
	return &RedisStatsCache{client: client, ttl: ttl}
}

func generationKey() string {
	return redisPrefix + ":generation"
}

func snapshotKey(generation int64, key string) string {
	return fmt.Sprintf("%s:%d:%s", redisPrefix, generation, key)
}

func (c *RedisStatsCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cache generation: %w", err)
	}
	return gen, nil
}

func (c *RedisStatsCache) GetStats(ctx context.Context, generation int64, key string) (stats.EnhancedStats, bool, error) {
	raw, err := c.client.Get(ctx, snapshotKey(generation, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return stats.EnhancedStats{}, false, nil
	}
	if err != nil {
		return stats.EnhancedStats{}, false, fmt.Errorf("read cached statistics: %w", err)
	}

	var s stats.EnhancedStats
	if err := json.Unmarshal(raw, &s); err != nil {
		return stats.EnhancedStats{}, false, fmt.Errorf("decode cached statistics: %w", err)
	}
	return s, true, nil
}

// SetStats writes under the caller's generation. If another instance has
// invalidated since, the snapshot lands under a key nobody reads and expires.
func (c *RedisStatsCache) SetStats(ctx context.Context, generation int64, key string, s stats.EnhancedStats) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode statistics: %w", err)
	}
	if err := c.client.SetEx(ctx, snapshotKey(generation, key), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write cached statistics: %w", err)
	}
	return nil
}

func (c *RedisStatsCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey()).Err(); err != nil {
		return fmt.Errorf("bump cache generation: %w", err)
	}
	return nil
}
