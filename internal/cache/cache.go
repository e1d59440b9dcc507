// Package cache keeps computed statistics between requests, either in
// process or in Redis, and runs periodic expiry of the in-process caches.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"subtrack/internal/stats"
)

// Cache is a generic in-process key/value cache.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// StatsCache stores statistics snapshots keyed by StatsKey within a
// generation. Callers read the generation before loading the data a
// snapshot is computed from and pass it back to SetStats, so a snapshot
// computed before an Invalidate is never served after it.
type StatsCache interface {
	Generation(ctx context.Context) (int64, error)
	GetStats(ctx context.Context, generation int64, key string) (stats.EnhancedStats, bool, error)
	// SetStats stores s under generation. Writes for a superseded
	// generation are never visible to later reads.
	SetStats(ctx context.Context, generation int64, key string, s stats.EnhancedStats) error
	// Invalidate starts a new generation, dropping every stored snapshot.
	Invalidate(ctx context.Context) error
}

// StatsKey identifies a snapshot. Results depend on the range and on the
// calendar month of the reference instant only.
func StatsKey(rng stats.TimeRange, now time.Time) string {
	return fmt.Sprintf("%s:%s", rng, now.Format("2006-01"))
}

// LocalStatsCache is a StatsCache backed by an LRUCache.
type LocalStatsCache struct {
	mu         sync.Mutex
	generation int64
	lru        *LRUCache[stats.EnhancedStats]
}

func NewLocalStatsCache(maxSize int, ttl time.Duration) *LocalStatsCache {
	return &LocalStatsCache{lru: NewLRUCache[stats.EnhancedStats](maxSize, ttl)}
}

func (c *LocalStatsCache) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation, nil
}

func (c *LocalStatsCache) GetStats(_ context.Context, generation int64, key string) (stats.EnhancedStats, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return stats.EnhancedStats{}, false, nil
	}
	s, ok := c.lru.Get(key)
	return s, ok, nil
}

func (c *LocalStatsCache) SetStats(_ context.Context, generation int64, key string, s stats.EnhancedStats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return nil
	}
	c.lru.Set(key, s)
	return nil
}

func (c *LocalStatsCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.lru.Purge()
	return nil
}

// CleanExpired lets a Manager sweep the underlying LRU.
func (c *LocalStatsCache) CleanExpired() int {
	return c.lru.CleanExpired()
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically sweeps registered caches until its context ends.
type Manager struct {
	caches []Cleaner
	logger *slog.Logger
	done   chan struct{}
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// Start sweeps every interval in a background goroutine. Wait blocks until
// it has returned after ctx is cancelled.
func (m *Manager) Start(ctx context.Context, interval time.Duration) {
	m.done = make(chan struct{})
	go func() {
		defer close(m.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					m.logger.Debug("Expired cache entries removed", "count", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Sweep runs one cleanup pass over every registered cache.
func (m *Manager) Sweep() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

func (m *Manager) Wait() {
	if m.done != nil {
		<-m.done
	}
}
