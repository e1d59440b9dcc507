package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"subtrack/internal/cache"
	"subtrack/internal/core"
	"subtrack/internal/ports"
	"subtrack/internal/stats"

	"golang.org/x/sync/singleflight"
)

// StatsService computes dashboard statistics from the stored subscriptions.
// Identical concurrent requests share one computation and results are kept
// in an optional cache until the next write.
type StatsService struct {
	lister ports.SubscriptionLister
	cache  cache.StatsCache
	group  singleflight.Group
	// version is bumped by Invalidate and keys in-flight computations, so
	// callers arriving after a write never join one started before it.
	version atomic.Int64
}

// NewStatsService creates the service. A nil cache disables caching.
func NewStatsService(lister ports.SubscriptionLister, statsCache cache.StatsCache) *StatsService {
	return &StatsService{lister: lister, cache: statsCache}
}

// Statistics returns the statistics for rng as seen at now.
func (s *StatsService) Statistics(ctx context.Context, rng stats.TimeRange, now time.Time) (stats.EnhancedStats, error) {
	key := cache.StatsKey(rng, now)
	version := s.version.Load()

	generation, cacheable := s.generation(ctx)
	if cacheable {
		cached, ok, err := s.cache.GetStats(ctx, generation, key)
		if err != nil {
			slog.WarnContext(ctx, "Statistics cache read failed", "key", key, "error", err)
		} else if ok {
			slog.DebugContext(ctx, "Statistics served from cache", "key", key)
			return cached.Clone(), nil
		}
	}

	flight := fmt.Sprintf("%d:%d:%s", version, generation, key)
	ch := s.group.DoChan(flight, func() (any, error) {
		// Shared by every caller on this flight; one caller going away
		// must not fail it for the rest.
		return s.compute(context.WithoutCancel(ctx), key, generation, cacheable, rng, now)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return stats.EnhancedStats{}, res.Err
		}
		if res.Shared {
			slog.DebugContext(ctx, "Statistics computation shared", "key", key)
		}
		return res.Val.(stats.EnhancedStats).Clone(), nil
	case <-ctx.Done():
		return stats.EnhancedStats{}, ctx.Err()
	}
}

// generation reads the cache generation before any data is loaded. Without
// it the result is computed but not stored.
func (s *StatsService) generation(ctx context.Context) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Statistics cache unavailable", "error", err)
		return 0, false
	}
	return gen, true
}

func (s *StatsService) compute(ctx context.Context, key string, generation int64, cacheable bool, rng stats.TimeRange, now time.Time) (stats.EnhancedStats, error) {
	subs, err := s.lister.ListSubscriptions(ctx)
	if err != nil {
		return stats.EnhancedStats{}, fmt.Errorf("list subscriptions: %w", err)
	}

	valid := FilterComputable(ctx, subs)

	result, err := stats.Compute(valid, rng, now)
	if err != nil {
		return stats.EnhancedStats{}, fmt.Errorf("compute statistics: %w", err)
	}

	slog.InfoContext(ctx, "Statistics computed",
		"time_range", rng.String(),
		"subscriptions", len(valid),
		"skipped", len(subs)-len(valid),
		"monthly", core.RoundMoney(result.Monthly).String())

	if cacheable {
		if err := s.cache.SetStats(ctx, generation, key, result); err != nil {
			slog.WarnContext(ctx, "Statistics cache write failed", "key", key, "error", err)
		}
	}
	return result, nil
}

// Invalidate drops every cached snapshot and detaches in-flight
// computations from later callers.
func (s *StatsService) Invalidate(ctx context.Context) error {
	defer s.version.Add(1)
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}

// FilterComputable drops subscriptions whose billing cycle cannot be
// normalized, logging each one it skips.
func FilterComputable(ctx context.Context, subs []core.Subscription) []core.Subscription {
	out := make([]core.Subscription, 0, len(subs))
	for _, sub := range subs {
		if err := sub.ValidateCadence(); err != nil {
			slog.WarnContext(ctx, "Skipping subscription with invalid billing cycle",
				"subscription_id", sub.ID,
				"name", sub.Name,
				"billing_cycle_days", sub.BillingCycleDays)
			continue
		}
		out = append(out, sub)
	}
	return out
}
