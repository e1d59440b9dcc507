package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"subtrack/internal/cache"
	"subtrack/internal/core"
	"subtrack/internal/stats"

	"github.com/shopspring/decimal"
)

type countingLister struct {
	calls atomic.Int32
	subs  []core.Subscription
	err   error
	delay time.Duration
}

func (l *countingLister) ListSubscriptions(context.Context) ([]core.Subscription, error) {
	l.calls.Add(1)
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	return l.subs, l.err
}

// gatedLister holds its first call after reading the stored rows until
// release is closed, so tests can interleave writes with a computation.
type gatedLister struct {
	mu      sync.Mutex
	subs    []core.Subscription
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func newGatedLister(subs ...core.Subscription) *gatedLister {
	return &gatedLister{subs: subs, entered: make(chan struct{}), release: make(chan struct{})}
}

func (l *gatedLister) add(sub core.Subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, sub)
}

func (l *gatedLister) ListSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	l.mu.Lock()
	rows := append([]core.Subscription(nil), l.subs...)
	l.mu.Unlock()

	if l.calls.Add(1) == 1 {
		close(l.entered)
		<-l.release
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func activeSub(id, amount string, days int) core.Subscription {
	return core.Subscription{
		ID:               id,
		Name:             id,
		Amount:           decimal.RequireFromString(amount),
		Currency:         "USD",
		BillingCycleDays: days,
		Status:           core.StatusActive,
		StartDate:        core.NewDate(2024, 1, 1),
	}
}

func TestStatsService_SkipsInvalidCadence(t *testing.T) {
	lister := &countingLister{subs: []core.Subscription{
		activeSub("good", "30", 30),
		activeSub("broken", "10", 0),
	}}
	svc := NewStatsService(lister, nil)

	got, err := svc.Statistics(context.Background(), stats.Range90Days, serviceNow)
	if err != nil {
		t.Fatalf("invalid records should be skipped, got %v", err)
	}
	if got.TotalActive != 1 || !got.Monthly.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("unexpected stats %+v", got)
	}
	if len(got.MonthlyCosts) != 3 {
		t.Fatalf("expected 3 trend points, got %d", len(got.MonthlyCosts))
	}
}

func TestStatsService_UsesCacheUntilInvalidated(t *testing.T) {
	lister := &countingLister{subs: []core.Subscription{activeSub("a", "10", 30)}}
	svc := NewStatsService(lister, cache.NewLocalStatsCache(8, time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Statistics(ctx, stats.Range1Year, serviceNow); err != nil {
			t.Fatal(err)
		}
	}
	if n := lister.calls.Load(); n != 1 {
		t.Fatalf("expected one computation, got %d", n)
	}

	if _, err := svc.Statistics(ctx, stats.Range30Days, serviceNow); err != nil {
		t.Fatal(err)
	}
	if n := lister.calls.Load(); n != 2 {
		t.Fatalf("different range should compute again, got %d calls", n)
	}

	if err := svc.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Statistics(ctx, stats.Range1Year, serviceNow); err != nil {
		t.Fatal(err)
	}
	if n := lister.calls.Load(); n != 3 {
		t.Fatalf("invalidate should force recomputation, got %d calls", n)
	}
}

func TestStatsService_CachedResultsAreIndependent(t *testing.T) {
	lister := &countingLister{subs: []core.Subscription{activeSub("a", "10", 30)}}
	svc := NewStatsService(lister, cache.NewLocalStatsCache(8, time.Minute))
	ctx := context.Background()

	first, err := svc.Statistics(ctx, stats.Range1Year, serviceNow)
	if err != nil {
		t.Fatal(err)
	}
	first.TopSubscriptions[0].Name = "mutated"

	second, err := svc.Statistics(ctx, stats.Range1Year, serviceNow)
	if err != nil {
		t.Fatal(err)
	}
	if second.TopSubscriptions[0].Name != "a" {
		t.Fatalf("cached snapshot was modified by a caller")
	}
}

func TestStatsService_CollapsesConcurrentRequests(t *testing.T) {
	lister := &countingLister{
		subs:  []core.Subscription{activeSub("a", "10", 30)},
		delay: 50 * time.Millisecond,
	}
	svc := NewStatsService(lister, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Statistics(context.Background(), stats.Range6Months, serviceNow); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if n := lister.calls.Load(); n >= 8 {
		t.Fatalf("expected concurrent requests to share work, got %d computations", n)
	}
}

func TestStatsService_ListError(t *testing.T) {
	lister := &countingLister{err: errors.New("db down")}
	svc := NewStatsService(lister, nil)
	if _, err := svc.Statistics(context.Background(), stats.Range30Days, serviceNow); err == nil {
		t.Fatal("expected error")
	}
}

func TestStatsService_WriteDuringComputationIsNotLost(t *testing.T) {
	lister := newGatedLister(activeSub("a", "30", 30))
	svc := NewStatsService(lister, cache.NewLocalStatsCache(8, time.Minute))
	ctx := context.Background()

	first := make(chan stats.EnhancedStats, 1)
	go func() {
		got, err := svc.Statistics(ctx, stats.Range1Year, serviceNow)
		if err != nil {
			t.Error(err)
		}
		first <- got
	}()
	<-lister.entered

	lister.add(activeSub("b", "70", 30))
	if err := svc.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}

	during, err := svc.Statistics(ctx, stats.Range1Year, serviceNow)
	if err != nil {
		t.Fatal(err)
	}
	if !during.Monthly.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("request after invalidate joined an older computation: monthly %s", during.Monthly)
	}

	close(lister.release)
	if got := <-first; !got.Monthly.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("first request monthly = %s, want 30", got.Monthly)
	}

	after, err := svc.Statistics(ctx, stats.Range1Year, serviceNow)
	if err != nil {
		t.Fatal(err)
	}
	if !after.Monthly.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("result computed before invalidate was cached: monthly %s", after.Monthly)
	}
}

func TestStatsService_CancelledCallerDoesNotAbortComputation(t *testing.T) {
	lister := newGatedLister(activeSub("a", "10", 30))
	svc := NewStatsService(lister, cache.NewLocalStatsCache(8, time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := svc.Statistics(ctx, stats.Range1Year, serviceNow)
		errc <- err
	}()
	<-lister.entered

	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller err = %v, want context.Canceled", err)
	}
	close(lister.release)

	got, err := svc.Statistics(context.Background(), stats.Range1Year, serviceNow)
	if err != nil {
		t.Fatalf("computation should survive the first caller: %v", err)
	}
	if !got.Monthly.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("monthly = %s, want 10", got.Monthly)
	}
	if n := lister.calls.Load(); n != 1 {
		t.Fatalf("expected the detached computation to be reused, got %d calls", n)
	}
}
