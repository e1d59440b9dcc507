// Package worker keeps the exported statistics snapshot in step with the
// stored subscriptions.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"subtrack/internal/amqp"
	"subtrack/internal/ports"
	"subtrack/internal/stats"
)

// StatsSource computes statistics and drops cached snapshots.
type StatsSource interface {
	Statistics(ctx context.Context, rng stats.TimeRange, now time.Time) (stats.EnhancedStats, error)
	Invalidate(ctx context.Context) error
}

// Renewer advances billing dates that have passed.
type Renewer interface {
	ProcessDue(ctx context.Context, now time.Time) (int, error)
}

// Config holds the export schedule.
type Config struct {
	// TimeRange is the trend window written on every export.
	TimeRange stats.TimeRange

	// Interval between periodic exports. Zero disables the loop.
	Interval time.Duration
}

// DefaultConfig returns an hourly export of the trailing year.
func DefaultConfig() Config {
	return Config{
		TimeRange: stats.Range1Year,
		Interval:  time.Hour,
	}
}

// ExportWorker recomputes statistics on change events and on a timer and
// hands them to an exporter.
type ExportWorker struct {
	stats    StatsSource
	exporter ports.StatsExporter
	renewals Renewer
	config   Config
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewExportWorker wires the worker. renewals may be nil.
func NewExportWorker(source StatsSource, exporter ports.StatsExporter, renewals Renewer, config Config) *ExportWorker {
	if config.TimeRange == "" {
		config.TimeRange = stats.Range1Year
	}
	return &ExportWorker{
		stats:    source,
		exporter: exporter,
		renewals: renewals,
		config:   config,
		now:      time.Now,
	}
}

// HandleChangeMessage processes one subscription change event. An error
// makes the consumer requeue the message.
func (w *ExportWorker) HandleChangeMessage(ctx context.Context, msg *amqp.SubscriptionChangedMessage) error {
	slog.InfoContext(ctx, "Processing subscription change",
		"subscription_id", msg.SubscriptionID,
		"action", msg.Action,
		"published_at", msg.Timestamp)

	if err := w.stats.Invalidate(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to invalidate statistics cache", "error", err)
	}

	if err := w.Export(ctx); err != nil {
		return fmt.Errorf("export after %s of %s: %w", msg.Action, msg.SubscriptionID, err)
	}
	return nil
}

// Export computes the configured statistics and writes them out.
func (w *ExportWorker) Export(ctx context.Context) error {
	if w.stats == nil || w.exporter == nil {
		return fmt.Errorf("worker not properly initialized")
	}

	now := w.now()
	snapshot, err := w.stats.Statistics(ctx, w.config.TimeRange, now)
	if err != nil {
		return fmt.Errorf("compute statistics: %w", err)
	}

	if err := w.exporter.ExportStatistics(ctx, w.config.TimeRange, snapshot, now); err != nil {
		return fmt.Errorf("export statistics: %w", err)
	}

	slog.InfoContext(ctx, "Exported statistics",
		"time_range", w.config.TimeRange.String(),
		"total_active", snapshot.TotalActive,
		"monthly", snapshot.Monthly.StringFixed(2))

	return nil
}

// Start begins the periodic loop. Returns an error if already running.
func (w *ExportWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("export worker is already running")
	}
	if w.config.Interval <= 0 {
		w.mu.Unlock()
		return fmt.Errorf("export interval must be positive, got %s", w.config.Interval)
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Export worker started",
		"interval", w.config.Interval,
		"time_range", w.config.TimeRange.String())

	return nil
}

// Stop signals the loop and waits for it to finish. It is safe to call
// concurrently and again after a timed out attempt, which keeps waiting on
// the same loop.
func (w *ExportWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	if w.stopCh != nil {
		close(w.stopCh)
		w.stopCh = nil
	}
	doneCh := w.doneCh
	w.mu.Unlock()

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Export worker stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	if w.doneCh == doneCh {
		w.running = false
	}
	w.mu.Unlock()

	return nil
}

func (w *ExportWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *ExportWorker) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.tick(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick runs renewals and then exports. Failures are logged and retried on
// the next tick.
func (w *ExportWorker) tick(ctx context.Context) {
	if w.renewals != nil {
		processed, err := w.renewals.ProcessDue(ctx, w.now())
		if err != nil {
			slog.ErrorContext(ctx, "Renewal processing failed", "error", err)
		} else if processed > 0 {
			if err := w.stats.Invalidate(ctx); err != nil {
				slog.WarnContext(ctx, "Failed to invalidate statistics cache", "error", err)
			}
		}
	}

	if err := w.Export(ctx); err != nil {
		slog.ErrorContext(ctx, "Periodic export failed", "error", err)
	}
}
