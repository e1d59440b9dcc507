package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/ports"
)

// RenewalStore is what the renewal processor needs from a backend.
type RenewalStore interface {
	ports.SubscriptionLister
	UpdateSubscription(ctx context.Context, s core.Subscription) error
}

// RenewalProcessor moves the next billing date of running subscriptions
// forward once it has passed.
type RenewalProcessor struct {
	store RenewalStore
}

func NewRenewalProcessor(store RenewalStore) *RenewalProcessor {
	return &RenewalProcessor{store: store}
}

// ProcessDue advances every Active or Trial subscription whose next billing
// date lies before now and returns how many were updated. Subscriptions that
// already ended are left alone.
func (p *RenewalProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	subs, err := p.store.ListSubscriptions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list subscriptions: %w", err)
	}

	today := core.DateOf(now)
	processed := 0
	for _, sub := range subs {
		if sub.Status != core.StatusActive && sub.Status != core.StatusTrial {
			continue
		}
		if sub.ValidateCadence() != nil {
			continue
		}
		if !sub.EndDate.IsZero() && sub.EndDate.Before(today.Time) {
			continue
		}

		next := core.NextBillingDate(sub.StartDate, sub.BillingCycleDays, today)
		if !sub.NextBillingDate.IsZero() && !sub.NextBillingDate.Before(today.Time) {
			continue
		}
		if next == sub.NextBillingDate {
			continue
		}

		sub.NextBillingDate = next
		sub.UpdatedAt = now.UTC()
		if err := p.store.UpdateSubscription(ctx, sub); err != nil {
			slog.ErrorContext(ctx, "Failed to advance next billing date",
				"subscription_id", sub.ID,
				"error", err)
			continue
		}

		processed++
		slog.InfoContext(ctx, "Advanced next billing date",
			"subscription_id", sub.ID,
			"name", sub.Name,
			"next_billing_date", next.String())
	}

	slog.InfoContext(ctx, "Renewal processing complete",
		"processed", processed,
		"total_checked", len(subs))

	return processed, nil
}
