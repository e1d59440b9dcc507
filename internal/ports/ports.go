// Package ports declares the boundaries between the services and the
// adapters that store subscriptions or publish statistics.
package ports

import (
	"context"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/stats"
)

type (
	SubscriptionLister interface {
		ListSubscriptions(ctx context.Context) ([]core.Subscription, error)
	}

	SubscriptionReader interface {
		GetSubscription(ctx context.Context, id string) (core.Subscription, error)
	}

	SubscriptionWriter interface {
		CreateSubscription(ctx context.Context, s core.Subscription) error
		UpdateSubscription(ctx context.Context, s core.Subscription) error
		DeleteSubscription(ctx context.Context, id string) error
	}

	// SubscriptionStore is everything the subscription service needs from
	// a backend.
	SubscriptionStore interface {
		SubscriptionLister
		SubscriptionReader
		SubscriptionWriter
		Ping(ctx context.Context) error
	}

	// StatsExporter publishes a computed statistics snapshot somewhere
	// outside the process, such as a spreadsheet.
	StatsExporter interface {
		ExportStatistics(ctx context.Context, rng stats.TimeRange, s stats.EnhancedStats, at time.Time) error
	}

	// ChangePublisher announces that a subscription was created, updated or
	// deleted.
	ChangePublisher interface {
		PublishSubscriptionChanged(ctx context.Context, id, action string) error
	}
)
