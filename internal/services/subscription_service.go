// Package services orchestrates subscription changes and statistics on top
// of the storage, cache and messaging adapters.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/ports"
)

const (
	ActionCreated       = "created"
	ActionUpdated       = "updated"
	ActionDeleted       = "deleted"
	ActionStatusChanged = "status_changed"
)

// Invalidator drops cached statistics after a write.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// SubscriptionService validates and persists subscriptions, then announces
// each change. Publishing and cache invalidation are best effort: the write
// has already succeeded when they run.
type SubscriptionService struct {
	store           ports.SubscriptionStore
	publisher       ports.ChangePublisher
	invalidator     Invalidator
	defaultCurrency string
	now             func() time.Time
}

// NewSubscriptionService wires the service. publisher and invalidator may
// be nil.
func NewSubscriptionService(store ports.SubscriptionStore, publisher ports.ChangePublisher, invalidator Invalidator, defaultCurrency string) *SubscriptionService {
	if defaultCurrency == "" {
		defaultCurrency = core.DefaultCurrency
	}
	return &SubscriptionService{
		store:           store,
		publisher:       publisher,
		invalidator:     invalidator,
		defaultCurrency: defaultCurrency,
		now:             time.Now,
	}
}

// Create assigns an id, fills defaults, validates and stores sub.
func (s *SubscriptionService) Create(ctx context.Context, sub core.Subscription) (core.Subscription, error) {
	now := s.now().UTC()

	sub.ID = core.NewSubscriptionID()
	s.applyDefaults(&sub)
	if err := sub.Validate(); err != nil {
		return core.Subscription{}, err
	}
	sub.NextBillingDate = core.NextBillingDate(sub.StartDate, sub.BillingCycleDays, core.DateOf(now))
	sub.CreatedAt = now
	sub.UpdatedAt = now

	if err := s.store.CreateSubscription(ctx, sub); err != nil {
		return core.Subscription{}, fmt.Errorf("save subscription: %w", err)
	}

	s.afterWrite(ctx, sub.ID, ActionCreated)
	return sub, nil
}

func (s *SubscriptionService) Get(ctx context.Context, id string) (core.Subscription, error) {
	return s.store.GetSubscription(ctx, id)
}

func (s *SubscriptionService) List(ctx context.Context) ([]core.Subscription, error) {
	return s.store.ListSubscriptions(ctx)
}

// Update replaces the editable fields of an existing subscription. The id
// and creation time are kept from the stored record.
func (s *SubscriptionService) Update(ctx context.Context, sub core.Subscription) (core.Subscription, error) {
	existing, err := s.store.GetSubscription(ctx, sub.ID)
	if err != nil {
		return core.Subscription{}, err
	}

	now := s.now().UTC()
	s.applyDefaults(&sub)
	if err := sub.Validate(); err != nil {
		return core.Subscription{}, err
	}
	sub.NextBillingDate = core.NextBillingDate(sub.StartDate, sub.BillingCycleDays, core.DateOf(now))
	sub.CreatedAt = existing.CreatedAt
	sub.UpdatedAt = now

	if err := s.store.UpdateSubscription(ctx, sub); err != nil {
		return core.Subscription{}, fmt.Errorf("update subscription: %w", err)
	}

	s.afterWrite(ctx, sub.ID, ActionUpdated)
	return sub, nil
}

func (s *SubscriptionService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteSubscription(ctx, id); err != nil {
		return err
	}
	s.afterWrite(ctx, id, ActionDeleted)
	return nil
}

// SetStatus moves a subscription to another lifecycle state.
func (s *SubscriptionService) SetStatus(ctx context.Context, id string, status core.Status) (core.Subscription, error) {
	if !status.IsValid() {
		return core.Subscription{}, fmt.Errorf("%w: %q", core.ErrInvalidStatus, status)
	}
	sub, err := s.store.GetSubscription(ctx, id)
	if err != nil {
		return core.Subscription{}, err
	}
	if sub.Status == status {
		return sub, nil
	}

	sub.Status = status
	sub.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateSubscription(ctx, sub); err != nil {
		return core.Subscription{}, fmt.Errorf("update subscription status: %w", err)
	}

	s.afterWrite(ctx, id, ActionStatusChanged)
	return sub, nil
}

// Ping reports whether the backing store is reachable.
func (s *SubscriptionService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *SubscriptionService) applyDefaults(sub *core.Subscription) {
	sub.Name = strings.TrimSpace(sub.Name)
	sub.Category = strings.TrimSpace(sub.Category)
	sub.Currency = strings.ToUpper(strings.TrimSpace(sub.Currency))
	if sub.Currency == "" {
		sub.Currency = s.defaultCurrency
	}
	if sub.Status == "" {
		sub.Status = core.StatusActive
	}
}

func (s *SubscriptionService) afterWrite(ctx context.Context, id, action string) {
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			slog.WarnContext(ctx, "Failed to invalidate statistics cache",
				"subscription_id", id,
				"error", err)
		}
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "No change publisher configured, skipping event",
			"subscription_id", id,
			"action", action)
		return
	}
	if err := s.publisher.PublishSubscriptionChanged(ctx, id, action); err != nil {
		slog.ErrorContext(ctx, "Failed to publish subscription change",
			"subscription_id", id,
			"action", action,
			"error", err)
	}
}
