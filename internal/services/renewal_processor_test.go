package services

import (
	"context"
	"testing"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/storage/memory"
)

func TestRenewalProcessor_ProcessDue(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 15, 6, 0, 0, 0, time.UTC)

	due := activeSub("due", "10", 30)
	due.StartDate = core.NewDate(2024, 5, 1)
	due.NextBillingDate = core.NewDate(2024, 5, 31)

	upcoming := activeSub("upcoming", "10", 30)
	upcoming.NextBillingDate = core.NewDate(2024, 6, 20)

	paused := activeSub("paused", "10", 30)
	paused.Status = core.StatusPaused
	paused.NextBillingDate = core.NewDate(2024, 1, 1)

	ended := activeSub("ended", "10", 30)
	ended.EndDate = core.NewDate(2024, 3, 1)
	ended.NextBillingDate = core.NewDate(2024, 2, 1)

	store := memory.New(due, upcoming, paused, ended)
	n, err := NewRenewalProcessor(store).ProcessDue(ctx, now)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one renewal, got %d", n)
	}

	got, _ := store.GetSubscription(ctx, "due")
	if got.NextBillingDate != core.NewDate(2024, 6, 30) {
		t.Fatalf("next billing = %s, want 2024-06-30", got.NextBillingDate)
	}
	if p, _ := store.GetSubscription(ctx, "paused"); p.NextBillingDate != core.NewDate(2024, 1, 1) {
		t.Fatalf("paused subscription should not move")
	}
}
