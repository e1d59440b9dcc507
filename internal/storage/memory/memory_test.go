package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/storage"

	"github.com/shopspring/decimal"
)

var now = time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

const seedDoc = `
subscriptions:
  - name: Netflix
    amount: 15.99
    currency: USD
    billing_cycle: monthly
    category: Entertainment
    start_date: 2024-01-20
  - id: fixed-id
    name: Domain
    amount: "12"
    billing_cycle_days: 365
    status: paused
    start_date: 2023-08-01
`

func TestParseSeed(t *testing.T) {
	subs, err := ParseSeed(strings.NewReader(seedDoc), now)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 subscriptions, got %d", len(subs))
	}

	netflix := subs[0]
	if netflix.ID == "" || netflix.BillingCycleDays != 30 || netflix.Status != core.StatusActive {
		t.Fatalf("defaults not applied: %+v", netflix)
	}
	if !netflix.Amount.Equal(decimal.RequireFromString("15.99")) {
		t.Fatalf("amount = %s", netflix.Amount)
	}
	if netflix.NextBillingDate != core.NewDate(2024, 6, 18) {
		t.Fatalf("next billing = %s, want 2024-06-18", netflix.NextBillingDate)
	}

	domain := subs[1]
	if domain.ID != "fixed-id" || domain.Currency != core.DefaultCurrency || domain.Status != core.StatusPaused {
		t.Fatalf("unexpected entry %+v", domain)
	}
}

func TestParseSeedRejectsInvalidEntry(t *testing.T) {
	doc := `
subscriptions:
  - name: ""
    amount: 1
    billing_cycle: weekly
    start_date: 2024-01-01
`
	if _, err := ParseSeed(strings.NewReader(doc), now); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFromFile(filepath.Join(dir, "missing.yaml"), now)
	if err != nil {
		t.Fatalf("missing file should give empty store, got %v", err)
	}
	if subs, _ := s.ListSubscriptions(context.Background()); len(subs) != 0 {
		t.Fatalf("expected empty store")
	}

	path := filepath.Join(dir, "seed.yaml")
	if err := os.WriteFile(path, []byte(seedDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err = NewFromFile(path, now)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	subs, _ := s.ListSubscriptions(context.Background())
	if len(subs) != 2 {
		t.Fatalf("expected 2 seeded subscriptions, got %d", len(subs))
	}
}

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	a := core.Subscription{ID: "a", Name: "A", CreatedAt: now}
	b := core.Subscription{ID: "b", Name: "B", CreatedAt: now.Add(time.Hour)}
	for _, sub := range []core.Subscription{a, b} {
		if err := s.CreateSubscription(ctx, sub); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.CreateSubscription(ctx, a); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	subs, _ := s.ListSubscriptions(ctx)
	if subs[0].ID != "b" || subs[1].ID != "a" {
		t.Fatalf("expected newest first, got %s, %s", subs[0].ID, subs[1].ID)
	}

	a.Name = "A2"
	if err := s.UpdateSubscription(ctx, a); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetSubscription(ctx, "a")
	if err != nil || got.Name != "A2" {
		t.Fatalf("update not applied: %+v %v", got, err)
	}

	if err := s.DeleteSubscription(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetSubscription(ctx, "a"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateSubscription(ctx, a); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}

func TestListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New(core.Subscription{ID: "a", Name: "A"})
	subs, _ := s.ListSubscriptions(ctx)
	subs[0].Name = "changed"
	got, _ := s.GetSubscription(ctx, "a")
	if got.Name != "A" {
		t.Fatalf("list leaked internal state")
	}
}
