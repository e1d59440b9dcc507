// Package memory is a process-local subscription store, optionally seeded
// from a YAML file. It backs development runs and the report CLI.
package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/storage"

	"gopkg.in/yaml.v3"
)

var ErrDuplicateID = errors.New("subscription id already exists")

type Store struct {
	mu    sync.RWMutex
	items []core.Subscription
}

func New(subs ...core.Subscription) *Store {
	return &Store{items: append([]core.Subscription(nil), subs...)}
}

// NewFromFile seeds the store from path. A missing file yields an empty
// store; a malformed one is an error.
func NewFromFile(path string, now time.Time) (*Store, error) {
	if path == "" {
		return New(), nil
	}
	subs, err := LoadSeed(path, now)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, err
	}
	return New(subs...), nil
}

func (s *Store) CreateSubscription(_ context.Context, sub core.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(sub.ID) >= 0 {
		return fmt.Errorf("create subscription %s: %w", sub.ID, ErrDuplicateID)
	}
	s.items = append(s.items, sub)
	return nil
}

func (s *Store) GetSubscription(_ context.Context, id string) (core.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Subscription{}, fmt.Errorf("get subscription %s: %w", id, storage.ErrNotFound)
	}
	return s.items[i], nil
}

// ListSubscriptions returns a copy of every subscription, newest first.
func (s *Store) ListSubscriptions(_ context.Context) ([]core.Subscription, error) {
	s.mu.RLock()
	out := make([]core.Subscription, len(s.items))
	copy(out, s.items)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateSubscription(_ context.Context, sub core.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(sub.ID)
	if i < 0 {
		return fmt.Errorf("update subscription %s: %w", sub.ID, storage.ErrNotFound)
	}
	s.items[i] = sub
	return nil
}

func (s *Store) DeleteSubscription(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("delete subscription %s: %w", id, storage.ErrNotFound)
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// seedFile is the YAML layout of a seed or report input file.
type seedFile struct {
	Subscriptions []seedEntry `yaml:"subscriptions"`
}

// seedEntry lets a file give the cadence either as a label or a day count.
type seedEntry struct {
	core.Subscription `yaml:",inline"`
	BillingCycle      string `yaml:"billing_cycle,omitempty"`
}

// LoadSeed reads subscriptions from a YAML file.
func LoadSeed(path string, now time.Time) ([]core.Subscription, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSeed(f, now)
}

// ParseSeed decodes and validates a seed document. Missing ids are
// generated, missing currency and status take their defaults, and the next
// billing date is derived from now.
func ParseSeed(r io.Reader, now time.Time) ([]core.Subscription, error) {
	var doc seedFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	today := core.DateOf(now)
	out := make([]core.Subscription, 0, len(doc.Subscriptions))
	for i, e := range doc.Subscriptions {
		sub := e.Subscription
		if sub.BillingCycleDays == 0 && strings.TrimSpace(e.BillingCycle) != "" {
			sub.BillingCycleDays = core.DaysFromLabel(e.BillingCycle)
		}
		if sub.ID == "" {
			sub.ID = core.NewSubscriptionID()
		}
		if sub.Currency == "" {
			sub.Currency = core.DefaultCurrency
		}
		if sub.Status == "" {
			sub.Status = core.StatusActive
		} else if st, err := core.ParseStatus(string(sub.Status)); err == nil {
			sub.Status = st
		}
		if err := sub.Validate(); err != nil {
			return nil, fmt.Errorf("seed entry %d (%s): %w", i+1, sub.Name, err)
		}
		sub.NextBillingDate = core.NextBillingDate(sub.StartDate, sub.BillingCycleDays, today)
		sub.CreatedAt = now
		sub.UpdatedAt = now
		out = append(out, sub)
	}
	return out, nil
}
