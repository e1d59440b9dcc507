package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func validSubscription() Subscription {
	return Subscription{
		ID:               "sub-1",
		Name:             "Netflix",
		Amount:           dec("15.99"),
		Currency:         "USD",
		BillingCycleDays: 30,
		Category:         "Entertainment",
		Status:           StatusActive,
		StartDate:        NewDate(2024, 1, 1),
		Color:            "#E50914",
	}
}

func TestSubscriptionValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Subscription)
		want   error
	}{
		{"valid", func(*Subscription) {}, nil},
		{"zero amount allowed", func(s *Subscription) { s.Amount = dec("0") }, nil},
		{"blank name", func(s *Subscription) { s.Name = "   " }, ErrEmptyName},
		{"long name", func(s *Subscription) { s.Name = strings.Repeat("x", 201) }, ErrNameTooLong},
		{"negative amount", func(s *Subscription) { s.Amount = dec("-1") }, ErrInvalidAmount},
		{"zero cadence", func(s *Subscription) { s.BillingCycleDays = 0 }, ErrInvalidCadence},
		{"unknown status", func(s *Subscription) { s.Status = "Archived" }, ErrInvalidStatus},
		{"lowercase currency", func(s *Subscription) { s.Currency = "usd" }, ErrInvalidCurrency},
		{"numeric currency", func(s *Subscription) { s.Currency = "123" }, ErrInvalidCurrency},
		{"symbol currency", func(s *Subscription) { s.Currency = "$$$" }, ErrInvalidCurrency},
		{"short currency", func(s *Subscription) { s.Currency = "EU" }, ErrInvalidCurrency},
		{"bad color", func(s *Subscription) { s.Color = "red" }, ErrInvalidColor},
		{"missing start", func(s *Subscription) { s.StartDate = Date{} }, ErrMissingStartDate},
		{"end before start", func(s *Subscription) { s.EndDate = NewDate(2023, 12, 31) }, ErrInvalidDateRange},
		{"end equals start", func(s *Subscription) { s.EndDate = s.StartDate }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSubscription()
			tt.mutate(&s)
			err := s.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("expected ok, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !IsValidationError(err) {
				t.Fatalf("%v should be a validation error", err)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"active":    StatusActive,
		"PAUSED":    StatusPaused,
		"Cancelled": StatusCancelled,
		"canceled":  StatusCancelled,
		" trial ":   StatusTrial,
	}
	for in, want := range cases {
		got, err := ParseStatus(in)
		if err != nil || got != want {
			t.Fatalf("ParseStatus(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseStatus("expired"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestCategoryOrDefault(t *testing.T) {
	s := Subscription{Category: "  "}
	if got := s.CategoryOrDefault(); got != UncategorizedLabel {
		t.Fatalf("expected %q, got %q", UncategorizedLabel, got)
	}
	s.Category = "Music"
	if got := s.CategoryOrDefault(); got != "Music" {
		t.Fatalf("expected Music, got %q", got)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil || d.String() != "2024-02-29" {
		t.Fatalf("got %v, %v", d, err)
	}
	d, err = ParseDate("2024-03-05T23:10:00Z")
	if err != nil || d.String() != "2024-03-05" {
		t.Fatalf("timestamp should truncate to day, got %v, %v", d, err)
	}
	d, err = ParseDate("")
	if err != nil || !d.IsZero() {
		t.Fatalf("empty should be zero date, got %v, %v", d, err)
	}
	if _, err := ParseDate("03/05/2024"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDateJSON(t *testing.T) {
	type wrapper struct {
		Start Date `json:"start"`
		End   Date `json:"end"`
	}
	b, err := json.Marshal(wrapper{Start: NewDate(2024, 1, 15)})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"start":"2024-01-15","end":null}` {
		t.Fatalf("unexpected json %s", b)
	}
	var w wrapper
	if err := json.Unmarshal([]byte(`{"start":"2024-06-01","end":null}`), &w); err != nil {
		t.Fatal(err)
	}
	if w.Start != NewDate(2024, 6, 1) || !w.End.IsZero() {
		t.Fatalf("unexpected decode %+v", w)
	}
}

func TestSubscriptionYAML(t *testing.T) {
	src := `
name: Spotify
amount: 9.99
currency: USD
billing_cycle_days: 30
status: Active
start_date: 2023-05-01
`
	var s Subscription
	if err := yaml.Unmarshal([]byte(src), &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "Spotify" || !s.Amount.Equal(dec("9.99")) || s.StartDate != NewDate(2023, 5, 1) {
		t.Fatalf("unexpected decode %+v", s)
	}
	if !s.EndDate.IsZero() {
		t.Fatalf("end date should be unset")
	}
}

func TestDateScan(t *testing.T) {
	var d Date
	if err := d.Scan("2024-07-04"); err != nil || d != NewDate(2024, 7, 4) {
		t.Fatalf("string scan: %v %v", d, err)
	}
	loc := time.FixedZone("x", 3600)
	if err := d.Scan(time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC).In(loc)); err != nil || d != NewDate(2024, 7, 5) {
		t.Fatalf("time scan: %v %v", d, err)
	}
	if err := d.Scan(nil); err != nil || !d.IsZero() {
		t.Fatalf("nil scan: %v %v", d, err)
	}
	if err := d.Scan(42); err == nil {
		t.Fatalf("expected error for int")
	}
	v, _ := Date{}.Value()
	if v != nil {
		t.Fatalf("zero date should store NULL, got %v", v)
	}
}
