package core

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	StatusActive    Status = "Active"
	StatusPaused    Status = "Paused"
	StatusCancelled Status = "Cancelled"
	StatusTrial     Status = "Trial"
)

// UncategorizedLabel replaces an empty category during aggregation.
const UncategorizedLabel = "Uncategorized"

// DefaultCurrency is used when a subscription is stored without a currency.
const DefaultCurrency = "CNY"

const dateLayout = "2006-01-02"

type (
	Status string

	// Date is a calendar day in UTC. The zero value means "not set".
	Date struct {
		time.Time
	}

	Subscription struct {
		ID               string          `json:"id" yaml:"id"`
		Name             string          `json:"name" yaml:"name"`
		Description      string          `json:"description,omitempty" yaml:"description,omitempty"`
		Amount           decimal.Decimal `json:"amount" yaml:"amount"`
		Currency         string          `json:"currency" yaml:"currency"`
		BillingCycleDays int             `json:"billing_cycle_days" yaml:"billing_cycle_days"`
		Category         string          `json:"category,omitempty" yaml:"category,omitempty"`
		Status           Status          `json:"status" yaml:"status"`
		StartDate        Date            `json:"start_date" yaml:"start_date"`
		EndDate          Date            `json:"end_date" yaml:"end_date,omitempty"`
		NextBillingDate  Date            `json:"next_billing_date" yaml:"-"`
		Color            string          `json:"color,omitempty" yaml:"color,omitempty"`
		Website          string          `json:"website,omitempty" yaml:"website,omitempty"`
		Notes            string          `json:"notes,omitempty" yaml:"notes,omitempty"`
		CreatedAt        time.Time       `json:"created_at" yaml:"-"`
		UpdatedAt        time.Time       `json:"updated_at" yaml:"-"`
	}
)

var (
	ErrEmptyName        = errors.New("subscription name cannot be empty")
	ErrNameTooLong      = errors.New("subscription name too long (max 200 characters)")
	ErrInvalidAmount    = errors.New("amount must be a non-negative decimal")
	ErrInvalidStatus    = errors.New("invalid subscription status")
	ErrInvalidColor     = errors.New("invalid color code format, use #RRGGBB")
	ErrInvalidCurrency  = errors.New("currency must be a 3-letter code")
	ErrInvalidDateRange = errors.New("end date must be on or after the start date")
	ErrMissingStartDate = errors.New("start date is required")
)

var (
	colorPattern    = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
)

// NewSubscriptionID returns a fresh random identifier.
func NewSubscriptionID() string {
	return uuid.NewString()
}

// ParseStatus accepts any casing of the four lifecycle states.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return StatusActive, nil
	case "paused":
		return StatusPaused, nil
	case "cancelled", "canceled":
		return StatusCancelled, nil
	case "trial":
		return StatusTrial, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCancelled, StatusTrial:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		// Accept full timestamps and keep only the day.
		ts, tsErr := time.Parse(time.RFC3339, s)
		if tsErr != nil {
			return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		return DateOf(ts), nil
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*d = Date{}
		return nil
	}
	return d.UnmarshalText([]byte(strings.Trim(s, `"`)))
}

// Value stores the date as YYYY-MM-DD text, NULL when unset.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = DateOf(v.UTC())
	case string:
		return d.UnmarshalText([]byte(v))
	case []byte:
		return d.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
	return nil
}

// CategoryOrDefault returns the category used for grouping.
func (s Subscription) CategoryOrDefault() string {
	if c := strings.TrimSpace(s.Category); c != "" {
		return c
	}
	return UncategorizedLabel
}

func (s Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// ValidateCadence reports whether the subscription can enter the normalizer.
func (s Subscription) ValidateCadence() error {
	if s.BillingCycleDays <= 0 {
		return fmt.Errorf("%w: %d days", ErrInvalidCadence, s.BillingCycleDays)
	}
	return nil
}

// Validate checks the request-level rules applied on create and update.
func (s Subscription) Validate() error {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > 200 {
		return ErrNameTooLong
	}
	if s.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if err := s.ValidateCadence(); err != nil {
		return err
	}
	if !s.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, s.Status)
	}
	if !currencyPattern.MatchString(s.Currency) {
		return ErrInvalidCurrency
	}
	if s.Color != "" && !colorPattern.MatchString(s.Color) {
		return ErrInvalidColor
	}
	if s.StartDate.IsZero() {
		return ErrMissingStartDate
	}
	if !s.EndDate.IsZero() && s.EndDate.Before(s.StartDate.Time) {
		return ErrInvalidDateRange
	}
	return nil
}

// IsValidationError reports whether err comes from request validation.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrEmptyName, ErrNameTooLong, ErrInvalidAmount, ErrInvalidStatus,
		ErrInvalidColor, ErrInvalidCurrency, ErrInvalidDateRange,
		ErrMissingStartDate, ErrInvalidCadence,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
