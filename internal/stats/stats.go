// Package stats turns a list of subscriptions into normalized spending
// statistics. Every function here is pure: the caller supplies the
// subscriptions and the reference instant, nothing is read from the clock or
// from storage, and every call returns freshly allocated values.
package stats

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"subtrack/internal/core"

	"github.com/shopspring/decimal"
)

const (
	Range30Days  TimeRange = "30days"
	Range90Days  TimeRange = "90days"
	Range6Months TimeRange = "6months"
	Range1Year   TimeRange = "1year"
)

// DefaultTimeRange is used when no range is requested.
const DefaultTimeRange = Range30Days

var ErrInvalidTimeRange = errors.New("invalid time range")

// TimeRange selects how many months the trend covers.
type TimeRange string

type (
	CategoryCost struct {
		Name  string          `json:"name"`
		Value decimal.Decimal `json:"value"`
		Count int             `json:"count"`
	}

	TopSubscription struct {
		Name     string          `json:"name"`
		Cost     decimal.Decimal `json:"cost"`
		Category string          `json:"category,omitempty"`
	}

	// MonthlyCost is one point of the trend. Name is the short month label,
	// Month the YYYY-MM key it was computed for.
	MonthlyCost struct {
		Name  string          `json:"name"`
		Month string          `json:"month"`
		Cost  decimal.Decimal `json:"cost"`
	}

	StatusCount struct {
		Status core.Status     `json:"status"`
		Count  int             `json:"count"`
		Cost   decimal.Decimal `json:"cost"`
	}

	// EnhancedStats is the full dashboard payload.
	EnhancedStats struct {
		Monthly                decimal.Decimal   `json:"monthly"`
		Yearly                 decimal.Decimal   `json:"yearly"`
		Weekly                 decimal.Decimal   `json:"weekly"`
		TotalActive            int               `json:"total_active"`
		AveragePerSubscription decimal.Decimal   `json:"average_per_subscription"`
		CategoryCosts          []CategoryCost    `json:"category_costs"`
		TopSubscriptions       []TopSubscription `json:"top_subscriptions"`
		MonthlyCosts           []MonthlyCost     `json:"monthly_costs"`
		StatusBreakdown        []StatusCount     `json:"status_breakdown"`
		Currencies             []string          `json:"currencies"`
		MixedCurrency          bool              `json:"mixed_currency"`
	}
)

// ParseTimeRange accepts the four range keys. An empty string selects the
// default range.
func ParseTimeRange(s string) (TimeRange, error) {
	r := TimeRange(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case "":
		return DefaultTimeRange, nil
	case Range30Days, Range90Days, Range6Months, Range1Year:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeRange, s)
	}
}

// Months is the number of trend points the range produces. Unknown values
// fall back to a full year.
func (r TimeRange) Months() int {
	switch r {
	case "", Range30Days:
		return 1
	case Range90Days:
		return 3
	case Range6Months:
		return 6
	default:
		return 12
	}
}

func (r TimeRange) String() string {
	if r == "" {
		return string(DefaultTimeRange)
	}
	return string(r)
}

// TimeRanges lists the accepted range keys, shortest first.
func TimeRanges() []TimeRange {
	return []TimeRange{Range30Days, Range90Days, Range6Months, Range1Year}
}

// Compute builds the complete statistics for subs as seen at now. It fails
// on the first subscription with a non-positive billing cycle.
func Compute(subs []core.Subscription, rng TimeRange, now time.Time) (EnhancedStats, error) {
	summary, err := Aggregate(subs)
	if err != nil {
		return EnhancedStats{}, err
	}
	top, err := Rank(subs, DefaultTopLimit)
	if err != nil {
		return EnhancedStats{}, err
	}
	trend, err := Trend(subs, rng, now)
	if err != nil {
		return EnhancedStats{}, err
	}
	return EnhancedStats{
		Monthly:                summary.Monthly,
		Yearly:                 summary.Yearly,
		Weekly:                 summary.Weekly,
		TotalActive:            summary.TotalActive,
		AveragePerSubscription: summary.AveragePerSubscription,
		CategoryCosts:          summary.CategoryCosts,
		TopSubscriptions:       top,
		MonthlyCosts:           trend,
		StatusBreakdown:        summary.StatusBreakdown,
		Currencies:             summary.Currencies,
		MixedCurrency:          len(summary.Currencies) > 1,
	}, nil
}

// Clone returns a deep copy, so callers sharing a cached snapshot cannot
// affect each other.
func (s EnhancedStats) Clone() EnhancedStats {
	out := s
	out.CategoryCosts = cloneSlice(s.CategoryCosts)
	out.TopSubscriptions = cloneSlice(s.TopSubscriptions)
	out.MonthlyCosts = cloneSlice(s.MonthlyCosts)
	out.StatusBreakdown = cloneSlice(s.StatusBreakdown)
	out.Currencies = cloneSlice(s.Currencies)
	return out
}

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// Rounded returns a copy with every money figure rounded to two decimals.
func (s EnhancedStats) Rounded() EnhancedStats {
	out := s.Clone()
	out.Monthly = core.RoundMoney(s.Monthly)
	out.Yearly = core.RoundMoney(s.Yearly)
	out.Weekly = core.RoundMoney(s.Weekly)
	out.AveragePerSubscription = core.RoundMoney(s.AveragePerSubscription)

	for i := range out.CategoryCosts {
		out.CategoryCosts[i].Value = core.RoundMoney(out.CategoryCosts[i].Value)
	}
	for i := range out.TopSubscriptions {
		out.TopSubscriptions[i].Cost = core.RoundMoney(out.TopSubscriptions[i].Cost)
	}
	for i := range out.MonthlyCosts {
		out.MonthlyCosts[i].Cost = core.RoundMoney(out.MonthlyCosts[i].Cost)
	}
	for i := range out.StatusBreakdown {
		out.StatusBreakdown[i].Cost = core.RoundMoney(out.StatusBreakdown[i].Cost)
	}
	return out
}

// CategoryShare is value as a percentage of total, zero when total is zero.
func CategoryShare(value, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return value.Div(total).Mul(decimal.NewFromInt(100))
}
