package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Daily     BillingCycle = "daily"
	Weekly    BillingCycle = "weekly"
	Monthly   BillingCycle = "monthly"
	Quarterly BillingCycle = "quarterly"
	Yearly    BillingCycle = "yearly"
)

// ReferenceMonthDays is the fixed month length every cadence is scaled to.
const ReferenceMonthDays = 30

// WeeksPerMonth converts monthly figures to weekly ones (52/12 rounded).
var WeeksPerMonth = decimal.RequireFromString("4.33")

// MonthsPerYear converts monthly figures to yearly ones.
var MonthsPerYear = decimal.NewFromInt(12)

// ErrInvalidCadence is returned for a billing cycle of zero or fewer days.
var ErrInvalidCadence = errors.New("billing cycle days must be positive")

// BillingCycle is the symbolic label of a billing cadence.
type BillingCycle string

// billingCycleDays is ordered so the codec table renders shortest first.
var billingCycleDays = []struct {
	cycle BillingCycle
	days  int
}{
	{Daily, 1},
	{Weekly, 7},
	{Monthly, 30},
	{Quarterly, 90},
	{Yearly, 365},
}

// BillingCycles returns every known label with its day count.
func BillingCycles() map[BillingCycle]int {
	out := make(map[BillingCycle]int, len(billingCycleDays))
	for _, c := range billingCycleDays {
		out[c.cycle] = c.days
	}
	return out
}

// KnownBillingCycles lists the labels in ascending day order.
func KnownBillingCycles() []BillingCycle {
	out := make([]BillingCycle, 0, len(billingCycleDays))
	for _, c := range billingCycleDays {
		out = append(out, c.cycle)
	}
	return out
}

// DaysFromLabel maps a label to its day count. Unknown labels map to the
// monthly cadence instead of failing.
func DaysFromLabel(label string) int {
	l := BillingCycle(strings.ToLower(strings.TrimSpace(label)))
	for _, c := range billingCycleDays {
		if c.cycle == l {
			return c.days
		}
	}
	return 30
}

// LabelFromDays is the inverse of DaysFromLabel. Day counts without an exact
// label are shown as monthly.
func LabelFromDays(days int) BillingCycle {
	for _, c := range billingCycleDays {
		if c.days == days {
			return c.cycle
		}
	}
	return Monthly
}

// NormalizeToMonthly rescales amount, billed every billingCycleDays days, to
// the 30-day reference month: amount * 30 / billingCycleDays.
func NormalizeToMonthly(amount decimal.Decimal, billingCycleDays int) (decimal.Decimal, error) {
	if billingCycleDays <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %d days", ErrInvalidCadence, billingCycleDays)
	}
	return amount.
		Mul(decimal.NewFromInt(ReferenceMonthDays)).
		Div(decimal.NewFromInt(int64(billingCycleDays))), nil
}

// MonthlyCost normalizes the subscription's own amount and cadence.
func (s Subscription) MonthlyCost() (decimal.Decimal, error) {
	m, err := NormalizeToMonthly(s.Amount, s.BillingCycleDays)
	if err != nil {
		return decimal.Zero, fmt.Errorf("subscription %s (%s): %w", s.ID, s.Name, err)
	}
	return m, nil
}

// BillingCycle returns the display label of the stored day count.
func (s Subscription) BillingCycle() BillingCycle {
	return LabelFromDays(s.BillingCycleDays)
}
