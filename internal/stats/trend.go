package stats

import (
	"time"

	"subtrack/internal/core"

	"github.com/shopspring/decimal"
)

// Trend produces one point per month of the range, oldest first, ending with
// the month containing now. Each point sums the normalized monthly cost of
// the Active subscriptions whose lifetime overlaps that calendar month: the
// start date falls on or before the month's last day and the end date, if
// any, on or after its first day. A subscription starting mid-month thus
// counts in its starting month, not only from the month after.
func Trend(subs []core.Subscription, rng TimeRange, now time.Time) ([]MonthlyCost, error) {
	type entry struct {
		start, end core.Date
		cost       decimal.Decimal
	}
	active := make([]entry, 0, len(subs))
	for _, s := range subs {
		if !s.IsActive() {
			continue
		}
		cost, err := s.MonthlyCost()
		if err != nil {
			return nil, err
		}
		active = append(active, entry{start: s.StartDate, end: s.EndDate, cost: cost})
	}

	months := rng.Months()
	year, month, _ := now.Date()
	points := make([]MonthlyCost, 0, months)
	for i := months - 1; i >= 0; i-- {
		first := core.NewDate(year, int(month)-i, 1)
		last := core.NewDate(first.Year(), int(first.Month())+1, 0)

		total := decimal.Zero
		for _, e := range active {
			if e.start.After(last.Time) {
				continue
			}
			if !e.end.IsZero() && e.end.Before(first.Time) {
				continue
			}
			total = total.Add(e.cost)
		}
		points = append(points, MonthlyCost{
			Name:  first.Format("Jan"),
			Month: first.Format("2006-01"),
			Cost:  total,
		})
	}
	return points, nil
}
