package stats

import (
	"sort"

	"subtrack/internal/core"

	"github.com/shopspring/decimal"
)

// Summary holds the totals and groupings derived by Aggregate.
type Summary struct {
	Monthly                decimal.Decimal
	Yearly                 decimal.Decimal
	Weekly                 decimal.Decimal
	TotalActive            int
	AveragePerSubscription decimal.Decimal
	CategoryCosts          []CategoryCost
	StatusBreakdown        []StatusCount
	Currencies             []string
}

// Aggregate sums the normalized monthly cost of the Active subscriptions and
// groups them by category. The status breakdown counts every subscription
// but only Active ones carry a cost.
//
// Categories are sorted by descending cost; equal costs keep the order in
// which the category first appeared. Statuses are listed in encounter order.
func Aggregate(subs []core.Subscription) (Summary, error) {
	var (
		monthly     = decimal.Zero
		active      int
		categories  []CategoryCost
		categoryIdx = make(map[string]int)
		statuses    []StatusCount
		statusIdx   = make(map[core.Status]int)
		currencies  []string
		seenCur     = make(map[string]bool)
	)

	for _, s := range subs {
		cost := decimal.Zero
		if s.IsActive() {
			m, err := s.MonthlyCost()
			if err != nil {
				return Summary{}, err
			}
			cost = m
			monthly = monthly.Add(m)
			active++

			name := s.CategoryOrDefault()
			if i, ok := categoryIdx[name]; ok {
				categories[i].Value = categories[i].Value.Add(m)
				categories[i].Count++
			} else {
				categoryIdx[name] = len(categories)
				categories = append(categories, CategoryCost{Name: name, Value: m, Count: 1})
			}

			if cur := s.Currency; cur != "" && !seenCur[cur] {
				seenCur[cur] = true
				currencies = append(currencies, cur)
			}
		}

		if i, ok := statusIdx[s.Status]; ok {
			statuses[i].Count++
			statuses[i].Cost = statuses[i].Cost.Add(cost)
		} else {
			statusIdx[s.Status] = len(statuses)
			statuses = append(statuses, StatusCount{Status: s.Status, Count: 1, Cost: cost})
		}
	}

	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].Value.GreaterThan(categories[j].Value)
	})

	avg := decimal.Zero
	if active > 0 {
		avg = monthly.Div(decimal.NewFromInt(int64(active)))
	}

	if categories == nil {
		categories = []CategoryCost{}
	}
	if statuses == nil {
		statuses = []StatusCount{}
	}
	if currencies == nil {
		currencies = []string{}
	}

	return Summary{
		Monthly:                monthly,
		Yearly:                 monthly.Mul(core.MonthsPerYear),
		Weekly:                 monthly.Div(core.WeeksPerMonth),
		TotalActive:            active,
		AveragePerSubscription: avg,
		CategoryCosts:          categories,
		StatusBreakdown:        statuses,
		Currencies:             currencies,
	}, nil
}
