package stats

import (
	"sort"

	"subtrack/internal/core"
)

// DefaultTopLimit is the length of the top list on the dashboard.
const DefaultTopLimit = 5

// Rank returns up to limit Active subscriptions ordered by normalized monthly
// cost, most expensive first. Equal costs keep their input order. A limit of
// zero or less selects DefaultTopLimit.
func Rank(subs []core.Subscription, limit int) ([]TopSubscription, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	ranked := make([]TopSubscription, 0, len(subs))
	for _, s := range subs {
		if !s.IsActive() {
			continue
		}
		cost, err := s.MonthlyCost()
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, TopSubscription{Name: s.Name, Cost: cost, Category: s.Category})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Cost.GreaterThan(ranked[j].Cost)
	})
	if len(ranked) > limit {
		ranked = ranked[:limit:limit]
	}
	return ranked, nil
}
