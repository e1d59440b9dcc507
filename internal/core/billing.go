package core

// NextBillingDate returns the first billing date on or after today for a
// subscription starting at start and renewing every cycleDays days. Future
// subscriptions bill first on their start date.
func NextBillingDate(start Date, cycleDays int, today Date) Date {
	if start.IsZero() || cycleDays <= 0 {
		return start
	}
	if !start.Before(today.Time) {
		return start
	}
	elapsed := int(today.Sub(start.Time).Hours() / 24)
	periods := elapsed / cycleDays
	next := start.AddDays(periods * cycleDays)
	if next.Before(today.Time) {
		next = next.AddDays(cycleDays)
	}
	return next
}
