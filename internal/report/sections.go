// Package report renders a statistics snapshot for people: terminal tables,
// JSON documents and spreadsheets all share the same section layout.
package report

import (
	"strings"
	"time"

	"subtrack/internal/stats"

	"github.com/shopspring/decimal"
)

// Section is one titled table of a report. Cells hold string, int or
// decimal.Decimal values and each renderer formats them itself.
type Section struct {
	Title  string
	Note   string
	Header []string
	Rows   [][]any
	Footer []any
}

const (
	SummaryTitle    = "Summary"
	CategoriesTitle = "Categories"
	TopTitle        = "Top subscriptions"
	TrendTitle      = "Trend"
	StatusTitle     = "Status"
)

// Sections lays out s, rounded for display, as summary, categories, top
// list, trend and status tables.
func Sections(s stats.EnhancedStats, rng stats.TimeRange, at time.Time) []Section {
	r := s.Rounded()
	return []Section{
		summarySection(r, rng, at),
		categorySection(r),
		topSection(r),
		trendSection(r),
		statusSection(r),
	}
}

func summarySection(s stats.EnhancedStats, rng stats.TimeRange, at time.Time) Section {
	currencies := "-"
	if len(s.Currencies) > 0 {
		currencies = strings.Join(s.Currencies, ", ")
	}
	mixed := "no"
	sec := Section{
		Title:  SummaryTitle,
		Header: []string{"Metric", "Value"},
	}
	if s.MixedCurrency {
		mixed = "yes"
		sec.Note = "Totals add amounts in " + currencies + " without conversion."
	}
	sec.Rows = [][]any{
		{"Monthly", s.Monthly},
		{"Yearly", s.Yearly},
		{"Weekly", s.Weekly},
		{"Active subscriptions", s.TotalActive},
		{"Average per subscription", s.AveragePerSubscription},
		{"Currencies", currencies},
		{"Mixed currency", mixed},
		{"Time range", rng.String()},
		{"Generated at", at.UTC().Format(time.RFC3339)},
	}
	return sec
}

func categorySection(s stats.EnhancedStats) Section {
	sec := Section{
		Title:  CategoriesTitle,
		Header: []string{"Category", "Subscriptions", "Monthly", "Share %"},
		Rows:   make([][]any, 0, len(s.CategoryCosts)),
	}
	count := 0
	for _, c := range s.CategoryCosts {
		share := stats.CategoryShare(c.Value, s.Monthly).Round(2)
		sec.Rows = append(sec.Rows, []any{c.Name, c.Count, c.Value, share})
		count += c.Count
	}
	if len(s.CategoryCosts) > 0 {
		sec.Footer = []any{"Total", count, s.Monthly, decimal.NewFromInt(100)}
	}
	return sec
}

func topSection(s stats.EnhancedStats) Section {
	sec := Section{
		Title:  TopTitle,
		Header: []string{"#", "Name", "Category", "Monthly"},
		Rows:   make([][]any, 0, len(s.TopSubscriptions)),
	}
	for i, t := range s.TopSubscriptions {
		sec.Rows = append(sec.Rows, []any{i + 1, t.Name, t.Category, t.Cost})
	}
	return sec
}

func trendSection(s stats.EnhancedStats) Section {
	sec := Section{
		Title:  TrendTitle,
		Header: []string{"Month", "Label", "Cost"},
		Rows:   make([][]any, 0, len(s.MonthlyCosts)),
	}
	for _, m := range s.MonthlyCosts {
		sec.Rows = append(sec.Rows, []any{m.Month, m.Name, m.Cost})
	}
	return sec
}

func statusSection(s stats.EnhancedStats) Section {
	sec := Section{
		Title:  StatusTitle,
		Header: []string{"Status", "Subscriptions", "Monthly"},
		Rows:   make([][]any, 0, len(s.StatusBreakdown)),
	}
	for _, st := range s.StatusBreakdown {
		sec.Rows = append(sec.Rows, []any{st.Status.String(), st.Count, st.Cost})
	}
	return sec
}

// FormatCell renders a cell as text with money fixed to two decimals.
func FormatCell(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case decimal.Decimal:
		return c.StringFixed(2)
	case int:
		return decimal.NewFromInt(int64(c)).String()
	default:
		return ""
	}
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, decimal.Decimal:
		return true
	default:
		return false
	}
}
