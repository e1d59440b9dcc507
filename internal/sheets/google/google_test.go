package google

import (
	"context"
	"testing"
	"time"

	"subtrack/internal/report"
	"subtrack/internal/stats"

	"github.com/shopspring/decimal"
)

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Statistics", 2024, "2024 Statistics"},
		{"  Statistics ", 2025, "2025 Statistics"},
		{"2023 Statistics", 2024, "2023 Statistics"},
		{"", 2024, ""},
		{"12345", 2024, "2024 12345"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestBuildValues(t *testing.T) {
	sections := []report.Section{
		{
			Title:  "Categories",
			Header: []string{"Category", "Subscriptions", "Monthly"},
			Rows: [][]any{
				{"Video", 2, decimal.RequireFromString("30.5")},
			},
			Footer: []any{"Total", 2, decimal.RequireFromString("30.5")},
		},
		{
			Title:  "Summary",
			Note:   "mixed",
			Header: []string{"Metric", "Value"},
		},
	}

	values := buildValues(sections)

	want := [][]any{
		{"Categories"},
		{"Category", "Subscriptions", "Monthly"},
		{"Video", "2", "30.50"},
		{"Total", "2", "30.50"},
		{},
		{"Summary"},
		{"mixed"},
		{"Metric", "Value"},
	}
	if len(values) != len(want) {
		t.Fatalf("rows = %d, want %d: %v", len(values), len(want), values)
	}
	for i := range want {
		if len(values[i]) != len(want[i]) {
			t.Fatalf("row %d = %v, want %v", i, values[i], want[i])
		}
		for j := range want[i] {
			if values[i][j] != want[i][j] {
				t.Errorf("cell %d,%d = %v, want %v", i, j, values[i][j], want[i][j])
			}
		}
	}
}

func TestBuildValuesFromStats(t *testing.T) {
	s := stats.EnhancedStats{
		Monthly:     decimal.RequireFromString("12.345"),
		TotalActive: 1,
	}
	at := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	values := buildValues(report.Sections(s, stats.Range30Days, at))

	if values[0][0] != report.SummaryTitle {
		t.Fatalf("first row = %v", values[0])
	}
	// title, header, then the monthly row
	if values[2][0] != "Monthly" || values[2][1] != "12.35" {
		t.Errorf("monthly row = %v", values[2])
	}
}

func TestExportRequiresService(t *testing.T) {
	c := &Client{spreadsheetID: "id", statsBase: "Statistics"}
	err := c.ExportStatistics(context.Background(), stats.Range30Days, stats.EnhancedStats{}, time.Now())
	if err == nil {
		t.Error("expected an error without a sheets service")
	}
}

func TestNewRequiresSpreadsheetAndCredentials(t *testing.T) {
	if _, err := New(context.Background(), "", "Statistics", []byte("{}")); err == nil {
		t.Error("expected an error for a missing spreadsheet id")
	}
	if _, err := New(context.Background(), "sheet-id", "Statistics", nil); err == nil {
		t.Error("expected an error for missing credentials")
	}
}
