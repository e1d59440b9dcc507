package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/stats"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleStats() stats.EnhancedStats {
	return stats.EnhancedStats{
		Monthly:                dec("40.005"),
		Yearly:                 dec("480.06"),
		Weekly:                 dec("9.2391"),
		TotalActive:            2,
		AveragePerSubscription: dec("20.0025"),
		CategoryCosts: []stats.CategoryCost{
			{Name: "Video", Value: dec("30"), Count: 1},
			{Name: "Music", Value: dec("10.005"), Count: 1},
		},
		TopSubscriptions: []stats.TopSubscription{
			{Name: "Netflix", Cost: dec("30"), Category: "Video"},
			{Name: "Spotify", Cost: dec("10.005"), Category: "Music"},
		},
		MonthlyCosts: []stats.MonthlyCost{
			{Name: "May", Month: "2024-05", Cost: dec("40.005")},
			{Name: "Jun", Month: "2024-06", Cost: dec("40.005")},
		},
		StatusBreakdown: []stats.StatusCount{
			{Status: core.StatusActive, Count: 2, Cost: dec("40.005")},
		},
		Currencies: []string{"CNY"},
	}
}

func findSection(t *testing.T, sections []Section, title string) Section {
	t.Helper()
	for _, s := range sections {
		if s.Title == title {
			return s
		}
	}
	t.Fatalf("section %q not found", title)
	return Section{}
}

func TestSectionsLayout(t *testing.T) {
	sections := Sections(sampleStats(), stats.Range30Days, fixedNow)

	titles := make([]string, len(sections))
	for i, s := range sections {
		titles[i] = s.Title
	}
	want := []string{SummaryTitle, CategoriesTitle, TopTitle, TrendTitle, StatusTitle}
	if strings.Join(titles, ",") != strings.Join(want, ",") {
		t.Fatalf("titles = %v, want %v", titles, want)
	}

	summary := findSection(t, sections, SummaryTitle)
	if got := FormatCell(summary.Rows[0][1]); got != "40.01" {
		t.Errorf("monthly = %s, want 40.01", got)
	}
	if summary.Note != "" {
		t.Errorf("single currency should carry no note, got %q", summary.Note)
	}

	cats := findSection(t, sections, CategoriesTitle)
	if len(cats.Rows) != 2 {
		t.Fatalf("category rows = %d, want 2", len(cats.Rows))
	}
	if got := FormatCell(cats.Rows[0][3]); got != "74.98" {
		t.Errorf("Video share = %s, want 74.98", got)
	}
	if got := FormatCell(cats.Footer[1]); got != "2" {
		t.Errorf("footer count = %s, want 2", got)
	}

	top := findSection(t, sections, TopTitle)
	if top.Rows[1][0] != 2 || top.Rows[1][1] != "Spotify" {
		t.Errorf("second top row = %v", top.Rows[1])
	}
}

func TestSectionsMixedCurrencyNote(t *testing.T) {
	s := sampleStats()
	s.Currencies = []string{"CNY", "USD"}
	s.MixedCurrency = true

	summary := findSection(t, Sections(s, stats.Range30Days, fixedNow), SummaryTitle)
	if !strings.Contains(summary.Note, "CNY, USD") {
		t.Errorf("note = %q, want it to list both currencies", summary.Note)
	}
}

func TestSectionsEmptyStats(t *testing.T) {
	sections := Sections(stats.EnhancedStats{}, stats.Range30Days, fixedNow)

	cats := findSection(t, sections, CategoriesTitle)
	if len(cats.Rows) != 0 || cats.Footer != nil {
		t.Errorf("empty stats should give an empty category table, got %+v", cats)
	}

	var buf bytes.Buffer
	if err := WriteTable(&buf, sections); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}
	if !strings.Contains(buf.String(), "none") {
		t.Error("empty tables should say none")
	}
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{3, "3"},
		{dec("1.005"), "1.01"},
		{dec("7"), "7.00"},
		{3.5, ""},
	}
	for _, tt := range tests {
		if got := FormatCell(tt.in); got != tt.want {
			t.Errorf("FormatCell(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteTable(t *testing.T) {
	s := sampleStats()
	s.Currencies = []string{"CNY", "USD"}
	s.MixedCurrency = true

	var buf bytes.Buffer
	if err := WriteTable(&buf, Sections(s, stats.Range90Days, fixedNow)); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{"Netflix", "Video", "2024-05", "Active", "40.01", "90days", "Warning:"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q", want)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleStats(), stats.Range30Days, fixedNow); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var doc struct {
		TimeRange   string `json:"time_range"`
		GeneratedAt string `json:"generated_at"`
		Statistics  struct {
			Monthly         decimal.Decimal `json:"monthly"`
			TotalActive     int             `json:"total_active"`
			StatusBreakdown []struct {
				Status string `json:"status"`
			} `json:"status_breakdown"`
		} `json:"statistics"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if doc.TimeRange != "30days" {
		t.Errorf("time_range = %q", doc.TimeRange)
	}
	if doc.GeneratedAt != "2024-06-15T12:00:00Z" {
		t.Errorf("generated_at = %q", doc.GeneratedAt)
	}
	if !doc.Statistics.Monthly.Equal(dec("40.01")) {
		t.Errorf("monthly = %s, want 40.01", doc.Statistics.Monthly)
	}
	if doc.Statistics.TotalActive != 2 {
		t.Errorf("total_active = %d", doc.Statistics.TotalActive)
	}
	if len(doc.Statistics.StatusBreakdown) != 1 || doc.Statistics.StatusBreakdown[0].Status != "Active" {
		t.Errorf("status_breakdown = %+v", doc.Statistics.StatusBreakdown)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, Sections(sampleStats(), stats.Range30Days, fixedNow)); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{SummaryTitle, CategoriesTitle, TopTitle, TrendTitle, StatusTitle}
	if strings.Join(sheets, ",") != strings.Join(want, ",") {
		t.Fatalf("sheets = %v, want %v", sheets, want)
	}

	rows, err := f.GetRows(CategoriesTitle, excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("category rows = %d, want header, two categories and total", len(rows))
	}
	if rows[0][0] != "Category" || rows[1][0] != "Video" || rows[3][0] != "Total" {
		t.Errorf("unexpected category sheet: %v", rows)
	}
	if rows[1][2] != "30" {
		t.Errorf("Video monthly cell = %q, want 30", rows[1][2])
	}
}
