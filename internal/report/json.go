package report

import (
	"encoding/json"
	"io"
	"time"

	"subtrack/internal/stats"
)

// Document is the JSON report envelope.
type Document struct {
	TimeRange   stats.TimeRange     `json:"time_range"`
	GeneratedAt time.Time           `json:"generated_at"`
	Statistics  stats.EnhancedStats `json:"statistics"`
}

// WriteJSON writes s, rounded for display, as an indented document.
func WriteJSON(w io.Writer, s stats.EnhancedStats, rng stats.TimeRange, at time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Document{
		TimeRange:   rng,
		GeneratedAt: at.UTC(),
		Statistics:  s.Rounded(),
	})
}
