package http

import (
	"net/http"

	"subtrack/internal/core"
	applog "subtrack/internal/log"
	"subtrack/internal/stats"
)

// handleStatistics serves the dashboard figures for ?range=, money rounded
// to two decimals.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	rng, err := stats.ParseTimeRange(r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.stats.Statistics(r.Context(), rng, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	rounded := result.Rounded()
	applog.FromContext(r.Context()).DebugContext(r.Context(), "Statistics served",
		applog.FieldTimeRange, string(rng),
		applog.FieldTotalActive, rounded.TotalActive)
	writeJSON(w, http.StatusOK, rounded)
}

func handleBillingCycles(w http.ResponseWriter, r *http.Request) {
	days := core.BillingCycles()
	out := make([]billingCycleResponse, 0, len(days))
	for _, label := range core.KnownBillingCycles() {
		out = append(out, billingCycleResponse{Label: label, Days: days[label]})
	}
	writeJSON(w, http.StatusOK, out)
}
