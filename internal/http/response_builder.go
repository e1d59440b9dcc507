package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"subtrack/internal/core"
	applog "subtrack/internal/log"
	"subtrack/internal/stats"
	"subtrack/internal/storage"

	"github.com/shopspring/decimal"
)

type errorResponse struct {
	Error string `json:"error"`
}

// subscriptionResponse adds the derived display fields to a stored
// subscription.
type subscriptionResponse struct {
	core.Subscription
	BillingCycle core.BillingCycle `json:"billing_cycle"`
	MonthlyCost  decimal.Decimal   `json:"monthly_cost"`
}

type subscriptionListResponse struct {
	Subscriptions []subscriptionResponse `json:"subscriptions"`
	Total         int                    `json:"total"`
}

type billingCycleResponse struct {
	Label core.BillingCycle `json:"label"`
	Days  int               `json:"days"`
}

func newSubscriptionResponse(sub core.Subscription) subscriptionResponse {
	monthly, err := sub.MonthlyCost()
	if err != nil {
		monthly = decimal.Zero
	}
	return subscriptionResponse{
		Subscription: sub,
		BillingCycle: sub.BillingCycle(),
		MonthlyCost:  core.RoundMoney(monthly),
	}
}

func newSubscriptionListResponse(subs []core.Subscription) subscriptionListResponse {
	out := subscriptionListResponse{
		Subscriptions: make([]subscriptionResponse, 0, len(subs)),
		Total:         len(subs),
	}
	for _, sub := range subs {
		out.Subscriptions = append(out.Subscriptions, newSubscriptionResponse(sub))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code. Unexpected errors are logged and
// reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, "internal", applog.ComponentHTTP, r.Method+" "+r.URL.Path)
		msg = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func errorStatus(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr), errors.Is(err, stats.ErrInvalidTimeRange):
		return http.StatusBadRequest
	case core.IsValidationError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
