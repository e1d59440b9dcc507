package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"subtrack/internal/core"

	"github.com/shopspring/decimal"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// requestError marks malformed input that never reached validation.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// subscriptionRequest is the body of create and update calls. Amount is
// kept raw so both "12.34" and 12.34 reach the decimal parser untouched.
type subscriptionRequest struct {
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Amount           json.RawMessage `json:"amount"`
	Currency         string          `json:"currency"`
	BillingCycle     string          `json:"billing_cycle"`
	BillingCycleDays int             `json:"billing_cycle_days"`
	Category         string          `json:"category"`
	Status           string          `json:"status"`
	StartDate        string          `json:"start_date"`
	EndDate          string          `json:"end_date"`
	Color            string          `json:"color"`
	Website          string          `json:"website"`
	Notes            string          `json:"notes"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return badRequest("request body larger than %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		default:
			return badRequest("invalid JSON body: %v", err)
		}
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

// toSubscription converts the request into a domain value. Field rules
// beyond syntax are left to core.Subscription.Validate.
func (req subscriptionRequest) toSubscription() (core.Subscription, error) {
	amount, err := parseAmountField(req.Amount)
	if err != nil {
		return core.Subscription{}, err
	}

	sub := core.Subscription{
		Name:             sanitizeInput(req.Name),
		Description:      sanitizeInput(req.Description),
		Amount:           amount,
		Currency:         strings.TrimSpace(req.Currency),
		BillingCycleDays: billingCycleDays(req.BillingCycle, req.BillingCycleDays),
		Category:         sanitizeInput(req.Category),
		Color:            strings.TrimSpace(req.Color),
		Website:          sanitizeInput(req.Website),
		Notes:            sanitizeInput(req.Notes),
	}

	if strings.TrimSpace(req.Status) != "" {
		if sub.Status, err = core.ParseStatus(req.Status); err != nil {
			return core.Subscription{}, err
		}
	}
	if sub.StartDate, err = core.ParseDate(req.StartDate); err != nil {
		return core.Subscription{}, badRequest("start_date: %v", err)
	}
	if sub.EndDate, err = core.ParseDate(req.EndDate); err != nil {
		return core.Subscription{}, badRequest("end_date: %v", err)
	}
	return sub, nil
}

// parseAmountField accepts a JSON string or number.
func parseAmountField(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero, core.ErrInvalidAmount
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return decimal.Zero, badRequest("amount: %v", err)
		}
	}
	return core.ParseAmount(text)
}

// billingCycleDays prefers an explicit day count, then the label, then
// the monthly cadence. Negative counts are passed on so validation rejects
// them.
func billingCycleDays(label string, days int) int {
	switch {
	case days != 0:
		return days
	case strings.TrimSpace(label) != "":
		return core.DaysFromLabel(label)
	default:
		return core.DaysFromLabel(string(core.Monthly))
	}
}

// sanitizeInput drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
