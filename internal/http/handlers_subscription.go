package http

import (
	"net/http"

	"subtrack/internal/core"
	applog "subtrack/internal/log"
)

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.subs.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSubscriptionListResponse(subs))
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := req.toSubscription()
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.subs.Create(r.Context(), sub)
	if err != nil {
		writeError(w, r, err)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogSubscriptionChanged(r.Context(), "create", created.ID, created.Name)
	w.Header().Set("Location", "/api/subscriptions/"+created.ID)
	writeJSON(w, http.StatusCreated, newSubscriptionResponse(created))
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.subs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSubscriptionResponse(sub))
}

func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := req.toSubscription()
	if err != nil {
		writeError(w, r, err)
		return
	}
	sub.ID = r.PathValue("id")

	updated, err := s.subs.Update(r.Context(), sub)
	if err != nil {
		writeError(w, r, err)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogSubscriptionChanged(r.Context(), "update", updated.ID, updated.Name)
	writeJSON(w, http.StatusOK, newSubscriptionResponse(updated))
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.subs.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogSubscriptionChanged(r.Context(), "delete", id, "")
	w.WriteHeader(http.StatusNoContent)
}

// handleSetStatus changes only the lifecycle state, e.g. pausing or
// cancelling a subscription.
func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	status, err := core.ParseStatus(req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sub, err := s.subs.SetStatus(r.Context(), r.PathValue("id"), status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogSubscriptionChanged(r.Context(), "status:"+status.String(), sub.ID, sub.Name)
	writeJSON(w, http.StatusOK, newSubscriptionResponse(sub))
}
