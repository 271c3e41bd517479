package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/telhawk-systems/mfa-sentinel/internal/dispatch"
	"github.com/telhawk-systems/mfa-sentinel/internal/httputil"
	"github.com/telhawk-systems/mfa-sentinel/internal/logging"
	"github.com/telhawk-systems/mfa-sentinel/internal/models"
	"github.com/telhawk-systems/mfa-sentinel/internal/scheduler"
	"github.com/telhawk-systems/mfa-sentinel/internal/store"
)

// Handler serves the incident API.
type Handler struct {
	dispatcher *dispatch.Dispatcher
	scheduler  *scheduler.Scheduler
	store      store.Store
	logger     *logging.Logger
}

// New creates an API handler.
func New(d *dispatch.Dispatcher, s *scheduler.Scheduler, st store.Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		dispatcher: d,
		scheduler:  s,
		store:      st,
		logger:     logger,
	}
}

// HandleEvent accepts either a live audit-event envelope or a synthetic
// simulator request and returns the dispatch result.
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req models.DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	defer r.Body.Close()

	result, err := h.dispatcher.Handle(r.Context(), &req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "dispatch failed", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to record incident")
		return
	}

	status := http.StatusOK
	if result.Status == models.DispatchError {
		status = http.StatusBadRequest
	}
	httputil.WriteJSON(w, status, result)
}

// GetIncident returns a stored incident by ID.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/incidents/")
	if id == "" || strings.Contains(id, "/") {
		httputil.WriteError(w, http.StatusBadRequest, "missing incident id")
		return
	}

	inc, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "incident not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "incident lookup failed",
			logging.IncidentID(id), logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "incident lookup failed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, inc)
}

// RunRemediation triggers a single remediation pass and returns the summary.
func (h *Handler) RunRemediation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	summary, err := h.scheduler.RunOnce(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "remediation pass failed", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "remediation pass failed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, summary)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports readiness, checking store connectivity.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "store unreachable",
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
