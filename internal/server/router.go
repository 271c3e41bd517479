package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telhawk-systems/mfa-sentinel/internal/handlers"
	"github.com/telhawk-systems/mfa-sentinel/internal/middleware"
)

// NewRouter constructs a ServeMux with the incident API routes registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	// Incident API
	mux.HandleFunc("/api/v1/events", h.HandleEvent)
	mux.HandleFunc("/api/v1/incidents/", h.GetIncident)
	mux.HandleFunc("/api/v1/remediation/run", h.RunRemediation)

	// Health endpoints
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}
