// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package health provides the HTTP status endpoint: a small Chi router
// exposing liveness ("/" and "/health") and a mutable status object
// ("/status") that the active worker keeps up to date.
//
// Grounded on cartographus's internal/api/chi_router.go and
// chi_middleware.go (Chi router, go-chi/cors, go-chi/httprate) and on
// original_source's health/server.go, generalized from its
// http.HTTPServer/BaseHTTPRequestHandler pair to one Chi-routed
// *http.Server guarded by a mutex.
package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/picsync/internal/logging"
)

// Server is the C5/C6 status reporter and health endpoint. It
// satisfies monitor.StatusReporter and backfill.StatusReporter via
// UpdateStatus, and services.HTTPServer via ListenAndServe/Shutdown
// once wrapped in *http.Server (see NewHTTPServer).
type Server struct {
	mu     sync.RWMutex
	status map[string]any
}

// NewServer constructs a health Server in the "starting" state, matching
// original_source's HealthHandler._status default.
func NewServer() *Server {
	return &Server{status: map[string]any{"status": "starting"}}
}

// UpdateStatus merges data into the current status object and stamps
// updated_at, matching HealthServer.update_status.
func (s *Server) UpdateStatus(data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range data {
		s.status[k] = v
	}
	s.status["updated_at"] = time.Now().UTC().Format(time.RFC3339)
}

// MarkRunning flips the status to "running", called once the owning
// worker has started successfully.
func (s *Server) MarkRunning() {
	s.UpdateStatus(map[string]any{"status": "running"})
}

func (s *Server) snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.status))
	for k, v := range s.status {
		out[k] = v
	}
	return out
}

// Router builds the Chi router backing this Server: "/" and "/health"
// return 200 "OK", "/status" returns the current status object as JSON,
// and "/metrics" exposes Prometheus metrics. Everything else 404s.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))
	r.Use(httprate.LimitByIP(120, time.Minute))

	r.Get("/", s.handleOK)
	r.Get("/health", s.handleOK)
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) handleOK(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(s.snapshot()); err != nil {
		logging.Error().Err(err).Msg("health: failed to encode status response")
	}
}

// NewHTTPServer wraps Router in a standard *http.Server listening on
// addr, ready for services.NewHTTPServerService.
func NewHTTPServer(addr string, s *Server) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
