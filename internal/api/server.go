// Package api exposes a small chi-routed introspection server: health,
// Prometheus metrics, and the most recent run's diagnostics as JSON. It
// is a read-only collaborator — nothing here can trigger or mutate a run;
// spec.md's "interactive dashboards" are explicitly out of scope, but a
// thin machine-readable inspection surface is not a dashboard.
package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fieldforce/dispatchopt/internal/rundriver"
)

// Server holds the latest completed run, updated by the driving CLI
// command after each RunForDate call.
type Server struct {
	router *chi.Mux

	mu     sync.RWMutex
	latest *rundriver.Result
}

// New builds the router. metricsEnabled controls whether /metrics is
// mounted (internal/config's server.metrics_enabled).
func New(metricsEnabled bool) *Server {
	s := &Server{router: chi.NewRouter()}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/runs/latest", s.handleLatest)
	if metricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler())
	}

	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetLatest records the most recently completed run for /runs/latest.
func (s *Server) SetLatest(result rundriver.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &result
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()

	if latest == nil {
		http.Error(w, "no run has completed yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(latest)
}
