package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Report describes the worker's view of its collaborators.
type Report struct {
	Status      string `json:"status"`
	SourceDepth int64  `json:"source_depth"`
	Error       string `json:"error,omitempty"`
}

// Checker produces a health report on demand.
type Checker func(ctx context.Context) Report

// Server provides HTTP endpoints for health monitoring.
type Server struct {
	check  Checker
	server *http.Server
}

// NewServer creates a new health server.
func NewServer(check Checker, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		check: check,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if report.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(report)
}
