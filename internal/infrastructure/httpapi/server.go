// Package httpapi exposes adjustment runs over HTTP using a method-prefixed
// http.ServeMux.
package httpapi

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Server is the adjustment HTTP API.
type Server struct {
	mux    *http.ServeMux
	log    zerolog.Logger
	runner *Runner
	auth   *BearerAuth
}

// NewServer builds a Server wiring runner's endpoints behind auth's bearer
// token check.
func NewServer(runner *Runner, auth *BearerAuth, log zerolog.Logger) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		log:    log,
		runner: runner,
		auth:   auth,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/v1/adjustment-runs", s.auth.protect(s.handleCreateRun))
	s.mux.HandleFunc("GET /api/v1/adjustment-runs/{id}", s.auth.protect(s.handleGetRun))
	s.mux.HandleFunc("GET /api/v1/adjustment-runs/{id}/generations", s.auth.protect(s.handleListGenerations))
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /ready", s.handleReady)
}

// ServeHTTP implements http.Handler, logging every request before
// delegating to the route mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.log.Info().Str("method", r.Method).Str("path", r.URL.Path).Msg("http request")
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.runner.store.Ping(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("readiness check failed")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}
