package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/transmitters", func(r chi.Router) {
			r.Get("/", s.handleListTransmitters)
			r.Get("/{address}", s.handleGetTransmitter)
		})

		r.Get(s.wsPath(), s.handleWebSocket)
	})

	return r
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// handleHealth reports liveness. It answers 200 even when degraded so
// probes can read the reason.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	m := s.bridge.Metrics()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    m.Status,
		"reason":    m.Reason,
		"receiving": s.receiver.IsReceiving(),
		"version":   s.version,
	})
}
