package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	rfbridge "github.com/nerrad567/gray-logic-rf433/internal/bridges/rf433"
)

// handleListTransmitters returns every transmitter heard, most recent first.
func (s *Server) handleListTransmitters(w http.ResponseWriter, r *http.Request) {
	list, err := s.bridge.Transmitters(r.Context())
	if err != nil {
		s.requestLogger(r).Error("listing transmitters failed", "error", err)
		writeInternalError(w, r, "failed to list transmitters")
		return
	}
	if list == nil {
		list = []rfbridge.Transmitter{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transmitters": list,
		"count":        len(list),
	})
}

// handleGetTransmitter returns the last state seen for one address.
func (s *Server) handleGetTransmitter(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	msg, ok := s.bridge.LastState(address)
	if !ok {
		writeNotFound(w, r, "no state for "+address)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}
