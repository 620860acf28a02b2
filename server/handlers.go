package server

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/s0up4200/bazarrwatch/bazarr"
	"github.com/s0up4200/bazarrwatch/coordinator"
	"github.com/s0up4200/bazarrwatch/entry"
)

type statusResponse struct {
	EntryID  string             `json:"entry_id"`
	Status   coordinator.Status `json:"status"`
	Snapshot *bazarr.Snapshot   `json:"snapshot"`
}

type reauthRequest struct {
	APIKey string `json:"api_key"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		EntryID: s.entryID,
		Status:  s.coord.Status(),
	}
	if snap, ok := s.coord.Snapshot(); ok {
		resp.Snapshot = &snap
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEntities(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.entities.States())
}

func (s *Server) handleReauth(w http.ResponseWriter, r *http.Request) {
	var req reauthRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.APIKey == "" {
		s.writeError(w, http.StatusBadRequest, "api_key is required")
		return
	}

	res, err := s.flow.Reauth(r.Context(), s.entryID, req.APIKey)
	if errors.Is(err, entry.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Reauth flow failed")
		s.writeError(w, http.StatusInternalServerError, "reauth failed")
		return
	}

	if res.Succeeded() {
		if err := s.coord.ReplaceAPIKey(r.Context(), req.APIKey); err != nil {
			s.logger.Warn().Err(err).Msg("New API key stored but the startup check failed")
		}
	}

	// stored keys never leave the server
	if res.Entry != nil {
		redacted := *res.Entry
		redacted.APIKey = ""
		res.Entry = &redacted
	}

	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
