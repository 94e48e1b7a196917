package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/YoshitsuguKoike/inboxzero/internal/application/dto"
)

const maxBodyBytes = 1 << 20

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := HealthResponse{Status: "ok", Version: s.opts.Version}
	if s.opts.Stats != nil {
		snap := s.opts.Stats()
		resp.Runs = &snap
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleStart handles POST /triage/start
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.StartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		respondError(w, http.StatusBadRequest, "field 'user_id' is required")
		return
	}

	result, err := s.triage.Start(r.Context(), req)
	if err != nil {
		respondTriageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// handleDecision handles POST /triage/decision
func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.DecideRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		respondError(w, http.StatusBadRequest, "field 'user_id' is required")
		return
	}

	result, err := s.triage.Decide(r.Context(), req)
	if err != nil {
		respondTriageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// handleCallback handles POST /approvals/callback
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.CallbackRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.triage.HandleCallback(r.Context(), req)
	if err != nil {
		respondTriageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// handleState handles GET and DELETE /triage/state?user_id=
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		respondError(w, http.StatusBadRequest, "query parameter 'user_id' is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		state, err := s.triage.Status(r.Context(), userID)
		if err != nil {
			respondTriageError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, state)

	case http.MethodDelete:
		if err := s.triage.Reset(r.Context(), userID); err != nil {
			respondTriageError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, ResetResponse{UserID: userID, Reset: true})

	default:
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleSocket handles GET /ws?user_id=
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		respondError(w, http.StatusBadRequest, "query parameter 'user_id' is required")
		return
	}
	s.opts.Sockets.Serve(w, r, userID)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return false
	}
	return true
}
