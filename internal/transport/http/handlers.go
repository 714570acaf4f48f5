package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"raisebar/internal/app"
	"raisebar/internal/domain"
	"raisebar/internal/store"
)

// Response is a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateMatchRequest is the body of POST /api/matches
type CreateMatchRequest struct {
	Mode string `json:"mode"`
}

// CreateMatchResponse is the response for match creation
type CreateMatchResponse struct {
	MatchID   string          `json:"matchId"`
	Mode      domain.GameMode `json:"mode"`
	SocketURL string          `json:"socketUrl"`
}

// GetMatchResponse is the response for getting match info
type GetMatchResponse struct {
	State   domain.MatchSnapshot `json:"state"`
	Clients int                  `json:"clients"`
	Done    bool                 `json:"done"`
}

// StopTurnResponse reports whether a recording was cut short
type StopTurnResponse struct {
	Stopped bool `json:"stopped"`
}

// HealthResponse is the response for health check
type HealthResponse struct {
	Status  string `json:"status"`
	Archive bool   `json:"archive"`
}

// handleCreateMatch handles POST /api/matches
func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req CreateMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.sendError(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be JSON")
		return
	}

	mode, err := domain.ParseGameMode(req.Mode)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "UNKNOWN_MODE", "Unknown game mode")
		return
	}

	session, err := s.hub.CreateMatch(mode)
	if err != nil {
		s.logger.Error("create match failed", "error", err)
		s.sendError(w, http.StatusInternalServerError, "CREATION_FAILED", "Failed to create match")
		return
	}

	// Build socket link
	scheme := "ws"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "wss"
	}
	socketURL := scheme + "://" + r.Host + "/ws?matchId=" + session.ID()

	s.sendSuccess(w, &CreateMatchResponse{
		MatchID:   session.ID(),
		Mode:      session.Mode(),
		SocketURL: socketURL,
	})
}

// handleGetMatch handles GET /api/matches/{matchId}
func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupMatch(w, r)
	if !ok {
		return
	}

	snap := session.Snapshot()
	s.sendSuccess(w, &GetMatchResponse{
		State:   snap,
		Clients: session.ClientCount(),
		Done:    snap.Finished || snap.Exited,
	})
}

// handleGetResult handles GET /api/matches/{matchId}/result
func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupMatch(w, r)
	if !ok {
		return
	}

	result, err := session.Result()
	if err != nil {
		s.sendError(w, http.StatusNotFound, "MATCH_NOT_FINISHED", "Match has not finished")
		return
	}
	s.sendSuccess(w, result)
}

// handleStopTurn handles POST /api/matches/{matchId}/stop
func (s *Server) handleStopTurn(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupMatch(w, r)
	if !ok {
		return
	}
	s.sendSuccess(w, &StopTurnResponse{Stopped: session.StopTurn()})
}

// handleExitMatch handles POST /api/matches/{matchId}/exit
func (s *Server) handleExitMatch(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupMatch(w, r)
	if !ok {
		return
	}
	session.Exit()
	s.sendSuccess(w, session.Snapshot())
}

// handleListSessions handles GET /api/sessions
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.sendError(w, http.StatusServiceUnavailable, "ARCHIVE_DISABLED", "Session archive is disabled")
		return
	}

	limit := store.DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.sendError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = n
	}

	sessions, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("list sessions failed", "error", err)
		s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	s.sendSuccess(w, sessions)
}

// handleGetSession handles GET /api/sessions/{sessionId}
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.sendError(w, http.StatusServiceUnavailable, "ARCHIVE_DISABLED", "Session archive is disabled")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("sessionId"), 10, 64)
	if err != nil || id <= 0 {
		s.sendError(w, http.StatusBadRequest, "INVALID_SESSION_ID", "Session id must be a positive integer")
		return
	}

	session, err := s.history.Session(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.sendError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found")
		} else {
			s.logger.Error("get session failed", "sessionID", id, "error", err)
			s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		}
		return
	}
	s.sendSuccess(w, session)
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &HealthResponse{
		Status:  "ok",
		Archive: s.history != nil,
	})
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, s.hub.Stats())
}

// lookupMatch resolves the matchId path value, writing the error response
// when it cannot
func (s *Server) lookupMatch(w http.ResponseWriter, r *http.Request) (*app.MatchSession, bool) {
	matchID := r.PathValue("matchId")
	if matchID == "" {
		s.sendError(w, http.StatusBadRequest, "MISSING_MATCH_ID", "Match id is required")
		return nil, false
	}

	session, err := s.hub.GetSession(matchID)
	if err != nil {
		if errors.Is(err, domain.ErrMatchNotFound) {
			s.sendError(w, http.StatusNotFound, "MATCH_NOT_FOUND", "Match not found")
		} else {
			s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		}
		return nil, false
	}
	return session, true
}

// sendSuccess sends a successful JSON response
func (s *Server) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&Response{
		Success: true,
		Data:    data,
	})
}

// sendError sends an error JSON response
func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}
