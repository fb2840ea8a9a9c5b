package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/steward-agent/steward/pkg/session"
	"github.com/steward-agent/steward/pkg/store"
)

// handleMessage routes one inbound message. The message may carry an
// embedded [[session:...]] token; anonymous messages get a fresh session
// whose ID is echoed back for the client to adopt.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err)
		return
	}
	if req.Text == "" {
		s.errorResponse(w, http.StatusBadRequest, errors.New("text is required"))
		return
	}

	result, err := s.router.Handle(r.Context(), req.Text)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, session.ErrLockTimeout) {
			status = http.StatusServiceUnavailable
		}
		s.errorResponse(w, status, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.sessions.List())
}

func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	turns, err := s.sessions.History(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		s.errorResponse(w, status, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, turns)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"live_sessions":  s.sessions.Len(),
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	}
	if s.poller != nil {
		ticks, failures := s.poller.Stats()
		status["poll_ticks"] = ticks
		status["poll_failures"] = failures
	}
	s.jsonResponse(w, http.StatusOK, status)
}
