package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/steward-agent/steward/pkg/domain"
	"github.com/steward-agent/steward/pkg/router"
	"github.com/steward-agent/steward/pkg/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleChatWebSocket holds a chat connection pinned to one session. The
// session's history is replayed on connect; each inbound message is routed
// with the session token forced, and the response pushed back.
func (s *Server) handleChatWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		http.Error(w, "Missing session ID", http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade websocket", "error", err)
		return
	}
	defer ws.Close()

	// Replay existing history (rehydrates the session if needed). A session
	// that does not exist yet simply has nothing to replay; it is created on
	// the first routed message.
	turns, err := s.sessions.History(r.Context(), sessionID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("Failed to load session history", "sessionID", sessionID, "error", err)
		return
	}
	for _, t := range turns {
		if err := ws.WriteJSON(t); err != nil {
			return
		}
	}

	for {
		var msg struct {
			Content string `json:"content"`
		}
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				break
			}
			slog.Error("WebSocket read error", "sessionID", sessionID, "error", err)
			break
		}
		if msg.Content == "" {
			continue
		}

		result, err := s.router.Handle(r.Context(), router.FormatSessionToken(sessionID)+" "+msg.Content)
		if err != nil {
			if werr := ws.WriteJSON(map[string]string{"error": err.Error()}); werr != nil {
				break
			}
			continue
		}

		if err := ws.WriteJSON(domain.Turn{
			Role:        domain.RoleAssistant,
			ContentType: domain.ContentTypeText,
			Content:     result.Text,
		}); err != nil {
			break
		}
	}
}
