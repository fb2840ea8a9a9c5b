// Package router is the entry point for all inbound requests. It
// demultiplexes by session token, obtains the session's agent instance from
// the registry, forwards the message, and persists the resulting state.
package router

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/steward-agent/steward/pkg/domain"
	"github.com/steward-agent/steward/pkg/session"
)

// Result is the outcome of one routed request.
type Result struct {
	// SessionID is the session the request was routed to. For anonymous
	// requests this is a freshly minted user-class ID the client can adopt.
	SessionID string `json:"session_id"`

	// Text is the agent's response.
	Text string `json:"text"`
}

// Router routes inbound messages to per-session agent instances.
type Router struct {
	sessions *session.Registry
}

// New creates a Router over the given session registry.
func New(sessions *session.Registry) *Router {
	return &Router{sessions: sessions}
}

// Handle processes one raw inbound message end to end: extract the session
// token (minting a fresh user-class ID when absent), acquire the session's
// agent instance, forward the cleaned text, persist, respond.
//
// A reasoning failure is returned as an error, but the user turn has already
// been appended and persisted so context is not silently lost. A persist
// failure is logged only; the in-memory state stays authoritative until the
// next successful persist. No failure escapes as a panic.
func (r *Router) Handle(ctx context.Context, raw string) (*Result, error) {
	id, cleaned := ExtractSessionID(raw)
	if id == "" {
		id = domain.NewUserSessionID()
		slog.Debug("No session token in message, minted new session", "sessionID", id)
	}

	inst, release, err := r.sessions.Acquire(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("acquiring session %s: %w", id, err)
	}
	defer release()

	text, handleErr := inst.Handle(ctx, cleaned)

	// Persist on both paths: after a reasoning failure the appended user
	// turn still has to survive a restart.
	if err := r.sessions.Persist(ctx, id); err != nil {
		slog.Error("Session persist failed, in-memory state remains authoritative", "sessionID", id, "error", err)
	}

	if handleErr != nil {
		return nil, fmt.Errorf("handling message for session %s: %w", id, handleErr)
	}
	return &Result{SessionID: id, Text: text}, nil
}
