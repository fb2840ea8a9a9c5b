// Package agent hosts one isolated agent instance per session. The instance
// owns its conversation memory and tool context and delegates reasoning to a
// model provider.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/steward-agent/steward/pkg/domain"
	"github.com/steward-agent/steward/pkg/memory"
	"github.com/steward-agent/steward/pkg/model"
	"github.com/steward-agent/steward/pkg/tools"
)

// DefaultMaxToolIterations bounds the model/tool loop within one request.
const DefaultMaxToolIterations = 8

// Config holds the per-instance reasoning settings.
type Config struct {
	// Model selects the provider model used for this instance.
	Model string

	// Instructions is the system prompt.
	Instructions string

	// MaxToolIterations bounds how many model calls one request may make
	// while tools keep being invoked. Zero means DefaultMaxToolIterations.
	MaxToolIterations int
}

// Agent is one session's agent instance. It is not safe for concurrent use;
// the session registry serializes access per session.
type Agent struct {
	id       string
	provider model.Provider
	memory   *memory.Manager
	tools    *tools.Registry
	cfg      Config
}

// New constructs an agent instance for the given session.
func New(id string, provider model.Provider, mem *memory.Manager, registry *tools.Registry, cfg Config) *Agent {
	if cfg.MaxToolIterations <= 0 {
		cfg.MaxToolIterations = DefaultMaxToolIterations
	}
	return &Agent{
		id:       id,
		provider: provider,
		memory:   mem,
		tools:    registry,
		cfg:      cfg,
	}
}

// ID returns the owning session's ID.
func (a *Agent) ID() string { return a.id }

// Snapshot returns the serializable conversation state.
func (a *Agent) Snapshot() domain.ConversationState { return a.memory.Snapshot() }

// Restore replaces the conversation state with a persisted one.
func (a *Agent) Restore(state domain.ConversationState) { a.memory.Restore(state) }

// History returns the current context view (summary + live turns).
func (a *Agent) History() []domain.Turn { return a.memory.Context() }

// Handle processes one inbound message: the user turn is appended, the model
// is called with the full memory context, tool calls are dispatched until the
// model produces text, and the response turn is appended.
//
// On a reasoning failure the user turn stays in memory (context is not
// silently lost) and no assistant turn is appended.
func (a *Agent) Handle(ctx context.Context, text string) (string, error) {
	a.memory.Append(ctx, domain.Turn{
		Role:        domain.RoleUser,
		ContentType: domain.ContentTypeText,
		Content:     text,
	})

	for i := 0; i < a.cfg.MaxToolIterations; i++ {
		msg, err := a.provider.Generate(ctx, a.cfg.Model, a.cfg.Instructions, turnsToMessages(a.memory.Context()), a.tools.Specs())
		if err != nil {
			return "", fmt.Errorf("reasoning: %w", err)
		}

		calls := msg.ToolCalls()
		if len(calls) == 0 {
			response := msg.Text()
			a.memory.Append(ctx, domain.Turn{
				Role:        domain.RoleAssistant,
				ContentType: domain.ContentTypeText,
				Content:     response,
			})
			return response, nil
		}

		for _, tc := range calls {
			callJSON, _ := json.Marshal(tc)
			a.memory.Append(ctx, domain.Turn{
				Role:        domain.RoleAssistant,
				ContentType: domain.ContentTypeToolCall,
				Content:     string(callJSON),
			})

			result := a.tools.Dispatch(ctx, tc)
			if result.IsError {
				slog.Warn("Tool call failed", "sessionID", a.id, "tool", tc.Name, "result", result.Content)
			}
			resultJSON, _ := json.Marshal(result)
			a.memory.Append(ctx, domain.Turn{
				Role:        domain.RoleTool,
				ContentType: domain.ContentTypeToolResult,
				Content:     string(resultJSON),
			})
		}
	}

	return "", fmt.Errorf("reasoning: no text response after %d tool iterations", a.cfg.MaxToolIterations)
}

// turnsToMessages converts memory turns to model messages.
func turnsToMessages(turns []domain.Turn) []model.Message {
	var messages []model.Message
	for _, t := range turns {
		msg := model.Message{Role: t.Role}
		switch t.ContentType {
		case domain.ContentTypeToolCall:
			var tc domain.ToolCall
			json.Unmarshal([]byte(t.Content), &tc)
			msg.Content = []model.Content{{Type: domain.ContentTypeToolCall, ToolCall: &tc}}
		case domain.ContentTypeToolResult:
			var tr domain.ToolResult
			json.Unmarshal([]byte(t.Content), &tr)
			msg.Content = []model.Content{{Type: domain.ContentTypeToolResult, ToolResult: &tr}}
		default:
			msg.Content = []model.Content{{Type: domain.ContentTypeText, Text: t.Content}}
		}
		messages = append(messages, msg)
	}
	return messages
}
