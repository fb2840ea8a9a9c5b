package model

import (
	"context"

	"github.com/steward-agent/steward/pkg/domain"
)

// Message represents a message in the model's conversation context.
type Message struct {
	// Role indicates the sender (user, assistant, tool, system).
	Role domain.Role
	// Content holds the message parts.
	Content []Content
}

// Content represents a single component of a message.
type Content struct {
	Type string // "text", "tool_call", "tool_result"

	// Text content (when Type == "text").
	Text string `json:"text,omitempty"`

	// Tool call (when Type == "tool_call").
	ToolCall *domain.ToolCall `json:"tool_call,omitempty"`

	// Tool result (when Type == "tool_result").
	ToolResult *domain.ToolResult `json:"tool_result,omitempty"`
}

// Text returns the concatenated text parts of the message.
func (m Message) Text() string {
	var out string
	for _, c := range m.Content {
		if c.Type == domain.ContentTypeText {
			out += c.Text
		}
	}
	return out
}

// ToolCalls returns the tool invocations requested by the message, if any.
func (m Message) ToolCalls() []*domain.ToolCall {
	var calls []*domain.ToolCall
	for _, c := range m.Content {
		if c.Type == domain.ContentTypeToolCall && c.ToolCall != nil {
			calls = append(calls, c.ToolCall)
		}
	}
	return calls
}

// Provider is the opaque reasoning capability: given a system prompt, a
// conversation history, and the tools available to this session, produce one
// response message. Implementations may fail transiently; callers treat any
// error as a failed response and keep session state intact.
type Provider interface {
	// Name returns the provider's identifier (e.g. "gemini").
	Name() string

	// Generate sends the conversation context to the LLM and returns the
	// complete response message. modelName selects the model, instructions
	// is the system prompt, and tools declares the functions the model may
	// call.
	Generate(ctx context.Context, modelName, instructions string, messages []Message, tools []domain.ToolSpec) (Message, error)
}
