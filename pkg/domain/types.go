package domain

import "time"

// Turn is one exchange in a session's conversation: who said it, what was
// said, and when. Turns are append-only for the life of a session.
type Turn struct {
	Role        Role      `json:"role"`
	ContentType string    `json:"content_type"` // "text", "tool_call", "tool_result"
	Content     string    `json:"content"`      // Text, or JSON-encoded tool call/result
	Timestamp   time.Time `json:"timestamp"`
}

// ConversationState is the serializable memory of one agent instance: the
// live window of raw turns plus the rolling summary of everything older.
type ConversationState struct {
	Summary string `json:"summary,omitempty"`
	Turns   []Turn `json:"turns"`
}

// SessionRecord is the durable form of a session, one record per SessionID.
// State is an opaque serialized ConversationState blob.
type SessionRecord struct {
	ID         string    `json:"id"`
	State      []byte    `json:"state"`
	CreatedAt  time.Time `json:"created_at"`
	LastAccess time.Time `json:"last_access"`
}

// Note is a persistent, searchable text entry owned by one session. Notes
// are the tool-use context an agent instance keeps across turns.
type Note struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolResult represents the outcome of a tool call execution.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// ToolParam describes one string parameter of a tool.
type ToolParam struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolSpec is the model-facing declaration of a tool.
type ToolSpec struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []ToolParam `json:"params,omitempty"`
}
