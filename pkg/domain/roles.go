package domain

// Role defines the sender of a conversation turn.
type Role string

const (
	// RoleUser indicates a message from the user (or the polling trigger).
	RoleUser Role = "user"
	// RoleAssistant indicates a message produced by the model.
	RoleAssistant Role = "assistant"
	// RoleTool indicates a tool result.
	RoleTool Role = "tool"
	// RoleSystem indicates a system-level message.
	RoleSystem Role = "system"
	// RoleSummary indicates a rolling summary standing in for compacted turns.
	RoleSummary Role = "summary"
)

// Turn content types.
const (
	ContentTypeText       = "text"
	ContentTypeToolCall   = "tool_call"
	ContentTypeToolResult = "tool_result"
)
