package model

// Message is the wire form of a turn as handed to a generation backend.
// Roles follow the backend schema: system, user, assistant, tool.
type Message struct {
	Role       string
	Content    string
	ToolCallID string     // set on tool messages
	ToolCalls  []ToolCall // set on assistant messages that requested tools
}

// ToolCall is a provider-agnostic tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Wire roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)
