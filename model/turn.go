package model

import "fmt"

// Author tags who produced a turn. The generation backend only knows the
// system/user/assistant/tool schema, so the mapping to wire roles happens
// in ToMessages and nowhere else.
type Author int

const (
	// System is the persona instruction that leads every request.
	System Author = iota
	// Ours is an utterance we sent to the target (or a tool request we made).
	Ours
	// Theirs is text rendered by the target assistant.
	Theirs
	// ToolResult is the payload returned by a local tool.
	ToolResult
)

func (a Author) String() string {
	switch a {
	case System:
		return "system"
	case Ours:
		return "ours"
	case Theirs:
		return "theirs"
	case ToolResult:
		return "tool_result"
	default:
		return fmt.Sprintf("author(%d)", int(a))
	}
}

// WireRole maps the author onto the backend role schema. Our own utterances
// are the model's output, so they travel as "assistant"; the target's replies
// are the model's input and travel as "user".
func (a Author) WireRole() string {
	switch a {
	case System:
		return RoleSystem
	case Ours:
		return RoleAssistant
	case ToolResult:
		return RoleTool
	default:
		return RoleUser
	}
}

// Turn is one immutable entry of a conversation.
type Turn struct {
	Author     Author
	Content    string
	ToolCallID string
	ToolCalls  []ToolCall
}

// ToMessages converts turns into backend messages.
func ToMessages(turns []Turn) []Message {
	out := make([]Message, len(turns))
	for i, t := range turns {
		out[i] = Message{
			Role:       t.Author.WireRole(),
			Content:    t.Content,
			ToolCallID: t.ToolCallID,
			ToolCalls:  t.ToolCalls,
		}
	}
	return out
}

// WithoutSystem returns the turns that are not System turns, preserving order.
func WithoutSystem(turns []Turn) []Turn {
	out := make([]Turn, 0, len(turns))
	for _, t := range turns {
		if t.Author != System {
			out = append(out, t)
		}
	}
	return out
}
