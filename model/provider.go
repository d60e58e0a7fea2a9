package model

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Provider abstracts LLM provider implementations (Ollama, OpenAI-compatible,
// Anthropic) using the provider-agnostic types of this package.
//
// The interface lives here rather than in the provider package so that
// consumers (generator, strategy) depend on model only.
type Provider interface {
	// Chat sends messages and streams responses back via callback.
	Chat(ctx context.Context, messages []Message, callback StreamCallback) error

	// ChatWithTools sends messages with available tools and streams responses.
	// Tool calls are delivered through the callback with an empty chunk.
	ChatWithTools(ctx context.Context, messages []Message, tools []mcptypes.Tool, callback StreamCallback) error

	// GetModel returns the model name used for API calls.
	GetModel() string

	// SetModel changes the active model.
	SetModel(model string)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}

// StreamCallback is called for each chunk of streamed response.
type StreamCallback func(chunk string, toolCalls []ToolCall) error
