package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"promptbuddies/mcp"
	"promptbuddies/model"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// defaultAnthropicMaxTokens is sent when Config.MaxTokens is zero; the
// Messages API rejects requests without a limit.
const defaultAnthropicMaxTokens = 1024

// conversationOpener stands in for the missing first user message when a
// conversation starts with our own utterance.
const conversationOpener = "[start]"

// AnthropicProvider implements the Provider interface using Anthropic's
// official Go SDK.
type AnthropicProvider struct {
	client      *anthropic.Client
	model       anthropic.Model
	temperature float64
	maxTokens   int64
}

// NewAnthropicProvider creates a new Anthropic provider instance.
//
// Returns an error if the API key is missing.
func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL(ProviderTypeAnthropic)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	anthropicModel := anthropic.ModelClaudeSonnet4_5_20250929
	if cfg.Model != "" {
		anthropicModel = anthropic.Model(cfg.Model)
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	client := anthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(cfg.APIKey),
	)

	return &AnthropicProvider{
		client:      &client,
		model:       anthropicModel,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Chat implements Provider.Chat by delegating to ChatWithTools with no tools.
func (p *AnthropicProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	return p.ChatWithTools(ctx, messages, nil, callback)
}

// ChatWithTools implements Provider.ChatWithTools with streaming support.
func (p *AnthropicProvider) ChatWithTools(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, callback model.StreamCallback) error {
	anthropicMessages, systemPrompt := convertToAnthropicMessages(messages)

	params := anthropic.MessageNewParams{
		Model:       p.model,
		Messages:    anthropicMessages,
		MaxTokens:   p.maxTokens,
		Temperature: anthropic.Float(p.temperature),
	}
	if len(systemPrompt) > 0 {
		params.System = systemPrompt
	}
	if len(tools) > 0 {
		params.Tools = mcp.ConvertMCPToolsToAnthropicFormat(tools)
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	msg := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := msg.Accumulate(event); err != nil {
			return fmt.Errorf("error accumulating message: %w", err)
		}

		if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if text, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok && callback != nil {
				if err := callback(text.Text, nil); err != nil {
					return err
				}
			}
		}
	}

	if err := stream.Err(); err != nil {
		return classifyError("Anthropic", err)
	}

	if callback != nil {
		if toolCalls := extractToolCalls(msg.Content); len(toolCalls) > 0 {
			return callback("", toolCalls)
		}
	}
	return nil
}

// GetModel implements Provider.GetModel.
func (p *AnthropicProvider) GetModel() string {
	return string(p.model)
}

// SetModel implements Provider.SetModel.
func (p *AnthropicProvider) SetModel(model string) {
	p.model = anthropic.Model(model)
}

// Ping implements Provider.Ping with a minimal request, since the API has
// no health endpoint.
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return fmt.Errorf("Anthropic ping failed: %w", err)
	}
	return nil
}

// convertToAnthropicMessages converts messages to Anthropic format and
// returns the system prompt separately.
//
// The Messages API wants strictly alternating roles starting with user, so
// consecutive messages with the same role are merged into one message and a
// placeholder user message is inserted when the conversation opens with an
// assistant turn. Tool results travel as tool_result blocks in a user
// message.
func convertToAnthropicMessages(messages []model.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var systemBlocks []anthropic.TextBlockParam
	var out []anthropic.MessageParam

	add := func(role anthropic.MessageParamRole, blocks ...anthropic.ContentBlockParamUnion) {
		if len(blocks) == 0 {
			return
		}
		if len(out) == 0 && role == anthropic.MessageParamRoleAssistant {
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(conversationOpener)))
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			return
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: msg.Content})

		case model.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				args := call.Arguments
				if args == nil {
					args = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, args, call.Name))
			}
			add(anthropic.MessageParamRoleAssistant, blocks...)

		case model.RoleTool:
			if msg.ToolCallID == "" {
				add(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(msg.Content))
				continue
			}
			add(anthropic.MessageParamRoleUser, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false))

		default:
			add(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(msg.Content))
		}
	}

	return out, systemBlocks
}

// extractToolCalls extracts tool calls from Anthropic message content.
func extractToolCalls(content []anthropic.ContentBlockUnion) []model.ToolCall {
	var toolCalls []model.ToolCall

	for _, block := range content {
		toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok {
			continue
		}
		args := make(map[string]any)
		if len(toolUse.Input) > 0 {
			if err := json.Unmarshal(toolUse.Input, &args); err != nil {
				continue
			}
		}
		id := toolUse.ID
		if id == "" {
			id = uuid.NewString()
		}
		toolCalls = append(toolCalls, model.ToolCall{
			ID:        id,
			Name:      toolUse.Name,
			Arguments: args,
		})
	}

	return toolCalls
}
