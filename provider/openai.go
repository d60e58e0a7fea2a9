package provider

import (
	"context"
	"fmt"

	"promptbuddies/mcp"
	"promptbuddies/model"

	"github.com/google/uuid"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIProvider implements the Provider interface using OpenAI's official
// Go SDK. It also serves OpenAI-compatible endpoints (Together, OpenRouter).
type OpenAIProvider struct {
	client      openai.Client
	kind        ProviderType
	model       string
	baseURL     string
	temperature float64
	maxTokens   int64
}

// NewOpenAIProvider creates a new OpenAI-compatible provider instance.
//
// Returns an error if the API key is missing.
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	kind := cfg.Type
	if kind == "" {
		kind = ProviderTypeOpenAI
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL(kind)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", kind)
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultModel(kind)
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(cfg.APIKey),
	)

	return &OpenAIProvider{
		client:      client,
		kind:        kind,
		model:       modelName,
		baseURL:     baseURL,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func defaultModel(kind ProviderType) string {
	switch kind {
	case ProviderTypeTogether:
		return "meta-llama/Llama-3.3-70B-Instruct-Turbo-Free"
	case ProviderTypeOpenRouter:
		return "meta-llama/llama-3.3-70b-instruct"
	default:
		return "gpt-4o-mini"
	}
}

// Chat implements Provider.Chat by delegating to ChatWithTools with no tools.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	return p.ChatWithTools(ctx, messages, nil, callback)
}

// ChatWithTools implements Provider.ChatWithTools with streaming support.
//
// Tool calls are taken from the accumulated completion once the stream
// ends and delivered in a single callback. Models that print a tool call
// as text instead of using the API field are caught by ParseLeakedToolCalls.
func (p *OpenAIProvider) ChatWithTools(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, callback model.StreamCallback) error {
	params := openai.ChatCompletionNewParams{
		Messages:    ConvertToOpenAIMessages(messages),
		Model:       openai.ChatModel(p.model),
		Temperature: openai.Float(p.temperature),
	}
	if p.maxTokens > 0 {
		params.MaxTokens = openai.Int(p.maxTokens)
	}
	if len(tools) > 0 {
		params.Tools = mcp.ConvertMCPToolsToOpenAIFormat(tools)
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()
	acc := openai.ChatCompletionAccumulator{}

	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" && callback != nil {
			if err := callback(chunk.Choices[0].Delta.Content, nil); err != nil {
				return err
			}
		}
	}

	if err := stream.Err(); err != nil {
		return classifyError(string(p.kind), err)
	}
	if callback == nil || len(acc.Choices) == 0 {
		return nil
	}

	message := acc.Choices[0].Message
	var toolCalls []model.ToolCall
	for _, tc := range message.ToolCalls {
		id := tc.ID
		if id == "" {
			id = uuid.NewString()
		}
		toolCalls = append(toolCalls, model.ToolCall{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: ParseToolArguments(tc.Function.Arguments),
		})
	}
	if len(toolCalls) == 0 && len(tools) > 0 {
		toolCalls = ParseLeakedToolCalls(message.Content, tools)
	}
	if len(toolCalls) > 0 {
		return callback("", toolCalls)
	}
	return nil
}

// GetModel implements Provider.GetModel.
func (p *OpenAIProvider) GetModel() string {
	return p.model
}

// SetModel implements Provider.SetModel.
func (p *OpenAIProvider) SetModel(model string) {
	p.model = model
}

// Ping implements Provider.Ping by attempting to list models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return fmt.Errorf("%s ping failed: %w", p.kind, err)
	}
	return nil
}
