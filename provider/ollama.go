package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"promptbuddies/mcp"
	"promptbuddies/model"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
)

// OllamaProvider implements the Provider interface against a local Ollama
// server through the official api client.
type OllamaProvider struct {
	client      *api.Client
	model       string
	baseURL     string
	temperature float64
}

// NewOllamaProvider creates a new Ollama provider instance.
//
// An empty BaseURL defaults to "http://localhost:11434" and an empty Model
// to "llama3.1:latest". Returns an error if the base URL is invalid.
func NewOllamaProvider(cfg Config) (*OllamaProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL(ProviderTypeOllama)
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = "llama3.1:latest"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: invalid URL %q: %w", baseURL, err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("failed to create Ollama client: invalid URL %q", baseURL)
	}

	return &OllamaProvider{
		client:      api.NewClient(parsedURL, http.DefaultClient),
		model:       modelName,
		baseURL:     baseURL,
		temperature: cfg.Temperature,
	}, nil
}

// Chat implements Provider.Chat by delegating to ChatWithTools with no tools.
func (p *OllamaProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	return p.ChatWithTools(ctx, messages, nil, callback)
}

// ChatWithTools implements Provider.ChatWithTools.
//
// Ollama streams tool calls inside regular response chunks; they are
// converted (and given IDs) as they arrive.
func (p *OllamaProvider) ChatWithTools(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, callback model.StreamCallback) error {
	stream := true
	req := &api.ChatRequest{
		Model:    p.model,
		Messages: ConvertToOllamaMessages(messages),
		Stream:   &stream,
		Options:  map[string]any{"temperature": p.temperature},
	}
	if len(tools) > 0 {
		req.Tools = mcp.ConvertMCPToolsToOllama(tools)
	}

	respFunc := func(resp api.ChatResponse) error {
		if callback == nil {
			return nil
		}
		return callback(resp.Message.Content, ConvertToProviderToolCalls(resp.Message.ToolCalls))
	}

	if err := p.client.Chat(ctx, req, respFunc); err != nil {
		return classifyError("Ollama", err)
	}
	return nil
}

// GetModel implements Provider.GetModel.
func (p *OllamaProvider) GetModel() string {
	return p.model
}

// SetModel implements Provider.SetModel.
func (p *OllamaProvider) SetModel(model string) {
	p.model = model
}

// Ping checks that the server answers a model listing within five seconds.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := p.client.List(ctx); err != nil {
		return fmt.Errorf("Ollama ping failed: %w", err)
	}
	return nil
}
