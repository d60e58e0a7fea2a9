package provider

import (
	"testing"

	"promptbuddies/model"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{
			name:   "ollama provider with defaults",
			config: Config{Type: ProviderTypeOllama},
		},
		{
			name:   "ollama provider with custom config",
			config: Config{Type: ProviderTypeOllama, BaseURL: "http://localhost:11434", Model: "llama3.1"},
		},
		{
			name:        "ollama provider with relative URL",
			config:      Config{Type: ProviderTypeOllama, BaseURL: "localhost"},
			expectError: true,
		},
		{
			name:   "openai provider",
			config: Config{Type: ProviderTypeOpenAI, Model: "gpt-4o-mini", APIKey: "test-key"},
		},
		{
			name:   "together provider",
			config: Config{Type: ProviderTypeTogether, APIKey: "test-key", Temperature: 0.7},
		},
		{
			name:   "openrouter provider",
			config: Config{Type: ProviderTypeOpenRouter, APIKey: "test-key"},
		},
		{
			name:        "together provider without key",
			config:      Config{Type: ProviderTypeTogether},
			expectError: true,
		},
		{
			name:   "anthropic provider",
			config: Config{Type: ProviderTypeAnthropic, Model: "claude-sonnet-4-5-20250929", APIKey: "test-key"},
		},
		{
			name:        "anthropic provider without key",
			config:      Config{Type: ProviderTypeAnthropic},
			expectError: true,
		},
		{
			name:        "unknown provider type",
			config:      Config{Type: ProviderType("unknown"), BaseURL: "http://localhost", Model: "test"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.config)

			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				if provider != nil {
					t.Error("expected nil provider, got non-nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var _ model.Provider = provider
		})
	}
}

func TestFactoryOpenAICompatibleDefaults(t *testing.T) {
	tests := []struct {
		kind      ProviderType
		wantURL   string
		wantModel string
	}{
		{ProviderTypeTogether, "https://api.together.xyz/v1", "meta-llama/Llama-3.3-70B-Instruct-Turbo-Free"},
		{ProviderTypeOpenRouter, "https://openrouter.ai/api/v1", "meta-llama/llama-3.3-70b-instruct"},
		{ProviderTypeOpenAI, "https://api.openai.com/v1", "gpt-4o-mini"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			p, err := NewProvider(Config{Type: tt.kind, APIKey: "k"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			op, ok := p.(*OpenAIProvider)
			if !ok {
				t.Fatalf("expected *OpenAIProvider, got %T", p)
			}
			if op.baseURL != tt.wantURL {
				t.Errorf("baseURL = %q, want %q", op.baseURL, tt.wantURL)
			}
			if op.GetModel() != tt.wantModel {
				t.Errorf("model = %q, want %q", op.GetModel(), tt.wantModel)
			}
		})
	}
}

// TestFactoryReturnsOllamaProvider verifies that the factory returns an actual OllamaProvider
func TestFactoryReturnsOllamaProvider(t *testing.T) {
	provider, err := NewProvider(Config{Type: ProviderTypeOllama, Model: "llama3.1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	op, ok := provider.(*OllamaProvider)
	if !ok {
		t.Fatalf("expected *OllamaProvider, got %T", provider)
	}
	if op.baseURL != "http://localhost:11434" {
		t.Errorf("baseURL = %q", op.baseURL)
	}

	op.SetModel("llama3.2:latest")
	if op.GetModel() != "llama3.2:latest" {
		t.Errorf("GetModel() = %q after SetModel", op.GetModel())
	}
}

func TestMapProviderIDToType(t *testing.T) {
	tests := map[string]ProviderType{
		"ollama":     ProviderTypeOllama,
		"openai":     ProviderTypeOpenAI,
		"together":   ProviderTypeTogether,
		"togetherai": ProviderTypeTogether,
		"openrouter": ProviderTypeOpenRouter,
		"anthropic":  ProviderTypeAnthropic,
		"claude":     ProviderTypeAnthropic,
		"mystery":    ProviderType("mystery"),
	}
	for id, want := range tests {
		if got := MapProviderIDToType(id); got != want {
			t.Errorf("MapProviderIDToType(%q) = %q, want %q", id, got, want)
		}
	}
}
