package provider

import (
	"fmt"

	"promptbuddies/model"
)

// DefaultBaseURL returns the API endpoint used when Config.BaseURL is empty.
func DefaultBaseURL(t ProviderType) string {
	switch t {
	case ProviderTypeOllama:
		return "http://localhost:11434"
	case ProviderTypeOpenAI:
		return "https://api.openai.com/v1"
	case ProviderTypeTogether:
		return "https://api.together.xyz/v1"
	case ProviderTypeOpenRouter:
		return "https://openrouter.ai/api/v1"
	case ProviderTypeAnthropic:
		return "https://api.anthropic.com"
	default:
		return ""
	}
}

// NewProvider creates a provider based on configuration.
//
// Together and OpenRouter speak the OpenAI chat completions protocol and are
// served by OpenAIProvider with a different base URL.
//
// Returns an error if the provider type is unknown or the provider-specific
// constructor fails (e.g., missing API key, invalid URL).
func NewProvider(cfg Config) (model.Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL(cfg.Type)
	}

	switch cfg.Type {
	case ProviderTypeOllama:
		return NewOllamaProvider(cfg)
	case ProviderTypeOpenAI, ProviderTypeTogether, ProviderTypeOpenRouter:
		return NewOpenAIProvider(cfg)
	case ProviderTypeAnthropic:
		return NewAnthropicProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// MapProviderIDToType converts a provider ID from the config file to a
// ProviderType. IDs are matched case-sensitively; unknown IDs are passed
// through and rejected by NewProvider.
func MapProviderIDToType(id string) ProviderType {
	switch id {
	case "ollama":
		return ProviderTypeOllama
	case "openai":
		return ProviderTypeOpenAI
	case "together", "togetherai":
		return ProviderTypeTogether
	case "openrouter":
		return ProviderTypeOpenRouter
	case "anthropic", "claude":
		return ProviderTypeAnthropic
	default:
		return ProviderType(id)
	}
}
