// Package provider implements model.Provider for the generation backends
// the orchestrator can talk to.
//
// Every persona generator and the strategy judge get their own provider
// instance, so model and temperature are per instance and nothing is shared
// between them.
//
// # Type Conversions
//
// The provider layer handles all conversions between the provider-agnostic
// model types and SDK types (see conversions.go and anthropic.go). Tool
// calls always leave this package with an ID; backends that do not assign
// one get a generated uuid.
//
// # Errors
//
// A request rejected because the conversation is too large is returned
// wrapped around model.ErrContextOverflow, so callers can shrink the history
// and retry. Every other failure is returned wrapped as is.
//
// # Usage
//
//	p, err := provider.NewProvider(provider.Config{
//	    Type:        provider.ProviderTypeTogether,
//	    Model:       "meta-llama/Llama-3.3-70B-Instruct-Turbo-Free",
//	    APIKey:      os.Getenv("PB_LLM_API_KEY"),
//	    Temperature: 0.7,
//	})
//	if err != nil {
//	    // handle error
//	}
//	err = p.Chat(ctx, messages, callback)
package provider

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeOllama     ProviderType = "ollama"
	ProviderTypeOpenAI     ProviderType = "openai"
	ProviderTypeTogether   ProviderType = "together"
	ProviderTypeOpenRouter ProviderType = "openrouter"
	ProviderTypeAnthropic  ProviderType = "anthropic"
)

// Config holds provider-specific configuration.
type Config struct {
	Type        ProviderType
	BaseURL     string
	Model       string
	APIKey      string  // unused for Ollama
	Temperature float64 // sampling temperature sent with every request
	MaxTokens   int64   // 0 leaves the backend default
}
