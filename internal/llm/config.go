// Package llm provides centralized LLM configuration and client abstractions.
// Callers ask for a model tier and the configured provider decides which model serves it.
package llm

import "time"

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: classification, extraction, basic summarization
	TierLite ModelTier = "lite"
	// TierStandard is for moderate reasoning: scoring, structured output
	TierStandard ModelTier = "standard"
	// TierAdvanced is for complex reasoning: resume generation and improvement
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderOpenAI is the OpenAI chat completions API
	ProviderOpenAI Provider = "openai"
	// ProviderOpenRouter is OpenRouter, reached through the OpenAI-compatible API
	ProviderOpenRouter Provider = "openrouter"
	// ProviderAnthropic is the Anthropic/Claude provider (future)
	ProviderAnthropic Provider = "anthropic"
)

// OpenRouterBaseURL is the OpenAI-compatible endpoint of OpenRouter
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// DefaultTimeout bounds a single model call
const DefaultTimeout = 2 * time.Minute

// Config holds the model configuration for the application
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
	// BaseURL overrides the provider endpoint (OpenAI-compatible providers only)
	BaseURL string
	// FallbackModel is tried once when the tier's model is rejected by the provider
	FallbackModel string
	// Timeout bounds each call; zero means DefaultTimeout
	Timeout time.Duration
	// AppURL and AppTitle identify the application to OpenRouter
	AppURL   string
	AppTitle string
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// DefaultOpenAIConfig returns the default OpenAI configuration
func DefaultOpenAIConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		Models: map[ModelTier]string{
			TierLite:     "gpt-4o-mini",
			TierStandard: "gpt-4o-mini",
			TierAdvanced: "gpt-4o",
		},
	}
}

// DefaultOpenRouterConfig returns the OpenRouter configuration using free models,
// falling back to OpenRouter's automatic free-model routing.
func DefaultOpenRouterConfig() *Config {
	return &Config{
		Provider: ProviderOpenRouter,
		Models: map[ModelTier]string{
			TierLite:     "openai/gpt-oss-120b:free",
			TierStandard: "openai/gpt-oss-120b:free",
			TierAdvanced: "openai/gpt-oss-120b:free",
		},
		BaseURL:       OpenRouterBaseURL,
		FallbackModel: "openrouter/free",
		AppURL:        "http://localhost:3000",
		AppTitle:      "ATS Resume Optimizer",
	}
}

// DefaultConfigFor returns the default configuration of a provider.
// Unknown providers get the Gemini defaults.
func DefaultConfigFor(p Provider) *Config {
	switch p {
	case ProviderOpenAI:
		return DefaultOpenAIConfig()
	case ProviderOpenRouter:
		return DefaultOpenRouterConfig()
	default:
		return DefaultGeminiConfig()
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return "" // No model configured
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := *c
	newConfig.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return &newConfig
}

func (c *Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}
