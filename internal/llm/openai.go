package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared/constant"
)

// jsonInstructions is appended to JSON prompts for models without a strict JSON mode
const jsonInstructions = `

CRITICAL INSTRUCTIONS:
- Return ONLY valid JSON
- No markdown formatting
- No code blocks
- No explanatory text before or after
- Just pure JSON starting with { and ending with }`

// OpenAIClient implements Client for the OpenAI chat completions API and for
// OpenAI-compatible gateways such as OpenRouter.
type OpenAIClient struct {
	client *openai.Client
	config *Config
}

// NewOpenAIClient creates a client for config.Provider (openai or openrouter)
func NewOpenAIClient(config *Config, apiKey string, extra ...option.RequestOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(config.timeout()),
		// Retries are handled by RetryingClient.
		option.WithMaxRetries(0),
	}
	baseURL := config.BaseURL
	if baseURL == "" && config.Provider == ProviderOpenRouter {
		baseURL = OpenRouterBaseURL
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if config.AppURL != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", config.AppURL))
	}
	if config.AppTitle != "" {
		opts = append(opts, option.WithHeader("X-Title", config.AppTitle))
	}
	opts = append(opts, extra...)

	client := openai.NewClient(opts...)
	return &OpenAIClient{client: &client, config: config}, nil
}

// GenerateContent generates text content using the specified model tier
func (c *OpenAIClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.generate(ctx, prompt, tier, false)
}

// GenerateJSON generates JSON content using the specified model tier
func (c *OpenAIClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	text, err := c.generate(ctx, prompt+jsonInstructions, tier, true)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

func (c *OpenAIClient) generate(ctx context.Context, prompt string, tier ModelTier, asJSON bool) (string, error) {
	model := c.config.GetModel(tier)
	if model == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}

	text, err := c.complete(ctx, model, prompt, asJSON)
	if err != nil && c.shouldFallback(model, err) {
		log.Printf("[llm] model %s failed (%v), trying fallback %s", model, err, c.config.FallbackModel)
		text, err = c.complete(ctx, c.config.FallbackModel, prompt, asJSON)
	}
	return text, err
}

// shouldFallback reports whether the fallback model should be tried after err.
// Only model-level rejections qualify; auth and transport errors do not.
func (c *OpenAIClient) shouldFallback(model string, err error) bool {
	if c.config.FallbackModel == "" || c.config.FallbackModel == model {
		return false
	}
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusNotFound, http.StatusBadRequest, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	return false
}

func (c *OpenAIClient) complete(ctx context.Context, model, prompt string, asJSON bool) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       model,
		Temperature: openai.Float(0.1), // Low temperature for consistent output
		MaxTokens:   openai.Int(8192),
	}
	// OpenRouter's free routes do not all honour response_format.
	if asJSON && c.config.Provider == ProviderOpenAI {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: constant.JSONObject("json_object"),
			},
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	content := completion.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("no content in response")
	}
	return content, nil
}

// GetModel returns the model name for a tier
func (c *OpenAIClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close is a no-op; the HTTP client holds no resources that need releasing
func (c *OpenAIClient) Close() error {
	return nil
}
