// Package config provides configuration loading and validation for the server and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/resume-optimizer/internal/llm"
)

// Config is the application configuration. It is loaded from an optional JSON file,
// overlaid with environment variables and completed with defaults.
type Config struct {
	LLM       LLMConfig       `json:"llm"`
	Research  ResearchConfig  `json:"research"`
	Compiler  CompilerConfig  `json:"compiler"`
	Optimizer OptimizerConfig `json:"optimizer"`
	Storage   StorageConfig   `json:"storage"`
	Server    ServerConfig    `json:"server"`

	RedisURL    string `json:"redis_url,omitempty"`    // Research cache; empty disables caching
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
}

// LLMConfig selects the model provider
type LLMConfig struct {
	Provider       string            `json:"provider,omitempty" validate:"omitempty,oneof=gemini openai openrouter"`
	Models         map[string]string `json:"models,omitempty"` // tier (lite, standard, advanced) -> model
	APIKey         string            `json:"api_key,omitempty"`
	BaseURL        string            `json:"base_url,omitempty" validate:"omitempty,url"`
	FallbackModel  string            `json:"fallback_model,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty" validate:"gte=0"`
}

// ResearchConfig selects the web search backend
type ResearchConfig struct {
	Provider        string `json:"provider,omitempty" validate:"omitempty,oneof=google serpapi none"`
	GoogleAPIKey    string `json:"google_api_key,omitempty" validate:"required_if=Provider google"`
	GoogleCX        string `json:"google_cx,omitempty" validate:"required_if=Provider google"`
	SerpAPIKey      string `json:"serpapi_key,omitempty" validate:"required_if=Provider serpapi"`
	UseBrowser      bool   `json:"use_browser,omitempty"`
	CacheTTLMinutes int    `json:"cache_ttl_minutes,omitempty" validate:"gte=0"`
}

// CompilerConfig configures the LaTeX toolchain
type CompilerConfig struct {
	Mode           string `json:"mode,omitempty" validate:"omitempty,oneof=docker local"`
	Image          string `json:"image,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" validate:"gte=0"`
	MaxConcurrent  int    `json:"max_concurrent,omitempty" validate:"gte=0,lte=64"`
}

// OptimizerConfig tunes the improvement loop
type OptimizerConfig struct {
	Threshold        int    `json:"threshold,omitempty" validate:"gte=0,lte=100"`
	MaxAttempts      int    `json:"max_attempts,omitempty" validate:"gte=0,lte=10"`
	MinContentLength int    `json:"min_content_length,omitempty" validate:"gte=0"`
	DefaultTemplate  string `json:"default_template,omitempty" validate:"omitempty,oneof=professional modern"`
}

// StorageConfig selects where PDFs are kept
type StorageConfig struct {
	Backend        string `json:"backend,omitempty" validate:"omitempty,oneof=local s3"`
	LocalDir       string `json:"local_dir,omitempty"`
	Bucket         string `json:"bucket,omitempty" validate:"required_if=Backend s3"`
	Region         string `json:"region,omitempty"`
	Prefix         string `json:"prefix,omitempty"`
	PublicBaseURL  string `json:"public_base_url,omitempty" validate:"omitempty,url"`
	PresignMinutes int    `json:"presign_minutes,omitempty" validate:"gte=0"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Port        int     `json:"port,omitempty" validate:"gte=0,lte=65535"`
	MaxUploadMB int     `json:"max_upload_mb,omitempty" validate:"gte=0,lte=100"`
	CORSOrigin  string  `json:"cors_origin,omitempty"`
	RateLimit   float64 `json:"rate_limit,omitempty" validate:"gte=0"` // optimize requests per second per client
	RateBurst   int     `json:"rate_burst,omitempty" validate:"gte=0"`
}

// Defaults returns the built-in configuration
func Defaults() Config {
	return Config{
		LLM: LLMConfig{Provider: string(llm.ProviderGemini), TimeoutSeconds: int(llm.DefaultTimeout / time.Second)},
		Research: ResearchConfig{
			Provider:        "none",
			CacheTTLMinutes: 24 * 60,
		},
		Compiler: CompilerConfig{
			Mode:           "docker",
			Image:          "texlive/texlive:latest",
			TimeoutSeconds: 180,
			MaxConcurrent:  2,
		},
		Optimizer: OptimizerConfig{
			Threshold:        70,
			MaxAttempts:      3,
			MinContentLength: 100,
			DefaultTemplate:  "professional",
		},
		Storage: StorageConfig{
			Backend:        "local",
			LocalDir:       "data/resumes",
			PresignMinutes: 15,
		},
		Server: ServerConfig{
			Port:        8080,
			MaxUploadMB: 10,
			CORSOrigin:  "*",
			RateLimit:   0.2,
			RateBurst:   3,
		},
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Load reads the config file at path (optional), applies the environment and the
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	merged := cfg.MergeWithDefaults(Defaults())
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// Validate checks value ranges, enumerations and conditionally required fields.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	for tier := range c.LLM.Models {
		switch llm.ModelTier(tier) {
		case llm.TierLite, llm.TierStandard, llm.TierAdvanced:
		default:
			return fmt.Errorf("config error: unknown model tier %q", tier)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero fields filled from defaults.
// Bools are never merged: an unset bool cannot be told apart from false.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	mergeString(&result.LLM.Provider, defaults.LLM.Provider)
	mergeString(&result.LLM.APIKey, defaults.LLM.APIKey)
	mergeString(&result.LLM.BaseURL, defaults.LLM.BaseURL)
	mergeString(&result.LLM.FallbackModel, defaults.LLM.FallbackModel)
	mergeInt(&result.LLM.TimeoutSeconds, defaults.LLM.TimeoutSeconds)
	if len(result.LLM.Models) == 0 {
		result.LLM.Models = defaults.LLM.Models
	}

	mergeString(&result.Research.Provider, defaults.Research.Provider)
	mergeString(&result.Research.GoogleAPIKey, defaults.Research.GoogleAPIKey)
	mergeString(&result.Research.GoogleCX, defaults.Research.GoogleCX)
	mergeString(&result.Research.SerpAPIKey, defaults.Research.SerpAPIKey)
	mergeInt(&result.Research.CacheTTLMinutes, defaults.Research.CacheTTLMinutes)

	mergeString(&result.Compiler.Mode, defaults.Compiler.Mode)
	mergeString(&result.Compiler.Image, defaults.Compiler.Image)
	mergeInt(&result.Compiler.TimeoutSeconds, defaults.Compiler.TimeoutSeconds)
	mergeInt(&result.Compiler.MaxConcurrent, defaults.Compiler.MaxConcurrent)

	mergeInt(&result.Optimizer.Threshold, defaults.Optimizer.Threshold)
	mergeInt(&result.Optimizer.MaxAttempts, defaults.Optimizer.MaxAttempts)
	mergeInt(&result.Optimizer.MinContentLength, defaults.Optimizer.MinContentLength)
	mergeString(&result.Optimizer.DefaultTemplate, defaults.Optimizer.DefaultTemplate)

	mergeString(&result.Storage.Backend, defaults.Storage.Backend)
	mergeString(&result.Storage.LocalDir, defaults.Storage.LocalDir)
	mergeString(&result.Storage.Bucket, defaults.Storage.Bucket)
	mergeString(&result.Storage.Region, defaults.Storage.Region)
	mergeString(&result.Storage.Prefix, defaults.Storage.Prefix)
	mergeString(&result.Storage.PublicBaseURL, defaults.Storage.PublicBaseURL)
	mergeInt(&result.Storage.PresignMinutes, defaults.Storage.PresignMinutes)

	mergeInt(&result.Server.Port, defaults.Server.Port)
	mergeInt(&result.Server.MaxUploadMB, defaults.Server.MaxUploadMB)
	mergeString(&result.Server.CORSOrigin, defaults.Server.CORSOrigin)
	mergeInt(&result.Server.RateBurst, defaults.Server.RateBurst)
	if result.Server.RateLimit == 0 {
		result.Server.RateLimit = defaults.Server.RateLimit
	}

	mergeString(&result.RedisURL, defaults.RedisURL)
	mergeString(&result.DatabaseURL, defaults.DatabaseURL)

	return result
}

func mergeString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func mergeInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

// LookupFunc reads an environment variable; os.LookupEnv in production
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays non-empty environment variables onto c. The provider's API key
// is read from the provider-specific variable (GEMINI_API_KEY, OPENAI_API_KEY or
// OPENROUTER_API_KEY) unless LLM_API_KEY is set.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}
	set := func(dst *string, key string) {
		if v := get(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) error {
		v := get(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %v", key, err)
		}
		*dst = n
		return nil
	}
	setBool := func(dst *bool, key string) error {
		v := get(key)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %v", key, err)
		}
		*dst = b
		return nil
	}

	set(&c.LLM.Provider, "LLM_PROVIDER")
	set(&c.LLM.BaseURL, "LLM_BASE_URL")
	set(&c.LLM.FallbackModel, "LLM_FALLBACK_MODEL")
	set(&c.LLM.APIKey, providerKeyVar(c.LLM.Provider))
	set(&c.LLM.APIKey, "LLM_API_KEY")

	set(&c.Research.Provider, "RESEARCH_PROVIDER")
	set(&c.Research.GoogleAPIKey, "GOOGLE_SEARCH_API_KEY")
	set(&c.Research.GoogleCX, "GOOGLE_SEARCH_CX")
	set(&c.Research.SerpAPIKey, "SERPAPI_API_KEY")

	set(&c.Compiler.Mode, "LATEX_MODE")
	set(&c.Compiler.Image, "LATEX_DOCKER_IMAGE")

	set(&c.Storage.Backend, "STORAGE_BACKEND")
	set(&c.Storage.LocalDir, "STORAGE_DIR")
	set(&c.Storage.Bucket, "S3_BUCKET")
	set(&c.Storage.Region, "AWS_REGION")
	set(&c.Storage.PublicBaseURL, "STORAGE_PUBLIC_BASE_URL")

	set(&c.Server.CORSOrigin, "CORS_ORIGIN")
	set(&c.RedisURL, "REDIS_URL")
	set(&c.DatabaseURL, "DATABASE_URL")

	for _, err := range []error{
		setInt(&c.LLM.TimeoutSeconds, "LLM_TIMEOUT_SECONDS"),
		setInt(&c.Compiler.TimeoutSeconds, "LATEX_TIMEOUT_SECONDS"),
		setInt(&c.Compiler.MaxConcurrent, "LATEX_MAX_CONCURRENT"),
		setInt(&c.Optimizer.Threshold, "ATS_THRESHOLD"),
		setInt(&c.Optimizer.MaxAttempts, "MAX_ATTEMPTS"),
		setInt(&c.Server.Port, "PORT"),
		setBool(&c.Research.UseBrowser, "RESEARCH_USE_BROWSER"),
	} {
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
	}
	return nil
}

// providerKeyVar names the API key variable of a provider
func providerKeyVar(provider string) string {
	switch llm.Provider(provider) {
	case llm.ProviderOpenAI:
		return "OPENAI_API_KEY"
	case llm.ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	default:
		return "GEMINI_API_KEY"
	}
}

// ModelConfig builds the llm configuration: the provider defaults with the
// configured overrides applied.
func (c *Config) ModelConfig() *llm.Config {
	cfg := llm.DefaultConfigFor(llm.Provider(c.LLM.Provider))
	for tier, model := range c.LLM.Models {
		cfg = cfg.WithModel(llm.ModelTier(tier), model)
	}
	if c.LLM.BaseURL != "" {
		cfg.BaseURL = c.LLM.BaseURL
	}
	if c.LLM.FallbackModel != "" {
		cfg.FallbackModel = c.LLM.FallbackModel
	}
	if c.LLM.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(c.LLM.TimeoutSeconds) * time.Second
	}
	return cfg
}

// CompilerTimeout returns the compile timeout as a duration
func (c *Config) CompilerTimeout() time.Duration {
	return time.Duration(c.Compiler.TimeoutSeconds) * time.Second
}

// CacheTTL returns the research cache TTL as a duration
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Research.CacheTTLMinutes) * time.Minute
}

// MaxUploadBytes returns the upload limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}
