package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/resume-optimizer/internal/compilation"
	"github.com/jonathan/resume-optimizer/internal/config"
	"github.com/jonathan/resume-optimizer/internal/db"
	"github.com/jonathan/resume-optimizer/internal/fetch"
	"github.com/jonathan/resume-optimizer/internal/generation"
	"github.com/jonathan/resume-optimizer/internal/ingestion"
	"github.com/jonathan/resume-optimizer/internal/llm"
	"github.com/jonathan/resume-optimizer/internal/pipeline"
	"github.com/jonathan/resume-optimizer/internal/rendering"
	"github.com/jonathan/resume-optimizer/internal/research"
	"github.com/jonathan/resume-optimizer/internal/storage"
)

// browserTimeout bounds one headless render of a company site
const browserTimeout = 30 * time.Second

// app holds the services built from the configuration
type app struct {
	cfg       *config.Config
	optimizer *pipeline.Optimizer
	store     storage.Store
	database  *db.DB
	closers   []func()
}

// Close releases the LLM client, cache and database connections
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// loadConfig reads the --config file, the environment and the defaults
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newApp builds the optimizer and its collaborators. The database is optional
// unless requireDB is set.
func newApp(ctx context.Context, cfg *config.Config, requireDB bool) (*app, error) {
	a := &app{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("an API key for the %s provider is required (set LLM_API_KEY or the provider's key variable)", cfg.LLM.Provider)
	}
	base, err := llm.NewClient(ctx, cfg.ModelConfig(), cfg.LLM.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.closers = append(a.closers, func() { _ = base.Close() })
	client := llm.NewRetryingClient(base)

	researcher, err := a.newResearcher(ctx, client)
	if err != nil {
		return nil, err
	}

	compiler, err := newCompiler(cfg)
	if err != nil {
		return nil, err
	}

	a.store, err = newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var repo pipeline.ResumeRepository
	switch {
	case cfg.DatabaseURL != "":
		a.database, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, a.database.Close)
		if err := a.database.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to prepare database schema: %w", err)
		}
		repo = a.database
	case requireDB:
		return nil, fmt.Errorf("DATABASE_URL is required")
	default:
		log.Println("[config] DATABASE_URL not set; results are stored without history")
	}

	a.optimizer, err = pipeline.New(pipeline.Deps{
		Extractor:  ingestion.PDFExtractor{},
		Researcher: researcher,
		Generator:  generation.NewLLMGenerator(client),
		Compiler:   compiler,
		Persister:  pipeline.NewStorePersister(a.store, repo),
	}, pipeline.Options{
		Threshold:        cfg.Optimizer.Threshold,
		MaxAttempts:      cfg.Optimizer.MaxAttempts,
		MinContentLength: cfg.Optimizer.MinContentLength,
		DefaultTemplate:  rendering.TemplateID(cfg.Optimizer.DefaultTemplate),
	})
	if err != nil {
		return nil, err
	}

	ok = true
	return a, nil
}

// newResearcher picks the search backend and wraps the researcher in the Redis
// cache when one is configured
func (a *app) newResearcher(ctx context.Context, client llm.Client) (research.Researcher, error) {
	cfg := a.cfg.Research

	var searcher research.Searcher
	switch cfg.Provider {
	case "google":
		g, err := research.NewGoogleSearcher(ctx, cfg.GoogleAPIKey, cfg.GoogleCX)
		if err != nil {
			return nil, fmt.Errorf("failed to create Google searcher: %w", err)
		}
		searcher = g
	case "serpapi":
		s, err := research.NewSerpAPISearcher(cfg.SerpAPIKey, "")
		if err != nil {
			return nil, fmt.Errorf("failed to create SerpAPI searcher: %w", err)
		}
		searcher = s
	}

	var opts []research.Option
	if cfg.UseBrowser {
		opts = append(opts, research.WithBrowser(fetch.HeadlessChrome(browserTimeout)))
	}
	var researcher research.Researcher = research.NewWebResearcher(searcher, client, opts...)

	if a.cfg.RedisURL == "" {
		return researcher, nil
	}
	cache, err := research.NewRedisCache(a.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create research cache: %w", err)
	}
	a.closers = append(a.closers, func() { _ = cache.Close() })
	if err := cache.Ping(ctx); err != nil {
		log.Printf("[research] redis unreachable, lookups will miss until it recovers: %v", err)
	}
	return research.NewCachedResearcher(researcher, cache, a.cfg.CacheTTL()), nil
}

func newCompiler(cfg *config.Config) (*compilation.Compiler, error) {
	tc, err := compilation.NewToolchain(cfg.Compiler.Mode, cfg.Compiler.Image)
	if err != nil {
		return nil, err
	}
	if !compilation.Available(tc) {
		log.Printf("[compile] %s toolchain not found on PATH; compilation will fail", tc.Name())
	}
	return compilation.New(tc, compilation.Options{
		Timeout:       cfg.CompilerTimeout(),
		MaxConcurrent: int64(cfg.Compiler.MaxConcurrent),
	}), nil
}

func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	sc := cfg.Storage
	switch sc.Backend {
	case "s3":
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:        sc.Bucket,
			Region:        sc.Region,
			Prefix:        sc.Prefix,
			PublicBaseURL: sc.PublicBaseURL,
			PresignExpiry: time.Duration(sc.PresignMinutes) * time.Minute,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 store: %w", err)
		}
		return store, nil
	default:
		store, err := storage.NewLocalStore(sc.LocalDir, sc.PublicBaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create local store: %w", err)
		}
		return store, nil
	}
}
