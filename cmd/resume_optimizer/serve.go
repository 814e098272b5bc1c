package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-optimizer/internal/config"
	"github.com/jonathan/resume-optimizer/internal/server"
	"github.com/jonathan/resume-optimizer/internal/server/ratelimit"
)

var (
	servePort      int
	serveRequireDB bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for optimizing resumes and browsing a user's optimized resumes.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config and PORT)")
	serveCmd.Flags().BoolVar(&serveRequireDB, "require-db", false, "Fail to start without DATABASE_URL")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, serveRequireDB)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := server.New(serverConfig(cfg, jwtCfg), serverDeps(a))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start(ctx)
}

// serverConfig maps the application config onto the server's
func serverConfig(cfg *config.Config, jwtCfg *config.JWTConfig) server.Config {
	port := cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}
	return server.Config{
		Port:           port,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		CORSOrigin:     cfg.Server.CORSOrigin,
		JWT:            jwtCfg,
		RateLimit:      ratelimit.LoadConfig(cfg.Server.RateLimit, cfg.Server.RateBurst),
	}
}

// serverDeps leaves the history routes unset without a database
func serverDeps(a *app) server.Deps {
	deps := server.Deps{Optimizer: a.optimizer, Store: a.store}
	if a.database != nil {
		deps.Resumes = a.database
	}
	return deps
}
