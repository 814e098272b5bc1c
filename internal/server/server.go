// Package server provides the HTTP API for the resume optimizer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"

	"github.com/jonathan/resume-optimizer/internal/config"
	"github.com/jonathan/resume-optimizer/internal/db"
	"github.com/jonathan/resume-optimizer/internal/pipeline"
	"github.com/jonathan/resume-optimizer/internal/server/middleware"
	"github.com/jonathan/resume-optimizer/internal/server/ratelimit"
	"github.com/jonathan/resume-optimizer/internal/storage"
)

const (
	// DefaultMaxUploadBytes bounds the uploaded PDF
	DefaultMaxUploadBytes = 10 << 20
	// writeTimeout covers a streamed run with every retry
	writeTimeout    = 15 * time.Minute
	shutdownTimeout = 30 * time.Second
)

// Optimizer runs one optimization request; *pipeline.Optimizer implements it
type Optimizer interface {
	Run(ctx context.Context, req *pipeline.Request) *pipeline.Result
}

// ResumeRepository reads a user's optimized resumes; *db.DB implements it
type ResumeRepository interface {
	GetResume(ctx context.Context, id, userID uuid.UUID) (*db.OptimizedResume, error)
	ListResumes(ctx context.Context, userID uuid.UUID, limit int) ([]db.ResumeSummary, error)
	DeleteResume(ctx context.Context, id, userID uuid.UUID) (bool, error)
}

// Config holds server configuration
type Config struct {
	Port           int
	MaxUploadBytes int64
	CORSOrigin     string
	JWT            *config.JWTConfig
	// RateLimit nil disables rate limiting
	RateLimit *ratelimit.Config
}

// Deps are the services behind the routes. Resumes and Store may be nil, which
// disables the history and download routes.
type Deps struct {
	Optimizer Optimizer
	Resumes   ResumeRepository
	Store     storage.Store
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	optimizer   Optimizer
	resumes     ResumeRepository
	store       storage.Store
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	maxUpload   int64
	corsOrigin  string
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Optimizer == nil {
		return nil, fmt.Errorf("server requires an optimizer")
	}
	if cfg.JWT == nil {
		return nil, fmt.Errorf("server requires a JWT configuration")
	}

	s := &Server{
		optimizer:  deps.Optimizer,
		resumes:    deps.Resumes,
		store:      deps.Store,
		jwtService: NewJWTService(cfg.JWT),
		maxUpload:  cfg.MaxUploadBytes,
		corsOrigin: cfg.CORSOrigin,
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUploadBytes
	}
	if s.corsOrigin == "" {
		s.corsOrigin = "*"
	}
	if cfg.RateLimit != nil {
		s.rateLimiter = ratelimit.NewLimiter(cfg.RateLimit)
	}

	auth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	protected := func(h http.HandlerFunc) http.Handler { return auth(h) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /templates", s.handleTemplates)

	mux.Handle("POST /resumes/optimize", protected(s.handleOptimize))
	mux.Handle("POST /resumes/optimize/stream", protected(s.handleOptimizeStream))
	mux.Handle("GET /resumes", protected(s.handleListResumes))
	mux.Handle("GET /resumes/{id}", protected(s.handleGetResume))
	mux.Handle("DELETE /resumes/{id}", protected(s.handleDeleteResume))
	mux.Handle("GET /resumes/{id}/pdf", protected(s.handleResumePDF))

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the server's root handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			s.stopLimiter()
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("[server] shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	defer s.stopLimiter()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Println("[server] stopped")
	return nil
}

func (s *Server) stopLimiter() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if s.corsOrigin != "*" {
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects clients over their limit with 429
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.rateLimiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(extractClientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging logs each request once it completes. httpsnoop keeps the
// writer's Flusher visible to the SSE handler.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		log.Printf("[server] %s %s %d %dB in %v", r.Method, r.URL.Path, m.Code, m.Written, m.Duration.Round(time.Millisecond))
	})
}

// extractClientID identifies the client by remote IP
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":   "rate_limit_exceeded",
		"message": "Rate limit exceeded. Please try again later.",
		"limit":   info.Limit,
	}
	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Round(time.Second).Seconds())
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	log.Printf("[rate-limit] %s exceeded limit %d on %s %s", extractClientID(r), info.Limit, r.Method, r.URL.Path)
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[server] error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps err to its status and a client-safe message
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[server] request failed: %v", err)
	}
	s.errorResponse(w, status, errorMessage(err))
}
