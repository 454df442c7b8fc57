package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hetpatel-11/Adobe-Premiere-Pro-MCP-sub000/internal/auth"
	"github.com/hetpatel-11/Adobe-Premiere-Pro-MCP-sub000/internal/bridge"
	"github.com/hetpatel-11/Adobe-Premiere-Pro-MCP-sub000/internal/events"
	"github.com/hetpatel-11/Adobe-Premiere-Pro-MCP-sub000/internal/journal"
	"github.com/hetpatel-11/Adobe-Premiere-Pro-MCP-sub000/internal/script"
)

// ScriptRunner dispatches a script and awaits the correlated response.
type ScriptRunner interface {
	RunWithID(ctx context.Context, id, script string) (bridge.RunResult, error)
	Dir() string
	Timeout() time.Duration
}

// CommandLog records command lifecycle for the audit endpoints.
type CommandLog interface {
	Begin(ctx context.Context, id, operation, script string) error
	Complete(ctx context.Context, id string, status journal.Status, lastError *string, elapsed time.Duration) error
	Get(ctx context.Context, id string) (*journal.Entry, error)
	Recent(ctx context.Context, limit int) ([]*journal.Entry, error)
	InFlight(ctx context.Context) (int, error)
}

// OperationSource exposes the named script operations.
type OperationSource interface {
	Get(name string) (script.Operation, bool)
	All() []script.Operation
}

// Config holds API server configuration.
type Config struct {
	Listen string
	// APIKey is the legacy single bearer token (admin/full access).
	APIKey string
	// Tokens is an optional list of scoped bearer tokens.
	Tokens []auth.TokenConfig
}

// Server is the HTTP surface over the dispatcher and journal.
type Server struct {
	config    Config
	runner    ScriptRunner
	commands  CommandLog
	ops       OperationSource
	hub       *events.Hub
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates an API server instance.
func New(config Config, runner ScriptRunner, commands CommandLog, ops OperationSource, hub *events.Hub, logger *slog.Logger) *Server {
	if hub == nil {
		hub = events.NewHub(256)
	}
	return &Server{
		config:    config,
		runner:    runner,
		commands:  commands,
		ops:       ops,
		hub:       hub,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Hub returns the event hub commands are published to.
func (s *Server) Hub() *events.Hub {
	return s.hub
}

// Start starts the HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:        s.config.Listen,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// Execute holds the connection open for up to the bridge timeout.
		WriteTimeout: s.runner.Timeout() + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Unauthenticated liveness endpoint.
	r.Get("/healthz", s.handleHealthz)

	// Protected API.
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.With(s.requireScopes("script:rw", "*")).Post("/execute", s.handleExecute)
		r.With(s.requireScopes("script:rw", "*")).Post("/op/{name}", s.handleRunOperation)
		r.With(s.requireScopes("script:ro", "script:rw", "*")).Get("/op", s.handleListOperations)
		r.With(s.requireScopes("journal:ro", "*")).Get("/commands", s.handleListCommands)
		r.With(s.requireScopes("journal:ro", "*")).Get("/commands/{commandID}", s.handleGetCommand)
		r.With(s.requireScopes("events:ro", "*")).Get("/events", s.handleEvents)
	})

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
