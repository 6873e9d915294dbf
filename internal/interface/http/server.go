// Package http implements the REST API of PhishGuard Hub: the simulation
// catalog, attempt submission, analytics, health checks and metrics.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/phishguard/phishguard-hub/internal/application/command"
	"github.com/phishguard/phishguard-hub/internal/application/query"
	"github.com/phishguard/phishguard-hub/internal/infrastructure/observability"
	"github.com/phishguard/phishguard-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Addr - address to listen on (default: ":8080").
	Addr string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// RequestTimeout bounds the context of every API request (0 = none).
	RequestTimeout time.Duration

	// MaxBodyBytes limits request bodies.
	MaxBodyBytes int64

	// AllowedOrigins - allowed origins for CORS. Empty disables CORS headers.
	AllowedOrigins []string

	// RateLimitPerSec and RateLimitBurst configure the per-IP token bucket
	// (0 = disabled).
	RateLimitPerSec float64
	RateLimitBurst  int

	// MetricsPath serves Prometheus metrics when Metrics is set.
	MetricsPath string

	// Auth configures request identity.
	Auth AuthConfig

	// Version is reported by the health endpoints.
	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		RequestTimeout:  10 * time.Second,
		MaxBodyBytes:    1 << 20,
		AllowedOrigins:  []string{"*"},
		RateLimitPerSec: 20,
		RateLimitBurst:  40,
		MetricsPath:     "/metrics",
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Command Handlers (CQRS Write Side)
	SubmitAttempt *command.SubmitAttemptHandler

	// Query Handlers (CQRS Read Side)
	Simulations    *query.SimulationsHandler
	AttemptHistory *query.GetAttemptHistoryHandler
	Dashboard      *query.GetDashboardHandler
	Leaderboard    *query.GetLeaderboardHandler
	GlobalStats    *query.GetGlobalStatsHandler
	ProgressChart  *query.GetProgressChartHandler
	Badges         *query.BadgesHandler
	AdminStats     *query.GetAdminStatsHandler

	// Health aggregates readiness checks; nil means always ready.
	Health *HealthChecker

	// Metrics is optional; nil disables HTTP metrics and /metrics.
	Metrics *observability.Metrics

	Logger *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     chi.Router
	logger     *logger.Logger
	auth       *Authenticator
	limiter    *ipRateLimiter

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	s := &Server{
		config: config,
		deps:   deps,
		logger: deps.Logger,
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	s.logger = s.logger.With(logger.Component("http"))
	s.auth = NewAuthenticator(config.Auth)

	if config.RateLimitPerSec > 0 {
		s.limiter = newIPRateLimiter(config.RateLimitPerSec, config.RateLimitBurst)
	}

	s.router = s.routes()

	s.httpServer = &http.Server{
		Addr:         config.Addr,
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	// Order matters: recovery must see panics from everything below it.
	r.Use(s.requestIDMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.loggingMiddleware)
	if s.deps.Metrics != nil {
		r.Use(s.metricsMiddleware)
	}
	if len(s.config.AllowedOrigins) > 0 {
		r.Use(s.corsMiddleware)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	if s.deps.Metrics != nil && s.config.MetricsPath != "" {
		r.Method(http.MethodGet, s.config.MetricsPath, s.deps.Metrics.Handler())
	}

	// ─────────────────────────────────────────────────────────────────────────
	// API
	// ─────────────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.rateLimitMiddleware)
		}
		if s.config.RequestTimeout > 0 {
			r.Use(timeoutMiddleware(s.config.RequestTimeout))
		}
		r.Use(s.auth.Identify)

		r.Get("/simulations", s.handleListSimulations)
		r.Get("/simulations/{id}", s.handleGetSimulation)
		r.Get("/categories", s.handleCategories)
		r.Get("/difficulties", s.handleDifficulties)

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/leaderboard", s.handleLeaderboard)
			r.Get("/global-stats", s.handleGlobalStats)
			r.Get("/badges", s.handleAllBadges)
			r.Get("/user/{id}/badges", s.handleUserBadges)

			r.With(RequireUser).Get("/dashboard", s.handleDashboard)
			r.With(RequireUser).Get("/progress-chart", s.handleProgressChart)
		})

		r.Get("/admin/stats", s.handleAdminStats)

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)
			r.With(bodyLimitMiddleware(s.config.MaxBodyBytes)).
				Post("/simulations/{id}/submit", s.handleSubmitAttempt)
			r.Get("/user/attempts", s.handleUserAttempts)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, r, http.StatusNotFound, "not_found", "Resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})
	return r
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start listens and serves until Shutdown is called.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Addr))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Run serves until ctx is cancelled, then shuts down within timeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Shutdown gracefully shuts down the server. A server that was shut down
// before Start returns from Start immediately.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}
