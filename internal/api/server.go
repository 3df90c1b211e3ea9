package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowforge/internal/api/auth"
	"github.com/flowforge/internal/config"
	"github.com/flowforge/internal/generator"
	"github.com/flowforge/internal/logging"
	"github.com/flowforge/internal/metrics"
	"github.com/flowforge/internal/prompts"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Server represents the API server
type Server struct {
	echo      *echo.Echo
	cfg       *config.Config
	store     *prompts.Store
	generator *generator.Service
	tokens    *auth.TokenService
	estimator prompts.TokenEstimator
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, store *prompts.Store, gen *generator.Service) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
	if err != nil {
		return nil, err
	}
	if cfg.Admin.JWTSecret == "" {
		log.Warn().Msg("admin.jwt_secret not set, admin sessions will not survive a restart")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	server := &Server{
		echo:      e,
		cfg:       cfg,
		store:     store,
		generator: gen,
		tokens:    tokens,
		estimator: prompts.NewTokenEstimator(cfg.Tokens.Encoding),
	}
	e.HTTPErrorHandler = server.handleError

	// Middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(logging.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: cfg.Server.CORSOrigins}))
	if cfg.Server.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	}

	server.setupRoutes()

	return server, nil
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})
	if s.cfg.Metrics.Enabled {
		s.echo.GET(s.cfg.Metrics.Path, echo.WrapHandler(metrics.Handler()))
	}

	limited := s.rateLimiter()

	api := s.echo.Group("/api")
	api.GET("/options", s.getOptions)
	api.POST("/validate-prompt", s.validatePrompt, limited...)
	api.POST("/generate-raw", s.generateRaw, limited...)
	api.POST("/generate-guide", s.generateGuide, limited...)

	admin := api.Group("/admin")
	requireAdmin := auth.RequireAdmin(s.tokens)
	admin.POST("/login", s.adminLogin, limited...)
	admin.GET("/prompts", s.listPrompts, requireAdmin)
	admin.POST("/add-prompt-version", s.addPromptVersion, requireAdmin)
	admin.POST("/activate-prompt-version", s.activatePromptVersion, requireAdmin)
}

// rateLimiter limits LLM-backed routes per client IP. A zero rate disables it.
func (s *Server) rateLimiter() []echo.MiddlewareFunc {
	if s.cfg.Server.RateLimit <= 0 {
		return nil
	}
	burst := s.cfg.Server.RateBurst
	if burst <= 0 {
		burst = 1
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(s.cfg.Server.RateLimit),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return []echo.MiddlewareFunc{middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, ErrorResponse{Error: "Could not identify client."})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			logging.FromContext(c).Warn().Str("client", identifier).Str("path", c.Path()).Msg("Rate limit exceeded")
			return c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "Too many requests. Please try again later."})
		},
	})}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting FlowForge API server")
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down server")
	}

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return s.echo.Shutdown(ctx)
}
