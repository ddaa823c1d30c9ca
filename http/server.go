// Package http exposes the inspection services over a JSON API built on echo.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/dukerupert/railinspect/export"
	"github.com/dukerupert/railinspect/inspection"
	"github.com/dukerupert/railinspect/internal/audit"
	"github.com/dukerupert/railinspect/internal/middleware"
	"github.com/dukerupert/railinspect/internal/validation"
	"github.com/labstack/echo/v4"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server with all its dependencies.
type Server struct {
	echo   *echo.Echo
	ln     net.Listener
	logger *slog.Logger

	// Configuration
	Addr string

	// Session configuration
	SessionDuration time.Duration
	SessionSecure   bool

	// Domain services
	profileService railinspect.ProfileService
	sessionService railinspect.SessionService
	reportService  railinspect.TripReportService

	// Inspection components
	loader     *inspection.Loader
	reconciler *inspection.Reconciler
	editors    *inspection.Editors
	submitter  *inspection.Submitter
	drafts     *inspection.Drafts
	exporter   *export.Service

	// External services
	queue  railinspect.Queue
	pinger Pinger
	audit  *audit.Logger

	apiLimiter  *middleware.RateLimiter
	authLimiter *middleware.RateLimiter
}

// Config holds the configuration for creating a new Server.
type Config struct {
	Addr   string
	Logger *slog.Logger

	// Session configuration
	SessionDuration time.Duration
	SessionSecure   bool

	// Domain services
	ProfileService    railinspect.ProfileService
	SessionService    railinspect.SessionService
	TripReportService railinspect.TripReportService

	// Inspection components
	Loader     *inspection.Loader
	Reconciler *inspection.Reconciler
	Editors    *inspection.Editors
	Submitter  *inspection.Submitter
	Drafts     *inspection.Drafts
	Exporter   *export.Service

	// External services
	Queue  railinspect.Queue
	Pinger Pinger

	// Audit records state changes when set.
	Audit *audit.Logger

	// Rate limits; zero values use the middleware defaults.
	APIRateLimit  middleware.RateLimitConfig
	AuthRateLimit middleware.RateLimitConfig
}

// NewServer creates a new HTTP server with the given configuration.
func NewServer(cfg Config) *Server {
	s := &Server{
		Addr:            cfg.Addr,
		logger:          cfg.Logger,
		SessionDuration: cfg.SessionDuration,
		SessionSecure:   cfg.SessionSecure,
		profileService:  cfg.ProfileService,
		sessionService:  cfg.SessionService,
		reportService:   cfg.TripReportService,
		loader:          cfg.Loader,
		reconciler:      cfg.Reconciler,
		editors:         cfg.Editors,
		submitter:       cfg.Submitter,
		drafts:          cfg.Drafts,
		exporter:        cfg.Exporter,
		queue:           cfg.Queue,
		pinger:          cfg.Pinger,
		audit:           cfg.Audit,
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.SessionDuration == 0 {
		s.SessionDuration = 24 * time.Hour
	}

	apiLimit := cfg.APIRateLimit
	if apiLimit.Rate == 0 {
		apiLimit = middleware.DefaultRateLimitConfig()
	}
	authLimit := cfg.AuthRateLimit
	if authLimit.Rate == 0 {
		authLimit = middleware.AuthRateLimitConfig()
	}
	s.apiLimiter = middleware.NewRateLimiter(s.logger, apiLimit)
	s.authLimiter = middleware.NewRateLimiter(s.logger, authLimit)

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Validator = validation.NewValidator()

	s.registerMiddleware()
	s.registerRoutes()

	return s
}

// Echo returns the underlying Echo instance.
// Use sparingly - prefer registering routes through Server methods.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Open starts the HTTP server.
func (s *Server) Open() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.ln = ln

	go func() {
		if err := s.echo.Server.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	s.logger.Info("server started", slog.String("addr", s.ln.Addr().String()))
	return nil
}

// Close gracefully shuts down the HTTP server and its rate limiters.
func (s *Server) Close(ctx context.Context) error {
	s.apiLimiter.Shutdown()
	s.authLimiter.Shutdown()
	if err := s.echo.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// URL returns the URL of the server.
func (s *Server) URL() string {
	if s.ln == nil {
		return ""
	}
	return "http://" + s.ln.Addr().String()
}
