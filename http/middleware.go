package http

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/dukerupert/railinspect/internal/middleware"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

const (
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"

	// Default timeout for database operations.
	DefaultTimeout = 5 * time.Second

	// Maximum accepted request body.
	maxBodySize = "1M"
)

// registerMiddleware sets up all middleware for the server.
func (s *Server) registerMiddleware() {
	s.echo.Use(echomw.Recover())
	s.echo.Use(middleware.RequestID(s.logger))

	// Metrics wraps the request logger so it sees the final status code.
	s.echo.Use(middleware.Metrics())
	s.echo.Use(s.requestLoggerMiddleware())

	s.echo.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderXRequestID},
		ExposeHeaders:    []string{echo.HeaderXRequestID, "Retry-After"},
		AllowCredentials: false,
	}))
	s.echo.Use(echomw.BodyLimit(maxBodySize))

	s.echo.HTTPErrorHandler = s.httpErrorHandler
}

// requestLoggerMiddleware logs request completion. Errors are written to
// the response here so the status is known when the line is logged.
func (s *Server) requestLoggerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			logger := s.getRequestLogger(c).With(
				slog.String("method", c.Request().Method),
				slog.String("path", c.Path()),
			)
			c.Set("logger", logger)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			logAttrs := []any{
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
			}
			if id := railinspect.ProfileIDFromContext(c.Request().Context()); id != uuid.Nil {
				logAttrs = append(logAttrs, slog.String("profile_id", id.String()))
			}

			switch {
			case status >= 500:
				if err != nil {
					logAttrs = append(logAttrs, slog.String("error", err.Error()))
				}
				logger.Error("request completed with server error", logAttrs...)
			case status >= 400:
				if err != nil {
					logAttrs = append(logAttrs, slog.String("error", err.Error()))
				}
				logger.Warn("request completed with client error", logAttrs...)
			default:
				logger.Info("request completed", logAttrs...)
			}

			return nil
		}
	}
}

// httpErrorHandler handles errors and returns appropriate responses.
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	_ = HandleError(c, s.getRequestLogger(c), err)
}

// sessionToken returns the session token from the cookie or a bearer
// Authorization header.
func sessionToken(c echo.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

// SessionMiddleware validates the session and attaches the profile to the
// request context. If required is true, requests without a valid session
// are refused with EUNAUTHORIZED.
func (s *Server) SessionMiddleware(required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			logger := s.getRequestLogger(c)

			token := sessionToken(c)
			if token == "" {
				if required {
					logger.Debug("session required but no token found")
					return railinspect.Unauthorized("Authentication required")
				}
				return next(c)
			}

			session, err := s.sessionService.FindSessionByToken(c.Request().Context(), token)
			if err != nil {
				if !required {
					return next(c)
				}
				if railinspect.IsErrorCode(err, railinspect.EUNAUTHORIZED) {
					logger.Debug("session expired or invalid")
					return err
				}
				logger.Error("session validation failed", slog.String("error", err.Error()))
				return railinspect.Unavailable("Failed to validate session", err)
			}
			if session.Profile == nil {
				return railinspect.Unauthorized("Authentication required")
			}
			if !session.Profile.IsApproved() {
				return railinspect.Forbidden("Your account is %s", session.Profile.Status)
			}

			ctx := railinspect.NewContextWithProfile(c.Request().Context(), session.Profile)
			ctx = railinspect.NewContextWithSession(ctx, session)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("profile", session.Profile)

			return next(c)
		}
	}
}

// RequireAuth is a middleware that requires authentication.
func (s *Server) RequireAuth() echo.MiddlewareFunc {
	return s.SessionMiddleware(true)
}

// OptionalAuth is a middleware that checks for authentication but doesn't require it.
func (s *Server) OptionalAuth() echo.MiddlewareFunc {
	return s.SessionMiddleware(false)
}

// RequireRole allows only authenticated profiles holding one of roles.
func (s *Server) RequireRole(roles ...railinspect.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			profile := railinspect.ProfileFromContext(c.Request().Context())
			if profile == nil {
				return railinspect.Unauthorized("Authentication required")
			}
			if !slices.Contains(roles, profile.Role) {
				return railinspect.Forbidden("Insufficient permissions")
			}
			return next(c)
		}
	}
}

// getRequestLogger retrieves the request-scoped logger from context.
func (s *Server) getRequestLogger(c echo.Context) *slog.Logger {
	if logger, ok := c.Get("logger").(*slog.Logger); ok {
		return logger
	}
	return s.logger
}
