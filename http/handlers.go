package http

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// withTimeout creates a context with a timeout for handler operations.
func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), DefaultTimeout)
}

// parseUUID parses a UUID from a string, returning a domain error if invalid.
func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, railinspect.Invalid("Invalid ID format")
	}
	return id, nil
}

// requireParam extracts a required route parameter, returning error if empty.
func requireParam(c echo.Context, name string) (string, error) {
	value := c.Param(name)
	if value == "" {
		return "", railinspect.Invalid("%s is required", name)
	}
	return value, nil
}

// requireUUIDParam extracts and parses a required UUID route parameter.
func requireUUIDParam(c echo.Context, name string) (uuid.UUID, error) {
	value, err := requireParam(c, name)
	if err != nil {
		return uuid.UUID{}, err
	}
	return parseUUID(value)
}

// requireProfile extracts the authenticated profile from context.
func requireProfile(c echo.Context) (*railinspect.Profile, error) {
	profile := railinspect.ProfileFromContext(c.Request().Context())
	if profile == nil {
		return nil, railinspect.Unauthorized("Authentication required")
	}
	return profile, nil
}

// bind binds the request body to a struct and validates it.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return railinspect.Invalid("Invalid request body")
	}
	return c.Validate(v)
}

// pagination reads offset and limit query parameters.
func pagination(c echo.Context) (offset, limit int, err error) {
	limit = defaultPageSize
	if v := c.QueryParam("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, railinspect.Invalid("offset must be a non-negative integer")
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			return 0, 0, railinspect.Invalid("limit must be a positive integer")
		}
	}
	return offset, min(limit, maxPageSize), nil
}

// log returns the request-scoped logger.
func (s *Server) log(c echo.Context) *slog.Logger {
	return s.getRequestLogger(c)
}
