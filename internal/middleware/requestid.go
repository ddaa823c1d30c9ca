// Package middleware holds echo middleware shared by the HTTP server:
// request ids, prometheus metrics and rate limiting.
package middleware

import (
	"log/slog"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestID assigns every request an id. An incoming X-Request-ID header is
// reused so ids can be correlated across a proxy.
//
// The id is written to the response header, stored in the echo context and
// the request context, and attached to a request-scoped logger under
// "logger".
func RequestID(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" || len(requestID) > 64 {
				requestID = uuid.New().String()
			}

			c.Response().Header().Set(echo.HeaderXRequestID, requestID)
			c.Set("request_id", requestID)
			c.Set("logger", logger.With(slog.String("request_id", requestID)))

			ctx := railinspect.NewContextWithRequestID(c.Request().Context(), requestID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// GetRequestID retrieves the request ID from the echo context.
func GetRequestID(c echo.Context) string {
	requestID, _ := c.Get("request_id").(string)
	return requestID
}

// GetRequestLogger retrieves the request-scoped logger from the echo context,
// falling back to the default logger.
func GetRequestLogger(c echo.Context) *slog.Logger {
	if logger, ok := c.Get("logger").(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
