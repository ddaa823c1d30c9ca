package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dukerupert/railinspect"
	"github.com/labstack/echo/v4"
)

// errorStatusCode maps domain error codes to HTTP status codes.
func errorStatusCode(code string) int {
	switch code {
	case railinspect.ENOTFOUND:
		return http.StatusNotFound
	case railinspect.EINVALID:
		return http.StatusBadRequest
	case railinspect.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case railinspect.EFORBIDDEN:
		return http.StatusForbidden
	case railinspect.ECONFLICT:
		return http.StatusConflict
	case railinspect.ERATELIMIT:
		return http.StatusTooManyRequests
	case railinspect.EUNAVAILABLE:
		return http.StatusServiceUnavailable
	case railinspect.EPERSISTENCE:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse represents the JSON error response format.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// newErrorResponse builds the client-safe body of err. Internal details
// are never exposed.
func newErrorResponse(err error) ErrorResponse {
	code := railinspect.ErrorCode(err)
	message := railinspect.ErrorMessage(err)
	if code == railinspect.EINTERNAL {
		message = "An internal error occurred."
	}
	return ErrorResponse{
		Error:   code,
		Message: message,
		Fields:  railinspect.ErrorFields(err),
	}
}

// HandleError converts domain errors to appropriate HTTP responses.
// It logs internal errors and returns user-safe messages.
func HandleError(c echo.Context, logger *slog.Logger, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return handleHTTPError(c, he)
	}

	code := railinspect.ErrorCode(err)
	status := errorStatusCode(code)

	if code == railinspect.EINTERNAL {
		logger.Error("internal error",
			slog.String("error", err.Error()),
			slog.String("path", c.Path()),
			slog.String("method", c.Request().Method),
		)
	}

	return c.JSON(status, newErrorResponse(err))
}

// handleHTTPError renders errors raised by echo itself (unknown routes,
// oversized bodies, malformed JSON) in the API's error format.
func handleHTTPError(c echo.Context, he *echo.HTTPError) error {
	code := railinspect.EINVALID
	switch {
	case he.Code == http.StatusNotFound:
		code = railinspect.ENOTFOUND
	case he.Code == http.StatusUnauthorized:
		code = railinspect.EUNAUTHORIZED
	case he.Code == http.StatusForbidden:
		code = railinspect.EFORBIDDEN
	case he.Code == http.StatusTooManyRequests:
		code = railinspect.ERATELIMIT
	case he.Code >= 500:
		code = railinspect.EINTERNAL
	}

	message := http.StatusText(he.Code)
	if m, ok := he.Message.(string); ok && m != "" {
		message = m
	} else if he.Message != nil {
		message = fmt.Sprint(he.Message)
	}
	if code == railinspect.EINTERNAL {
		message = "An internal error occurred."
	}

	return c.JSON(he.Code, ErrorResponse{Error: code, Message: message})
}
