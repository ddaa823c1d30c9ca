package railinspect

import (
	"errors"
	"fmt"
)

// Error codes. The http package maps each to a status; workers use them to
// decide whether a failed job is worth another attempt.
const (
	// Caller errors. Retrying the same request cannot succeed.
	EINVALID      = "invalid"      // 400
	EUNAUTHORIZED = "unauthorized" // 401
	EFORBIDDEN    = "forbidden"    // 403
	ENOTFOUND     = "not_found"    // 404
	ECONFLICT     = "conflict"     // 409
	ERATELIMIT    = "rate_limit"   // 429

	// Server errors.
	EINTERNAL = "internal" // 500

	// EPERSISTENCE means a single row write did not take effect.
	EPERSISTENCE = "persistence_failed" // 502

	// EUNAVAILABLE means the report data store could not be reached or
	// returned structurally empty data. Read paths recover with defaults.
	EUNAVAILABLE = "unavailable" // 503
)

// Error is a coded error. Message is shown to clients; Err is logged only.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf returns an *Error with a formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError returns an *Error carrying cause.
func WrapError(code string, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// ErrorWithFields returns an EINVALID error keyed by request field.
func ErrorWithFields(fields map[string]string) *Error {
	return &Error{Code: EINVALID, Message: "Validation failed", Fields: fields}
}

func asError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// ErrorCode returns the code of the first *Error in err's chain, EINTERNAL
// for any other error, and "" for nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := asError(err); ok {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the client-safe message of err.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := asError(err); ok {
		return e.Message
	}
	return "An internal error occurred."
}

// ErrorFields returns the per-field messages of a validation error, if any.
func ErrorFields(err error) map[string]string {
	if e, ok := asError(err); ok {
		return e.Fields
	}
	return nil
}

// IsErrorCode reports whether err carries code.
func IsErrorCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// Retryable reports whether repeating the operation that returned err could
// succeed. Caller errors are final; store outages and uncoded errors are not.
func Retryable(err error) bool {
	switch ErrorCode(err) {
	case "", EINVALID, EUNAUTHORIZED, EFORBIDDEN, ENOTFOUND, ECONFLICT:
		return false
	}
	return true
}

func NotFound(format string, args ...any) *Error {
	return Errorf(ENOTFOUND, format, args...)
}

func Invalid(format string, args ...any) *Error {
	return Errorf(EINVALID, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return Errorf(EUNAUTHORIZED, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return Errorf(EFORBIDDEN, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return Errorf(ECONFLICT, format, args...)
}

func Internal(message string, err error) *Error {
	return WrapError(EINTERNAL, message, err)
}

// Unavailable reports that the report data store could not serve a read.
func Unavailable(message string, err error) *Error {
	return WrapError(EUNAVAILABLE, message, err)
}

// PersistenceFailed reports that a write did not take effect.
func PersistenceFailed(message string, err error) *Error {
	return WrapError(EPERSISTENCE, message, err)
}
