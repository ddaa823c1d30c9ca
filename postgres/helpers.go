package postgres

import (
	"context"
	"errors"
	"net"

	"github.com/dukerupert/railinspect"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// isUniqueViolation checks if an error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// isForeignKeyViolation checks if an error is a PostgreSQL foreign key violation.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503" // foreign_key_violation
	}
	return false
}

// isInvalidText checks if a value could not be parsed into its column type,
// such as a malformed uuid.
func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "22P02" // invalid_text_representation
	}
	return false
}

// isInsufficientPrivilege checks if the server refused the statement by
// access policy (GRANTs or row level security).
func isInsufficientPrivilege(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42501" // insufficient_privilege
	}
	return false
}

// isConnectionError checks if the database could not be reached at all.
func isConnectionError(err error) bool {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 - connection exception, 57P01..03 - server shutting down
		return len(pgErr.Code) == 5 && (pgErr.Code[:2] == "08" || pgErr.Code[:3] == "57P")
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded)
}

// wrapError converts a database error into a domain error. Missing rows map
// to ENOTFOUND with notFoundMsg; other failures use msg.
func wrapError(err error, notFoundMsg, msg string) error {
	var appErr *railinspect.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, pgx.ErrNoRows):
		return railinspect.NotFound("%s", notFoundMsg)
	case isInvalidText(err):
		return railinspect.Invalid("Invalid identifier")
	case isInsufficientPrivilege(err):
		return railinspect.Forbidden("Permission denied: %s", msg)
	case isConnectionError(err):
		return railinspect.Unavailable(msg, err)
	default:
		return railinspect.Internal(msg, err)
	}
}
