// Package errors defines the sentinel errors shared across the index and
// search subsystems, plus an AppError wrapper that carries an HTTP status
// for the serving layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrDuplicateDocument is returned when a document id is added twice.
	// The original document is left untouched.
	ErrDuplicateDocument = errors.New("document already indexed")

	// ErrBarrelIO marks a barrel read or write failure. Reads are retried
	// with bounded attempts before this propagates; a write failure aborts
	// the enclosing transaction.
	ErrBarrelIO = errors.New("barrel i/o failure")

	// ErrInvariantViolation marks a cross-structure inconsistency, such as
	// a corrupted barrel file. The affected barrel is quarantined and
	// refuses to serve until rebuilt.
	ErrInvariantViolation = errors.New("index invariant violation")

	// ErrInvalidInput is returned for malformed caller input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrClosed is returned by operations on a closed index.
	ErrClosed = errors.New("index is closed")

	// ErrTimeout is returned when a bounded operation exceeds its deadline.
	ErrTimeout = errors.New("operation timed out")
)

// AppError wraps a sentinel error with a message and an HTTP status code.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New builds an AppError around a sentinel.
func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Newf is New with fmt.Sprintf formatting.
func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps an error to the HTTP status the serving layer should
// return.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDuplicateDocument):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryable reports whether the error is a transient failure worth
// retrying, as opposed to a permanent rejection.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBarrelIO) || errors.Is(err, ErrTimeout)
}
