// Package errors defines the error taxonomy for the retrieval service:
// sentinel errors, a wrapping AppError with an HTTP status, and the mapping
// from errors to response codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidArgument is returned when retriever construction receives
	// mismatched corpus sequences or a non-positive k. Fatal to construction.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConfiguration is returned when an explicitly requested scoring
	// backend does not exist. Fatal to construction.
	ErrConfiguration = errors.New("configuration error")

	// ErrAccelerationUnavailable indicates the accelerated scoring backend
	// could not be selected. Never fatal; the caller downgrades to the
	// scalar backend.
	ErrAccelerationUnavailable = errors.New("acceleration unavailable")

	// ErrQueryProcessing indicates a malformed intermediate scoring result
	// for a single query. Never fatal; the query yields an empty result list.
	ErrQueryProcessing = errors.New("query processing error")

	ErrInvalidInput      = errors.New("invalid input")
	ErrCorpusUnavailable = errors.New("corpus unavailable")
	ErrInternal          = errors.New("internal error")
	ErrTimeout           = errors.New("operation timed out")
)

// AppError wraps a sentinel with a human-readable message and an HTTP status.
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

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps an error to the HTTP status the service should return.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrCorpusUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}