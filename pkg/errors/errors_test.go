package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorUnwrapsToSentinel(t *testing.T) {
	err := Newf(ErrInvalidArgument, http.StatusBadRequest, "got %d texts but %d metadata entries", 3, 2)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("errors.Is(err, ErrInvalidArgument) = false, want true")
	}
	if errors.Is(err, ErrConfiguration) {
		t.Error("error matched the wrong sentinel")
	}
	want := "invalid argument: got 3 texts but 2 metadata entries"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestAppErrorSurvivesWrapping(t *testing.T) {
	inner := New(ErrQueryProcessing, http.StatusInternalServerError, "backend produced NaN score")
	outer := fmt.Errorf("handling query: %w", inner)
	if !errors.Is(outer, ErrQueryProcessing) {
		t.Error("sentinel lost through wrapping")
	}
	var appErr *AppError
	if !errors.As(outer, &appErr) {
		t.Fatal("AppError lost through wrapping")
	}
	if appErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", appErr.StatusCode)
	}
}

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error carries its own status", New(ErrConfiguration, http.StatusInternalServerError, "x"), http.StatusInternalServerError},
		{"invalid argument", fmt.Errorf("wrap: %w", ErrInvalidArgument), http.StatusBadRequest},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"corpus unavailable", ErrCorpusUnavailable, http.StatusServiceUnavailable},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode = %d, want %d", got, tt.want)
			}
		})
	}
}
