package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrMissingToken    = errors.New("token missing")
	ErrInvalidToken    = errors.New("invalid token format")
	ErrRateLimited     = errors.New("rate limit exceeded")
	ErrUpstream        = errors.New("upstream request failed")
	ErrQueueFull       = errors.New("worker queue full")

	// Persistence errors
	ErrInvalidExecContext = errors.New("invalid database execution context")
)

// StatusError carries the HTTP status reported by a remote party (usually the
// model provider) so the handler can surface it unchanged.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *StatusError) Unwrap() error { return e.Err }

// StatusOf maps an error to the HTTP status the chat endpoints answer with.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var se *StatusError
	if errors.As(err, &se) && se.Code >= 400 && se.Code <= 599 {
		return se.Code
	}
	switch {
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrInvalidToken):
		return http.StatusBadRequest
	case errors.Is(err, ErrMissingToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}
