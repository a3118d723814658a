package service

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned when a version, language, type, folder or page does not exist.
var ErrNotFound = errors.New("not found")

// StatusError carries the HTTP status a failed lookup should be answered with.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return http.StatusText(e.Code)
	}
	return fmt.Sprintf("%d %s: %v", e.Code, http.StatusText(e.Code), e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// notFound builds a 404 that wraps ErrNotFound with the failed lookup.
func notFound(format string, args ...interface{}) error {
	return &StatusError{
		Code: http.StatusNotFound,
		Err:  fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound),
	}
}

func serverError(err error) error {
	return &StatusError{Code: http.StatusInternalServerError, Err: err}
}

// StatusCode maps an accessor error to an HTTP status. nil maps to 200, unknown errors to 500.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// IsNotFound reports whether err resolves to a 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
