package portfolio

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized matches StatusErrors with status 401 or 403.
var ErrUnauthorized = errors.New("portfolio: unauthorized")

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string // "message" or "error" field of the body, if any
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("portfolio: %s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("portfolio: %s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is lets errors.Is(err, ErrUnauthorized) match auth failures.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized &&
		(e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

// DecodeError is returned when a 2xx body does not have the expected shape.
type DecodeError struct {
	Path   string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("portfolio: decoding %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("portfolio: decoding %s: %s", e.Path, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
