// Package imageboard provides a read-only client for the imageboard JSON API
// (board catalogs and threads).
package imageboard

import (
	"fmt"
	"net/http"
)

// APIError represents a non-2xx response from the imageboard API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("imageboard API error: status %d (endpoint: %s)", e.StatusCode, e.Endpoint)
	}
	return fmt.Sprintf("imageboard API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Retryable reports whether the status is worth another attempt.
func (e *APIError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return e.StatusCode >= 500
}
