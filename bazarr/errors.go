package bazarr

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrInvalidConfig indicates an unusable connection configuration
	ErrInvalidConfig = errors.New("invalid bazarr configuration")
	// ErrMalformedResponse indicates a 2xx response without the expected payload
	ErrMalformedResponse = errors.New("malformed bazarr response")
)

// APIError represents a non-2xx answer from the Bazarr API
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("bazarr API error: status %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether Bazarr rejected the API key
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

// IsNotFound checks if the error indicates a not found response
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// FetchError reports the endpoint that made a snapshot fetch fail
type FetchError struct {
	Endpoint string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
