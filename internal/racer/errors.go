package racer

import (
	"errors"
	"fmt"
)

// ErrProviderPanic is the only error a race propagates.
var ErrProviderPanic = errors.New("provider task panicked")

// ProviderError wraps a delivery failure for one provider region.
type ProviderError struct {
	Provider string
	Region   string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s/%s: %v", e.Provider, e.Region, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response from a relay.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// APIError is a structured error returned in a 2xx relay response body.
type APIError struct {
	Message string
}

func (e *APIError) Error() string { return "api error: " + e.Message }
