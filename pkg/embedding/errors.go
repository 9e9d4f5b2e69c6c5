package embedding

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for input validation and quota checks.
var (
	// ErrEmptyInput is returned when Generate is called with no texts.
	// Not retried and never routed through the fallback chain.
	ErrEmptyInput = errors.New("embedding: empty text list")

	// ErrQuotaExceeded marks a provider skipped because its rolling
	// request count reached the configured ceiling. It surfaces only
	// when the skip causes exhaustion.
	ErrQuotaExceeded = errors.New("embedding: provider quota exceeded")

	// ErrProviderUnhealthy marks a provider skipped by the health monitor.
	ErrProviderUnhealthy = errors.New("embedding: provider unhealthy")
)

// ProviderError records a single provider call failure. It is recoverable:
// the orchestrator absorbs it and tries the next candidate provider.
type ProviderError struct {
	// Provider is the provider identifier that failed.
	Provider string

	// Model is the model the provider was configured with.
	Model string

	// Err is the underlying failure.
	Err error
}

// Error returns the formatted error message.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding provider %s (%s): %v", e.Provider, e.Model, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ExhaustedError is returned when every candidate provider failed or was
// skipped. It is terminal for the call.
type ExhaustedError struct {
	// Attempted lists the candidate providers in the order they were tried.
	Attempted []string

	// LastErr is the most recent failure in the chain.
	LastErr error
}

// Error returns the formatted error message naming the last failure.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("embedding: all providers exhausted (tried %s): %v",
		strings.Join(e.Attempted, ", "), e.LastErr)
}

// Unwrap returns the last failure in the chain.
func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}
