// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Unexported errors (err*): Use for internal package errors
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Analysis stage errors.
var (
	// ErrInsufficientData indicates too few samples, embeddings or edges for a
	// statistically meaningful result. It is propagated up, never silently
	// degraded to a default value.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDimensionMismatch indicates embeddings of inconsistent dimension
	// within one aggregation or matrix.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidConfig indicates an invalid parameter combination. Raised at
	// construction time, not at use.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Storage and lookup errors.
var (
	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")

	// ErrNoResults indicates no results were found.
	ErrNoResults = errors.New("no results")
)

// Provider errors.
var (
	// ErrProviderUnavailable indicates an embedding provider is not configured
	// or currently unavailable.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrEmptyResponse indicates an empty response was received.
	ErrEmptyResponse = errors.New("empty response")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
