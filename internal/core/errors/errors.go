// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Unexported errors (err*): Use for internal package errors
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
//
// Only ErrQueueMisconfigured and ErrPersistence are fatal to a digest build.
// Everything else degrades the output of the build instead of failing it.
package errors

import "errors"

// Circuit breaker errors.
var (
	// ErrCircuitBreakerOpen indicates the circuit breaker has tripped and requests are blocked.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

// LLM errors.
var (
	// ErrQuotaExceeded indicates the tenant's LLM budget for the current day is used up.
	ErrQuotaExceeded = errors.New("llm quota exceeded")

	// ErrLLMNotConfigured indicates no LLM provider is registered.
	ErrLLMNotConfigured = errors.New("llm not configured")

	// ErrParseFailure indicates no summary could be recovered from an LLM response by any repair tier.
	ErrParseFailure = errors.New("llm response parse failure")
)

// Fetch errors.
var (
	// ErrFetchTimeout indicates an article fetch exceeded its deadline.
	ErrFetchTimeout = errors.New("fetch timeout")

	// ErrFetchError indicates an article fetch failed at the network or HTTP level.
	ErrFetchError = errors.New("fetch error")

	// ErrProviderErrorPage indicates the fetched text is a provider error page, not an article.
	ErrProviderErrorPage = errors.New("provider error page")
)

// Build errors.
var (
	// ErrPersistence indicates the digest record could not be stored.
	ErrPersistence = errors.New("digest persistence failed")

	// ErrQueueMisconfigured indicates a build was queued while no processor was registered.
	ErrQueueMisconfigured = errors.New("job queue misconfigured: no processor registered")
)

// Lookup errors.
var (
	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")

	// ErrChannelNotFound indicates a channel has no enabled sources.
	ErrChannelNotFound = errors.New("channel not found")
)

// Validation errors.
var (
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidWindow indicates a window whose end is not after its start.
	ErrInvalidWindow = errors.New("invalid time window")
)

// Rate limiting and throttling errors.
var (
	// ErrRateLimited indicates rate limiting was triggered.
	ErrRateLimited = errors.New("rate limited")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
