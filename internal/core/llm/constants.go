package llm

import "time"

// Error message templates
const (
	errRateLimiter          = "rate limiter error: %w"
	errOpenAIChatCompletion = "openai chat completion error: %w"
	errAnthropicMessages    = "anthropic messages error: %w"
	errGoogleGenAI          = "google genai completion: %w"
)

// Log message strings
const (
	logMsgCircuitBreakerOpen = "skipping provider - circuit breaker open"
	logMsgTruncated          = "LLM output truncated due to max_tokens limit"
)

// Log field keys
const (
	logKeyProvider = "provider"
	logKeyModel    = "model"
	logKeyTenant   = "tenant"
)

// Circuit breaker defaults.
const (
	defaultCircuitThreshold = 5
	defaultCircuitTimeout   = 1 * time.Minute
)

// Rate limiter and request defaults.
const (
	rateLimiterBurst   = 5
	defaultMaxTokens   = 1024
	defaultCallTimeout = 45 * time.Second
)

// Request status for metrics.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metric gauge values.
const (
	MetricValueAvailable   = 1.0
	MetricValueUnavailable = 0.0
	MetricValueCBOpen      = 1.0 // Circuit breaker is open (blocking requests)
	MetricValueCBClosed    = 0.0 // Circuit breaker is closed (allowing requests)
)
