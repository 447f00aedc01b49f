package llm

import (
	"context"

	"github.com/lueurxax/feed-digest/internal/core/ports"
)

// ProviderName identifies an LLM provider.
type ProviderName string

// Provider name constants.
const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderGoogle    ProviderName = "google"
)

// Priority constants for provider ordering.
const (
	PriorityPrimary        = 100 // Primary provider (OpenAI)
	PriorityFallback       = 50  // First fallback (Anthropic)
	PrioritySecondFallback = 25  // Second fallback (Google)
)

// Request is one chat completion as seen by a provider.
type Request struct {
	SystemPrompt string
	Messages     []ports.Message
	Temperature  float64
	MaxTokens    int
}

// Completion is a provider's answer plus its token accounting.
type Completion struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Provider defines the interface for LLM providers.
type Provider interface {
	// Name returns the provider identifier.
	Name() ProviderName

	// IsAvailable returns true if the provider is configured and available.
	IsAvailable() bool

	// Priority returns the provider priority (higher = preferred).
	Priority() int

	// Model returns the model the provider sends requests to.
	Model() string

	Complete(ctx context.Context, req Request) (Completion, error)
}
