// Package ports provides domain-centric interfaces for external dependencies.
// These interfaces follow the ports and adapters (hexagonal) architecture pattern,
// allowing the digest pipeline to remain independent of infrastructure concerns.
package ports

import (
	"context"
	"time"

	"github.com/lueurxax/feed-digest/internal/core/domain"
)

// ItemStore provides read access to sources and their items.
type ItemStore interface {
	ListEnabledSources(ctx context.Context, channelID string) ([]domain.Source, error)
	// ListItemsInWindow returns items published in [start, end), most recent first.
	ListItemsInWindow(ctx context.Context, sourceID string, start, end time.Time, maxCount int) ([]domain.FeedItem, error)
}

// DigestStore persists rendered digests.
type DigestStore interface {
	CreateDigestRecord(ctx context.Context, channelID string, start, end time.Time, rendered string) (string, error)
}

// UsageStore tracks per-tenant LLM usage for the soft daily quota.
// GetDailyRequests and IncrementRequests are not atomic with respect to each other.
type UsageStore interface {
	GetDailyRequests(ctx context.Context, tenantID string) (int, error)
	IncrementRequests(ctx context.Context, tenantID, provider, model string, promptTokens, completionTokens int) error
}

// Role is the author of an LLM chat message.
type Role string

// Chat roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single LLM chat message.
type Message struct {
	Role    Role
	Content string
}

// CallRequest is one LLM completion request.
type CallRequest struct {
	TenantID     string
	SystemPrompt string
	Messages     []Message
	Temperature  float64
	MaxTokens    int
}

// LLMCaller sends completion requests to an LLM.
// Call returns an error wrapping errors.ErrQuotaExceeded when the tenant budget is used up.
type LLMCaller interface {
	Call(ctx context.Context, req CallRequest) (string, error)
	Configured() bool
}

// FetchOptions bounds a single article fetch.
type FetchOptions struct {
	Timeout   time.Duration
	MaxLength int
}

// TextFetcher retrieves readable article text. An empty string with a nil error means no content.
type TextFetcher interface {
	FetchText(ctx context.Context, url string, opts FetchOptions) (string, error)
}

// MetricType groups metric events by subsystem.
type MetricType string

// Metric types.
const (
	MetricTypeDigest     MetricType = "digest"
	MetricTypeEnrichment MetricType = "enrichment"
	MetricTypeSummary    MetricType = "summary"
	MetricTypeQueue      MetricType = "queue"
	MetricTypeIngest     MetricType = "ingest"
	MetricTypeBuild      MetricType = "build"
)

// Metric statuses.
const (
	MetricStatusSuccess  = "success"
	MetricStatusFailure  = "failure"
	MetricStatusDegraded = "degraded"
)

// MetricEvent is a single record sent to a MetricsSink.
type MetricEvent struct {
	Type      MetricType
	Operation string
	Status    string
	Metadata  map[string]string
}

// MetricsSink records operational events.
type MetricsSink interface {
	Record(ctx context.Context, event MetricEvent)
}
