package domain

import "time"

// Source is a feed that contributes items to a channel's digest.
type Source struct {
	ID          string
	ChannelID   string
	Name        string
	FeedURL     string
	Enabled     bool
	LastError   string
	LastErrorAt *time.Time
}

// BuildRequest is the input of a single digest build.
type BuildRequest struct {
	ChannelID   string
	WindowStart time.Time
	WindowEnd   time.Time
	TenantID    string
}

// ContentItem is a per-build working copy of a feed item.
// It is mutated in place by enrichment and summarization and discarded after the build.
type ContentItem struct {
	Source           string
	Title            string
	URL              string // canonical, identity key
	PublishedAt      *time.Time
	RawContent       string
	Snippet          string
	Summary          string
	Enriched         bool
	HasUsableContent bool
}

// FeedItem is an item stored by the ingest poller.
type FeedItem struct {
	ID          string
	SourceID    string
	Title       string
	URL         string
	Snippet     string
	PublishedAt *time.Time
	FetchedAt   time.Time
}

// FallbackReason explains why a digest's summaries did not come purely from the LLM path.
type FallbackReason string

// Fallback reasons. The empty reason means the LLM path fully succeeded.
const (
	FallbackNone          FallbackReason = ""
	FallbackDisabled      FallbackReason = "llm-disabled"
	FallbackMissingConfig FallbackReason = "llm-missing-config"
	FallbackNoFullText    FallbackReason = "llm-no-fulltext"
	FallbackEmpty         FallbackReason = "llm-empty"
	FallbackFailed        FallbackReason = "llm-failed"
	FallbackPartial       FallbackReason = "llm-partial"
)

// SummaryMeta records how the summaries of one build were produced. Written once per build.
type SummaryMeta struct {
	LLMEnabled            bool
	LLMUsed               bool
	LLMItems              int
	SkippedLLMItems       int
	FetchedFullText       int
	FallbackReason        FallbackReason
	MissingContentSources []string
}

// SourceUpdate names a source that contributed new items to a digest.
type SourceUpdate struct {
	Name      string
	ItemCount int
}

// SourceFailure names a source that could not be read, with the reason.
type SourceFailure struct {
	Name   string
	Reason string
}

// DigestResult is the immutable outcome of a build.
type DigestResult struct {
	ID             string
	ChannelID      string
	WindowStart    time.Time
	WindowEnd      time.Time
	Items          []ContentItem
	UpdatedSources []SourceUpdate
	FailedSources  []SourceFailure
	Meta           SummaryMeta
	Overview       string
}
