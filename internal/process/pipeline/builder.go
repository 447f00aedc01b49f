// Package pipeline runs one digest build: it loads the window's items, then
// enriches, summarizes and assembles them. Builds are not retried here;
// retries live in the network and LLM layers below.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/feed-digest/internal/core/domain"
	coreerrors "github.com/lueurxax/feed-digest/internal/core/errors"
	"github.com/lueurxax/feed-digest/internal/core/links"
	"github.com/lueurxax/feed-digest/internal/core/ports"
	"github.com/lueurxax/feed-digest/internal/output/digest"
	"github.com/lueurxax/feed-digest/internal/platform/observability"
	"github.com/lueurxax/feed-digest/internal/process/enrichment"
)

const (
	defaultMaxItemsPerSource = 10

	logKeyChannelID     = "channel_id"
	logKeyCorrelationID = "correlation_id"
	logKeyStage         = "stage"
	logKeySource        = "source"
)

// Enricher fills in full article text before summarization.
type Enricher interface {
	Enrich(ctx context.Context, items []domain.ContentItem) enrichment.Stats
}

// Summarizer writes item summaries and reports how they were produced.
type Summarizer interface {
	Summarize(ctx context.Context, tenantID string, items []domain.ContentItem) domain.SummaryMeta
}

// Assembler orders, renders and persists the digest.
type Assembler interface {
	Assemble(ctx context.Context, in digest.AssembleInput) (*domain.DigestResult, error)
}

// Options configures a Builder.
type Options struct {
	MaxItemsPerSource int
	// OnStage, when set, observes every stage transition.
	OnStage func(req domain.BuildRequest, stage Stage)
}

// Builder turns a BuildRequest into a persisted digest.
type Builder struct {
	items      ports.ItemStore
	enricher   Enricher
	summarizer Summarizer
	assembler  Assembler
	metrics    ports.MetricsSink
	opts       Options
	logger     *zerolog.Logger
}

// New creates a Builder. metrics may be nil.
func New(items ports.ItemStore, enricher Enricher, summarizer Summarizer, assembler Assembler, metrics ports.MetricsSink, opts Options, logger *zerolog.Logger) *Builder {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if opts.MaxItemsPerSource <= 0 {
		opts.MaxItemsPerSource = defaultMaxItemsPerSource
	}

	return &Builder{
		items:      items,
		enricher:   enricher,
		summarizer: summarizer,
		assembler:  assembler,
		metrics:    metrics,
		opts:       opts,
		logger:     logger,
	}
}

// Build produces the digest of req. Per-item fetch and LLM failures degrade
// the result; loading failures and persistence failures fail the build.
func (b *Builder) Build(ctx context.Context, req domain.BuildRequest) (*domain.DigestResult, error) {
	logger := b.logger.With().
		Str(logKeyChannelID, req.ChannelID).
		Str(logKeyCorrelationID, uuid.NewString()).
		Logger()

	result, err := b.build(ctx, req, &logger)
	if err != nil {
		b.transition(req, StageFailed, &logger)
		logger.Error().Err(err).Msg("digest build failed")
		b.recordFailure(ctx, req, err)

		return nil, err
	}

	b.transition(req, StageDone, &logger)

	return result, nil
}

func (b *Builder) build(ctx context.Context, req domain.BuildRequest, logger *zerolog.Logger) (*domain.DigestResult, error) {
	b.transition(req, StageQueued, logger)

	if err := validate(req); err != nil {
		return nil, err
	}

	items, failed, err := b.load(ctx, req, logger)
	if err != nil {
		return nil, err
	}

	b.transition(req, StageEnriching, logger)

	stats := b.enricher.Enrich(ctx, items)

	logger.Info().
		Int("items", len(items)).
		Int("enriched", stats.Enriched()).
		Int("fetch_failures", stats.Failed+stats.Timeouts+stats.ErrorPages).
		Msg("items enriched")

	b.transition(req, StageSummarizing, logger)

	meta := b.summarizer.Summarize(ctx, req.TenantID, items)

	logger.Info().
		Bool("llm_used", meta.LLMUsed).
		Str("fallback_reason", string(meta.FallbackReason)).
		Msg("items summarized")

	b.transition(req, StageAssembling, logger)

	return b.assembler.Assemble(ctx, digest.AssembleInput{
		Request:       req,
		Items:         items,
		FailedSources: failed,
		Meta:          meta,
	})
}

// load collects the window's items of every enabled source. A source that
// failed its last poll or whose items cannot be read is reported as failed;
// its stored items are still used.
func (b *Builder) load(ctx context.Context, req domain.BuildRequest, logger *zerolog.Logger) ([]domain.ContentItem, []domain.SourceFailure, error) {
	sources, err := b.items.ListEnabledSources(ctx, req.ChannelID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing sources of channel %s: %w", req.ChannelID, err)
	}

	var (
		items  []domain.ContentItem
		failed []domain.SourceFailure
	)

	for _, source := range sources {
		name := sourceName(source)

		if source.LastError != "" {
			failed = append(failed, domain.SourceFailure{Name: name, Reason: source.LastError})
		}

		feedItems, err := b.items.ListItemsInWindow(ctx, source.ID, req.WindowStart, req.WindowEnd, b.opts.MaxItemsPerSource)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, fmt.Errorf("loading items: %w", ctx.Err())
			}

			logger.Warn().Err(err).Str(logKeySource, name).Msg("failed to load source items")

			if source.LastError == "" {
				failed = append(failed, domain.SourceFailure{Name: name, Reason: err.Error()})
			}

			continue
		}

		for _, fi := range feedItems {
			items = append(items, toContentItem(name, fi))
		}
	}

	logger.Info().Int("sources", len(sources)).Int("items", len(items)).Int("failed_sources", len(failed)).Msg("items loaded")

	return items, failed, nil
}

func (b *Builder) transition(req domain.BuildRequest, stage Stage, logger *zerolog.Logger) {
	observability.BuildStage.WithLabelValues(string(stage)).Inc()
	logger.Debug().Str(logKeyStage, string(stage)).Msg("build stage")

	if b.opts.OnStage != nil {
		b.opts.OnStage(req, stage)
	}
}

func (b *Builder) recordFailure(ctx context.Context, req domain.BuildRequest, err error) {
	if b.metrics == nil {
		return
	}

	b.metrics.Record(ctx, ports.MetricEvent{
		Type:      ports.MetricTypeBuild,
		Operation: "build",
		Status:    ports.MetricStatusFailure,
		Metadata: map[string]string{
			"channel_id": req.ChannelID,
			"error":      err.Error(),
		},
	})
}

func validate(req domain.BuildRequest) error {
	if req.ChannelID == "" {
		return fmt.Errorf("%w: channel id is required", coreerrors.ErrInvalidInput)
	}

	if !req.WindowEnd.After(req.WindowStart) {
		return fmt.Errorf("%w: %s is not after %s", coreerrors.ErrInvalidWindow, req.WindowEnd, req.WindowStart)
	}

	return nil
}

func sourceName(source domain.Source) string {
	if source.Name != "" {
		return source.Name
	}

	if host := links.Host(source.FeedURL); host != "" {
		return host
	}

	return source.ID
}

func toContentItem(source string, fi domain.FeedItem) domain.ContentItem {
	return domain.ContentItem{
		Source:      source,
		Title:       fi.Title,
		URL:         links.Canonical(fi.URL),
		PublishedAt: fi.PublishedAt,
		Snippet:     fi.Snippet,
	}
}
