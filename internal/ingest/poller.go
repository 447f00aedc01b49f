// Package ingest polls the feeds of enabled sources and stores their entries
// as feed items. Poll failures are recorded on the source so digests can
// report them.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/feed-digest/internal/core/domain"
	"github.com/lueurxax/feed-digest/internal/platform/observability"
	"github.com/lueurxax/feed-digest/internal/platform/worker"
)

const (
	defaultFeedTimeout  = 20 * time.Second
	defaultRetention    = 30 * 24 * time.Hour
	defaultPollInterval = 15 * time.Minute
	pruneInterval       = time.Hour

	statusSuccess = "success"
	statusError   = "error"

	logKeySource = "source"
	logKeyFeed   = "feed_url"

	workerName = "ingest"
)

// Store is the storage the poller reads sources from and writes items to.
type Store interface {
	ListAllEnabledSources(ctx context.Context) ([]domain.Source, error)
	UpsertItems(ctx context.Context, sourceID string, items []domain.FeedItem) (int, error)
	RecordSourceError(ctx context.Context, sourceID, message string, at time.Time) error
	ClearSourceError(ctx context.Context, sourceID string, at time.Time) error
	PruneItemsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// FeedFetcher downloads a feed body. links.WebFetcher satisfies it.
type FeedFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Options configures a Poller.
type Options struct {
	PollInterval time.Duration
	FeedTimeout  time.Duration
	MaxItems     int
	Retention    time.Duration
}

// PollStats summarizes one pass over all sources.
type PollStats struct {
	Sources  int
	Failed   int
	NewItems int
}

type Poller struct {
	store   Store
	fetcher FeedFetcher
	opts    Options
	logger  *zerolog.Logger
	now     func() time.Time
}

func NewPoller(store Store, fetcher FeedFetcher, opts Options, logger *zerolog.Logger) *Poller {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}

	if opts.FeedTimeout <= 0 {
		opts.FeedTimeout = defaultFeedTimeout
	}

	if opts.Retention <= 0 {
		opts.Retention = defaultRetention
	}

	return &Poller{
		store:   store,
		fetcher: fetcher,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// Run polls on the configured interval and prunes old items hourly until
// ctx is done. A failed pass is logged and the loop keeps going.
func (p *Poller) Run(ctx context.Context) error {
	return worker.Loop(ctx, worker.Config{
		Name:         workerName,
		PollInterval: p.opts.PollInterval,
		Process: func(ctx context.Context) error {
			_, err := p.PollOnce(ctx)
			return err
		},
		PeriodicTasks: []worker.PeriodicTask{
			{Name: "prune-items", Interval: pruneInterval, Run: p.Prune},
		},
		OnError: func(err error) bool {
			p.logger.Error().Err(err).Msg("ingest pass failed")
			return true
		},
		Logger: p.logger,
	})
}

// PollOnce polls every enabled source once. Only a failure to list sources
// is returned; per-source failures are recorded on the source.
func (p *Poller) PollOnce(ctx context.Context) (PollStats, error) {
	sources, err := p.store.ListAllEnabledSources(ctx)
	if err != nil {
		return PollStats{}, fmt.Errorf("listing sources: %w", err)
	}

	stats := PollStats{Sources: len(sources)}

	for _, source := range sources {
		if ctx.Err() != nil {
			return stats, fmt.Errorf("polling sources: %w", ctx.Err())
		}

		inserted, err := p.pollSource(ctx, source)
		if err != nil {
			stats.Failed++

			p.markFailed(ctx, source, err)

			continue
		}

		stats.NewItems += inserted

		if err := p.store.ClearSourceError(ctx, source.ID, p.now()); err != nil {
			p.logger.Warn().Err(err).Str(logKeySource, source.ID).Msg("failed to clear source error")
		}
	}

	p.logger.Info().
		Int("sources", stats.Sources).
		Int("failed", stats.Failed).
		Int("new_items", stats.NewItems).
		Msg("ingest pass finished")

	return stats, nil
}

func (p *Poller) pollSource(ctx context.Context, source domain.Source) (int, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.opts.FeedTimeout)
	defer cancel()

	body, err := p.fetcher.Fetch(fetchCtx, source.FeedURL)
	if err != nil {
		return 0, err
	}

	items, err := ParseFeed(body, p.now(), p.opts.MaxItems)
	if err != nil {
		return 0, err
	}

	inserted, err := p.store.UpsertItems(ctx, source.ID, items)
	if err != nil {
		return 0, fmt.Errorf("storing items: %w", err)
	}

	observability.IngestPolls.WithLabelValues(statusSuccess).Inc()
	observability.ItemsIngested.WithLabelValues(sourceLabel(source)).Add(float64(inserted))

	p.logger.Debug().
		Str(logKeySource, sourceLabel(source)).
		Int("entries", len(items)).
		Int("new_items", inserted).
		Msg("source polled")

	return inserted, nil
}

func (p *Poller) markFailed(ctx context.Context, source domain.Source, pollErr error) {
	observability.IngestPolls.WithLabelValues(statusError).Inc()

	p.logger.Warn().
		Err(pollErr).
		Str(logKeySource, sourceLabel(source)).
		Str(logKeyFeed, source.FeedURL).
		Msg("source poll failed")

	if err := p.store.RecordSourceError(ctx, source.ID, pollErr.Error(), p.now()); err != nil {
		p.logger.Warn().Err(err).Str(logKeySource, source.ID).Msg("failed to record source error")
	}
}

// Prune deletes items older than the retention period.
func (p *Poller) Prune(ctx context.Context) error {
	removed, err := p.store.PruneItemsBefore(ctx, p.now().Add(-p.opts.Retention))
	if err != nil {
		return fmt.Errorf("pruning items: %w", err)
	}

	if removed > 0 {
		p.logger.Info().Int64("removed", removed).Msg("pruned old items")
	}

	return nil
}

func sourceLabel(source domain.Source) string {
	if source.Name != "" {
		return source.Name
	}

	return source.ID
}
