// Package enrichment fills in the full article text of digest items before
// summarization.
//
// Fetches run through a bounded pool with a hard per-call timeout. A failed,
// timed out or error-page fetch only degrades its own item, which then keeps
// its feed snippet.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/feed-digest/internal/core/cache"
	"github.com/lueurxax/feed-digest/internal/core/domain"
	coreerrors "github.com/lueurxax/feed-digest/internal/core/errors"
	"github.com/lueurxax/feed-digest/internal/core/ports"
)

// Defaults applied to zero Options fields.
const (
	DefaultConcurrency = 3
	DefaultTimeout     = 8 * time.Second
	DefaultMaxLength   = 12000

	logKeyURL = "url"
)

var errNoText = errors.New("no readable text")

// Options configures an Enricher.
type Options struct {
	Concurrency int
	Timeout     time.Duration
	MaxLength   int
	SkipHosts   []string
}

// Stats counts what happened to the items of one Enrich call.
type Stats struct {
	Candidates int
	Skipped    int
	CacheHits  int
	Fetched    int
	Timeouts   int
	Failed     int
	ErrorPages int
	// LastError describes the most recent degraded fetch, empty when none.
	LastError string
}

// Enriched is the number of items that received full text.
func (s Stats) Enriched() int {
	return s.CacheHits + s.Fetched
}

// Enricher fetches the full text of items that only carry a feed snippet.
type Enricher struct {
	fetcher  ports.TextFetcher
	cache    cache.ArticleCache
	skipList *SkipList
	metrics  ports.MetricsSink
	logger   *zerolog.Logger
	opts     Options
}

// NewEnricher creates an Enricher. A nil cache is replaced by an in-process
// one; a nil metrics sink disables event recording.
func NewEnricher(fetcher ports.TextFetcher, articleCache cache.ArticleCache, metrics ports.MetricsSink, opts Options, logger *zerolog.Logger) *Enricher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}

	if articleCache == nil {
		articleCache = cache.NewMemory(cache.DefaultTTL)
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Enricher{
		fetcher:  fetcher,
		cache:    articleCache,
		skipList: NewSkipList(opts.SkipHosts),
		metrics:  metrics,
		logger:   logger,
		opts:     opts,
	}
}

// Enrich fills RawContent for every item that lacks it. Items are updated in place.
func (e *Enricher) Enrich(ctx context.Context, items []domain.ContentItem) Stats {
	var (
		stats counters
		wg    sync.WaitGroup
	)

	sem := make(chan struct{}, e.opts.Concurrency)

	for i := range items {
		if items[i].RawContent != "" {
			continue
		}

		stats.candidates.Add(1)

		if e.skipList.Skips(items[i].URL) {
			stats.skipped.Add(1)
			continue
		}

		if text, ok := e.cache.Get(ctx, items[i].URL); ok {
			items[i].RawContent = text
			items[i].Enriched = true

			stats.cacheHits.Add(1)

			continue
		}

		wg.Add(1)

		go func(item *domain.ContentItem) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				stats.failed.Add(1)
				stats.noteError(item.URL, ctx.Err())

				return
			}
			defer func() { <-sem }()

			e.fetchItem(ctx, item, &stats)
		}(&items[i])
	}

	wg.Wait()

	result := stats.snapshot()
	e.record(ctx, result)

	return result
}

func (e *Enricher) fetchItem(ctx context.Context, item *domain.ContentItem, stats *counters) {
	text, err := e.fetch(ctx, item.URL)
	if err != nil {
		switch {
		case errors.Is(err, coreerrors.ErrFetchTimeout):
			stats.timeouts.Add(1)
		case errors.Is(err, coreerrors.ErrProviderErrorPage):
			stats.errorPages.Add(1)
		default:
			stats.failed.Add(1)
		}

		stats.noteError(item.URL, err)

		e.logger.Debug().Err(err).Str(logKeyURL, item.URL).Msg("article fetch degraded to snippet")

		return
	}

	if text == "" {
		stats.failed.Add(1)
		stats.noteError(item.URL, errNoText)

		return
	}

	e.cache.Set(ctx, item.URL, text)

	item.RawContent = text
	item.Enriched = true

	stats.fetched.Add(1)
}

func (e *Enricher) fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	text, err := e.fetcher.FetchText(ctx, url, ports.FetchOptions{
		Timeout:   e.opts.Timeout,
		MaxLength: e.opts.MaxLength,
	})
	if err != nil {
		if !errors.Is(err, coreerrors.ErrFetchTimeout) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", coreerrors.ErrFetchTimeout, err)
		}

		return "", err
	}

	if isErrorPage(text) {
		return "", coreerrors.ErrProviderErrorPage
	}

	return text, nil
}

func (e *Enricher) record(ctx context.Context, stats Stats) {
	if e.metrics == nil || stats.Candidates == 0 {
		return
	}

	status := ports.MetricStatusSuccess
	if stats.Timeouts+stats.Failed+stats.ErrorPages > 0 {
		status = ports.MetricStatusDegraded
	}

	metadata := map[string]string{
		"candidates":  strconv.Itoa(stats.Candidates),
		"skipped":     strconv.Itoa(stats.Skipped),
		"cache_hits":  strconv.Itoa(stats.CacheHits),
		"fetched":     strconv.Itoa(stats.Fetched),
		"timeouts":    strconv.Itoa(stats.Timeouts),
		"failed":      strconv.Itoa(stats.Failed),
		"error_pages": strconv.Itoa(stats.ErrorPages),
	}

	if stats.LastError != "" {
		metadata["error"] = stats.LastError
	}

	e.metrics.Record(ctx, ports.MetricEvent{
		Type:      ports.MetricTypeEnrichment,
		Operation: "enrich",
		Status:    status,
		Metadata:  metadata,
	})
}

type counters struct {
	candidates atomic.Int32
	skipped    atomic.Int32
	cacheHits  atomic.Int32
	fetched    atomic.Int32
	timeouts   atomic.Int32
	failed     atomic.Int32
	errorPages atomic.Int32
	lastErr    atomic.Value // string
}

func (c *counters) noteError(url string, err error) {
	c.lastErr.Store(url + ": " + err.Error())
}

func (c *counters) snapshot() Stats {
	lastErr, _ := c.lastErr.Load().(string)

	return Stats{
		Candidates: int(c.candidates.Load()),
		Skipped:    int(c.skipped.Load()),
		CacheHits:  int(c.cacheHits.Load()),
		Fetched:    int(c.fetched.Load()),
		Timeouts:   int(c.timeouts.Load()),
		Failed:     int(c.failed.Load()),
		ErrorPages: int(c.errorPages.Load()),
		LastError:  lastErr,
	}
}
