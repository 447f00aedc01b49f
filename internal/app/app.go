// Package app provides the main application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods to run
// different operational modes:
//
//   - Serve mode: feed ingest, cron-scheduled digest builds and the health server
//   - Ingest mode: feed polling only
//   - Build mode: one digest build for a single channel, then exit
//
// Digest builds always go through the single-worker build queue.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/feed-digest/internal/core/cache"
	"github.com/lueurxax/feed-digest/internal/core/domain"
	"github.com/lueurxax/feed-digest/internal/core/links"
	"github.com/lueurxax/feed-digest/internal/core/llm"
	"github.com/lueurxax/feed-digest/internal/ingest"
	"github.com/lueurxax/feed-digest/internal/output/digest"
	"github.com/lueurxax/feed-digest/internal/platform/config"
	"github.com/lueurxax/feed-digest/internal/platform/jobqueue"
	"github.com/lueurxax/feed-digest/internal/platform/observability"
	"github.com/lueurxax/feed-digest/internal/platform/retry"
	"github.com/lueurxax/feed-digest/internal/process/enrichment"
	"github.com/lueurxax/feed-digest/internal/process/pipeline"
	"github.com/lueurxax/feed-digest/internal/process/summarize"
	db "github.com/lueurxax/feed-digest/internal/storage"
)

const (
	defaultWindow = 24 * time.Hour

	logKeyChannelID = "channel_id"
	logKeyJobID     = "job_id"

	msgIngestStopped    = "ingest poller stopped"
	msgSchedulerStopped = "digest scheduler stopped"
)

// ErrChannelRequired is returned by RunBuild without a channel.
var ErrChannelRequired = errors.New("channel is required")

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
}

// BuildOptions selects the digest built by RunBuild.
type BuildOptions struct {
	ChannelID string
	Window    time.Duration
	TenantID  string
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	srv := observability.NewServer(a.cfg.HealthPort, a.logger, observability.ReadinessCheck{Name: "postgres", Ping: a.database})

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// RunServe polls feeds and builds digests on the configured schedule until
// ctx is done.
func (a *App) RunServe(ctx context.Context) error {
	a.logger.Info().Msg("Starting serve mode")

	queue, cleanup := a.newBuildQueue(ctx)
	defer cleanup()

	scheduler, err := NewScheduler(queue, a.database, SchedulerOptions{
		Spec:     a.cfg.DigestConfig.Cron,
		Window:   a.cfg.DigestConfig.Window,
		TenantID: a.cfg.DigestConfig.DefaultTenant,
	}, a.logger)
	if err != nil {
		return err
	}

	go a.runIngest(ctx)

	if err := scheduler.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			a.logger.Info().Msg(msgSchedulerStopped)
		}

		return err
	}

	return nil
}

// RunIngest polls feeds until ctx is done.
func (a *App) RunIngest(ctx context.Context) error {
	a.logger.Info().Msg("Starting ingest mode")

	if err := a.newPoller().Run(ctx); err != nil {
		return fmt.Errorf("ingest run: %w", err)
	}

	return nil
}

func (a *App) runIngest(ctx context.Context) {
	if err := a.newPoller().Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			a.logger.Info().Msg(msgIngestStopped)
			return
		}

		a.logger.Warn().Err(err).Msg(msgIngestStopped)
	}
}

// RunBuild builds one digest for the window ending now and returns it.
func (a *App) RunBuild(ctx context.Context, opts BuildOptions) (*domain.DigestResult, error) {
	if opts.ChannelID == "" {
		return nil, ErrChannelRequired
	}

	if opts.Window <= 0 {
		opts.Window = a.cfg.DigestConfig.Window
	}

	if opts.TenantID == "" {
		opts.TenantID = a.cfg.DigestConfig.DefaultTenant
	}

	if opts.TenantID == "" {
		opts.TenantID = opts.ChannelID
	}

	queue, cleanup := a.newBuildQueue(ctx)
	defer cleanup()

	end := time.Now().UTC()

	h := queue.Enqueue(domain.BuildRequest{
		ChannelID:   opts.ChannelID,
		WindowStart: end.Add(-opts.Window),
		WindowEnd:   end,
		TenantID:    opts.TenantID,
	})

	result, err := h.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("digest build %s: %w", h.ID, err)
	}

	return result, nil
}

// newBuildQueue wires the build pipeline into a job queue. The cleanup
// function shuts the queue down and releases the LLM and cache clients.
func (a *App) newBuildQueue(ctx context.Context) (*BuildQueue, func()) {
	articleCache, closeCache := a.newArticleCache()
	recorder := observability.NewRecorder(a.logger)

	web := links.NewWebFetcher(links.WebFetcherOptions{
		RPS:       a.cfg.FetchConfig.RPS,
		Timeout:   a.cfg.FetchConfig.Timeout,
		UserAgent: a.cfg.FetchConfig.UserAgent,
		Retry:     retry.FromConfig(&a.cfg.RetryConfig),
	})

	enricher := enrichment.NewEnricher(links.NewArticleFetcher(web), articleCache, recorder, enrichment.Options{
		Concurrency: a.cfg.FetchConfig.Concurrency,
		Timeout:     a.cfg.FetchConfig.Timeout,
		MaxLength:   a.cfg.FetchConfig.MaxLength,
		SkipHosts:   config.SplitList(a.cfg.FetchConfig.SkipHosts),
	}, a.logger)

	llmService := llm.New(ctx, a.cfg, a.database, a.logger)

	summarizer := summarize.New(llmService, recorder, summarize.Options{
		Enabled:         a.cfg.LLMConfig.Enabled,
		BatchSize:       a.cfg.SummaryConfig.BatchSize,
		MinContentChars: a.cfg.SummaryConfig.MinContentChars,
		MaxChars:        a.cfg.SummaryConfig.MaxChars,
		LLMInputChars:   a.cfg.SummaryConfig.LLMInputChars,
		MissingNotice:   a.cfg.SummaryConfig.MissingNotice,
		Temperature:     a.cfg.LLMConfig.Temperature,
		MaxTokens:       a.cfg.LLMConfig.MaxTokens,
	}, a.logger)

	assembler := digest.New(a.database, recorder, digest.Options{
		SourceCap: a.cfg.DigestConfig.OverviewSourceCap,
	}, a.logger)

	builder := pipeline.New(a.database, enricher, summarizer, assembler, recorder, pipeline.Options{
		MaxItemsPerSource: a.cfg.DigestConfig.MaxItemsPerSource,
	}, a.logger)

	queue := jobqueue.New[domain.BuildRequest, *domain.DigestResult](a.logger)
	queue.SetProcessor(builder.Build)

	return queue, func() {
		queue.Shutdown()
		closeCache()

		if err := llmService.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("failed to close LLM clients")
		}
	}
}

// newArticleCache returns the shared Redis cache when an address is
// configured, and the in-process cache otherwise. A Redis that cannot be
// reached falls back to the in-process cache.
func (a *App) newArticleCache() (cache.ArticleCache, func()) {
	return newArticleCache(&a.cfg.CacheConfig, a.logger)
}

func newArticleCache(cfg *config.CacheConfig, logger *zerolog.Logger) (cache.ArticleCache, func()) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if cfg.RedisAddress == "" {
		return cache.NewMemory(cfg.ArticleTTL), func() {}
	}

	redisCache, err := cache.NewRedis(cache.RedisConfig{
		Address:  cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.RedisPrefix,
		TTL:      cfg.ArticleTTL,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("redis article cache unavailable, using in-process cache")

		return cache.NewMemory(cfg.ArticleTTL), func() {}
	}

	return redisCache, func() {
		if err := redisCache.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close redis article cache")
		}
	}
}

func (a *App) newPoller() *ingest.Poller {
	web := links.NewWebFetcher(links.WebFetcherOptions{
		RPS:       a.cfg.FetchConfig.RPS,
		Timeout:   a.cfg.IngestConfig.FeedTimeout,
		UserAgent: a.cfg.IngestConfig.UserAgent,
		Retry:     retry.FromConfig(&a.cfg.RetryConfig),
	})

	return ingest.NewPoller(a.database, web, ingest.Options{
		PollInterval: a.cfg.IngestConfig.PollInterval,
		FeedTimeout:  a.cfg.IngestConfig.FeedTimeout,
		MaxItems:     a.cfg.IngestConfig.MaxItems,
		Retention:    a.cfg.IngestConfig.Retention,
	}, a.logger)
}
