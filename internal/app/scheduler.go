package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/lueurxax/feed-digest/internal/core/domain"
	"github.com/lueurxax/feed-digest/internal/platform/jobqueue"
)

// BuildQueue runs digest builds one at a time.
type BuildQueue = jobqueue.Queue[domain.BuildRequest, *domain.DigestResult]

// ChannelLister lists the channels that have enabled sources.
type ChannelLister interface {
	ListChannels(ctx context.Context) ([]string, error)
}

// SchedulerOptions configures a Scheduler.
type SchedulerOptions struct {
	// Spec is a standard five-field cron expression.
	Spec   string
	Window time.Duration
	// TenantID is charged for the LLM calls of scheduled builds. Empty
	// charges each channel as its own tenant.
	TenantID string
}

// Scheduler enqueues a build for every channel on a cron schedule.
type Scheduler struct {
	queue    *BuildQueue
	channels ChannelLister
	opts     SchedulerOptions
	schedule cron.Schedule
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewScheduler(queue *BuildQueue, channels ChannelLister, opts SchedulerOptions, logger *zerolog.Logger) (*Scheduler, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	schedule, err := cron.ParseStandard(opts.Spec)
	if err != nil {
		return nil, fmt.Errorf("parse digest cron %q: %w", opts.Spec, err)
	}

	if opts.Window <= 0 {
		opts.Window = defaultWindow
	}

	return &Scheduler{
		queue:    queue,
		channels: channels,
		opts:     opts,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Run triggers builds on the schedule until ctx is done. It waits for a
// trigger in progress before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New()
	c.Schedule(s.schedule, cron.FuncJob(func() {
		if _, err := s.Trigger(ctx); err != nil {
			s.logger.Error().Err(err).Msg("scheduled digest trigger failed")
		}
	}))

	s.logger.Info().
		Str("cron", s.opts.Spec).
		Time("next_run", s.schedule.Next(s.now())).
		Msg("digest scheduler started")

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	return fmt.Errorf("digest scheduler: %w", ctx.Err())
}

// Trigger enqueues one build per channel for the window ending now. Build
// outcomes are logged when they settle; the returned handles can be awaited.
func (s *Scheduler) Trigger(ctx context.Context) ([]*jobqueue.Handle[*domain.DigestResult], error) {
	channels, err := s.channels.ListChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing channels: %w", err)
	}

	end := s.now().UTC().Truncate(time.Minute)
	start := end.Add(-s.opts.Window)

	handles := make([]*jobqueue.Handle[*domain.DigestResult], 0, len(channels))

	for _, channelID := range channels {
		req := domain.BuildRequest{
			ChannelID:   channelID,
			WindowStart: start,
			WindowEnd:   end,
			TenantID:    s.tenant(channelID),
		}

		h := s.queue.Enqueue(req)
		handles = append(handles, h)

		go s.report(ctx, req, h)
	}

	s.logger.Info().Int("channels", len(channels)).Time("window_end", end).Msg("scheduled digest builds")

	return handles, nil
}

func (s *Scheduler) report(ctx context.Context, req domain.BuildRequest, h *jobqueue.Handle[*domain.DigestResult]) {
	result, err := h.Wait(ctx)

	logger := s.logger.With().Str(logKeyChannelID, req.ChannelID).Str(logKeyJobID, h.ID).Logger()

	switch {
	case errors.Is(err, context.Canceled):
		logger.Debug().Msg("stopped waiting for scheduled build")
	case err != nil:
		logger.Error().Err(err).Msg("scheduled digest build failed")
	default:
		logger.Info().
			Str("digest_id", result.ID).
			Int("items", len(result.Items)).
			Str("fallback_reason", string(result.Meta.FallbackReason)).
			Msg("scheduled digest built")
	}
}

func (s *Scheduler) tenant(channelID string) string {
	if s.opts.TenantID != "" {
		return s.opts.TenantID
	}

	return channelID
}
