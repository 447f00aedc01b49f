package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	coreerrors "github.com/lueurxax/feed-digest/internal/core/errors"
	"github.com/lueurxax/feed-digest/internal/core/ports"
	"github.com/lueurxax/feed-digest/internal/platform/observability"
)

var _ ports.LLMCaller = (*Service)(nil)

// ServiceOptions configures the quota, pacing and deadline of a Service.
type ServiceOptions struct {
	// DailyQuota is the per-tenant soft limit on requests per day. Zero disables it.
	DailyQuota   int
	RateLimitRPS float64
	Timeout      time.Duration
	MaxTokens    int
}

// Service is the LLMCaller used by the summarizer. It enforces the tenant's
// daily quota, paces requests, and records usage after each success.
type Service struct {
	registry *Registry
	usage    ports.UsageStore
	limiter  *rate.Limiter
	opts     ServiceOptions
	logger   *zerolog.Logger
	closers  []func() error
}

func NewService(registry *Registry, usage ports.UsageStore, opts ServiceOptions, logger *zerolog.Logger) *Service {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultCallTimeout
	}

	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}

	limit := rate.Inf
	if opts.RateLimitRPS > 0 {
		limit = rate.Limit(opts.RateLimitRPS)
	}

	return &Service{
		registry: registry,
		usage:    usage,
		limiter:  rate.NewLimiter(limit, rateLimiterBurst),
		opts:     opts,
		logger:   logger,
	}
}

// Configured reports whether any provider can serve requests.
func (s *Service) Configured() bool {
	return s.registry != nil && s.registry.Available()
}

// Close releases provider clients that hold connections.
func (s *Service) Close() error {
	var errs []error

	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Providers returns the status of the registered providers.
func (s *Service) Providers() []ProviderStatus {
	if s.registry == nil {
		return nil
	}

	return s.registry.GetProviderStatuses()
}

// Call runs one completion for req.TenantID. The quota check and the usage
// increment are separate store calls, so concurrent builds of one tenant may
// overshoot the quota slightly.
func (s *Service) Call(ctx context.Context, req ports.CallRequest) (string, error) {
	if !s.Configured() {
		return "", coreerrors.ErrLLMNotConfigured
	}

	if err := s.checkQuota(ctx, req.TenantID); err != nil {
		return "", err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf(errRateLimiter, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.opts.MaxTokens
	}

	completion, provider, err := s.registry.Complete(callCtx, Request{
		SystemPrompt: req.SystemPrompt,
		Messages:     req.Messages,
		Temperature:  req.Temperature,
		MaxTokens:    maxTokens,
	})
	if err != nil {
		return "", err
	}

	s.recordUsage(ctx, req.TenantID, provider, completion)

	return strings.TrimSpace(completion.Text), nil
}

func (s *Service) checkQuota(ctx context.Context, tenantID string) error {
	if s.usage == nil || s.opts.DailyQuota <= 0 {
		return nil
	}

	used, err := s.usage.GetDailyRequests(ctx, tenantID)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// An unreadable counter does not block summaries.
		s.logger.Warn().Err(err).Str(logKeyTenant, tenantID).Msg("failed to read LLM usage, skipping quota check")

		return nil
	}

	if used >= s.opts.DailyQuota {
		observability.LLMQuotaRejections.Inc()

		return fmt.Errorf("%w: %d of %d requests used", coreerrors.ErrQuotaExceeded, used, s.opts.DailyQuota)
	}

	return nil
}

func (s *Service) recordUsage(ctx context.Context, tenantID string, provider ProviderName, completion Completion) {
	if s.usage == nil {
		return
	}

	if err := s.usage.IncrementRequests(ctx, tenantID, string(provider), completion.Model,
		completion.PromptTokens, completion.CompletionTokens); err != nil {
		s.logger.Warn().Err(err).
			Str(logKeyTenant, tenantID).
			Str(logKeyProvider, string(provider)).
			Msg("failed to record LLM usage")
	}
}
