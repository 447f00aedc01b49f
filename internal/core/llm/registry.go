package llm

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/feed-digest/internal/platform/observability"
	"github.com/lueurxax/feed-digest/internal/platform/retry"
)

// Registry errors.
var (
	ErrNoProvidersAvailable = errors.New("no LLM providers available")
	ErrAllProvidersFailed   = errors.New("all LLM providers failed")
)

// Registry manages LLM providers with fallback support.
type Registry struct {
	mu              sync.RWMutex
	providers       map[ProviderName]Provider
	order           []ProviderName // Priority order (highest first)
	circuitBreakers map[ProviderName]*CircuitBreaker
	retry           retry.Config
	logger          *zerolog.Logger
}

// NewRegistry creates a new provider registry. Every provider call is retried
// on transient errors according to retryCfg before falling back.
func NewRegistry(retryCfg retry.Config, logger *zerolog.Logger) *Registry {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	return &Registry{
		providers:       make(map[ProviderName]Provider),
		order:           make([]ProviderName, 0),
		circuitBreakers: make(map[ProviderName]*CircuitBreaker),
		retry:           retryCfg,
		logger:          logger,
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider, cfg CircuitBreakerConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}

	r.providers[name] = p
	r.circuitBreakers[name] = NewCircuitBreaker(cfg)

	// Sort by priority (descending)
	r.sortProvidersByPriority()

	available := MetricValueUnavailable
	if p.IsAvailable() {
		available = MetricValueAvailable
	}

	observability.LLMProviderAvailable.WithLabelValues(string(name)).Set(available)

	r.logger.Info().
		Str(logKeyProvider, string(name)).
		Str(logKeyModel, p.Model()).
		Int("priority", p.Priority()).
		Msg("registered LLM provider")
}

// ProviderCount returns the number of registered providers.
func (r *Registry) ProviderCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.providers)
}

// Available reports whether at least one registered provider is configured.
func (r *Registry) Available() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.providers {
		if p.IsAvailable() {
			return true
		}
	}

	return false
}

// Complete sends req to the highest-priority provider whose circuit is
// closed, falling back down the priority order on failure.
func (r *Registry) Complete(ctx context.Context, req Request) (Completion, ProviderName, error) {
	r.mu.RLock()
	order := append([]ProviderName(nil), r.order...)
	r.mu.RUnlock()

	if len(order) == 0 {
		return Completion{}, "", ErrNoProvidersAvailable
	}

	var (
		lastErr       error
		firstFailed   ProviderName
		attemptedSome bool
	)

	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return Completion{}, "", err
		}

		completion, attempted, err := r.tryProvider(ctx, name, req)
		if !attempted {
			continue
		}

		if err != nil {
			lastErr = err

			if !attemptedSome {
				firstFailed = name
			}

			attemptedSome = true

			continue
		}

		if firstFailed != "" {
			observability.LLMFallbacks.WithLabelValues(string(firstFailed), string(name)).Inc()

			r.logger.Info().
				Str(logKeyProvider, string(name)).
				Str("from_provider", string(firstFailed)).
				Msg("used fallback LLM provider")
		}

		return completion, name, nil
	}

	if lastErr != nil {
		return Completion{}, "", errors.Join(ErrAllProvidersFailed, lastErr)
	}

	return Completion{}, "", ErrNoProvidersAvailable
}

// tryProvider runs one provider with retries. attempted is false when the
// provider was skipped without a call.
func (r *Registry) tryProvider(ctx context.Context, name ProviderName, req Request) (Completion, bool, error) {
	r.mu.RLock()
	p, exists := r.providers[name]
	cb := r.circuitBreakers[name]
	r.mu.RUnlock()

	if !exists || !p.IsAvailable() {
		return Completion{}, false, nil
	}

	if err := cb.Allow(); err != nil {
		observability.LLMCircuitBreakerState.WithLabelValues(string(name)).Set(MetricValueCBOpen)
		observability.LLMProviderAvailable.WithLabelValues(string(name)).Set(MetricValueUnavailable)

		r.logger.Debug().
			Err(err).
			Str(logKeyProvider, string(name)).
			Msg(logMsgCircuitBreakerOpen)

		return Completion{}, false, nil
	}

	model := p.Model()
	start := time.Now()

	completion, err := retry.DoValue(ctx, r.retry, func(ctx context.Context) (Completion, error) {
		return p.Complete(ctx, req)
	})

	duration := time.Since(start)

	observability.LLMRequestLatency.WithLabelValues(string(name), model).Observe(duration.Seconds())

	if err != nil {
		observability.LLMRequests.WithLabelValues(string(name), model, StatusError).Inc()

		if cb.Failure() {
			observability.LLMCircuitBreakerOpens.WithLabelValues(string(name)).Inc()
			observability.LLMCircuitBreakerState.WithLabelValues(string(name)).Set(MetricValueCBOpen)
			observability.LLMProviderAvailable.WithLabelValues(string(name)).Set(MetricValueUnavailable)

			r.logger.Warn().
				Str(logKeyProvider, string(name)).
				Msg("LLM circuit breaker opened")
		}

		r.logger.Warn().
			Err(err).
			Str(logKeyProvider, string(name)).
			Str(logKeyModel, model).
			Float64("duration_seconds", duration.Seconds()).
			Msg("LLM provider failed, trying fallback")

		return Completion{}, true, err
	}

	cb.Success()

	observability.LLMCircuitBreakerState.WithLabelValues(string(name)).Set(MetricValueCBClosed)
	observability.LLMProviderAvailable.WithLabelValues(string(name)).Set(MetricValueAvailable)
	observability.LLMRequests.WithLabelValues(string(name), completion.Model, StatusSuccess).Inc()
	observability.LLMTokensPrompt.WithLabelValues(string(name), completion.Model).Add(float64(completion.PromptTokens))
	observability.LLMTokensCompletion.WithLabelValues(string(name), completion.Model).Add(float64(completion.CompletionTokens))

	return completion, true, nil
}

// sortProvidersByPriority sorts providers by priority in descending order.
func (r *Registry) sortProvidersByPriority() {
	sort.SliceStable(r.order, func(i, j int) bool {
		pi := r.providers[r.order[i]].Priority()
		pj := r.providers[r.order[j]].Priority()

		return pi > pj
	})
}

// ProviderStatus holds status information for a provider.
type ProviderStatus struct {
	Name      ProviderName
	Model     string
	Priority  int
	Available bool
	Circuit   BreakerState
}

// GetProviderStatuses returns status information for all registered providers.
func (r *Registry) GetProviderStatuses() []ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]ProviderStatus, 0, len(r.order))

	for _, name := range r.order {
		p := r.providers[name]
		cb := r.circuitBreakers[name]

		statuses = append(statuses, ProviderStatus{
			Name:      name,
			Model:     p.Model(),
			Priority:  p.Priority(),
			Available: p.IsAvailable(),
			Circuit:   cb.State(),
		})
	}

	return statuses
}
