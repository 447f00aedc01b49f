// Package llm talks to chat-completion providers. A Registry orders the
// configured providers by priority and falls back across them behind
// per-provider circuit breakers; a Service wraps the registry with the
// per-tenant daily quota, request pacing and usage accounting.
package llm

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lueurxax/feed-digest/internal/core/ports"
	"github.com/lueurxax/feed-digest/internal/platform/config"
	"github.com/lueurxax/feed-digest/internal/platform/retry"
)

// buildCircuitConfig creates a CircuitBreakerConfig with defaults applied.
func buildCircuitConfig(cfg *config.LLMConfig) CircuitBreakerConfig {
	circuitCfg := CircuitBreakerConfig{
		Threshold:  cfg.CircuitThreshold,
		ResetAfter: cfg.CircuitTimeout,
	}

	if circuitCfg.Threshold == 0 {
		circuitCfg.Threshold = defaultCircuitThreshold
	}

	if circuitCfg.ResetAfter == 0 {
		circuitCfg.ResetAfter = defaultCircuitTimeout
	}

	return circuitCfg
}

// registerProviders registers all configured LLM providers with the registry
// and returns the close functions of those holding connections.
func registerProviders(ctx context.Context, registry *Registry, cfg *config.LLMConfig, logger *zerolog.Logger, circuitCfg CircuitBreakerConfig) []func() error {
	var closers []func() error

	if cfg.APIKey != "" {
		registry.Register(NewOpenAIProvider(cfg, logger), circuitCfg)
	}

	if cfg.AnthropicAPIKey != "" {
		registry.Register(NewAnthropicProvider(cfg, logger), circuitCfg)
	}

	if cfg.GoogleAPIKey != "" {
		googleProvider, err := NewGoogleProvider(ctx, cfg, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create Google LLM provider")
		} else {
			registry.Register(googleProvider, circuitCfg)
			closers = append(closers, googleProvider.Close)
		}
	}

	return closers
}

// New creates the LLM service with multi-provider fallback support.
// Providers are tried in priority order: OpenAI, Anthropic, Google. With no
// provider configured the service reports Configured() == false.
func New(ctx context.Context, cfg *config.Config, usage ports.UsageStore, logger *zerolog.Logger) *Service {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	registry := NewRegistry(retry.FromConfig(&cfg.RetryConfig), logger)

	var closers []func() error
	if cfg.LLMConfig.Enabled {
		closers = registerProviders(ctx, registry, &cfg.LLMConfig, logger, buildCircuitConfig(&cfg.LLMConfig))
	}

	svc := NewService(registry, usage, ServiceOptions{
		DailyQuota:   cfg.DailyQuota,
		RateLimitRPS: cfg.RateLimitRPS,
		Timeout:      cfg.LLMConfig.Timeout,
		MaxTokens:    cfg.MaxTokens,
	}, logger)
	svc.closers = closers

	if !svc.Configured() {
		logger.Warn().Msg("no LLM provider configured, summaries will use the extractive fallback")
	}

	return svc
}
