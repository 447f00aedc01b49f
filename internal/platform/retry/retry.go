// Package retry runs operations with exponential backoff.
// Only failures selected by the configured predicate are retried; all others
// are returned on the first attempt.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/lueurxax/feed-digest/internal/platform/config"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 1 * time.Second
	defaultMultiplier   = 2.0
	defaultMaxDelay     = 30 * time.Second
)

// Config configures retry behavior.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	// Retryable selects which errors are retried. Defaults to IsTransient.
	Retryable func(error) bool
	// OnRetry is called before sleeping ahead of the next attempt.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  defaultMaxAttempts,
		InitialDelay: defaultInitialDelay,
		Multiplier:   defaultMultiplier,
		MaxDelay:     defaultMaxDelay,
		Retryable:    IsTransient,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}

	if c.InitialDelay <= 0 {
		c.InitialDelay = defaultInitialDelay
	}

	if c.Multiplier < 1 {
		c.Multiplier = defaultMultiplier
	}

	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}

	if c.Retryable == nil {
		c.Retryable = IsTransient
	}

	return c
}

// Do runs op until it succeeds, returns a non-retryable error, or attempts run out.
func Do(ctx context.Context, cfg Config, op func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()

	var lastErr error

	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if !cfg.Retryable(lastErr) || attempt == cfg.MaxAttempts {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, delay, lastErr)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry interrupted: %w", errors.Join(ctx.Err(), lastErr))
		case <-time.After(delay):
		}

		delay = nextDelay(delay, cfg.Multiplier, cfg.MaxDelay)
	}

	return lastErr
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, cfg Config, op func(ctx context.Context) (T, error)) (T, error) {
	var result T

	err := Do(ctx, cfg, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}

		result = v

		return nil
	})

	return result, err
}

func nextDelay(current time.Duration, multiplier float64, limit time.Duration) time.Duration {
	next := time.Duration(float64(current) * multiplier)
	if next > limit {
		return limit
	}

	return next
}

// StatusError carries an HTTP status code so the retry predicate can inspect it.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: status %d", e.Err, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// HTTPStatusRetryable reports whether an HTTP status code is worth retrying.
func HTTPStatusRetryable(statusCode int) bool {
	return statusCode >= http.StatusInternalServerError || statusCode == http.StatusTooManyRequests
}

// IsTransient reports whether err is a connection reset, a timeout, an HTTP 5xx or a rate-limit signal.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// The caller gave up; retrying would not help.
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return HTTPStatusRetryable(statusErr.StatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}

var transientMarkers = []string{
	"connection reset",
	"timeout",
	"rate limit",
	"too many requests",
	"status code: 429",
	"status code: 5",
	"overloaded",
}

// FromConfig maps the shared backoff settings onto a Config. Unset values
// keep their defaults.
func FromConfig(cfg *config.RetryConfig) Config {
	retryCfg := DefaultConfig()

	if cfg == nil {
		return retryCfg
	}

	if cfg.Attempts > 0 {
		retryCfg.MaxAttempts = cfg.Attempts
	}

	if cfg.InitialDelay > 0 {
		retryCfg.InitialDelay = cfg.InitialDelay
	}

	if cfg.Multiplier >= 1 {
		retryCfg.Multiplier = cfg.Multiplier
	}

	if cfg.MaxDelay > 0 {
		retryCfg.MaxDelay = cfg.MaxDelay
	}

	return retryCfg
}
