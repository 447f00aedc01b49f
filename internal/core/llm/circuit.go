package llm

import (
	"fmt"
	"sync"
	"time"

	coreerrors "github.com/lueurxax/feed-digest/internal/core/errors"
)

// CircuitBreakerConfig holds configuration for circuit breaker.
type CircuitBreakerConfig struct {
	Threshold  int
	ResetAfter time.Duration
}

// BreakerState is the position of a provider's circuit.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker guards one provider. Threshold consecutive failures open
// it for ResetAfter; after that a single probe call is let through, and the
// probe's outcome either closes the circuit or opens it again.
type CircuitBreaker struct {
	mu         sync.Mutex
	threshold  int
	resetAfter time.Duration
	failures   int
	openUntil  time.Time
	probing    bool
	now        func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultCircuitThreshold
	}

	if cfg.ResetAfter <= 0 {
		cfg.ResetAfter = defaultCircuitTimeout
	}

	return &CircuitBreaker{
		threshold:  cfg.Threshold,
		resetAfter: cfg.ResetAfter,
		now:        time.Now,
	}
}

// Allow reserves an attempt. It fails with ErrCircuitBreakerOpen while the
// circuit is open or while a half-open probe is already in flight.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.stateLocked() {
	case BreakerOpen:
		return fmt.Errorf("%w until %s", coreerrors.ErrCircuitBreakerOpen, cb.openUntil.Format(time.RFC3339))
	case BreakerHalfOpen:
		if cb.probing {
			return fmt.Errorf("%w: probe in flight", coreerrors.ErrCircuitBreakerOpen)
		}

		cb.probing = true
	case BreakerClosed:
	}

	return nil
}

// Success closes the circuit.
func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.probing = false
	cb.openUntil = time.Time{}
}

// Failure counts a failed call and reports whether it opened the circuit.
// A failed probe reopens it immediately.
func (cb *CircuitBreaker) Failure() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.stateLocked() == BreakerOpen {
		return false
	}

	wasProbe := cb.probing
	cb.probing = false
	cb.failures++

	if !wasProbe && cb.failures < cb.threshold {
		return false
	}

	cb.openUntil = cb.now().Add(cb.resetAfter)

	return true
}

// State reports the current circuit position.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.stateLocked()
}

func (cb *CircuitBreaker) stateLocked() BreakerState {
	switch {
	case cb.openUntil.IsZero():
		return BreakerClosed
	case cb.now().Before(cb.openUntil):
		return BreakerOpen
	default:
		return BreakerHalfOpen
	}
}
