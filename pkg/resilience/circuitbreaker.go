// Package resilience provides fault-tolerance primitives used around the
// corpus fetch and the search pipeline: a circuit breaker, exponential-backoff
// retry, a context-based timeout wrapper and panic recovery.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is in the Open state.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the current phase of a circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig controls failure thresholds and recovery timing.
type CircuitBreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
	// IsFailure decides which errors count against the breaker. Nil counts
	// every error except caller cancellation, so an abandoned search does
	// not trip the embedding or corpus breaker.
	IsFailure func(err error) bool
	// OnStateChange, if set, is called with the new state while the
	// breaker's lock is held. It must not call back into the breaker.
	OnStateChange func(name string, to State)
}

// CircuitBreaker fails fast after FailureThreshold consecutive failures and
// lets a limited number of probes through once ResetTimeout has passed.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probes   int
}

// NewCircuitBreaker creates a closed CircuitBreaker. Zero config fields take
// defaults: 5 failures, 30s reset, 1 probe.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return !errors.Is(err, context.Canceled) }
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		now:    time.Now,
		state:  StateClosed,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

// Execute runs fn if the circuit allows it and records the outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

// Name returns the breaker's name.
func (cb *CircuitBreaker) Name() string { return cb.name }

// GetState returns the current State.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case StateOpen:
		wait := cb.cfg.ResetTimeout - cb.now().Sub(cb.openedAt)
		if wait > 0 {
			return fmt.Errorf("%w: %s (retry in %v)", ErrCircuitOpen, cb.name, wait.Round(time.Millisecond))
		}
		cb.setState(StateHalfOpen)
		cb.probes = 1
		cb.logger.Info("circuit half-open, probing")
	case StateHalfOpen:
		if cb.probes >= cb.cfg.HalfOpenMaxRequests {
			return fmt.Errorf("%w: %s (probe in flight)", ErrCircuitOpen, cb.name)
		}
		cb.probes++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil && cb.cfg.IsFailure(err) {
		cb.failures++
		switch {
		case cb.state == StateHalfOpen:
			cb.trip("probe failed")
		case cb.state == StateClosed && cb.failures >= cb.cfg.FailureThreshold:
			cb.trip("failure threshold reached")
		}
		return
	}

	if cb.state == StateHalfOpen {
		if err != nil {
			// Ignored error: release the probe slot without a verdict.
			cb.probes--
			return
		}
		cb.logger.Info("circuit closed, dependency recovered")
		cb.setState(StateClosed)
		cb.probes = 0
	}
	if err == nil {
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) trip(reason string) {
	cb.openedAt = cb.now()
	cb.setState(StateOpen)
	cb.logger.Warn("circuit opened",
		"reason", reason,
		"consecutive_failures", cb.failures,
		"reset_after", cb.cfg.ResetTimeout,
	)
}

func (cb *CircuitBreaker) setState(to State) {
	cb.state = to
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, to)
	}
}
