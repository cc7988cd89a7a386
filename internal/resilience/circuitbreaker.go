// Package resilience wraps outbound calls made by the remote data-loader
// source in a circuit breaker so repeated failures against an unreachable
// history service trip a breaker instead of retrying forever.
package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"replaybench/internal/obslog"
)

// Config defines configuration for a circuit breaker.
type Config struct {
	Name          string
	MaxRequests   uint32
	Interval      time.Duration
	Timeout       time.Duration
	MaxFailures   uint32
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultConfig returns sensible defaults for a circuit breaker guarding a
// single remote history endpoint.
func DefaultConfig(name string) Config {
	return Config{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		MaxFailures: 5,
		OnStateChange: func(name string, from, to gobreaker.State) {
			obslog.Event(context.Background(), "warn", "circuit_breaker_state_change", map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	}
}

// CircuitBreaker wraps gobreaker with logging and configuration.
type CircuitBreaker struct {
	cb     *gobreaker.CircuitBreaker[any]
	name   string
	config Config
}

// New creates a new circuit breaker with the given config.
func New(config Config) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && (counts.ConsecutiveFailures >= config.MaxFailures || failureRatio >= 0.6)
		},
		OnStateChange: config.OnStateChange,
	}

	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker[any](settings), name: config.Name, config: config}
}

// Execute runs fn with circuit breaker protection.
func (cb *CircuitBreaker) Execute(fn func() (any, error)) (any, error) {
	result, err := cb.cb.Execute(fn)
	if err != nil {
		return nil, fmt.Errorf("circuit breaker %s: %w", cb.name, err)
	}
	return result, nil
}

// ExecuteWithContext runs fn with context and circuit breaker protection.
func (cb *CircuitBreaker) ExecuteWithContext(ctx context.Context, fn func() (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return cb.Execute(fn)
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() gobreaker.State { return cb.cb.State() }

// Counts returns the current counts.
func (cb *CircuitBreaker) Counts() gobreaker.Counts { return cb.cb.Counts() }

// Name returns the circuit breaker name.
func (cb *CircuitBreaker) Name() string { return cb.name }

// RemoteHistoryBreaker wraps HTTP calls to a remote history service with a
// circuit breaker named by the caller (NewRemoteSource passes the service
// base URL).
type RemoteHistoryBreaker struct {
	cb *CircuitBreaker
}

// NewRemoteHistoryBreaker creates a breaker for one remote history source.
func NewRemoteHistoryBreaker(name string) *RemoteHistoryBreaker {
	return &RemoteHistoryBreaker{cb: New(DefaultConfig(name))}
}

// Execute runs an HTTP call with circuit breaker protection.
func (w *RemoteHistoryBreaker) Execute(ctx context.Context, fn func() (any, error)) (any, error) {
	return w.cb.ExecuteWithContext(ctx, fn)
}

// Breaker returns the underlying circuit breaker for inspection.
func (w *RemoteHistoryBreaker) Breaker() *CircuitBreaker { return w.cb }
