package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func TestCircuitBreakerSuccess(t *testing.T) {
	config := DefaultConfig("test")
	config.OnStateChange = nil
	cb := New(config)

	result, err := cb.Execute(func() (any, error) { return "success", nil })
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != "success" {
		t.Errorf("expected 'success', got %v", result)
	}
}

func TestCircuitBreakerOpensOnFailures(t *testing.T) {
	config := DefaultConfig("test")
	config.OnStateChange = nil
	config.MaxFailures = 2
	cb := New(config)

	expectedErr := errors.New("test error")
	for i := 0; i < 5; i++ {
		if _, err := cb.Execute(func() (any, error) { return nil, expectedErr }); err == nil {
			t.Error("expected error, got nil")
		}
	}

	if cb.State() != gobreaker.StateOpen {
		t.Errorf("expected state Open, got %v", cb.State())
	}
}

func TestCircuitBreakerStateTransitions(t *testing.T) {
	config := DefaultConfig("test")
	config.MaxFailures = 2
	config.Timeout = 100 * time.Millisecond

	var stateChanges []string
	config.OnStateChange = func(name string, from, to gobreaker.State) {
		stateChanges = append(stateChanges, to.String())
	}

	cb := New(config)
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("expected initial state Closed, got %v", cb.State())
	}

	for i := 0; i < 5; i++ {
		cb.Execute(func() (any, error) { return nil, errors.New("fail") })
	}
	if cb.State() != gobreaker.StateOpen {
		t.Errorf("expected state Open, got %v", cb.State())
	}

	time.Sleep(150 * time.Millisecond)
	cb.Execute(func() (any, error) { return "success", nil })

	if len(stateChanges) < 1 {
		t.Error("expected state changes, got none")
	}
}

func TestCircuitBreakerContextCanceled(t *testing.T) {
	config := DefaultConfig("test")
	config.OnStateChange = nil
	cb := New(config)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := cb.ExecuteWithContext(ctx, func() (any, error) { return "unreached", nil }); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRemoteHistoryBreaker(t *testing.T) {
	w := NewRemoteHistoryBreaker("history-test")
	ctx := context.Background()

	result, err := w.Execute(ctx, func() (any, error) { return "candles", nil })
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != "candles" {
		t.Errorf("expected 'candles', got %v", result)
	}
}
