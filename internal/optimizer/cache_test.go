package optimizer

import (
	"context"
	"testing"

	"replaybench/internal/domain"
)

func TestTrialKeyHashIsStableForIdenticalInputs(t *testing.T) {
	a := trialKey{Symbol: "EURUSD", Strategy: "trend", FromMs: 1, ToMs: 2, Params: domain.ParameterSet{"x": int64(5)}}
	b := trialKey{Symbol: "EURUSD", Strategy: "trend", FromMs: 1, ToMs: 2, Params: domain.ParameterSet{"x": int64(5)}}
	if a.hash() != b.hash() {
		t.Fatalf("expected identical trialKeys to hash identically")
	}
}

func TestTrialKeyHashDiffersOnParams(t *testing.T) {
	a := trialKey{Symbol: "EURUSD", Strategy: "trend", FromMs: 1, ToMs: 2, Params: domain.ParameterSet{"x": int64(5)}}
	b := trialKey{Symbol: "EURUSD", Strategy: "trend", FromMs: 1, ToMs: 2, Params: domain.ParameterSet{"x": int64(6)}}
	if a.hash() == b.hash() {
		t.Fatalf("expected differing params to produce different hashes")
	}
}

func TestWithCacheNilCachePassesThrough(t *testing.T) {
	called := 0
	run := func(ctx context.Context, params domain.ParameterSet, fromMs, toMs int64) (domain.Stats, error) {
		called++
		return domain.Stats{WinRate: 0.5}, nil
	}

	wrapped := withCache(run, nil, "EURUSD", "trend")
	if _, err := wrapped(context.Background(), domain.ParameterSet{"x": 1}, 0, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != 1 {
		t.Fatalf("expected the underlying runner to be called once, got %d", called)
	}
}

func TestTrialCacheGetSetOnNilReceiverIsNoop(t *testing.T) {
	var c *TrialCache
	if _, ok := c.get(context.Background(), trialKey{}); ok {
		t.Fatalf("expected nil cache get to report a miss")
	}
	c.set(context.Background(), trialKey{}, domain.Stats{}) // must not panic
}
