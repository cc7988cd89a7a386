package optimizer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"replaybench/internal/domain"
)

func TestDispatchIsolatesPerTrialFailures(t *testing.T) {
	paramSets := []domain.ParameterSet{
		{"n": 1},
		{"n": 2},
		{"n": 3},
	}

	run := func(ctx context.Context, params domain.ParameterSet, fromMs, toMs int64) (domain.Stats, error) {
		if params["n"] == 2 {
			return domain.Stats{}, errors.New("replay blew up")
		}
		return domain.Stats{WinRate: 0.5, ProfitFactor: 1.5, Sharpe: 1.0}, nil
	}

	trials := dispatch(context.Background(), paramSets, 0, 1000, run, DefaultScoreWeights(), 2)
	if len(trials) != 3 {
		t.Fatalf("expected 3 trials, got %d", len(trials))
	}
	if trials[1].Err == nil || trials[1].Score != negInf {
		t.Fatalf("expected trial 1 to be a captured failure, got %+v", trials[1])
	}
	if trials[0].Err != nil || trials[2].Err != nil {
		t.Fatalf("expected trials 0 and 2 to succeed")
	}
}

func TestDispatchRespectsParallelBound(t *testing.T) {
	paramSets := make([]domain.ParameterSet, 10)
	for i := range paramSets {
		paramSets[i] = domain.ParameterSet{"n": i}
	}

	var inFlight int32
	var maxInFlight int32
	run := func(ctx context.Context, params domain.ParameterSet, fromMs, toMs int64) (domain.Stats, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			cur := atomic.LoadInt32(&maxInFlight)
			if n <= cur || atomic.CompareAndSwapInt32(&maxInFlight, cur, n) {
				break
			}
		}
		atomic.AddInt32(&inFlight, -1)
		return domain.Stats{}, nil
	}

	dispatch(context.Background(), paramSets, 0, 1000, run, DefaultScoreWeights(), 3)
	if atomic.LoadInt32(&maxInFlight) > 3 {
		t.Fatalf("parallel bound exceeded: observed %d concurrent trials", maxInFlight)
	}
}
