package optimizer

import (
	"context"
	"testing"

	"replaybench/internal/domain"
)

func constantRunner(m domain.Stats) ReplayRunner {
	return func(ctx context.Context, params domain.ParameterSet, fromMs, toMs int64) (domain.Stats, error) {
		return m, nil
	}
}

func TestOptimizeGridRanksTrialsByScoreDescending(t *testing.T) {
	req := Request{
		Method: domain.MethodGrid,
		Symbol: "EURUSD", Strategy: "trend",
		FromMs: 0, ToMs: 1000,
		Grid:     ParamGrid{"a": {1, 2, 3}},
		Parallel: 2,
	}

	calls := 0
	run := func(ctx context.Context, params domain.ParameterSet, fromMs, toMs int64) (domain.Stats, error) {
		calls++
		n := params["a"].(int)
		return domain.Stats{WinRate: float64(n) / 10}, nil
	}

	out := Optimize(context.Background(), req, run, nil)
	if len(out.Trials) != 3 {
		t.Fatalf("expected 3 trials, got %d", len(out.Trials))
	}
	for i := 1; i < len(out.Trials); i++ {
		if out.Trials[i].Score > out.Trials[i-1].Score {
			t.Fatalf("trials not ranked descending at index %d", i)
		}
	}
	if calls != 3 {
		t.Fatalf("expected exactly 3 replay invocations, got %d", calls)
	}
}

func TestOptimizeRandomProducesRequestedTrialCount(t *testing.T) {
	req := Request{
		Method: domain.MethodRandom,
		Symbol: "EURUSD", Strategy: "trend",
		FromMs: 0, ToMs: 1000,
		Ranges:   map[string]ParamRange{"x": {Kind: "int", Min: 0, Max: 10}},
		Trials:   7,
		Parallel: 3,
	}
	out := Optimize(context.Background(), req, constantRunner(domain.Stats{WinRate: 0.5}), nil)
	if len(out.Trials) != 7 {
		t.Fatalf("expected 7 trials, got %d", len(out.Trials))
	}
}

func TestOptimizeIsDeterministicForIdenticalRequests(t *testing.T) {
	req := Request{
		Method: domain.MethodRandom,
		Symbol: "EURUSD", Strategy: "trend",
		FromMs: 100, ToMs: 200,
		Ranges:   map[string]ParamRange{"x": {Kind: "float", Min: 0, Max: 1}},
		Trials:   5,
		Parallel: 1,
	}
	run := constantRunner(domain.Stats{WinRate: 0.4})

	a := Optimize(context.Background(), req, run, nil)
	b := Optimize(context.Background(), req, run, nil)

	for i := range a.Trials {
		if a.Trials[i].Params["x"] != b.Trials[i].Params["x"] {
			t.Fatalf("expected identical sampling sequence at index %d, got %v vs %v",
				i, a.Trials[i].Params["x"], b.Trials[i].Params["x"])
		}
	}
}

func TestOptimizeWalkForwardReturnsAggregate(t *testing.T) {
	const thirtyDaysMs = 30 * 86_400_000
	req := Request{
		Method: domain.MethodWalkForward,
		Symbol: "EURUSD", Strategy: "trend",
		FromMs: 0, ToMs: thirtyDaysMs,
		WalkForwardWindows:  2,
		WalkForwardStepDays: 1,
		Grid:                ParamGrid{"x": {1, 2}},
		Parallel:            2,
	}
	out := Optimize(context.Background(), req, constantRunner(domain.Stats{WinRate: 0.5, ProfitFactor: 1.1, Sharpe: 0.3}), nil)
	if out.WalkForward == nil {
		t.Fatalf("expected a walk-forward result")
	}
	if len(out.WalkForward.Windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(out.WalkForward.Windows))
	}
}
