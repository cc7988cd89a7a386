package optimizer

import (
	"math/rand"
	"testing"

	"replaybench/internal/domain"
)

func TestSplitByMedianScorePartitionsAboveAndBelow(t *testing.T) {
	history := []Trial{
		{Score: 1},
		{Score: 2},
		{Score: 3},
		{Score: 4},
	}
	good, bad := splitByMedianScore(history)
	if len(good)+len(bad) != len(history) {
		t.Fatalf("partition lost trials: good=%d bad=%d", len(good), len(bad))
	}
	for _, g := range good {
		if g.Score < 3 {
			t.Fatalf("trial with score %v ended up in good partition below median", g.Score)
		}
	}
}

func TestTPESampleFallsBackToRandomWithoutHistory(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	ranges := map[string]ParamRange{"x": {Kind: "int", Min: 0, Max: 100}}

	out := tpeSample(rng, ranges, nil)
	if _, ok := out["x"]; !ok {
		t.Fatalf("expected fallback random sample to populate key x")
	}
}

func TestTPESampleFallsBackWhenOnePartitionEmpty(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	ranges := map[string]ParamRange{"x": {Kind: "int", Min: 0, Max: 100}}

	// every trial scores identically -> median split still leaves
	// one side empty once trimmed to a single-trial history.
	history := []Trial{{Score: 5, Params: domain.ParameterSet{"x": int64(10)}}}
	out := tpeSample(rng, ranges, history)
	if _, ok := out["x"]; !ok {
		t.Fatalf("expected sample to populate key x")
	}
}

func TestPerturbStaysWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	r := ParamRange{Kind: "float", Min: 0, Max: 10}
	for i := 0; i < 100; i++ {
		v := perturb(rng, r, 9.9)
		f := v.(float64)
		if f < 0 || f > 10 {
			t.Fatalf("perturbed value %f escaped bounds [0,10]", f)
		}
	}
}

func TestIsExplorationCoversFirst20Percent(t *testing.T) {
	if !isExploration(0, 100) {
		t.Fatalf("index 0 of 100 should be exploration")
	}
	if !isExploration(19, 100) {
		t.Fatalf("index 19 of 100 should be exploration")
	}
	if isExploration(20, 100) {
		t.Fatalf("index 20 of 100 should not be exploration")
	}
}
