package optimizer

import (
	"context"
	"sort"

	"replaybench/internal/domain"
)

// Optimize is the optimizer's single public operation: optimize(request) ->
// results | walkforward_result (spec.md §4.8). The trial cache, if set, is
// consulted before and populated after every dispatch to skip re-running an
// already-evaluated parameter set.
func Optimize(ctx context.Context, req Request, run ReplayRunner, cache *TrialCache) Outcome {
	weights := req.ScoreWeights
	if weights == (ScoreWeights{}) {
		weights = DefaultScoreWeights()
	}
	cachedRun := withCache(run, cache, req.Symbol, req.Strategy)

	switch req.Method {
	case domain.MethodWalkForward:
		return Outcome{WalkForward: runWalkForward(ctx, req, cachedRun)}

	case domain.MethodGrid:
		paramSets := expandGrid(req.Grid)
		trials := dispatch(ctx, paramSets, req.FromMs, req.ToMs, cachedRun, weights, req.Parallel)
		return Outcome{Trials: rank(trials)}

	case domain.MethodBayes:
		trials := runTPE(ctx, req, cachedRun, weights)
		return Outcome{Trials: rank(trials)}

	default: // MethodRandom
		rng := newRand(seedFor(req))
		paramSets := make([]domain.ParameterSet, req.Trials)
		for i := range paramSets {
			paramSets[i] = sampleRandom(rng, req.Ranges)
		}
		trials := dispatch(ctx, paramSets, req.FromMs, req.ToMs, cachedRun, weights, req.Parallel)
		return Outcome{Trials: rank(trials)}
	}
}

// runTPE drives the two-phase tree-structured-Parzen-like search: pure
// random exploration for the first 20% of trials, then exploitation that
// samples from the good/bad partition of everything observed so far.
// Dispatched in batches of Parallel size so later batches can exploit
// earlier results — a pure one-shot dispatch would have no history to
// partition against.
func runTPE(ctx context.Context, req Request, run ReplayRunner, weights ScoreWeights) []Trial {
	rng := newRand(seedFor(req))
	batch := req.Parallel
	if batch <= 0 {
		batch = 4
	}

	var history []Trial
	for len(history) < req.Trials {
		n := batch
		if len(history)+n > req.Trials {
			n = req.Trials - len(history)
		}

		paramSets := make([]domain.ParameterSet, n)
		for i := range paramSets {
			idx := len(history) + i
			if isExploration(idx, req.Trials) {
				paramSets[i] = sampleRandom(rng, req.Ranges)
			} else {
				paramSets[i] = tpeSample(rng, req.Ranges, history)
			}
		}

		batchTrials := dispatch(ctx, paramSets, req.FromMs, req.ToMs, run, weights, req.Parallel)
		history = append(history, batchTrials...)
	}
	return history
}

func rank(trials []Trial) []Trial {
	out := append([]Trial(nil), trials...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// seedFor derives a deterministic seed from the request so identical
// requests produce identical sampling sequences. It is an FNV-1a-style hash
// whose starting constant is the 64-bit offset basis with its last digit
// dropped (14695981039346656037 itself does not fit in an int64).
func seedFor(req Request) int64 {
	var h int64 = 1469598103934665603
	for _, r := range req.Symbol + req.Strategy {
		h ^= int64(r)
		h *= 1099511628211
	}
	return h ^ req.FromMs ^ req.ToMs
}
