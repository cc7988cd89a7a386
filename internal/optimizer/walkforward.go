package optimizer

import (
	"context"
	"math"

	"replaybench/internal/domain"
)

// WindowResult is one walk-forward window's in-sample optimum and its
// out-of-sample verification run.
type WindowResult struct {
	Index          int
	ISFromMs       int64
	ISToMs         int64
	OOSFromMs      int64
	OOSToMs        int64
	BestParams     domain.ParameterSet
	ISMetrics      domain.Stats
	OOSMetrics     domain.Stats
	StabilityScore float64
}

// WalkForwardResult aggregates every window plus the mode-voted parameter
// set and averaged OOS metrics.
type WalkForwardResult struct {
	Windows       []WindowResult
	VotedParams   domain.ParameterSet
	AvgOOSMetrics domain.Stats
}

// buildWalkForwardWindows divides [fromMs,toMs] into w overlapping windows
// of size total/w, stepped by stepDays, each split 70% in-sample / 30%
// out-of-sample, following libs/walkforward/engine.go's buildWindows
// sliding-window shape generalized from a fixed IS/OOS duration pair to a
// window-count-and-step parameterization.
func buildWalkForwardWindows(fromMs, toMs int64, w, stepDays int) []WindowResult {
	if w <= 0 {
		w = 1
	}
	total := toMs - fromMs
	if total <= 0 {
		return nil
	}
	size := total / int64(w)
	stepMs := int64(stepDays) * 86_400_000
	if stepMs <= 0 {
		stepMs = size
	}

	var windows []WindowResult
	for i := 0; i < w; i++ {
		start := fromMs + int64(i)*stepMs
		end := start + size
		if end > toMs {
			end = toMs
		}
		if start >= end {
			break
		}
		isEnd := start + int64(float64(end-start)*0.70)
		windows = append(windows, WindowResult{
			Index: i, ISFromMs: start, ISToMs: isEnd, OOSFromMs: isEnd, OOSToMs: end,
		})
	}
	return windows
}

// runWalkForward executes the per-window sub-optimization (grid if req.Grid
// is set, else a small random search), verifies the winning params OOS, and
// aggregates by mode-voting each parameter across windows.
func runWalkForward(ctx context.Context, req Request, run ReplayRunner) *WalkForwardResult {
	windows := buildWalkForwardWindows(req.FromMs, req.ToMs, req.WalkForwardWindows, req.WalkForwardStepDays)
	weights := req.ScoreWeights
	if weights == (ScoreWeights{}) {
		weights = DefaultScoreWeights()
	}

	for i := range windows {
		win := &windows[i]

		var isParamSets []domain.ParameterSet
		if len(req.Grid) > 0 {
			isParamSets = expandGrid(req.Grid)
		} else {
			isParamSets = randomParamSets(req.Ranges, 10, int64(win.Index))
		}

		isTrials := dispatch(ctx, isParamSets, win.ISFromMs, win.ISToMs, run, weights, req.Parallel)
		best := bestTrial(isTrials)
		if best == nil {
			continue
		}
		win.BestParams = best.Params
		win.ISMetrics = best.Metrics

		oosMetrics, err := run(ctx, best.Params, win.OOSFromMs, win.OOSToMs)
		if err != nil {
			continue
		}
		win.OOSMetrics = oosMetrics
		win.StabilityScore = stabilityScore(win.ISMetrics, win.OOSMetrics)
	}

	return &WalkForwardResult{
		Windows:       windows,
		VotedParams:   voteParams(windows),
		AvgOOSMetrics: averageOOSMetrics(windows),
	}
}

// stabilityScore is spec.md §4.8's documented walk-forward stability
// formula: 0.4*(1-|Δwin_rate|) + 0.4*max(0,1-|Δpf|/2) + 0.2*max(0,1-|Δsharpe|/2).
func stabilityScore(is, oos domain.Stats) float64 {
	dWinRate := math.Abs(oos.WinRate - is.WinRate)
	dPF := math.Abs(oos.ProfitFactor - is.ProfitFactor)
	dSharpe := math.Abs(oos.Sharpe - is.Sharpe)

	return 0.4*(1-dWinRate) + 0.4*math.Max(0, 1-dPF/2) + 0.2*math.Max(0, 1-dSharpe/2)
}

func bestTrial(trials []Trial) *Trial {
	var best *Trial
	for i := range trials {
		if trials[i].Err != nil {
			continue
		}
		if best == nil || trials[i].Score > best.Score {
			best = &trials[i]
		}
	}
	return best
}

// voteParams picks, for each parameter key, the value chosen most
// frequently (mode) across every window's winning parameter set.
func voteParams(windows []WindowResult) domain.ParameterSet {
	counts := make(map[string]map[any]int)
	for _, w := range windows {
		for k, v := range w.BestParams {
			if counts[k] == nil {
				counts[k] = make(map[any]int)
			}
			counts[k][v]++
		}
	}

	out := make(domain.ParameterSet, len(counts))
	for k, votes := range counts {
		var bestVal any
		bestCount := -1
		for v, c := range votes {
			if c > bestCount {
				bestVal, bestCount = v, c
			}
		}
		out[k] = bestVal
	}
	return out
}

func averageOOSMetrics(windows []WindowResult) domain.Stats {
	var n int
	var sum domain.Stats
	for _, w := range windows {
		if w.BestParams == nil {
			continue
		}
		n++
		sum.WinRate += w.OOSMetrics.WinRate
		sum.ProfitFactor += w.OOSMetrics.ProfitFactor
		sum.Sharpe += w.OOSMetrics.Sharpe
		sum.MaxDrawdownPct += w.OOSMetrics.MaxDrawdownPct
		sum.TotalPnL += w.OOSMetrics.TotalPnL
		sum.TradeCount += w.OOSMetrics.TradeCount
	}
	if n == 0 {
		return domain.Stats{}
	}
	sum.WinRate /= float64(n)
	sum.ProfitFactor /= float64(n)
	sum.Sharpe /= float64(n)
	sum.MaxDrawdownPct /= float64(n)
	sum.TotalPnL /= float64(n)
	sum.TradeCount = int(math.Round(float64(sum.TradeCount) / float64(n)))
	return sum
}

func randomParamSets(ranges map[string]ParamRange, n int, seed int64) []domain.ParameterSet {
	rng := newRand(seed)
	out := make([]domain.ParameterSet, n)
	for i := range out {
		out[i] = sampleRandom(rng, ranges)
	}
	return out
}
