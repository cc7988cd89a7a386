package optimizer

import "replaybench/internal/domain"

// ScoreWeights are the composite-score component weights; the spec's
// documented defaults sum to 1.0.
type ScoreWeights struct {
	WinRate      float64
	ProfitFactor float64
	Sharpe       float64
	Drawdown     float64
	Stability    float64
}

// DefaultScoreWeights returns spec.md §4.8's documented defaults.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{WinRate: 0.25, ProfitFactor: 0.30, Sharpe: 0.25, Drawdown: 0.10, Stability: 0.10}
}

// score computes the composite ranked score from a metric vector's
// normalized components, per spec.md §4.8.
func score(m domain.Stats, w ScoreWeights) float64 {
	winRate := clip(m.WinRate, 0, 1)
	pf := clip(m.ProfitFactor/5, 0, 1)
	sharpe := clip((m.Sharpe+2)/4, 0, 1)
	dd := clip(1-m.MaxDrawdownPct/50, 0, 1)
	stability := clip(1-float64(m.MaxConsecutiveLoss)/10, 0, 1)

	return w.WinRate*winRate + w.ProfitFactor*pf + w.Sharpe*sharpe + w.Drawdown*dd + w.Stability*stability
}
