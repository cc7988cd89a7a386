// Package metrics aggregates a completed replay's closed trades and equity
// curve into the flat domain.Stats vector consumed by the optimizer's
// composite score and by the result sink's persisted summary.
//
// Grounded on libs/strategies/backtest.go's Backtester.calculateMetrics
// (win rate, profit factor, drawdown-from-peak, simplified annualized
// Sharpe), generalized from a single running-capital walk to the
// decimal-denominated Trade/EquityPoint types used throughout this module
// and extended with Sortino and consecutive win/loss streak tracking, which
// the donor's optimizer scoring (spec.md §4.8) requires but the donor's
// own backtester never computed.
package metrics

import (
	"math"

	"replaybench/internal/domain"
)

// Compute turns one replay's trade ledger and equity curve into a Stats
// vector. Safe on an empty trade list (returns a zero-value Stats with
// TradeCount 0).
func Compute(trades []domain.Trade, equity []domain.EquityPoint) domain.Stats {
	var s domain.Stats
	s.TradeCount = len(trades)
	if s.TradeCount == 0 {
		return s
	}

	var wins, losses int
	var winStreak, lossStreak int
	returns := make([]float64, 0, len(trades))

	for _, tr := range trades {
		pnl, _ := tr.Profit.Float64()
		s.TotalPnL += pnl

		switch {
		case pnl > 0:
			wins++
			s.GrossProfit += pnl
			winStreak++
			lossStreak = 0
		case pnl < 0:
			losses++
			s.GrossLoss += -pnl
			lossStreak++
			winStreak = 0
		default:
			winStreak, lossStreak = 0, 0
		}
		if winStreak > s.MaxConsecutiveWins {
			s.MaxConsecutiveWins = winStreak
		}
		if lossStreak > s.MaxConsecutiveLoss {
			s.MaxConsecutiveLoss = lossStreak
		}

		if entry, _ := tr.EntryPrice.Float64(); entry != 0 {
			returns = append(returns, pnl/entry)
		}
	}

	s.WinRate = float64(wins) / float64(s.TradeCount)
	if s.GrossLoss > 0 {
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	}
	if wins > 0 {
		s.AvgWin = s.GrossProfit / float64(wins)
	}
	if losses > 0 {
		s.AvgLoss = s.GrossLoss / float64(losses)
	}
	s.Expectancy = s.TotalPnL / float64(s.TradeCount)

	s.MaxDrawdown, s.MaxDrawdownPct = maxDrawdown(equity)
	s.Sharpe = annualizedSharpe(returns)
	s.Sortino = annualizedSortino(returns)

	return s
}

// maxDrawdown walks the equity curve's pre-computed per-point drawdown,
// returning the worst absolute and percentage figures observed.
func maxDrawdown(equity []domain.EquityPoint) (absolute, pct float64) {
	for _, pt := range equity {
		dd, _ := pt.Drawdown.Float64()
		if dd > absolute {
			absolute = dd
		}
		if pt.DrawdownPct > pct {
			pct = pt.DrawdownPct
		}
	}
	return absolute, pct
}

// annualizedSharpe follows the donor's simplified per-trade-return Sharpe:
// mean/stddev scaled by sqrt(252), treating each trade as one trading day.
func annualizedSharpe(returns []float64) float64 {
	mean, stdDev := meanStdDev(returns)
	if stdDev == 0 {
		return 0
	}
	return (mean / stdDev) * math.Sqrt(252)
}

// annualizedSortino is the same ratio restricted to the downside deviation
// (only negative returns contribute to the denominator).
func annualizedSortino(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var downsideSq float64
	var downsideN int
	for _, r := range returns {
		if r < 0 {
			downsideSq += r * r
			downsideN++
		}
	}
	if downsideN == 0 {
		return 0
	}
	downsideDev := math.Sqrt(downsideSq / float64(downsideN))
	if downsideDev == 0 {
		return 0
	}
	return (mean / downsideDev) * math.Sqrt(252)
}

func meanStdDev(values []float64) (mean, stdDev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}
