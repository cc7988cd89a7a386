// Package signal synthesizes at most one trade intent per bar per symbol
// per strategy from the three-timeframe structural picture (HTF/ITF/LTF),
// following the Strategy.Analyze(ctx, input) -> Signal shape the donor's
// ma_crossover/macd_crossover/rsi_momentum strategies share, generalized to
// the multi-timeframe confluence scheme this module needs.
package signal

import (
	"replaybench/internal/domain"
	"replaybench/internal/structure"
)

// Params tunes the synthesizer; values mirror the per-strategy schema keys
// validated by config.Schema before a run starts.
type Params struct {
	ConfluenceThreshold float64 // 0-100, reject below
	MinSLDistancePct    float64 // e.g. 0.0001 (0.01%)
	MinSLDistanceAbs    float64 // optional absolute floor
	MinRR               float64 // 1.0
	DefaultRR           float64 // 2.0
	MaxRR               float64 // 3.0
	ATRPeriod           int     // 14
	ClusterTolerance    float64 // 0.001 (0.1% relative)
}

// DefaultParams returns the spec's documented defaults.
func DefaultParams() Params {
	return Params{
		ConfluenceThreshold: 60,
		MinSLDistancePct:    0.0001,
		MinRR:               1.0,
		DefaultRR:           2.0,
		MaxRR:               3.0,
		ATRPeriod:           14,
		ClusterTolerance:    0.001,
	}
}

// Input bundles everything the synthesizer needs for one bar evaluation.
type Input struct {
	Symbol      string
	Strategy    string
	Candles     []domain.Candle // working (LTF) timeframe, oldest-first, ending at the current bar
	HTFBias     domain.Bias
	ITFBias     domain.Bias
	ITFRecentCHoCH *domain.CHoCHEvent // nil if none recent
	LTF         structure.Result
	Params      Params
}

// Synthesize resolves HTF/ITF alignment, the LTF confluence conjunction,
// and the risk-level derivation, returning an Outcome carrying at most one
// TradeIntent.
func Synthesize(in Input) domain.Outcome[domain.TradeIntent] {
	if len(in.Candles) == 0 {
		return domain.Skip[domain.TradeIntent]("no_candles")
	}
	idx := len(in.Candles) - 1
	current := in.Candles[idx]

	direction, ok := directionalBias(in.HTFBias)
	if !ok {
		return domain.Skip[domain.TradeIntent]("htf_bias_not_directional")
	}

	if !itfAligned(in.ITFBias, in.ITFRecentCHoCH, direction) {
		return domain.Skip[domain.TradeIntent]("itf_not_aligned")
	}

	confirmations := ltfConfirmations(in.LTF, idx, direction, in.Params.ClusterTolerance)
	if !confirmations.sweep || !confirmations.orderBlock || !confirmations.bos {
		return domain.Skip[domain.TradeIntent](confirmations.missingReasons()...)
	}

	score := confluenceScore(confirmations)
	if score < in.Params.ConfluenceThreshold {
		return domain.Skip[domain.TradeIntent]("confluence_below_threshold")
	}

	atr := averageTrueRange(in.Candles, in.Params.ATRPeriod)
	stop, stopReason := deriveStop(in.LTF, idx, direction, current.Close, atr, in.Params)
	if stopReason == "" {
		return domain.Skip[domain.TradeIntent]("no_valid_stop")
	}

	risk := absFloat(current.Close - stop)
	target := deriveTarget(in.LTF, idx, direction, current.Close, risk, in.Params)

	intent := domain.TradeIntent{
		Symbol: in.Symbol, Strategy: in.Strategy, Direction: direction,
		Entry: current.Close, StopLoss: stop, TakeProfit: target,
		HTFTrend: in.HTFBias, ConfluenceScore: score,
		Reasons: append(confirmations.reasons(), stopReason),
		TimestampMs: current.TimestampMs,
	}
	return domain.Ok(intent)
}

func directionalBias(bias domain.Bias) (domain.Direction, bool) {
	switch bias {
	case domain.BiasBullish:
		return domain.Bullish, true
	case domain.BiasBearish:
		return domain.Bearish, true
	default:
		return "", false
	}
}

func itfAligned(itfBias domain.Bias, choch *domain.CHoCHEvent, direction domain.Direction) bool {
	if itfBias == domain.BiasBullish && direction == domain.Bullish {
		return true
	}
	if itfBias == domain.BiasBearish && direction == domain.Bearish {
		return true
	}
	if choch == nil {
		return false
	}
	wantTrend := domain.BiasBullish
	if direction == domain.Bearish {
		wantTrend = domain.BiasBearish
	}
	return choch.ToTrend == wantTrend
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
