package engine

import (
	"replaybench/internal/domain"
	"replaybench/internal/riskgate"
	"replaybench/internal/signal"
	"replaybench/internal/structure"
)

// StrategyConfig is one active strategy's full timeframe/param/gate wiring,
// loaded once per replay alongside Config.
type StrategyConfig struct {
	Name string

	HTFTimeframe domain.Timeframe
	ITFTimeframe domain.Timeframe
	LTFTimeframe domain.Timeframe

	HTFAnalyzer structure.Analyzer
	ITFAnalyzer structure.Analyzer
	LTFAnalyzer structure.Analyzer

	HTFBars int // Recent(n) window size per timeframe
	ITFBars int
	LTFBars int

	SignalParams   signal.Params
	RiskGateConfig riskgate.Config
}

// biasOf returns the most recent trend bias from a structural result, or
// domain.BiasUnknown if the analyzer produced no trend snapshots (insufficient
// data for that timeframe).
func biasOf(r structure.Result) domain.Bias {
	if len(r.Trend) == 0 {
		return domain.BiasUnknown
	}
	return r.Trend[len(r.Trend)-1].Bias
}

// recentCHoCH returns the most recently fired change-of-character, or nil if
// none has occurred yet on this timeframe.
func recentCHoCH(r structure.Result) *domain.CHoCHEvent {
	if len(r.CHoCH) == 0 {
		return nil
	}
	e := r.CHoCH[len(r.CHoCH)-1]
	return &e
}
