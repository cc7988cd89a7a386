// Package structure implements the Smart-Money-Concepts structural
// analyzer: swing detection, break-of-structure, the anchor-swing
// change-of-character state machine, and major-swing (market-structure
// break) classification.
//
// A single Analyzer type is parameterized by {PivotLeft, PivotRight,
// Lookback, MinSwingDistance} and instantiated once per timeframe (HTF,
// ITF, LTF) rather than modeled as three distinct analyzer types.
package structure

import "replaybench/internal/domain"

// SwingMode selects the pivot-detection algorithm.
type SwingMode string

const (
	ModeFractal SwingMode = "fractal"
	ModeRolling SwingMode = "rolling"
	ModeHybrid  SwingMode = "hybrid"
)

// Analyzer holds the window parameters for one timeframe's structural scan.
// The zero value is not useful; construct with explicit field values.
type Analyzer struct {
	PivotLeft        int // L: bars to the left required to confirm a fractal pivot
	PivotRight       int // R: bars to the right required to confirm a fractal pivot
	Lookback         int // index-distance bound for BOS candidate swings
	MinSwingDistance int // carried with the window parameters; swing detection does not read it
	SwingMode        SwingMode
	StrictClose      bool // reject wick-only BOS penetrations
	RollingWindow    int  // W for rolling/hybrid-tail mode; defaults to PivotLeft+PivotRight+1
	BOSCandidates    int  // K: how many most-recent unbroken swings to consider per candle
	MinSwingPairs    int  // high/low swing pairs considered for the per-bar trend snapshot
	LiquidityTolerance float64 // relative tolerance for clustering equal highs/lows; default 0.001
}

// Result bundles every artifact the analyzer produces from one scan.
type Result struct {
	Swings        []domain.SwingPoint
	BOS           []domain.BOSEvent
	CHoCH         []domain.CHoCHEvent
	MSB           []domain.MSBEvent
	Legs          []domain.StructuralLeg
	Trend         []domain.TrendSnapshot
	OrderBlocks   []domain.OrderBlock
	FVGs          []domain.FairValueGap
	LiquiditySweeps []LiquiditySweep
}

func (a Analyzer) rollingWindow() int {
	if a.RollingWindow > 0 {
		return a.RollingWindow
	}
	return a.PivotLeft + a.PivotRight + 1
}

func (a Analyzer) bosCandidates() int {
	if a.BOSCandidates > 0 {
		return a.BOSCandidates
	}
	return 5
}

func (a Analyzer) minSwingPairs() int {
	if a.MinSwingPairs > 0 {
		return a.MinSwingPairs
	}
	return 2
}

// Run scans candles (oldest first, a snapshot of one timeframe's local
// view) and produces the full structural result. On insufficient data
// (fewer than PivotLeft+PivotRight+1 bars) it returns an empty Result;
// callers treat an empty structure as "no setup".
func (a Analyzer) Run(candles []domain.Candle) Result {
	if len(candles) < a.PivotLeft+a.PivotRight+1 {
		return Result{}
	}

	swings := a.detectSwings(candles)
	legs := buildLegs(candles)
	classifyMajorLegs(legs)
	bos := a.detectBOS(candles, swings)
	choch := a.detectCHoCH(candles, bos, swings)
	msb := filterMajor(choch, legs, swings)
	trend := a.trendSnapshots(candles, swings, bos)
	obs := detectOrderBlocks(candles, bos)
	fvgs := detectFairValueGaps(candles)
	sweeps := detectLiquiditySweeps(candles, swings, a.EqualTolerance())

	return Result{
		Swings: swings, BOS: bos, CHoCH: choch, MSB: msb, Legs: legs, Trend: trend,
		OrderBlocks: obs, FVGs: fvgs, LiquiditySweeps: sweeps,
	}
}

// EqualTolerance returns the relative tolerance used to cluster equal
// highs/lows for liquidity-sweep and target-cluster detection.
func (a Analyzer) EqualTolerance() float64 {
	if a.LiquidityTolerance > 0 {
		return a.LiquidityTolerance
	}
	return 0.001 // 0.1% relative, per spec default
}
