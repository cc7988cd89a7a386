package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"replaybench/internal/domain"
	"replaybench/internal/fillsim"
	"replaybench/internal/riskgate"
	"replaybench/internal/signal"
	"replaybench/internal/structure"
)

func flatBars(symbol string, n int, value float64) []SymbolCandle {
	out := make([]SymbolCandle, 0, n)
	for i := 0; i < n; i++ {
		c := domain.Candle{
			Symbol: symbol, TimestampMs: int64(i) * 60_000,
			Open: value, High: value, Low: value, Close: value,
			Timeframe: domain.M1,
		}
		out = append(out, SymbolCandle{Symbol: symbol, Candle: c})
	}
	return out
}

func testStrategy() StrategyConfig {
	a := structure.Analyzer{PivotLeft: 2, PivotRight: 2, Lookback: 20}
	return StrategyConfig{
		Name:         "smc_v1",
		HTFTimeframe: domain.M1, ITFTimeframe: domain.M1, LTFTimeframe: domain.M1,
		HTFAnalyzer: a, ITFAnalyzer: a, LTFAnalyzer: a,
		HTFBars: 30, ITFBars: 30, LTFBars: 30,
		SignalParams:   signal.DefaultParams(),
		RiskGateConfig: riskgate.Config{ConfluenceThreshold: 60},
	}
}

// TestRunFlatMarketProducesNoTrades is a smoke test of the full hot loop: a
// flat price series never establishes a directional bias, so no strategy
// ever synthesizes an intent, and the final balance matches the initial one
// exactly.
func TestRunFlatMarketProducesNoTrades(t *testing.T) {
	cfg := Config{
		Symbols: []string{"EURUSD"}, Strategies: []StrategyConfig{testStrategy()},
		InitialBalance: decimal.NewFromInt(10000), RiskPercent: 1, ContractSize: 1, PipValue: 1,
		SnapshotEveryBars: 10, FillConfig: fillsim.DefaultConfig(), Timezone: time.UTC,
	}
	e := New(cfg)
	bars := flatBars("EURUSD", 40, 100)

	result, err := e.Run(context.Background(), bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != "COMPLETE" {
		t.Fatalf("expected COMPLETE status, got %s", result.Status)
	}
	if len(result.Trades) != 0 {
		t.Fatalf("expected no trades on a flat market, got %d", len(result.Trades))
	}
	if !result.FinalBalance.Equal(result.InitialBalance) {
		t.Fatalf("expected unchanged balance, got %v vs initial %v", result.FinalBalance, result.InitialBalance)
	}
	if len(result.EquityCurve) == 0 {
		t.Fatal("expected at least one equity snapshot")
	}
}

// TestRunRespectsCancellation verifies cooperative cancellation flushes a
// PARTIAL result instead of running to completion.
func TestRunRespectsCancellation(t *testing.T) {
	cfg := Config{
		Symbols: []string{"EURUSD"}, Strategies: []StrategyConfig{testStrategy()},
		InitialBalance: decimal.NewFromInt(10000), RiskPercent: 1, ContractSize: 1, PipValue: 1,
		SnapshotEveryBars: 10, FillConfig: fillsim.DefaultConfig(), Timezone: time.UTC,
	}
	e := New(cfg)
	bars := flatBars("EURUSD", 40, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := e.Run(ctx, bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != "PARTIAL" {
		t.Fatalf("expected PARTIAL status on pre-cancelled context, got %s", result.Status)
	}
}

func TestRunNoStrategiesIsError(t *testing.T) {
	e := New(Config{InitialBalance: decimal.NewFromInt(1000), Timezone: time.UTC})
	if _, err := e.Run(context.Background(), nil); err != ErrNoStrategies {
		t.Fatalf("expected ErrNoStrategies, got %v", err)
	}
}
