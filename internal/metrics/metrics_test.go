package metrics

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"replaybench/internal/domain"
)

func trade(profit, entry float64) domain.Trade {
	return domain.Trade{
		Profit:     decimal.NewFromFloat(profit),
		EntryPrice: decimal.NewFromFloat(entry),
	}
}

func TestComputeEmptyTradesReturnsZeroStats(t *testing.T) {
	s := Compute(nil, nil)
	if s.TradeCount != 0 || s.WinRate != 0 || s.ProfitFactor != 0 {
		t.Fatalf("expected zero-value stats for no trades, got %+v", s)
	}
}

func TestComputeWinRateAndProfitFactor(t *testing.T) {
	trades := []domain.Trade{
		trade(100, 1.1000),
		trade(-50, 1.1000),
		trade(200, 1.1000),
	}
	s := Compute(trades, nil)

	if s.TradeCount != 3 {
		t.Fatalf("expected 3 trades, got %d", s.TradeCount)
	}
	wantWinRate := 2.0 / 3.0
	if math.Abs(s.WinRate-wantWinRate) > 1e-9 {
		t.Fatalf("win rate mismatch: got %f want %f", s.WinRate, wantWinRate)
	}
	wantPF := 300.0 / 50.0
	if math.Abs(s.ProfitFactor-wantPF) > 1e-9 {
		t.Fatalf("profit factor mismatch: got %f want %f", s.ProfitFactor, wantPF)
	}
	if math.Abs(s.TotalPnL-250) > 1e-9 {
		t.Fatalf("total pnl mismatch: got %f want 250", s.TotalPnL)
	}
}

func TestComputeTracksConsecutiveStreaks(t *testing.T) {
	trades := []domain.Trade{
		trade(10, 1), trade(10, 1), trade(10, 1), // win streak 3
		trade(-5, 1), trade(-5, 1), // loss streak 2
		trade(10, 1),
	}
	s := Compute(trades, nil)
	if s.MaxConsecutiveWins != 3 {
		t.Fatalf("expected max win streak 3, got %d", s.MaxConsecutiveWins)
	}
	if s.MaxConsecutiveLoss != 2 {
		t.Fatalf("expected max loss streak 2, got %d", s.MaxConsecutiveLoss)
	}
}

func TestComputeMaxDrawdownFromEquityCurve(t *testing.T) {
	equity := []domain.EquityPoint{
		{Drawdown: decimal.NewFromInt(0), DrawdownPct: 0},
		{Drawdown: decimal.NewFromInt(100), DrawdownPct: 5},
		{Drawdown: decimal.NewFromInt(50), DrawdownPct: 2.5},
	}
	s := Compute([]domain.Trade{trade(1, 1)}, equity)
	if v, _ := decimal.NewFromFloat(s.MaxDrawdown).Float64(); v != 100 {
		t.Fatalf("expected max drawdown 100, got %f", s.MaxDrawdown)
	}
	if s.MaxDrawdownPct != 5 {
		t.Fatalf("expected max drawdown pct 5, got %f", s.MaxDrawdownPct)
	}
}

func TestComputeZeroVarianceReturnsZeroSharpe(t *testing.T) {
	trades := []domain.Trade{trade(10, 1), trade(10, 1), trade(10, 1)}
	s := Compute(trades, nil)
	if s.Sharpe != 0 {
		t.Fatalf("expected zero Sharpe for zero-variance returns, got %f", s.Sharpe)
	}
}
