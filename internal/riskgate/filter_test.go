package riskgate

import (
	"context"
	"testing"
	"time"

	"replaybench/internal/domain"
)

func TestEvaluatePassesWithinLimits(t *testing.T) {
	cfg := Config{ConfluenceThreshold: 60, MaxDailyTrades: 5, MaxConcurrentPerSymbol: 3}
	intent := domain.TradeIntent{ConfluenceScore: 75}
	ec := EvalContext{Now: time.Now(), GuardrailMode: ModeNormal}

	out := Evaluate(intent, cfg, ec, 1.0)
	decision, ok := out.Value()
	if !ok {
		t.Fatalf("expected Ok, got %+v", out)
	}
	if decision.RiskPercent != 1.0 {
		t.Fatalf("expected unscaled risk percent, got %v", decision.RiskPercent)
	}
}

func TestEvaluateBlockedModeRejects(t *testing.T) {
	out := Evaluate(domain.TradeIntent{}, Config{}, EvalContext{GuardrailMode: ModeBlocked}, 1.0)
	if !out.IsSkip() {
		t.Fatalf("expected skip in blocked mode, got %+v", out)
	}
}

func TestEvaluateReducedModeHalvesRisk(t *testing.T) {
	cfg := Config{ConfluenceThreshold: 0}
	intent := domain.TradeIntent{ConfluenceScore: 80}
	ec := EvalContext{Now: time.Now(), GuardrailMode: ModeReduced}

	out := Evaluate(intent, cfg, ec, 2.0)
	decision, ok := out.Value()
	if !ok {
		t.Fatalf("expected Ok, got %+v", out)
	}
	if decision.RiskPercent != 1.0 {
		t.Fatalf("expected risk percent halved to 1.0, got %v", decision.RiskPercent)
	}
}

func TestEvaluateFailsDailyTradeCap(t *testing.T) {
	cfg := Config{MaxDailyTrades: 2}
	ec := EvalContext{Now: time.Now(), DailyTradeCount: 2, GuardrailMode: ModeNormal}

	out := Evaluate(domain.TradeIntent{}, cfg, ec, 1.0)
	if !out.IsSkip() {
		t.Fatalf("expected skip on daily trade cap, got %+v", out)
	}
	found := false
	for _, r := range out.Reasons() {
		if r == "daily_trade_count_exceeded" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected daily_trade_count_exceeded in reasons, got %v", out.Reasons())
	}
}

type fakeNewsSource struct {
	intervals []Interval
	err       error
}

func (f fakeNewsSource) Avoid(ctx context.Context, symbol string, date time.Time) ([]Interval, error) {
	return f.intervals, f.err
}

func TestNewsWindowGateBlocksInsideInterval(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	gate := NewNewsWindowGate(fakeNewsSource{intervals: []Interval{{Start: base.Add(-15 * time.Minute), End: base.Add(15 * time.Minute)}}})

	if !gate.Blocked(context.Background(), "EURUSD", base) {
		t.Fatal("expected blocked inside news interval")
	}
	if gate.Blocked(context.Background(), "EURUSD", base.Add(time.Hour)) {
		t.Fatal("expected not blocked outside news interval")
	}
}

func TestNewsWindowGateDegradesOnFailurePerSymbolDate(t *testing.T) {
	gate := NewNewsWindowGate(fakeNewsSource{err: context.DeadlineExceeded})
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	if gate.Blocked(context.Background(), "EURUSD", at) {
		t.Fatal("expected lookup failure to degrade to not-blocked")
	}
}
