package signal

import (
	"testing"

	"replaybench/internal/domain"
	"replaybench/internal/structure"
)

func flatCandles(n int, base float64) []domain.Candle {
	out := make([]domain.Candle, n)
	for i := range out {
		out[i] = domain.Candle{
			Symbol: "TEST", TimestampMs: int64(i) * 60_000,
			Open: base, Close: base, High: base + 1, Low: base - 1, Timeframe: domain.M1,
		}
	}
	return out
}

func TestSynthesizeSkipsWithoutDirectionalHTFBias(t *testing.T) {
	in := Input{
		Symbol: "EURUSD", Candles: flatCandles(5, 100),
		HTFBias: domain.BiasSideways, ITFBias: domain.BiasBullish,
		Params: DefaultParams(),
	}
	out := Synthesize(in)
	if !out.IsSkip() {
		t.Fatalf("expected skip on non-directional HTF bias, got %+v", out)
	}
}

func TestSynthesizeSkipsWithoutITFAlignment(t *testing.T) {
	in := Input{
		Symbol: "EURUSD", Candles: flatCandles(5, 100),
		HTFBias: domain.BiasBullish, ITFBias: domain.BiasBearish,
		Params: DefaultParams(),
	}
	out := Synthesize(in)
	if !out.IsSkip() {
		t.Fatalf("expected skip on misaligned ITF bias, got %+v", out)
	}
}

func TestSynthesizeSkipsWithoutLTFConfirmations(t *testing.T) {
	in := Input{
		Symbol: "EURUSD", Candles: flatCandles(5, 100),
		HTFBias: domain.BiasBullish, ITFBias: domain.BiasBullish,
		LTF: structure.Result{}, Params: DefaultParams(),
	}
	out := Synthesize(in)
	if !out.IsSkip() {
		t.Fatalf("expected skip without any LTF confirmations, got %+v", out)
	}
}

func TestSynthesizeProducesIntentOnFullConfluence(t *testing.T) {
	candles := flatCandles(20, 100)
	idx := len(candles) - 1

	ltf := structure.Result{
		LiquiditySweeps: []structure.LiquiditySweep{{Index: idx, Type: domain.ZoneBullish}},
		OrderBlocks:     []domain.OrderBlock{{Type: domain.ZoneBullish, High: 99.5, Low: 98.5, Mitigated: false}},
		BOS:             []domain.BOSEvent{{Index: idx - 1, Direction: domain.Bullish}},
		Swings:          []domain.SwingPoint{{CandleIndex: idx - 2, Type: domain.SwingLow, Price: 97}},
	}

	in := Input{
		Symbol: "EURUSD", Strategy: "smc_v1", Candles: candles,
		HTFBias: domain.BiasBullish, ITFBias: domain.BiasBullish,
		LTF: ltf, Params: DefaultParams(),
	}
	out := Synthesize(in)
	intent, ok := out.Value()
	if !ok {
		t.Fatalf("expected Ok outcome, got %+v", out)
	}
	if intent.Direction != domain.Bullish {
		t.Fatalf("expected bullish intent, got %+v", intent)
	}
	if intent.StopLoss >= intent.Entry {
		t.Fatalf("expected stop below entry for bullish intent, got %+v", intent)
	}
	if intent.TakeProfit <= intent.Entry {
		t.Fatalf("expected target above entry for bullish intent, got %+v", intent)
	}
	if intent.ConfluenceScore < DefaultParams().ConfluenceThreshold {
		t.Fatalf("expected confluence score above threshold, got %v", intent.ConfluenceScore)
	}
}
