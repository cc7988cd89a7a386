package structure

import (
	"testing"

	"replaybench/internal/domain"
)

func candleAt(i int, v float64) domain.Candle {
	return domain.Candle{
		Symbol: "TEST", TimestampMs: int64(i) * 60_000,
		Open: v, Close: v, High: v, Low: v, Timeframe: domain.M1,
	}
}

// buildFromHighs constructs flat candles (open=close=high=low) from a
// single value sequence, exactly as the scenario's literal "highs" array
// describes — so the same series doubles as both the high and low input.
func buildFromHighs(values []float64) []domain.Candle {
	out := make([]domain.Candle, len(values))
	for i, v := range values {
		out[i] = candleAt(i, v)
	}
	return out
}

func hasSwing(swings []domain.SwingPoint, idx int, typ domain.SwingType) bool {
	for _, sw := range swings {
		if sw.CandleIndex == idx && sw.Type == typ {
			return true
		}
	}
	return false
}

// TestFractalSwingScenarioS3 matches the spec's concrete scenario: highs
// [1,2,3,4,3,2,1,2,3] with L=R=2 produce a swing high at index 3 and swing
// lows at indices 0 and 6.
func TestFractalSwingScenarioS3(t *testing.T) {
	candles := buildFromHighs([]float64{1, 2, 3, 4, 3, 2, 1, 2, 3})
	a := Analyzer{PivotLeft: 2, PivotRight: 2, SwingMode: ModeFractal}
	swings := a.detectSwingsFractal(candles, 0, len(candles))

	if !hasSwing(swings, 3, domain.SwingHigh) {
		t.Fatalf("expected swing high at index 3, got %+v", swings)
	}
	if !hasSwing(swings, 0, domain.SwingLow) {
		t.Fatalf("expected swing low at index 0, got %+v", swings)
	}
	if !hasSwing(swings, 6, domain.SwingLow) {
		t.Fatalf("expected swing low at index 6, got %+v", swings)
	}
}

// buildPriceSeries constructs non-degenerate candles with distinct
// high/low per bar, needed to exercise a genuine high-low swap.
func buildPriceSeries(values []float64) []domain.Candle {
	out := make([]domain.Candle, len(values))
	for i, v := range values {
		out[i] = domain.Candle{
			Symbol: "TEST", TimestampMs: int64(i) * 60_000,
			Open: v, Close: v, High: v + 0.5, Low: v - 0.5, Timeframe: domain.M1,
		}
	}
	return out
}

// TestFractalSwingSymmetry is Testable Property 5: flipping the price axis
// (negating and swapping high/low at each bar, same time order) swaps the
// detected swing types at identical indices.
func TestFractalSwingSymmetry(t *testing.T) {
	values := []float64{10, 20, 30, 40, 30, 20, 10, 20, 30}
	candles := buildPriceSeries(values)
	a := Analyzer{PivotLeft: 2, PivotRight: 2, SwingMode: ModeFractal}
	swings := a.detectSwingsFractal(candles, 0, len(candles))

	flipped := make([]domain.Candle, len(candles))
	for i, c := range candles {
		flipped[i] = domain.Candle{
			Symbol: c.Symbol, TimestampMs: c.TimestampMs,
			Open: -c.Open, Close: -c.Close, High: -c.Low, Low: -c.High, Timeframe: c.Timeframe,
		}
	}
	flippedSwings := a.detectSwingsFractal(flipped, 0, len(flipped))

	if len(swings) == 0 {
		t.Fatal("expected at least one swing in the base series")
	}
	for _, sw := range swings {
		wantType := domain.SwingLow
		if sw.Type == domain.SwingLow {
			wantType = domain.SwingHigh
		}
		if !hasSwing(flippedSwings, sw.CandleIndex, wantType) {
			t.Fatalf("expected swapped swing %s at index %d in price-flipped sequence, got %+v", wantType, sw.CandleIndex, flippedSwings)
		}
	}
}

// buildCHoCHScenario constructs the S4 bar sequence: a swing low near i=6
// at price 100, a bullish BOS around i=10, then a bearish close at i=20
// that breaches that anchor, then a second bearish BOS at i=25 that does
// not cross any new anchor.
func buildCHoCHScenario() []domain.Candle {
	candles := make([]domain.Candle, 30)
	for i := range candles {
		candles[i] = domain.Candle{
			Symbol: "TEST", TimestampMs: int64(i) * 60_000,
			Open: 105, Close: 105, High: 106, Low: 104, Timeframe: domain.M1,
		}
	}
	// Swing low anchor at i=6, price 100.
	candles[6] = domain.Candle{Symbol: "TEST", TimestampMs: 6 * 60_000, Open: 101, Close: 101, High: 102, Low: 100, Timeframe: domain.M1}
	// Swing high before the anchor, broken by the bullish BOS at i=10.
	candles[4] = domain.Candle{Symbol: "TEST", TimestampMs: 4 * 60_000, Open: 108, Close: 108, High: 109, Low: 107, Timeframe: domain.M1}
	candles[10] = domain.Candle{Symbol: "TEST", TimestampMs: 10 * 60_000, Open: 109, Close: 110, High: 110, Low: 108, Timeframe: domain.M1}
	// Bearish close breaching the anchor (100) at i=20.
	candles[20] = domain.Candle{Symbol: "TEST", TimestampMs: 20 * 60_000, Open: 101, Close: 99, High: 101, Low: 98, Timeframe: domain.M1}
	// Second bearish BOS at i=25: its close (97.5) breaks the i=20 swing low
	// (98), but the bias is already bearish, so no new anchor is crossed.
	candles[25] = domain.Candle{Symbol: "TEST", TimestampMs: 25 * 60_000, Open: 99, Close: 97.5, High: 99, Low: 97, Timeframe: domain.M1}
	return candles
}

// TestCHoCHFiresOnce is Scenario S4: one CHoCH at the anchor-breaching BOS,
// and no further CHoCH for the later bearish BOS at i=25, which crosses no
// new anchor.
func TestCHoCHFiresOnce(t *testing.T) {
	candles := buildCHoCHScenario()
	a := Analyzer{PivotLeft: 2, PivotRight: 2, StrictClose: true, Lookback: 30}
	swings := a.detectSwings(candles)
	bos := a.detectBOS(candles, swings)
	choch := a.detectCHoCH(candles, bos, swings)

	if len(choch) != 1 {
		t.Fatalf("expected exactly one CHoCH event, got %d: %+v", len(choch), choch)
	}
	got := choch[0]
	if got.FromTrend != domain.BiasBullish || got.ToTrend != domain.BiasBearish {
		t.Fatalf("unexpected trend transition: %+v", got)
	}
	if got.Level != 100 {
		t.Fatalf("expected anchor level 100, got %v", got.Level)
	}
}

// TestCHoCHAnchorBreakProperty is Testable Property 6: a CHoCH is emitted
// at bar i iff the BOS at i is opposite the current bias and the candle's
// close crosses the recorded anchor price. We assert the negative case
// here: the bearish BOS at index 25 comes after the bias has already
// turned bearish, so it is not opposite the bias and produces no CHoCH.
func TestCHoCHAnchorBreakProperty(t *testing.T) {
	candles := buildCHoCHScenario()
	a := Analyzer{PivotLeft: 2, PivotRight: 2, StrictClose: true, Lookback: 30}
	swings := a.detectSwings(candles)
	bos := a.detectBOS(candles, swings)
	choch := a.detectCHoCH(candles, bos, swings)

	for _, e := range choch {
		if e.Index == 25 {
			t.Fatalf("did not expect a CHoCH at index 25 (no new anchor crossed): %+v", e)
		}
	}
}

// TestMSBSubsetOfCHoCH is Testable Property 7: the MSB event set is always
// a subset of the CHoCH event set.
func TestMSBSubsetOfCHoCH(t *testing.T) {
	candles := buildCHoCHScenario()
	a := Analyzer{PivotLeft: 2, PivotRight: 2, StrictClose: true, Lookback: 30}
	result := a.Run(candles)

	chochIndices := make(map[int]bool, len(result.CHoCH))
	for _, e := range result.CHoCH {
		chochIndices[e.Index] = true
	}
	for _, m := range result.MSB {
		if !chochIndices[m.Index] {
			t.Fatalf("MSB event at index %d has no matching CHoCH event", m.Index)
		}
	}
}

// TestRunInsufficientDataReturnsEmpty covers the documented short-circuit:
// fewer than PivotLeft+PivotRight+1 bars yields an empty Result.
func TestRunInsufficientDataReturnsEmpty(t *testing.T) {
	a := Analyzer{PivotLeft: 5, PivotRight: 5}
	result := a.Run(buildFromHighs([]float64{1, 2, 3}))
	if len(result.Swings) != 0 || len(result.BOS) != 0 || len(result.Trend) != 0 {
		t.Fatalf("expected empty result on insufficient data, got %+v", result)
	}
}
