package engine

import (
	"testing"

	"replaybench/internal/domain"
)

func TestMergeCandleStreamsOrdersByTimestampThenSymbol(t *testing.T) {
	streams := map[string][]domain.Candle{
		"EURUSD": {
			{Symbol: "EURUSD", TimestampMs: 0},
			{Symbol: "EURUSD", TimestampMs: 120_000},
		},
		"GBPUSD": {
			{Symbol: "GBPUSD", TimestampMs: 0},
			{Symbol: "GBPUSD", TimestampMs: 60_000},
		},
	}

	merged := MergeCandleStreams(streams)
	if len(merged) != 4 {
		t.Fatalf("expected 4 merged bars, got %d", len(merged))
	}

	// Both symbols have a bar at ts=0; the stable tie-break is alphabetical
	// by symbol.
	if merged[0].Symbol != "EURUSD" || merged[0].Candle.TimestampMs != 0 {
		t.Fatalf("expected EURUSD first at ts=0, got %+v", merged[0])
	}
	if merged[1].Symbol != "GBPUSD" || merged[1].Candle.TimestampMs != 0 {
		t.Fatalf("expected GBPUSD second at ts=0, got %+v", merged[1])
	}
	if merged[2].Symbol != "GBPUSD" || merged[2].Candle.TimestampMs != 60_000 {
		t.Fatalf("expected GBPUSD at ts=60000 third, got %+v", merged[2])
	}
	if merged[3].Symbol != "EURUSD" || merged[3].Candle.TimestampMs != 120_000 {
		t.Fatalf("expected EURUSD at ts=120000 last, got %+v", merged[3])
	}
}
