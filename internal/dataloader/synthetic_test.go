package dataloader

import (
	"context"
	"reflect"
	"testing"
	"time"

	"replaybench/internal/domain"
)

func TestSyntheticSourceIsDeterministicGivenSeed(t *testing.T) {
	src := SyntheticSource{Seed: 42, Timeframe: domain.M1}
	from := time.UnixMilli(0)
	to := time.UnixMilli(5 * 60_000)

	a, err := src.Load(context.Background(), "EURUSD", from, to, domain.M1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := src.Load(context.Background(), "EURUSD", from, to, domain.M1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("expected identical output for the same seed and symbol")
	}

	other, err := src.Load(context.Background(), "GBPUSD", from, to, domain.M1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reflect.DeepEqual(a, other) {
		t.Fatal("expected different symbols to diverge")
	}
}

func TestSyntheticSourceRespectsCandleInvariants(t *testing.T) {
	src := SyntheticSource{Seed: 7, Timeframe: domain.M1}
	out, err := src.Load(context.Background(), "EURUSD", time.UnixMilli(0), time.UnixMilli(20*60_000), domain.M1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range out {
		if err := c.Validate(); err != nil {
			t.Fatalf("generated candle violates invariants: %v", err)
		}
	}
}
