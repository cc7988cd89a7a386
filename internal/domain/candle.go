// Package domain holds the shared record types that flow between the
// candle store, structural analyzer, signal synthesizer, fill simulator,
// replay engine and optimizer. Every type here is immutable once
// constructed; callers that need a mutated copy build a new value.
package domain

import "fmt"

// Timeframe is a supported candle granularity. Higher timeframes are always
// derived from M1 bars by the candle store; they are never loaded directly.
type Timeframe string

const (
	M1  Timeframe = "M1"
	M5  Timeframe = "M5"
	M15 Timeframe = "M15"
	H1  Timeframe = "H1"
	H4  Timeframe = "H4"
	D1  Timeframe = "D1"
)

// Minutes returns the timeframe's duration in minutes.
func (tf Timeframe) Minutes() int64 {
	switch tf {
	case M1:
		return 1
	case M5:
		return 5
	case M15:
		return 15
	case H1:
		return 60
	case H4:
		return 240
	case D1:
		return 1440
	default:
		return 0
	}
}

// Candle is an immutable OHLCV record for one symbol/timeframe/boundary.
type Candle struct {
	Symbol      string
	TimestampMs int64
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	Timeframe   Timeframe
}

// Validate enforces the candle invariants from the data model: low is the
// true minimum, high the true maximum, and low is strictly positive.
func (c Candle) Validate() error {
	lo := min(c.Open, c.Close)
	hi := max(c.Open, c.Close)
	if !(c.Low <= lo && lo <= hi && hi <= c.High) {
		return fmt.Errorf("%w: symbol=%s ts=%d low=%g open=%g close=%g high=%g",
			ErrInvalidCandle, c.Symbol, c.TimestampMs, c.Low, c.Open, c.Close, c.High)
	}
	if c.Low <= 0 {
		return fmt.Errorf("%w: symbol=%s ts=%d non-positive low=%g", ErrInvalidCandle, c.Symbol, c.TimestampMs, c.Low)
	}
	return nil
}
