// Package candlestore holds per-symbol rolling M1 candle history and
// derives higher timeframes on demand. Higher timeframes are never stored;
// aggregation is one-way (M1 -> higher) per the data model's invariant that
// the store is M1-only input.
package candlestore

import (
	"fmt"
	"sync"

	"replaybench/internal/domain"
)

// Store is a per-symbol bounded ring buffer of M1 candles. The zero value is
// not usable; use New.
type Store struct {
	capacity int

	mu   sync.Mutex
	bars map[string][]domain.Candle // append-only per symbol, trimmed to capacity
}

// New creates a Store whose per-symbol ring holds up to capacity M1 bars.
// capacity should be sized to accommodate at least 50 bars of the longest
// timeframe in use (e.g. 50 * 1440 for D1).
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = 50 * int(domain.D1.Minutes())
	}
	return &Store{capacity: capacity, bars: make(map[string][]domain.Candle)}
}

// Append adds one M1 candle for its symbol. It rejects non-M1 candles, rows
// that violate the candle invariants, and timestamps that do not strictly
// increase for the symbol.
func (s *Store) Append(c domain.Candle) error {
	if c.Timeframe != domain.M1 {
		return fmt.Errorf("%w: candle store only accepts M1 input, got %s", domain.ErrInvariantViolation, c.Timeframe)
	}
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	series := s.bars[c.Symbol]
	if len(series) > 0 && c.TimestampMs <= series[len(series)-1].TimestampMs {
		return fmt.Errorf("%w: symbol %s timestamp %d <= last %d", domain.ErrInvariantViolation, c.Symbol, c.TimestampMs, series[len(series)-1].TimestampMs)
	}

	series = append(series, c)
	if len(series) > s.capacity {
		series = series[len(series)-s.capacity:]
	}
	s.bars[c.Symbol] = series
	return nil
}

// Clear drops all bars for one symbol.
func (s *Store) Clear(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bars, symbol)
}

// Recent returns the most recent n bars for symbol aggregated to timeframe.
// For timeframe == M1 this returns the last n appended bars unchanged.
func (s *Store) Recent(symbol string, timeframe domain.Timeframe, n int) []domain.Candle {
	s.mu.Lock()
	series := append([]domain.Candle(nil), s.bars[symbol]...)
	s.mu.Unlock()

	if timeframe == domain.M1 {
		if len(series) > n {
			series = series[len(series)-n:]
		}
		return series
	}

	agg := Aggregate(series, timeframe)
	if len(agg) > n {
		agg = agg[len(agg)-n:]
	}
	return agg
}

// Aggregate groups M1 candles into timeframe-boundary-aligned bars. Within
// each group: open is the first candle's open, close is the last candle's
// close, high/low are the group extremes, volume sums. A partial group at
// the tail (fewer than the full bar's worth of M1 candles) is still emitted,
// representing the in-progress bar.
func Aggregate(m1 []domain.Candle, timeframe domain.Timeframe) []domain.Candle {
	k := timeframe.Minutes()
	if k <= 0 || len(m1) == 0 {
		return nil
	}
	spanMs := k * 60_000

	var out []domain.Candle
	var cur *domain.Candle
	var boundary int64 = -1

	for _, c := range m1 {
		b := (c.TimestampMs / spanMs) * spanMs
		if cur == nil || b != boundary {
			if cur != nil {
				out = append(out, *cur)
			}
			boundary = b
			cp := c
			cp.Timeframe = timeframe
			cp.TimestampMs = b
			cur = &cp
			continue
		}
		cur.High = max(cur.High, c.High)
		cur.Low = min(cur.Low, c.Low)
		cur.Close = c.Close
		cur.Volume += c.Volume
	}
	if cur != nil {
		out = append(out, *cur)
	}
	return out
}
