package signal

import (
	"math"

	"replaybench/internal/domain"
	"replaybench/internal/structure"
)

// averageTrueRange computes ATR(period) on the working timeframe using the
// standard true-range definition, over the trailing `period` bars ending
// at the last candle.
func averageTrueRange(candles []domain.Candle, period int) float64 {
	if period <= 0 {
		period = 14
	}
	n := len(candles)
	if n < 2 {
		return 0
	}
	start := n - period
	if start < 1 {
		start = 1
	}
	var sum float64
	count := 0
	for i := start; i < n; i++ {
		c, prev := candles[i], candles[i-1]
		tr := math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prev.Close), math.Abs(c.Low-prev.Close)))
		sum += tr
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// deriveStop picks the stop candidate closest to entry that still clears
// the minimum distance, preserving the priority order: order block, FVG,
// most-recent LTF swing, then an ATR-based fallback. Returns the stop price
// and the name of the winning candidate; an empty reason means no valid
// candidate was found.
func deriveStop(ltf structure.Result, idx int, direction domain.Direction, entry, atr float64, p Params) (float64, string) {
	minDist := math.Max(p.MinSLDistanceAbs, p.MinSLDistancePct*entry)

	type candidate struct {
		price  float64
		reason string
	}
	var candidates []candidate

	want := zoneTypeFor(direction)
	for i := len(ltf.OrderBlocks) - 1; i >= 0; i-- {
		ob := ltf.OrderBlocks[i]
		if ob.Type != want {
			continue
		}
		if direction == domain.Bullish {
			candidates = append(candidates, candidate{ob.Low, "ob_stop"})
		} else {
			candidates = append(candidates, candidate{ob.High, "ob_stop"})
		}
		break
	}
	for i := len(ltf.FVGs) - 1; i >= 0; i-- {
		fvg := ltf.FVGs[i]
		if fvg.Type != want {
			continue
		}
		if direction == domain.Bullish {
			candidates = append(candidates, candidate{fvg.Low, "fvg_stop"})
		} else {
			candidates = append(candidates, candidate{fvg.High, "fvg_stop"})
		}
		break
	}
	swingType := domain.SwingLow
	if direction == domain.Bearish {
		swingType = domain.SwingHigh
	}
	for i := len(ltf.Swings) - 1; i >= 0; i-- {
		sw := ltf.Swings[i]
		if sw.CandleIndex > idx || sw.Type != swingType {
			continue
		}
		candidates = append(candidates, candidate{sw.Price, "swing_stop"})
		break
	}

	fallback := entry - 1.5*atr
	if direction == domain.Bearish {
		fallback = entry + 1.5*atr
	}
	candidates = append(candidates, candidate{fallback, "atr_fallback_stop"})

	for _, c := range candidates {
		dist := math.Abs(entry - c.price)
		if dist < minDist {
			continue
		}
		if direction == domain.Bullish && c.price >= entry {
			continue
		}
		if direction == domain.Bearish && c.price <= entry {
			continue
		}
		return c.price, c.reason
	}
	return 0, ""
}

// deriveTarget selects the nearest qualifying cluster of equal highs
// (bullish) / equal lows (bearish) beyond entry; falls back to a
// risk-multiple target when no cluster clears the minimum reward-to-risk,
// capped at the maximum reward-to-risk.
func deriveTarget(ltf structure.Result, idx int, direction domain.Direction, entry, risk float64, p Params) float64 {
	cluster, ok := nearestClusterBeyond(ltf.Swings, idx, direction, entry, p.ClusterTolerance)
	if ok {
		rr := math.Abs(cluster-entry) / risk
		if rr >= p.MinRR {
			rr = math.Min(rr, p.MaxRR)
			if direction == domain.Bullish {
				return entry + rr*risk
			}
			return entry - rr*risk
		}
	}
	rr := math.Min(p.DefaultRR, p.MaxRR)
	if direction == domain.Bullish {
		return entry + rr*risk
	}
	return entry - rr*risk
}

// nearestClusterBeyond finds the nearest cluster of >=2 swing extremes of
// the target type (highs for bullish targets, lows for bearish) that lies
// beyond entry, all priced within tolerance of each other.
func nearestClusterBeyond(swings []domain.SwingPoint, idx int, direction domain.Direction, entry, tolerance float64) (float64, bool) {
	wantType := domain.SwingHigh
	if direction == domain.Bearish {
		wantType = domain.SwingLow
	}

	var candidates []domain.SwingPoint
	for _, sw := range swings {
		if sw.CandleIndex > idx || sw.Type != wantType {
			continue
		}
		if direction == domain.Bullish && sw.Price <= entry {
			continue
		}
		if direction == domain.Bearish && sw.Price >= entry {
			continue
		}
		candidates = append(candidates, sw)
	}

	best, bestDist := 0.0, math.Inf(1)
	found := false
	for i := range candidates {
		for j := range candidates {
			if i == j {
				continue
			}
			a, b := candidates[i].Price, candidates[j].Price
			mid := (a + b) / 2
			if mid == 0 || math.Abs(a-b)/mid > tolerance {
				continue
			}
			dist := math.Abs(a - entry)
			if dist < bestDist {
				bestDist, best, found = dist, a, true
			}
		}
	}
	return best, found
}
