package structure

import "replaybench/internal/domain"

// LiquiditySweep marks a bar that briefly penetrated a cluster of equal
// highs/lows and closed back through it, consuming the resting stops.
type LiquiditySweep struct {
	Index      int
	Type       domain.ZoneType
	ClusterHi  float64
	ClusterLo  float64
	SweptLevel float64
}

// detectOrderBlocks marks the candle immediately preceding a BOS's
// confirming displacement candle as an order block, bounded by its own
// high/low. It stays tracked (Mitigated=false) until a later candle's
// range revisits the zone.
func detectOrderBlocks(candles []domain.Candle, bosEvents []domain.BOSEvent) []domain.OrderBlock {
	var out []domain.OrderBlock
	for _, bos := range bosEvents {
		i := bos.Index
		if i == 0 {
			continue
		}
		prev := candles[i-1]
		ob := domain.OrderBlock{
			High: prev.High, Low: prev.Low,
			TimestampMs: prev.TimestampMs, Timeframe: prev.Timeframe,
		}
		if bos.Direction == domain.Bullish {
			ob.Type = domain.ZoneBullish
		} else {
			ob.Type = domain.ZoneBearish
		}
		markMitigated(&ob, candles, i+1)
		out = append(out, ob)
	}
	return out
}

func markMitigated(ob *domain.OrderBlock, candles []domain.Candle, from int) {
	for i := from; i < len(candles); i++ {
		c := candles[i]
		if c.Low <= ob.High && c.High >= ob.Low {
			ob.Mitigated = true
			return
		}
	}
}

// detectFairValueGaps scans consecutive candle triples for the three-candle
// imbalance: the middle candle leaves an untouched gap between the first
// candle's extreme and the third candle's opposite extreme.
func detectFairValueGaps(candles []domain.Candle) []domain.FairValueGap {
	var out []domain.FairValueGap
	for i := 1; i+1 < len(candles); i++ {
		first, third := candles[i-1], candles[i+1]

		if third.Low > first.High {
			gap := domain.FairValueGap{
				Type: domain.ZoneBullish, High: third.Low, Low: first.High,
				Timeframe: candles[i].Timeframe, Grade: gradeFVG(third.Low, first.High),
			}
			markFVGFilled(&gap, candles, i+2)
			out = append(out, gap)
		}
		if third.High < first.Low {
			gap := domain.FairValueGap{
				Type: domain.ZoneBearish, High: first.Low, Low: third.High,
				Timeframe: candles[i].Timeframe, Grade: gradeFVG(first.Low, third.High),
			}
			markFVGFilled(&gap, candles, i+2)
			out = append(out, gap)
		}
	}
	return out
}

func gradeFVG(hi, lo float64) domain.FVGGrade {
	width := hi - lo
	mid := (hi + lo) / 2
	if mid == 0 {
		return domain.FVGWide
	}
	relWidth := width / mid
	switch {
	case relWidth < 0.0005:
		return domain.FVGNested
	case relWidth < 0.002:
		return domain.FVGNarrow
	default:
		return domain.FVGWide
	}
}

func markFVGFilled(gap *domain.FairValueGap, candles []domain.Candle, from int) {
	for i := from; i < len(candles); i++ {
		c := candles[i]
		if c.Low <= gap.High && c.High >= gap.Low {
			gap.Filled = true
			return
		}
	}
}

// detectLiquiditySweeps finds, for each candle, whether it briefly pierced
// an equal-high/equal-low cluster formed by prior swings of the same type
// within the relative tolerance, then closed back through the whole
// cluster: below its lowest price for a high cluster, above its highest
// price for a low cluster.
func detectLiquiditySweeps(candles []domain.Candle, swings []domain.SwingPoint, tolerance float64) []LiquiditySweep {
	var out []LiquiditySweep
	highs, lows := splitByType(swings)

	for i, c := range candles {
		if cluster, ok := equalCluster(highs, i, tolerance); ok {
			if c.High > cluster.hi && c.Close < cluster.lo {
				out = append(out, LiquiditySweep{Index: i, Type: domain.ZoneBearish, ClusterHi: cluster.hi, ClusterLo: cluster.lo, SweptLevel: cluster.hi})
			}
		}
		if cluster, ok := equalCluster(lows, i, tolerance); ok {
			if c.Low < cluster.lo && c.Close > cluster.hi {
				out = append(out, LiquiditySweep{Index: i, Type: domain.ZoneBullish, ClusterHi: cluster.hi, ClusterLo: cluster.lo, SweptLevel: cluster.lo})
			}
		}
	}
	return out
}

type priceCluster struct{ hi, lo float64 }

// equalCluster finds a set of >=2 swings (strictly before idx) whose prices
// fall within tolerance of each other, returning the cluster's [lo, hi]
// bound. It considers only the most recent qualifying pair.
func equalCluster(swings []domain.SwingPoint, idx int, tolerance float64) (priceCluster, bool) {
	var candidates []domain.SwingPoint
	for _, sw := range swings {
		if sw.CandleIndex < idx {
			candidates = append(candidates, sw)
		}
	}
	for i := len(candidates) - 1; i >= 0; i-- {
		for j := i - 1; j >= 0; j-- {
			a, b := candidates[i].Price, candidates[j].Price
			mid := (a + b) / 2
			if mid == 0 {
				continue
			}
			if absFloat(a-b)/mid <= tolerance {
				lo, hi := a, b
				if lo > hi {
					lo, hi = hi, lo
				}
				return priceCluster{hi: hi, lo: lo}, true
			}
		}
	}
	return priceCluster{}, false
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
