package structure

import "replaybench/internal/domain"

// detectBOS scans candles in order, consuming the nearest unbroken swing
// each time a candle's close (or wick, in non-strict mode) crosses it.
// Once broken, a swing is never reconsidered.
func (a Analyzer) detectBOS(candles []domain.Candle, swings []domain.SwingPoint) []domain.BOSEvent {
	broken := make(map[int]bool, len(swings))
	var events []domain.BOSEvent

	for i, c := range candles {
		// Nearest unbroken swing high/low within the index-distance bound,
		// considering only swings that have already formed (index < i).
		var bestHigh, bestLow *domain.SwingPoint
		candidates := 0
		for si := len(swings) - 1; si >= 0 && candidates < a.bosCandidates(); si-- {
			sw := swings[si]
			if sw.CandleIndex >= i {
				continue
			}
			if i-sw.CandleIndex > a.Lookback {
				break
			}
			if broken[swingKey(sw)] {
				continue
			}
			candidates++
			switch sw.Type {
			case domain.SwingHigh:
				if bestHigh == nil || sw.Price < bestHigh.Price {
					s := sw
					bestHigh = &s
				}
			case domain.SwingLow:
				if bestLow == nil || sw.Price > bestLow.Price {
					s := sw
					bestLow = &s
				}
			}
		}

		if bestHigh != nil && crossesUp(c, bestHigh.Price, a.StrictClose) {
			broken[swingKey(*bestHigh)] = true
			events = append(events, domain.BOSEvent{
				Index: i, Direction: domain.Bullish, BrokenSwingIndex: bestHigh.CandleIndex,
				BrokenSwingType: domain.SwingHigh, Level: bestHigh.Price, TimestampMs: c.TimestampMs, StrictClose: a.StrictClose,
			})
		}
		if bestLow != nil && crossesDown(c, bestLow.Price, a.StrictClose) {
			broken[swingKey(*bestLow)] = true
			events = append(events, domain.BOSEvent{
				Index: i, Direction: domain.Bearish, BrokenSwingIndex: bestLow.CandleIndex,
				BrokenSwingType: domain.SwingLow, Level: bestLow.Price, TimestampMs: c.TimestampMs, StrictClose: a.StrictClose,
			})
		}
	}
	return events
}

func crossesUp(c domain.Candle, level float64, strict bool) bool {
	if strict {
		return c.Close > level
	}
	return c.High > level
}

func crossesDown(c domain.Candle, level float64, strict bool) bool {
	if strict {
		return c.Close < level
	}
	return c.Low < level
}

func swingKey(sw domain.SwingPoint) int {
	// Distinct keys per index+type: encode type in the low bit.
	k := sw.CandleIndex << 1
	if sw.Type == domain.SwingLow {
		k |= 1
	}
	return k
}
