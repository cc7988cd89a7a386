package structure

import "replaybench/internal/domain"

// detectSwings dispatches to the configured pivot-detection mode. Swings
// are always returned in ascending index order.
func (a Analyzer) detectSwings(candles []domain.Candle) []domain.SwingPoint {
	switch a.SwingMode {
	case ModeRolling:
		return a.detectSwingsRolling(candles, 0, len(candles))
	case ModeHybrid:
		return a.detectSwingsHybrid(candles)
	default:
		return a.detectSwingsFractal(candles, 0, len(candles))
	}
}

// detectSwingsFractal marks candles[i] a swing high/low when it strictly
// exceeds (or undercuts) every other candle within the available window
// [i-L, i+R] clipped to [from, to). Windows near the edges of the slice are
// clipped rather than skipped, so a true boundary extreme is still
// reported — only the overall insufficient-data case (checked by the
// caller) suppresses detection entirely. Ties never qualify a candidate:
// a candidate must be strictly better than every neighbor in its window,
// so when two equal extremes fall inside each other's window neither is
// reported.
func (a Analyzer) detectSwingsFractal(candles []domain.Candle, from, to int) []domain.SwingPoint {
	var out []domain.SwingPoint
	for i := from; i < to; i++ {
		lo := max(from, i-a.PivotLeft)
		hi := min(to-1, i+a.PivotRight)

		isHigh, isLow := true, true
		for j := lo; j <= hi; j++ {
			if j == i {
				continue
			}
			if candles[j].High >= candles[i].High {
				isHigh = false
			}
			if candles[j].Low <= candles[i].Low {
				isLow = false
			}
		}
		if isHigh {
			out = append(out, domain.SwingPoint{CandleIndex: i, Type: domain.SwingHigh, Price: candles[i].High, TimestampMs: candles[i].TimestampMs})
		}
		if isLow {
			out = append(out, domain.SwingPoint{CandleIndex: i, Type: domain.SwingLow, Price: candles[i].Low, TimestampMs: candles[i].TimestampMs})
		}
	}
	return out
}

// detectSwingsRolling emits a swing whenever the rolling argmax/argmin over
// the trailing W bars changes, attributing the swing to the bar that held
// the extreme before the change (non-repainting: the swing is only emitted
// once a later bar has displaced it as the window's extreme).
func (a Analyzer) detectSwingsRolling(candles []domain.Candle, from, to int) []domain.SwingPoint {
	w := a.rollingWindow()
	if w <= 0 || to-from < w {
		return nil
	}

	var out []domain.SwingPoint
	lastArgmax, lastArgmin := -1, -1

	for i := from + w - 1; i < to; i++ {
		winStart := i - w + 1
		argmax, argmin := winStart, winStart
		for j := winStart; j <= i; j++ {
			if candles[j].High > candles[argmax].High {
				argmax = j
			}
			if candles[j].Low < candles[argmin].Low {
				argmin = j
			}
		}
		if lastArgmax != -1 && argmax != lastArgmax {
			out = append(out, domain.SwingPoint{CandleIndex: lastArgmax, Type: domain.SwingHigh, Price: candles[lastArgmax].High, TimestampMs: candles[lastArgmax].TimestampMs})
		}
		if lastArgmin != -1 && argmin != lastArgmin {
			out = append(out, domain.SwingPoint{CandleIndex: lastArgmin, Type: domain.SwingLow, Price: candles[lastArgmin].Low, TimestampMs: candles[lastArgmin].TimestampMs})
		}
		lastArgmax, lastArgmin = argmax, argmin
	}

	sortSwings(out)
	return out
}

// detectSwingsHybrid uses confirmed fractal detection for the body of the
// series (bars old enough that a full right-hand window is available) and
// falls back to the rolling method to surface candidate swings in the
// unconfirmed tail of the last R bars.
func (a Analyzer) detectSwingsHybrid(candles []domain.Candle) []domain.SwingPoint {
	n := len(candles)
	confirmedTo := n - a.PivotRight
	if confirmedTo < 0 {
		confirmedTo = 0
	}

	out := a.detectSwingsFractal(candles, 0, confirmedTo)
	if confirmedTo < n {
		tail := a.detectSwingsRolling(candles, max(0, confirmedTo-a.rollingWindow()), n)
		for _, sw := range tail {
			if sw.CandleIndex >= confirmedTo {
				out = append(out, sw)
			}
		}
	}
	sortSwings(out)
	return out
}

func sortSwings(swings []domain.SwingPoint) {
	for i := 1; i < len(swings); i++ {
		for j := i; j > 0 && swings[j].CandleIndex < swings[j-1].CandleIndex; j-- {
			swings[j], swings[j-1] = swings[j-1], swings[j]
		}
	}
}
