package structure

import "replaybench/internal/domain"

// chochState tracks the anchor-swing bias register across BOS events,
// evaluated in strict chronological order.
type chochState struct {
	bias             domain.Bias
	anchor           *domain.SwingPoint
	lastConfirmedHi  *domain.SwingPoint
	lastConfirmedLo  *domain.SwingPoint
}

// detectCHoCH runs the anchor-swing change-of-character state machine over
// the BOS events in order, per the transition table: a CHoCH fires only
// when a BOS is opposite the current bias and the candle's close breaches
// the recorded anchor swing's price.
func (a Analyzer) detectCHoCH(candles []domain.Candle, bosEvents []domain.BOSEvent, swings []domain.SwingPoint) []domain.CHoCHEvent {
	st := chochState{bias: domain.BiasUnknown}
	var out []domain.CHoCHEvent

	for _, bos := range bosEvents {
		st.refreshConfirmed(swings, bos.Index)
		c := candles[bos.Index]

		switch {
		case st.bias == domain.BiasUnknown:
			if bos.Direction == domain.Bullish {
				st.bias = domain.BiasBullish
				st.anchor = mostRecentSwingBefore(swings, bos.Index, domain.SwingLow)
			} else {
				st.bias = domain.BiasBearish
				st.anchor = mostRecentSwingBefore(swings, bos.Index, domain.SwingHigh)
			}

		case st.bias == domain.BiasBullish && bos.Direction == domain.Bullish:
			st.lastConfirmedHi = brokenSwingPoint(swings, bos)

		case st.bias == domain.BiasBearish && bos.Direction == domain.Bearish:
			st.lastConfirmedLo = brokenSwingPoint(swings, bos)

		case st.bias == domain.BiasBullish && bos.Direction == domain.Bearish:
			if st.anchor != nil && c.Close < st.anchor.Price {
				out = append(out, domain.CHoCHEvent{
					Index: bos.Index, FromTrend: domain.BiasBullish, ToTrend: domain.BiasBearish,
					BrokenSwingIndex: bos.BrokenSwingIndex, BrokenSwingType: bos.BrokenSwingType,
					Level: st.anchor.Price, BOSIndex: bos.Index,
				})
				st.bias = domain.BiasBearish
				st.anchor = st.lastConfirmedHi
			}
			// else: anchor intact, ignore.

		case st.bias == domain.BiasBearish && bos.Direction == domain.Bullish:
			if st.anchor != nil && c.Close > st.anchor.Price {
				out = append(out, domain.CHoCHEvent{
					Index: bos.Index, FromTrend: domain.BiasBearish, ToTrend: domain.BiasBullish,
					BrokenSwingIndex: bos.BrokenSwingIndex, BrokenSwingType: bos.BrokenSwingType,
					Level: st.anchor.Price, BOSIndex: bos.Index,
				})
				st.bias = domain.BiasBullish
				st.anchor = st.lastConfirmedLo
			}
		}
	}
	return out
}

// refreshConfirmed updates last-confirmed-high/low from any swing that
// formed strictly before the BOS index, per the "before each transition"
// instruction.
func (st *chochState) refreshConfirmed(swings []domain.SwingPoint, bosIndex int) {
	for _, sw := range swings {
		if sw.CandleIndex >= bosIndex {
			break
		}
		switch sw.Type {
		case domain.SwingHigh:
			if st.lastConfirmedHi == nil || sw.CandleIndex > st.lastConfirmedHi.CandleIndex {
				s := sw
				st.lastConfirmedHi = &s
			}
		case domain.SwingLow:
			if st.lastConfirmedLo == nil || sw.CandleIndex > st.lastConfirmedLo.CandleIndex {
				s := sw
				st.lastConfirmedLo = &s
			}
		}
	}
}

func mostRecentSwingBefore(swings []domain.SwingPoint, index int, t domain.SwingType) *domain.SwingPoint {
	var best *domain.SwingPoint
	for i := range swings {
		sw := swings[i]
		if sw.CandleIndex >= index || sw.Type != t {
			continue
		}
		if best == nil || sw.CandleIndex > best.CandleIndex {
			s := sw
			best = &s
		}
	}
	return best
}

func brokenSwingPoint(swings []domain.SwingPoint, bos domain.BOSEvent) *domain.SwingPoint {
	for i := range swings {
		if swings[i].CandleIndex == bos.BrokenSwingIndex && swings[i].Type == bos.BrokenSwingType {
			s := swings[i]
			return &s
		}
	}
	return nil
}
