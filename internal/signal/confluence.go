package signal

import (
	"replaybench/internal/domain"
	"replaybench/internal/structure"
)

// ltfConfluence records which of the mandatory LTF confirmations held, plus
// the optional FVG bonus, at the evaluated bar.
type ltfConfluence struct {
	sweep      bool
	orderBlock bool
	bos        bool
	fvg        bool
}

func (c ltfConfluence) missingReasons() []string {
	var out []string
	if !c.sweep {
		out = append(out, "missing_liquidity_sweep")
	}
	if !c.orderBlock {
		out = append(out, "missing_order_block")
	}
	if !c.bos {
		out = append(out, "missing_ltf_bos")
	}
	return out
}

func (c ltfConfluence) reasons() []string {
	var out []string
	if c.sweep {
		out = append(out, "liquidity_sweep")
	}
	if c.orderBlock {
		out = append(out, "order_block_intact")
	}
	if c.bos {
		out = append(out, "ltf_bos")
	}
	if c.fvg {
		out = append(out, "fvg_confluence")
	}
	return out
}

// zoneTypeFor maps a trade direction to the order-block/FVG zone polarity
// that supports it.
func zoneTypeFor(direction domain.Direction) domain.ZoneType {
	if direction == domain.Bullish {
		return domain.ZoneBullish
	}
	return domain.ZoneBearish
}

// ltfConfirmations evaluates the mandatory {liquidity sweep, intact order
// block, BOS} conjunction plus the optional FVG bonus at the given bar
// index, all drawn from swing/BOS/zone detection already produced by the
// LTF structural scan.
func ltfConfirmations(ltf structure.Result, idx int, direction domain.Direction, tolerance float64) ltfConfluence {
	want := zoneTypeFor(direction)
	var out ltfConfluence

	for _, sweep := range ltf.LiquiditySweeps {
		if sweep.Index <= idx && sweep.Type == want {
			out.sweep = true
			break
		}
	}

	for _, ob := range ltf.OrderBlocks {
		if ob.Type == want && !ob.Mitigated {
			out.orderBlock = true
			break
		}
	}

	for i := len(ltf.BOS) - 1; i >= 0; i-- {
		if ltf.BOS[i].Index > idx {
			continue
		}
		out.bos = ltf.BOS[i].Direction == direction
		break
	}

	for _, fvg := range ltf.FVGs {
		if fvg.Type == want && !fvg.Filled {
			out.fvg = true
			break
		}
	}
	return out
}

// confluenceScore is a weighted sum of the named confirmations, 0-100.
// Mandatory confirmations carry the bulk of the weight; the FVG bonus adds
// without being required.
func confluenceScore(c ltfConfluence) float64 {
	var score float64
	if c.sweep {
		score += 30
	}
	if c.orderBlock {
		score += 30
	}
	if c.bos {
		score += 25
	}
	if c.fvg {
		score += 15
	}
	return score
}
