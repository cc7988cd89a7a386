package engine

import "math"

// positionSize applies spec.md §4.6's fixed-fractional sizing formula:
// risk_amount = balance * riskPercent/100, lot = risk_amount / (stop distance
// in price * contractSize * pipValue), clamped to [0.01, 10.0] and rounded to
// two decimals.
func positionSize(balance, riskPercent, entry, stop, contractSize, pipValue float64) float64 {
	riskAmount := balance * riskPercent / 100
	distance := math.Abs(entry - stop)
	if distance <= 0 || contractSize <= 0 || pipValue <= 0 {
		return 0
	}
	lot := riskAmount / (distance * contractSize * pipValue)
	if lot < 0.01 {
		lot = 0.01
	}
	if lot > 10.0 {
		lot = 10.0
	}
	return math.Round(lot*100) / 100
}
