package formulas

import "math"

// SimpleReturn calculates the simple percentage return between two valuation
// points. Returns nil when either anchor is not a finite positive value.
func SimpleReturn(historical, latest float64) *float64 {
	if !IsFinitePositive(historical) || !IsFinitePositive(latest) {
		return nil
	}

	r := (latest/historical - 1) * 100
	return &r
}

// AnnualizedReturn calculates the compound annualized percentage return
// between two valuation points using the actual number of elapsed days, not
// the nominal period length. This keeps irregular observation gaps from
// introducing compounding error.
func AnnualizedReturn(historical, latest float64, elapsedDays int) *float64 {
	if !IsFinitePositive(historical) || !IsFinitePositive(latest) || elapsedDays <= 0 {
		return nil
	}

	r := (math.Pow(latest/historical, 365.0/float64(elapsedDays)) - 1) * 100
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return nil
	}
	return &r
}

// CumulativeReturn calculates the total percentage growth of a price series
// from its first to its last observation.
func CumulativeReturn(prices []float64) *float64 {
	if len(prices) < 2 {
		return nil
	}
	return SimpleReturn(prices[0], prices[len(prices)-1])
}
