// Package formulas contains the pure math used by the scoring and backtesting
// engines. Everything here is stateless and side-effect free; nullable results
// are expressed as *float64 so callers can distinguish "not computable" from
// zero.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualization convention for daily return series.
const TradingDaysPerYear = 252

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// AnnualizedVolatility calculates annualized volatility from daily returns.
// Formula: sample std dev of daily returns × sqrt(252)
func AnnualizedVolatility(dailyReturns []float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}
	return StdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}

// DailyReturns converts an ordered price series to simple periodic returns.
// Returns[i] = (Price[i+1] - Price[i]) / Price[i]. Non-positive denominators
// produce a zero return for that slot.
func DailyReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] > 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}

	return returns
}

// Correlation calculates the Pearson correlation coefficient between two datasets
func Correlation(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// DownsideDeviation calculates the annualized standard deviation of returns
// below the target (usually the periodic risk-free rate). Returns nil when
// there are no below-target observations.
func DownsideDeviation(returns []float64, target float64) *float64 {
	if len(returns) < 2 {
		return nil
	}

	var downside []float64
	for _, r := range returns {
		if r < target {
			downside = append(downside, r-target)
		}
	}
	if len(downside) == 0 {
		return nil
	}

	sumSq := 0.0
	for _, d := range downside {
		sumSq += d * d
	}

	// Denominator is the full sample size, per the standard Sortino definition.
	dd := math.Sqrt(sumSq/float64(len(returns))) * math.Sqrt(TradingDaysPerYear)
	return &dd
}

// IsFinitePositive reports whether v is a usable valuation anchor.
func IsFinitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
