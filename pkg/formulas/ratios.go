package formulas

import "math"

// SharpeRatio calculates the annualized Sharpe ratio from daily returns.
//
//	Sharpe = (mean daily return − periodic risk-free rate) / std dev × sqrt(252)
//
// riskFreeRate is annual, as a decimal (0.065 for 6.5%). Returns nil when the
// sample is too small or volatility is zero.
func SharpeRatio(dailyReturns []float64, riskFreeRate float64) *float64 {
	if len(dailyReturns) < 2 {
		return nil
	}

	stdDev := StdDev(dailyReturns)
	if stdDev == 0 {
		return nil
	}

	periodicRiskFree := riskFreeRate / TradingDaysPerYear
	sharpe := (Mean(dailyReturns) - periodicRiskFree) / stdDev * math.Sqrt(TradingDaysPerYear)
	return &sharpe
}

// SortinoRatio calculates the annualized Sortino ratio from daily returns,
// penalizing only downside deviation below the periodic risk-free rate.
// Returns nil when there is no downside sample to measure against.
func SortinoRatio(dailyReturns []float64, riskFreeRate float64) *float64 {
	if len(dailyReturns) < 2 {
		return nil
	}

	periodicRiskFree := riskFreeRate / TradingDaysPerYear
	dd := DownsideDeviation(dailyReturns, periodicRiskFree)
	if dd == nil || *dd == 0 {
		return nil
	}

	annualizedExcess := (Mean(dailyReturns) - periodicRiskFree) * TradingDaysPerYear
	sortino := annualizedExcess / *dd
	return &sortino
}

// CalmarRatio calculates the annualized return over the maximum drawdown.
// annualizedReturn is a decimal (0.12 for 12%), maxDrawdown a positive
// decimal. Returns nil when drawdown is zero (no decline to measure against).
func CalmarRatio(annualizedReturn, maxDrawdown float64) *float64 {
	if maxDrawdown <= 0 {
		return nil
	}

	calmar := annualizedReturn / maxDrawdown
	return &calmar
}

// CapRatio bounds a risk-adjusted ratio at ±ceiling before it feeds scoring,
// so near-zero denominators cannot produce absurd sub-scores.
func CapRatio(ratio, ceiling float64) float64 {
	if ratio > ceiling {
		return ceiling
	}
	if ratio < -ceiling {
		return -ceiling
	}
	return ratio
}
