package scoring

import (
	"time"

	"github.com/aristath/fundscore/internal/modules/navdata"
	"github.com/aristath/fundscore/pkg/formulas"
)

// ReturnCalculator resolves trailing-period returns from a NAV series.
// Periods of a year or less use a simple return; longer periods annualize
// over the actual elapsed days between the two anchors.
type ReturnCalculator struct{}

// NewReturnCalculator creates a return calculator.
func NewReturnCalculator() *ReturnCalculator {
	return &ReturnCalculator{}
}

// PeriodReturn returns the percentage return for the trailing period ending
// at asOf, or nil when either anchor is missing within the period's
// tolerance window. It never guesses: an absent anchor is insufficient data.
func (c *ReturnCalculator) PeriodReturn(series navdata.Series, asOf time.Time, period ReturnPeriod) *float64 {
	tolerance := period.Tolerance()

	latest := series.Nearest(asOf, tolerance)
	if latest == nil {
		return nil
	}

	historicalTarget := asOf.AddDate(0, 0, -period.Days)
	historical := series.Nearest(historicalTarget, tolerance)
	if historical == nil {
		return nil
	}

	if !formulas.IsFinitePositive(latest.NAV) || !formulas.IsFinitePositive(historical.NAV) {
		return nil
	}

	elapsedDays := int(latest.Date.Sub(historical.Date).Hours() / 24)
	if elapsedDays <= 0 {
		return nil
	}

	if period.Days <= 365 {
		return formulas.SimpleReturn(historical.NAV, latest.NAV)
	}

	return formulas.AnnualizedReturn(historical.NAV, latest.NAV, elapsedDays)
}

// AllPeriodReturns resolves every configured return period. Missing periods
// are nil entries; callers decide whether the fund is scoreable at all.
func (c *ReturnCalculator) AllPeriodReturns(series navdata.Series, asOf time.Time) map[string]*float64 {
	returns := make(map[string]*float64, len(ReturnPeriods))
	for _, period := range ReturnPeriods {
		returns[period.Name] = c.PeriodReturn(series, asOf, period)
	}
	return returns
}
