package scoring

import (
	"math"
	"time"

	"github.com/aristath/fundscore/internal/modules/navdata"
	"github.com/aristath/fundscore/pkg/formulas"
)

// RiskCalculator derives volatility, drawdown, capture, and the ratio family
// from a fund's daily NAV returns.
type RiskCalculator struct {
	// ArtifactBound is the daily-return magnitude above which an observation
	// is treated as a data artifact and excluded from statistics.
	ArtifactBound float64
}

// NewRiskCalculator creates a risk calculator with the default artifact
// bound. Use ArtifactBoundLiquid / ArtifactBoundEquity for per-category
// profiles.
func NewRiskCalculator() *RiskCalculator {
	return &RiskCalculator{ArtifactBound: ArtifactBoundDefault}
}

// NewRiskCalculatorWithBound creates a risk calculator with an explicit
// artifact bound.
func NewRiskCalculatorWithBound(bound float64) *RiskCalculator {
	return &RiskCalculator{ArtifactBound: bound}
}

// Profile computes the risk profile over the trailing window ending at asOf.
// Results are partial: any metric whose confidence requirements are unmet is
// nil rather than a low-confidence number.
func (c *RiskCalculator) Profile(series navdata.Series, asOf time.Time, window time.Duration) RiskProfile {
	from := asOf.Add(-window)
	windowed := series.Between(from, asOf)

	cleanReturns, cleanPrices, artifacts := c.cleanDailyReturns(windowed)

	profile := RiskProfile{
		CleanSamples: len(cleanReturns),
		ArtifactDays: artifacts,
	}

	// Drawdown needs far fewer points than the distribution statistics;
	// report it whenever a peak-to-trough exists.
	if dd := formulas.MaxDrawdown(cleanPrices); dd != nil {
		pct := *dd * 100
		profile.MaxDrawdown = &pct
	}

	if len(cleanReturns) < MinDailySamples {
		return profile
	}

	vol := formulas.AnnualizedVolatility(cleanReturns) * 100
	profile.Volatility = &vol

	up, down := formulas.AvgUpDown(cleanReturns)
	if up != nil {
		pct := *up * 100
		profile.UpCapture = &pct
	}
	if down != nil {
		pct := *down * 100
		profile.DownCapture = &pct
	}
	profile.CaptureRatio = formulas.CaptureRatio(cleanReturns)

	if sharpe := formulas.SharpeRatio(cleanReturns, RiskFreeRate); sharpe != nil {
		capped := formulas.CapRatio(*sharpe, RatioCeiling)
		profile.Sharpe = &capped
	}
	if sortino := formulas.SortinoRatio(cleanReturns, RiskFreeRate); sortino != nil {
		capped := formulas.CapRatio(*sortino, RatioCeiling)
		profile.Sortino = &capped
	}

	if profile.MaxDrawdown != nil && *profile.MaxDrawdown > 0 {
		annualized := formulas.Mean(cleanReturns) * formulas.TradingDaysPerYear
		if calmar := formulas.CalmarRatio(annualized, *profile.MaxDrawdown/100); calmar != nil {
			capped := formulas.CapRatio(*calmar, RatioCeiling)
			profile.Calmar = &capped
		}
	}

	return profile
}

// cleanDailyReturns converts consecutive observations into daily returns,
// excluding artifact days entirely (the artifact return and the implied
// price jump are both dropped, not clamped, so they cannot distort the
// distribution).
func (c *RiskCalculator) cleanDailyReturns(series navdata.Series) (returns []float64, prices []float64, artifacts int) {
	obs := series.Observations
	if len(obs) < 2 {
		for _, o := range obs {
			if formulas.IsFinitePositive(o.NAV) {
				prices = append(prices, o.NAV)
			}
		}
		return nil, prices, 0
	}

	var prev *navdata.Observation
	for i := range obs {
		o := &obs[i]
		if !formulas.IsFinitePositive(o.NAV) {
			artifacts++
			continue
		}

		if prev == nil {
			prev = o
			prices = append(prices, o.NAV)
			continue
		}

		r := (o.NAV - prev.NAV) / prev.NAV
		if math.Abs(r) > c.ArtifactBound {
			// Data artifact: skip the return and re-anchor on the next point.
			artifacts++
			prev = o
			continue
		}

		returns = append(returns, r)
		prices = append(prices, o.NAV)
		prev = o
	}

	return returns, prices, artifacts
}
