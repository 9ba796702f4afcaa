package scoring

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundscore/internal/modules/navdata"
	"github.com/aristath/fundscore/internal/modules/registry"
	"github.com/aristath/fundscore/pkg/formulas"
)

// CompositeScorer assembles a ComponentScoreSet from calculator outputs and
// the centralized threshold tables. It is a pure function of one fund's data:
// no fund-to-fund dependency exists at this stage (ranking happens later,
// over the whole peer group).
type CompositeScorer struct {
	returns *ReturnCalculator
	risk    *RiskCalculator
	log     zerolog.Logger
}

// NewCompositeScorer creates a composite scorer.
func NewCompositeScorer(log zerolog.Logger) *CompositeScorer {
	return &CompositeScorer{
		returns: NewReturnCalculator(),
		risk:    NewRiskCalculator(),
		log:     log.With().Str("component", "composite_scorer").Logger(),
	}
}

// Score computes the full ComponentScoreSet for one fund as of a date.
// Returns nil when the fund has no usable return for any period; such a
// fund is excluded from the cycle, never scored on fabricated defaults.
// Individual missing inputs degrade to documented floors instead.
func (s *CompositeScorer) Score(fund registry.Fund, series navdata.Series, asOf time.Time) *ComponentScoreSet {
	periodReturns := s.returns.AllPeriodReturns(series, asOf)

	anyReturn := false
	for _, r := range periodReturns {
		if r != nil {
			anyReturn = true
			break
		}
	}
	if !anyReturn {
		return nil
	}

	set := &ComponentScoreSet{
		FundID:    fund.ID,
		ScoreDate: asOf,
	}

	risk1y := s.riskForCategory(fund).Profile(series, asOf, 365*24*time.Hour)
	risk3y := s.riskForCategory(fund).Profile(series, asOf, 3*365*24*time.Hour)

	s.scoreReturns(set, periodReturns)
	s.scoreRisk(set, risk1y, risk3y)
	s.scoreFundamentals(set, fund, asOf)
	s.scoreQualitative(set, series, asOf, periodReturns, risk1y)

	s.deriveTotals(set)

	// Preliminary recommendation from score alone; the cycle service
	// re-derives it once the quartile is known.
	set.Recommendation = Recommend(set.TotalScore, 0)

	return set
}

// riskForCategory selects the artifact bound profile for the fund's category.
func (s *CompositeScorer) riskForCategory(fund registry.Fund) *RiskCalculator {
	switch fund.Category {
	case "Liquid", "Debt":
		return NewRiskCalculatorWithBound(ArtifactBoundLiquid)
	case "Equity":
		return NewRiskCalculatorWithBound(ArtifactBoundEquity)
	default:
		return s.risk
	}
}

// scoreReturns maps each period return through the shared threshold table
// with its per-period cap. A missing period stays nil (excluded slot).
func (s *CompositeScorer) scoreReturns(set *ComponentScoreSet, periodReturns map[string]*float64) {
	score := func(name string) *float64 {
		r := periodReturns[name]
		if r == nil {
			return nil
		}
		v := scoreReturn(*r, ReturnPeriodCaps[name])
		return &v
	}

	set.Return3MScore = score("3m")
	set.Return6MScore = score("6m")
	set.Return1YScore = score("1y")
	set.Return3YScore = score("3y")
	set.Return5YScore = score("5y")
}

// scoreReturn resolves one percentage return against the shared table.
// Negative returns get a proportional penalty floored at ReturnPenaltyFloor.
func scoreReturn(pct, periodCap float64) float64 {
	if score, ok := lookupDescending(returnThresholds, pct); ok {
		return math.Min(score, periodCap)
	}

	// Below zero: -1% costs 0.03 points, floored.
	penalty := pct * 0.03
	return math.Max(penalty, ReturnPenaltyFloor)
}

// scoreRisk maps the five risk slots. Metrics missing from a partial profile
// score zero for their slot (documented floor), keeping the fund scoreable.
func (s *CompositeScorer) scoreRisk(set *ComponentScoreSet, risk1y, risk3y RiskProfile) {
	if risk1y.Volatility != nil {
		v := lookupAscending(volatilityThresholds, *risk1y.Volatility)
		set.Vol1YScore = &v
	}
	if risk3y.Volatility != nil {
		v := lookupAscending(volatilityThresholds, *risk3y.Volatility)
		set.Vol3YScore = &v
	}
	if risk1y.CaptureRatio != nil {
		v, _ := lookupDescending(captureThresholds, *risk1y.CaptureRatio)
		set.Capture1YScore = &v
	}
	if risk3y.CaptureRatio != nil {
		v, _ := lookupDescending(captureThresholds, *risk3y.CaptureRatio)
		set.Capture3YScore = &v
	}
	if risk3y.MaxDrawdown != nil {
		v := lookupAscending(drawdownThresholds, *risk3y.MaxDrawdown)
		set.DrawdownScore = &v
	}
}

// scoreFundamentals maps expense ratio, size, and age through their lookup
// tables. Unknown inputs take the documented neutral defaults.
func (s *CompositeScorer) scoreFundamentals(set *ComponentScoreSet, fund registry.Fund, asOf time.Time) {
	expense := expenseScoreDefault
	if fund.ExpenseRatio != nil {
		band, ok := expenseRatioBands[fund.Subcategory]
		if !ok {
			band = expenseRatioDefault
		}
		expense = lookupAscending(band, *fund.ExpenseRatio)
	}
	set.ExpenseScore = &expense

	size := sizeScoreDefault
	if fund.AUMCrores != nil {
		size, _ = lookupDescending(aumThresholds, *fund.AUMCrores)
	}
	set.SizeScore = &size

	age := ageScoreDefault
	if years := fund.AgeYears(asOf); years != nil {
		age, _ = lookupDescending(ageThresholds, *years)
	}
	set.AgeScore = &age
}

// scoreQualitative maps the four qualitative signals into [0, 7.5] each.
func (s *CompositeScorer) scoreQualitative(set *ComponentScoreSet, series navdata.Series, asOf time.Time, periodReturns map[string]*float64, risk1y RiskProfile) {
	similarity := scoreSectorSimilarity(periodReturns)
	set.SectorSimilarityScore = &similarity

	forward := scoreForward(risk1y.Sharpe)
	set.ForwardScore = &forward

	year := series.Between(asOf.AddDate(-1, 0, 0), asOf)
	rsi := formulas.RSI(year.Values(), 14)

	momentum := scoreMomentum(periodReturns["3m"], rsi)
	set.MomentumScore = &momentum

	consistency := scoreConsistency(risk1y.CaptureRatio, year.Values())
	set.ConsistencyScore = &consistency
}

// scoreSectorSimilarity is a style-stability proxy: a fund whose 6-month and
// 1-year returns agree in sign and magnitude is behaving like its stated
// style rather than drifting. Benchmark-relative similarity needs external
// index data, which this engine does not source.
func scoreSectorSimilarity(periodReturns map[string]*float64) float64 {
	r6m := periodReturns["6m"]
	r1y := periodReturns["1y"]
	if r6m == nil || r1y == nil {
		return qualitativeScoreDefault
	}

	// Scale the 6m return to an annual pace and compare.
	gap := math.Abs(*r6m*2 - *r1y)
	sameSign := (*r6m >= 0) == (*r1y >= 0)

	switch {
	case sameSign && gap < 5:
		return qualitativeCap
	case sameSign && gap < 10:
		return 6.0
	case sameSign:
		return 4.5
	case gap < 10:
		return 3.0
	default:
		return 1.5
	}
}

// scoreForward maps the capped Sharpe ratio into the forward-looking slot.
func scoreForward(sharpe *float64) float64 {
	if sharpe == nil {
		return qualitativeScoreDefault
	}

	switch v := *sharpe; {
	case v >= 2.0:
		return qualitativeCap
	case v >= 1.5:
		return 6.0
	case v >= 1.0:
		return 4.5
	case v >= 0.5:
		return 3.0
	case v >= 0:
		return 1.5
	default:
		return 0
	}
}

// scoreMomentum combines the trailing 3-month return with RSI. Healthy
// momentum (positive return, RSI between 50 and 75) scores highest; an
// overbought RSI above 80 discounts the signal.
func scoreMomentum(r3m *float64, rsi *float64) float64 {
	if r3m == nil {
		return qualitativeScoreDefault
	}

	base := 0.0
	switch v := *r3m; {
	case v >= 8:
		base = qualitativeCap
	case v >= 4:
		base = 5.5
	case v >= 0:
		base = 3.5
	case v >= -4:
		base = 2.0
	default:
		base = 0.5
	}

	if rsi != nil {
		if *rsi > 80 {
			base = math.Max(0, base-2.0)
		} else if *rsi >= 50 && *rsi <= 75 && base < qualitativeCap {
			base = math.Min(qualitativeCap, base+0.5)
		}
	}

	return base
}

// scoreConsistency rewards funds whose gains reliably outweigh losses and
// whose positive days dominate.
func scoreConsistency(captureRatio *float64, prices []float64) float64 {
	if captureRatio == nil {
		return qualitativeScoreDefault
	}

	base := 0.0
	switch v := *captureRatio; {
	case v >= 1.3:
		base = qualitativeCap
	case v >= 1.1:
		base = 5.5
	case v >= 0.9:
		base = 4.0
	case v >= 0.7:
		base = 2.0
	default:
		base = 0.5
	}

	if positive := formulas.PositiveDayRatio(formulas.DailyReturns(prices)); positive != nil {
		if *positive >= 0.58 {
			base = math.Min(qualitativeCap, base+0.5)
		} else if *positive < 0.45 {
			base = math.Max(0, base-1.0)
		}
	}

	return base
}

// deriveTotals computes the four component totals from the sub-scores,
// clamping each to its documented range, then derives the total score. This
// is the only place totals are computed; the persisted record is always
// internally consistent.
func (s *CompositeScorer) deriveTotals(set *ComponentScoreSet) {
	set.HistoricalReturnsRaw = sumScores(
		set.Return3MScore, set.Return6MScore, set.Return1YScore,
		set.Return3YScore, set.Return5YScore,
	)
	set.RiskGradeRaw = sumScores(
		set.Vol1YScore, set.Vol3YScore,
		set.Capture1YScore, set.Capture3YScore, set.DrawdownScore,
	)
	set.FundamentalsRaw = sumScores(set.ExpenseScore, set.SizeScore, set.AgeScore)
	set.OtherMetricsRaw = sumScores(
		set.SectorSimilarityScore, set.ForwardScore,
		set.MomentumScore, set.ConsistencyScore,
	)

	set.HistoricalReturnsTotal = s.clamp("historical_returns", set.HistoricalReturnsRaw, HistoricalReturnsMin, HistoricalReturnsMax, set.FundID)
	set.RiskGradeTotal = s.clamp("risk_grade", set.RiskGradeRaw, RiskGradeMin, RiskGradeMax, set.FundID)
	set.FundamentalsTotal = s.clamp("fundamentals", set.FundamentalsRaw, FundamentalsMin, FundamentalsMax, set.FundID)
	set.OtherMetricsTotal = s.clamp("other_metrics", set.OtherMetricsRaw, OtherMetricsMin, OtherMetricsMax, set.FundID)

	total := set.HistoricalReturnsTotal + set.RiskGradeTotal +
		set.FundamentalsTotal + set.OtherMetricsTotal
	set.TotalScore = s.clamp("total_score", total, TotalScoreMin, TotalScoreMax, set.FundID)
}

// clamp bounds v to [min, max], logging when a bound is hit so out-of-range
// results are visible rather than silently accepted.
func (s *CompositeScorer) clamp(name string, v, min, max float64, fundID int64) float64 {
	if v < min {
		s.log.Debug().Str("metric", name).Int64("fund_id", fundID).
			Float64("value", v).Float64("bound", min).Msg("Component clamped at floor")
		return min
	}
	if v > max {
		s.log.Debug().Str("metric", name).Int64("fund_id", fundID).
			Float64("value", v).Float64("bound", max).Msg("Component clamped at cap")
		return max
	}
	return v
}

func sumScores(scores ...*float64) float64 {
	sum := 0.0
	for _, s := range scores {
		if s != nil {
			sum += *s
		}
	}
	return sum
}

// Recommend derives the categorical recommendation from total score and
// quartile. Pass quartile 0 when the quartile is not yet known; the bands
// that depend on quartile simply do not fire.
func Recommend(totalScore float64, quartile int) Recommendation {
	switch {
	case totalScore >= strongBuyScore,
		quartile == 1 && totalScore >= strongBuyQ1Score:
		return StrongBuy
	case totalScore >= buyScore,
		quartile >= 1 && quartile <= 2 && totalScore >= buyTopHalfScore:
		return Buy
	case totalScore >= holdScore:
		return Hold
	case totalScore >= sellScore:
		return Sell
	default:
		return StrongSell
	}
}
