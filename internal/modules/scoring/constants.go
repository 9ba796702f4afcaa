// Package scoring implements the return and risk calculators and the
// composite scorer. All thresholds, caps, and floors live in this file so
// live scoring and backtesting can never drift apart: both consume exactly
// these tables.
package scoring

import "time"

// RiskFreeRate is the fixed annual risk-free rate used by every
// risk-adjusted ratio (decimal).
const RiskFreeRate = 0.065

// RatioCeiling bounds Sharpe/Sortino/Calmar before they feed scoring, so a
// near-zero denominator cannot produce an absurd sub-score.
const RatioCeiling = 10.0

// MinDailySamples is the minimum number of clean daily returns required
// before volatility and the ratio family are reported. Below this the risk
// profile is partial (nil fields), never a low-confidence number.
const MinDailySamples = 100

// Daily-return sanity bounds. A single-day move beyond the bound is treated
// as a data artifact and excluded from statistics (not clamped).
const (
	ArtifactBoundDefault = 0.10
	ArtifactBoundLiquid  = 0.08
	ArtifactBoundEquity  = 0.12
)

// Return periods scored by the composite scorer, shortest first. The scorer
// requires at least the shortest period to produce any score at all.
var ReturnPeriods = []ReturnPeriod{
	{Name: "3m", Days: 91},
	{Name: "6m", Days: 182},
	{Name: "1y", Days: 365},
	{Name: "3y", Days: 1095},
	{Name: "5y", Days: 1825},
}

// ReturnPeriod is one trailing window the return calculator resolves.
type ReturnPeriod struct {
	Name string
	Days int
}

// Tolerance returns the anchor-matching window for this period: a tenth of
// the period length, clamped to [5, 183] days. That works out to about one
// week for 3-month returns and about six months for 5-year returns.
func (p ReturnPeriod) Tolerance() time.Duration {
	days := p.Days / 10
	if days < 5 {
		days = 5
	}
	if days > 183 {
		days = 183
	}
	return time.Duration(days) * 24 * time.Hour
}

// returnThreshold maps a percentage return at or above Min to Score.
type returnThreshold struct {
	Min   float64
	Score float64
}

// returnThresholds is the single shared return table. The same breakpoints
// apply to every period; only the per-period cap differs.
var returnThresholds = []returnThreshold{
	{Min: 15.0, Score: 8.0},
	{Min: 12.0, Score: 6.4},
	{Min: 8.0, Score: 4.8},
	{Min: 5.0, Score: 3.2},
	{Min: 0.0, Score: 1.6},
}

// ReturnPenaltyFloor is the lowest sub-score a negative period return can
// produce (proportional penalty below zero, floored here).
const ReturnPenaltyFloor = -0.30

// ReturnPeriodCaps caps the sub-score per period. The 1y slot is capped
// lower than the others; the corrected score table carried that asymmetry
// and downstream consumers depend on it.
var ReturnPeriodCaps = map[string]float64{
	"3m": 8.0,
	"6m": 8.0,
	"1y": 5.9,
	"3y": 8.0,
	"5y": 8.0,
}

// Component clamp ranges. Totals are always derived from sub-scores and then
// clamped to these bounds; a persisted total outside its range cannot exist.
const (
	HistoricalReturnsMin = -0.70
	HistoricalReturnsMax = 32.0
	RiskGradeMin         = 13.0
	RiskGradeMax         = 30.0
	FundamentalsMin      = 0.0
	FundamentalsMax      = 30.0
	OtherMetricsMin      = 0.0
	OtherMetricsMax      = 30.0
	TotalScoreMin        = 34.0
	TotalScoreMax        = 100.0
)

// Risk sub-score tables: each metric maps into [0, 6.0].

// volatility (annualized percent): lower is better.
var volatilityThresholds = []returnThreshold{
	{Min: 0.0, Score: 6.0},
	{Min: 10.0, Score: 5.0},
	{Min: 15.0, Score: 4.0},
	{Min: 20.0, Score: 3.0},
	{Min: 25.0, Score: 2.0},
	{Min: 30.0, Score: 1.0},
}

// capture ratio (up/down consistency proxy): higher is better.
var captureThresholds = []returnThreshold{
	{Min: 1.20, Score: 6.0},
	{Min: 1.00, Score: 4.5},
	{Min: 0.80, Score: 3.0},
	{Min: 0.60, Score: 1.5},
	{Min: 0.00, Score: 0.75},
}

// max drawdown (positive percent): lower is better.
var drawdownThresholds = []returnThreshold{
	{Min: 0.0, Score: 6.0},
	{Min: 5.0, Score: 5.0},
	{Min: 10.0, Score: 4.0},
	{Min: 15.0, Score: 2.5},
	{Min: 25.0, Score: 1.0},
	{Min: 35.0, Score: 0.0},
}

// Fundamentals sub-score tables: each maps into [0, 10.0].

// expenseRatioBands keys acceptable expense levels by subcategory. Index
// funds are expected to be far cheaper than active equity; the default band
// applies when the subcategory is unknown.
var expenseRatioBands = map[string][]returnThreshold{
	"Index": {
		{Min: 0.0, Score: 10.0},
		{Min: 0.2, Score: 8.0},
		{Min: 0.5, Score: 5.0},
		{Min: 1.0, Score: 2.0},
	},
	"Liquid": {
		{Min: 0.0, Score: 10.0},
		{Min: 0.25, Score: 7.5},
		{Min: 0.5, Score: 4.0},
		{Min: 1.0, Score: 1.0},
	},
}

// expenseRatioDefault is used when the subcategory has no dedicated band.
var expenseRatioDefault = []returnThreshold{
	{Min: 0.0, Score: 10.0},
	{Min: 0.5, Score: 8.5},
	{Min: 1.0, Score: 7.0},
	{Min: 1.5, Score: 5.0},
	{Min: 2.0, Score: 3.0},
	{Min: 2.5, Score: 1.0},
}

// aumThresholds (crores): scale is a soft quality signal, very small funds
// score lowest.
var aumThresholds = []returnThreshold{
	{Min: 10000, Score: 10.0},
	{Min: 5000, Score: 8.5},
	{Min: 1000, Score: 7.0},
	{Min: 500, Score: 5.5},
	{Min: 100, Score: 4.0},
	{Min: 0, Score: 2.0},
}

// ageThresholds (years): track record length.
var ageThresholds = []returnThreshold{
	{Min: 10, Score: 10.0},
	{Min: 7, Score: 8.5},
	{Min: 5, Score: 7.0},
	{Min: 3, Score: 5.0},
	{Min: 1, Score: 3.0},
	{Min: 0, Score: 1.0},
}

// Qualitative sub-score caps: each of the four signals maps into [0, 7.5].
const qualitativeCap = 7.5

// Missing-input defaults. A missing fundamentals or qualitative input scores
// the documented neutral floor for its slot; the fund is still scored.
const (
	expenseScoreDefault     = 4.0
	sizeScoreDefault        = 4.0
	ageScoreDefault         = 4.0
	qualitativeScoreDefault = 3.0
)

// Recommendation bands. The recommendation is a pure step function of
// (total score, quartile), never assigned independently.
const (
	strongBuyScore         = 70.0
	strongBuyQ1Score       = 65.0
	buyScore               = 60.0
	buyTopHalfScore        = 55.0
	holdScore              = 40.0
	sellScore              = 30.0
)

// lookupDescending resolves v against a table ordered by descending Min
// semantics: the first entry whose Min <= v wins. Tables where lower values
// are better must be resolved with lookupAscending instead.
func lookupDescending(table []returnThreshold, v float64) (float64, bool) {
	for _, t := range table {
		if v >= t.Min {
			return t.Score, true
		}
	}
	return 0, false
}

// lookupAscending resolves v against a table ordered by ascending Min where
// lower values are better: the last entry whose Min <= v wins.
func lookupAscending(table []returnThreshold, v float64) float64 {
	score := table[len(table)-1].Score
	for i := len(table) - 1; i >= 0; i-- {
		if v >= table[i].Min {
			return table[i].Score
		}
		score = table[i].Score
	}
	return score
}
