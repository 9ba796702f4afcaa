package scoring

import "time"

// Recommendation is the categorical outcome derived from total score and
// quartile.
type Recommendation string

const (
	StrongBuy  Recommendation = "STRONG_BUY"
	Buy        Recommendation = "BUY"
	Hold       Recommendation = "HOLD"
	Sell       Recommendation = "SELL"
	StrongSell Recommendation = "STRONG_SELL"
)

// ComponentScoreSet is one complete scoring result for a (fund, date). The
// four component totals are always derived from their sub-scores at
// construction time and clamped to the documented ranges; they are never
// accepted as independently-supplied values, which makes an inconsistent
// aggregate structurally impossible.
type ComponentScoreSet struct {
	FundID    int64     `json:"fund_id"`
	ScoreDate time.Time `json:"score_date"`

	// Return sub-scores (nil = insufficient history for that period).
	Return3MScore *float64 `json:"return_3m_score,omitempty"`
	Return6MScore *float64 `json:"return_6m_score,omitempty"`
	Return1YScore *float64 `json:"return_1y_score,omitempty"`
	Return3YScore *float64 `json:"return_3y_score,omitempty"`
	Return5YScore *float64 `json:"return_5y_score,omitempty"`

	// Risk sub-scores.
	Vol1YScore     *float64 `json:"vol_1y_score,omitempty"`
	Vol3YScore     *float64 `json:"vol_3y_score,omitempty"`
	Capture1YScore *float64 `json:"capture_1y_score,omitempty"`
	Capture3YScore *float64 `json:"capture_3y_score,omitempty"`
	DrawdownScore  *float64 `json:"drawdown_score,omitempty"`

	// Fundamentals sub-scores.
	ExpenseScore *float64 `json:"expense_score,omitempty"`
	SizeScore    *float64 `json:"size_score,omitempty"`
	AgeScore     *float64 `json:"age_score,omitempty"`

	// Qualitative sub-scores.
	SectorSimilarityScore *float64 `json:"sector_similarity_score,omitempty"`
	ForwardScore          *float64 `json:"forward_score,omitempty"`
	MomentumScore         *float64 `json:"momentum_score,omitempty"`
	ConsistencyScore      *float64 `json:"consistency_score,omitempty"`

	// Component totals (clamped) and the raw pre-clamp sums, kept so the
	// aggregate invariant can be verified.
	HistoricalReturnsTotal float64 `json:"historical_returns_total"`
	RiskGradeTotal         float64 `json:"risk_grade_total"`
	FundamentalsTotal      float64 `json:"fundamentals_total"`
	OtherMetricsTotal      float64 `json:"other_metrics_total"`

	HistoricalReturnsRaw float64 `json:"historical_returns_raw"`
	RiskGradeRaw         float64 `json:"risk_grade_raw"`
	FundamentalsRaw      float64 `json:"fundamentals_raw"`
	OtherMetricsRaw      float64 `json:"other_metrics_raw"`

	TotalScore     float64        `json:"total_score"`
	Recommendation Recommendation `json:"recommendation"`
}

// RiskProfile holds the risk calculator output for one window. Nil fields
// mean the metric could not be computed at the documented confidence level
// (partial result, not a failure).
type RiskProfile struct {
	Volatility   *float64 `json:"volatility,omitempty"`    // annualized, percent
	MaxDrawdown  *float64 `json:"max_drawdown,omitempty"`  // positive percent
	UpCapture    *float64 `json:"up_capture,omitempty"`    // avg positive-day magnitude, percent
	DownCapture  *float64 `json:"down_capture,omitempty"`  // avg negative-day magnitude, percent
	CaptureRatio *float64 `json:"capture_ratio,omitempty"` // up/down consistency proxy
	Sharpe       *float64 `json:"sharpe,omitempty"`
	Sortino      *float64 `json:"sortino,omitempty"`
	Calmar       *float64 `json:"calmar,omitempty"`
	CleanSamples int      `json:"clean_samples"`
	ArtifactDays int      `json:"artifact_days"`
}

// SkipReason explains why a fund was excluded from a scoring cycle.
type SkipReason struct {
	FundID int64  `json:"fund_id"`
	Reason string `json:"reason"`
}
