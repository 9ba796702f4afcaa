// Package backtest re-runs the composite scorer with a point-in-time data
// cutoff and measures how well historical scores predicted realized forward
// returns. It only ever reads the live stores; validation output lands in
// its own run/detail tables.
package backtest

import (
	"time"

	"github.com/aristath/fundscore/internal/modules/scoring"
)

// RunConfig parameterizes one validation run.
type RunConfig struct {
	// ScoringDate is t, the historical date scores are recomputed for.
	ScoringDate time.Time `json:"scoring_date"`

	// LookbackMonths is how much history before t a candidate must span.
	LookbackMonths int `json:"lookback_months"`

	// Horizons are the forward-return windows in months, typically {3, 6, 12}.
	Horizons []int `json:"horizons"`

	// CategoryFilter restricts candidates to one registry category when set.
	CategoryFilter string `json:"category_filter,omitempty"`
}

// Detail is the per-(fund, horizon) validation outcome. ForwardReturn,
// DirectionMatch, and Agreement are nil when the horizon could not be
// measured for this fund; the fund still appears for its other horizons.
type Detail struct {
	RunID          string                 `json:"run_id"`
	FundID         int64                  `json:"fund_id"`
	HorizonMonths  int                    `json:"horizon_months"`
	TotalScore     float64                `json:"total_score"`
	Quartile       int                    `json:"quartile"`
	Recommendation scoring.Recommendation `json:"recommendation"`
	ForwardReturn  *float64               `json:"forward_return,omitempty"`
	DirectionMatch *bool                  `json:"direction_match,omitempty"`
	Agreement      *float64               `json:"agreement,omitempty"`

	// Snapshot is the full point-in-time score set, kept for audit.
	Snapshot *scoring.ComponentScoreSet `json:"-"`
}

// HorizonSummary aggregates one forward horizon across the candidate
// population.
type HorizonSummary struct {
	HorizonMonths int `json:"horizon_months"`

	// Measured counts funds with forward data; SkippedForward counts funds
	// scored at t but lacking data at t+h.
	Measured       int `json:"measured"`
	SkippedForward int `json:"skipped_forward"`

	// Accuracy is the fraction of directional predictions (BUY-or-better
	// versus SELL-or-worse) that matched the realized outcome. Nil when no
	// fund carried a directional prediction.
	Accuracy *float64 `json:"accuracy,omitempty"`

	// AvgAgreement is the mean per-fund agreement between normalized score
	// and normalized realized return.
	AvgAgreement *float64 `json:"avg_agreement,omitempty"`

	// Correlation is the population Pearson correlation between total score
	// and realized forward return. Nil below two measured funds.
	Correlation *float64 `json:"correlation,omitempty"`

	// QuartileStability is the fraction of measured funds whose score
	// quartile at t is unchanged or adjacent to their forward-return
	// quartile.
	QuartileStability *float64 `json:"quartile_stability,omitempty"`
}

// Summary is the run-level validation record.
type Summary struct {
	RunID          string           `json:"run_id"`
	StartedAt      time.Time        `json:"started_at"`
	FinishedAt     time.Time        `json:"finished_at"`
	ScoringDate    time.Time        `json:"scoring_date"`
	LookbackMonths int              `json:"lookback_months"`
	Horizons       []int            `json:"horizons"`
	CategoryFilter string           `json:"category_filter,omitempty"`
	Candidates     int              `json:"candidates"`
	Scored         int              `json:"scored"`
	Skipped        int              `json:"skipped"`
	ByHorizon      []HorizonSummary `json:"by_horizon"`
}
