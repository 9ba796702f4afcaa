package backtest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/fundscore/internal/events"
	"github.com/aristath/fundscore/internal/modules/navdata"
	"github.com/aristath/fundscore/internal/modules/ranking"
	"github.com/aristath/fundscore/internal/modules/registry"
	"github.com/aristath/fundscore/internal/modules/scoring"
	"github.com/aristath/fundscore/pkg/formulas"
)

const (
	// OutperformThreshold is the annualized forward return (percent) a
	// BUY-or-better recommendation implicitly predicts the fund will reach.
	OutperformThreshold = 8.0

	defaultLookbackMonths = 36

	// lookbackGraceDays is how far after the nominal lookback start a
	// fund's first observation may fall and still qualify as a candidate.
	lookbackGraceDays = 30
)

var defaultHorizons = []int{3, 6, 12}

// Engine runs point-in-time validation sweeps.
type Engine struct {
	registry  *registry.Repository
	navSource navdata.Source
	scorer    *scoring.CompositeScorer
	repo      *Repository
	events    *events.Manager
	log       zerolog.Logger
}

// NewEngine creates a backtest engine.
func NewEngine(
	reg *registry.Repository,
	navSource navdata.Source,
	scorer *scoring.CompositeScorer,
	repo *Repository,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		registry:  reg,
		navSource: navSource,
		scorer:    scorer,
		repo:      repo,
		events:    eventManager,
		log:       log.With().Str("component", "backtest").Logger(),
	}
}

// scoredCandidate is a fund that passed the lookback predicate and received
// a point-in-time score.
type scoredCandidate struct {
	fund     registry.Fund
	set      *scoring.ComponentScoreSet
	quartile int
}

// horizonSample is one measured (fund, horizon) pair, indexing back into
// the scored slice.
type horizonSample struct {
	idx           int
	forwardReturn float64
	annualized    float64
}

// Run executes one validation sweep and persists a run record with per-fund
// details. Scoring at the historical date uses only observations recorded
// at or before it, so adding later data to the store never changes a
// historical score.
func (e *Engine) Run(ctx context.Context, cfg RunConfig) (*Summary, error) {
	if cfg.ScoringDate.IsZero() {
		return nil, fmt.Errorf("scoring date is required")
	}
	if cfg.LookbackMonths <= 0 {
		cfg.LookbackMonths = defaultLookbackMonths
	}
	if len(cfg.Horizons) == 0 {
		cfg.Horizons = append([]int(nil), defaultHorizons...)
	}
	sort.Ints(cfg.Horizons)

	summary := &Summary{
		RunID:          uuid.New().String(),
		StartedAt:      time.Now().UTC(),
		ScoringDate:    cfg.ScoringDate,
		LookbackMonths: cfg.LookbackMonths,
		Horizons:       cfg.Horizons,
		CategoryFilter: cfg.CategoryFilter,
	}

	e.log.Info().
		Str("run_id", summary.RunID).
		Str("scoring_date", cfg.ScoringDate.Format("2006-01-02")).
		Ints("horizons", cfg.Horizons).
		Msg("Backtest run started")
	if e.events != nil {
		e.events.Emit(events.BacktestStarted, "backtest", map[string]interface{}{
			"run_id":       summary.RunID,
			"scoring_date": cfg.ScoringDate.Format("2006-01-02"),
		})
	}

	if err := e.repo.CreateRun(summary); err != nil {
		return nil, err
	}

	funds, err := e.registry.ListFunds(cfg.CategoryFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate funds: %w", err)
	}
	summary.Candidates = len(funds)

	scored, err := e.scoreCandidates(ctx, summary.RunID, funds, cfg)
	if err != nil {
		return nil, err
	}
	summary.Scored = len(scored)
	summary.Skipped = summary.Candidates - summary.Scored

	e.assignQuartiles(cfg.ScoringDate, scored)

	var details []Detail
	for _, h := range cfg.Horizons {
		hs, hd := e.measureHorizon(cfg.ScoringDate, h, scored, summary.RunID)
		summary.ByHorizon = append(summary.ByHorizon, hs)
		details = append(details, hd...)
	}

	summary.FinishedAt = time.Now().UTC()
	if err := e.repo.FinishRun(summary, details); err != nil {
		return nil, err
	}

	e.log.Info().
		Str("run_id", summary.RunID).
		Int("candidates", summary.Candidates).
		Int("scored", summary.Scored).
		Int("skipped", summary.Skipped).
		Dur("duration", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("Backtest run completed")
	if e.events != nil {
		e.events.Emit(events.BacktestCompleted, "backtest", map[string]interface{}{
			"run_id": summary.RunID,
			"scored": summary.Scored,
		})
	}

	return summary, nil
}

// scoreCandidates recomputes scores as of t with the ingestion cutoff at t.
// A fund is a candidate when its point-in-time series starts close enough
// to the lookback boundary; everything else is a skip, never a relaxed
// retry.
func (e *Engine) scoreCandidates(ctx context.Context, runID string, funds []registry.Fund, cfg RunConfig) ([]scoredCandidate, error) {
	t := cfg.ScoringDate
	spanStart := t.AddDate(0, -cfg.LookbackMonths, 0)
	latestAcceptableStart := spanStart.AddDate(0, 0, lookbackGraceDays)
	cutoff := t

	var scored []scoredCandidate
	for i, fund := range funds {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest cancelled: %w", err)
		}

		series, err := e.navSource.GetObservations(fund.ID, spanStart, t, &cutoff)
		if err != nil {
			e.log.Warn().Err(err).Int64("fund_id", fund.ID).Msg("NAV fetch failed, excluding candidate")
			continue
		}
		if series.Len() == 0 {
			continue
		}
		if first := series.First(); first != nil && first.Date.After(latestAcceptableStart) {
			continue
		}

		set := e.scorer.Score(fund, series, t)
		if set == nil {
			continue
		}
		scored = append(scored, scoredCandidate{fund: fund, set: set})

		if e.events != nil && (i+1)%50 == 0 {
			e.events.EmitTyped("backtest", &events.BacktestProgressData{
				RunID:     runID,
				Phase:     "scoring",
				Processed: i + 1,
				Total:     len(funds),
			})
		}
	}

	return scored, nil
}

// assignQuartiles ranks the point-in-time scores within category peer groups
// and re-derives each recommendation with its quartile, exactly as the live
// cycle does.
func (e *Engine) assignQuartiles(t time.Time, scored []scoredCandidate) {
	byCategory := make(map[string][]ranking.Entry)
	for _, c := range scored {
		byCategory[c.fund.Category] = append(byCategory[c.fund.Category], ranking.Entry{
			FundID:     c.fund.ID,
			SchemeCode: c.fund.SchemeCode,
			TotalScore: c.set.TotalScore,
		})
	}

	quartiles := make(map[int64]int)
	for group, entries := range byCategory {
		for _, rec := range ranking.Rank(t, ranking.GroupCategory, group, entries) {
			quartiles[rec.FundID] = rec.Quartile
		}
	}

	for i := range scored {
		scored[i].quartile = quartiles[scored[i].fund.ID]
		scored[i].set.Recommendation = scoring.Recommend(scored[i].set.TotalScore, scored[i].quartile)
	}
}

// measureHorizon computes realized forward returns from t to t+h for every
// scored candidate and aggregates accuracy, agreement, correlation, and
// quartile stability. Funds without forward data are skipped for this
// horizon only.
func (e *Engine) measureHorizon(t time.Time, horizonMonths int, scored []scoredCandidate, runID string) (HorizonSummary, []Detail) {
	hs := HorizonSummary{HorizonMonths: horizonMonths}
	details := make([]Detail, 0, len(scored))

	target := t.AddDate(0, horizonMonths, 0)
	horizonDays := int(target.Sub(t).Hours() / 24)
	tolerance := scoring.ReturnPeriod{Days: horizonDays}.Tolerance()

	var population []horizonSample

	for i, c := range scored {
		detail := Detail{
			RunID:          runID,
			FundID:         c.fund.ID,
			HorizonMonths:  horizonMonths,
			TotalScore:     c.set.TotalScore,
			Quartile:       c.quartile,
			Recommendation: c.set.Recommendation,
			Snapshot:       c.set,
		}

		fwd, ann := e.forwardReturn(c.fund.ID, t, target, tolerance)
		if fwd == nil {
			hs.SkippedForward++
			details = append(details, detail)
			continue
		}

		hs.Measured++
		detail.ForwardReturn = fwd
		agreement := agreementScore(c.set.TotalScore, *ann)
		detail.Agreement = &agreement
		if match := directionMatch(c.set.Recommendation, *ann); match != nil {
			detail.DirectionMatch = match
		}

		population = append(population, horizonSample{idx: i, forwardReturn: *fwd, annualized: *ann})
		details = append(details, detail)
	}

	e.aggregate(&hs, scored, population)
	return hs, details
}

// forwardReturn resolves NAV anchors at t and t+h and returns the simple
// horizon return plus its annualized form, both in percent. Nil when either
// anchor is missing within tolerance.
func (e *Engine) forwardReturn(fundID int64, t, target time.Time, tolerance time.Duration) (simple *float64, annualized *float64) {
	start, err := e.navSource.NearestObservation(fundID, t, tolerance)
	if err != nil || start == nil {
		return nil, nil
	}
	end, err := e.navSource.NearestObservation(fundID, target, tolerance)
	if err != nil || end == nil {
		return nil, nil
	}

	elapsed := int(end.Date.Sub(start.Date).Hours() / 24)
	if elapsed <= 0 {
		return nil, nil
	}

	simple = formulas.SimpleReturn(start.NAV, end.NAV)
	annualized = formulas.AnnualizedReturn(start.NAV, end.NAV, elapsed)
	if simple == nil || annualized == nil {
		return nil, nil
	}
	return simple, annualized
}

// aggregate fills the horizon summary from measured details: directional
// accuracy, mean agreement, population Pearson correlation of score against
// forward return, and quartile stability against the forward-return
// quartile.
func (e *Engine) aggregate(hs *HorizonSummary, scored []scoredCandidate, population []horizonSample) {
	if len(population) == 0 {
		return
	}

	predictions, matches := 0, 0
	agreementSum := 0.0
	scores := make([]float64, len(population))
	forwards := make([]float64, len(population))
	for i, m := range population {
		scores[i] = scored[m.idx].set.TotalScore
		forwards[i] = m.forwardReturn
		agreementSum += agreementScore(scored[m.idx].set.TotalScore, m.annualized)
		if match := directionMatch(scored[m.idx].set.Recommendation, m.annualized); match != nil {
			predictions++
			if *match {
				matches++
			}
		}
	}

	if predictions > 0 {
		accuracy := float64(matches) / float64(predictions)
		hs.Accuracy = &accuracy
	}
	avg := agreementSum / float64(len(population))
	hs.AvgAgreement = &avg
	if len(population) >= 2 {
		corr := formulas.Correlation(scores, forwards)
		if !math.IsNaN(corr) {
			hs.Correlation = &corr
		}
	}

	hs.QuartileStability = quartileStability(scored, population)
}

// quartileStability ranks the measured population by forward return and
// reports the fraction whose score quartile at t is unchanged or adjacent
// to their forward-return quartile.
func quartileStability(scored []scoredCandidate, population []horizonSample) *float64 {
	n := len(population)
	if n == 0 {
		return nil
	}

	byForward := make([]int, n)
	for i := range byForward {
		byForward[i] = i
	}
	sort.Slice(byForward, func(a, b int) bool {
		return population[byForward[a]].forwardReturn > population[byForward[b]].forwardReturn
	})

	stable := 0
	for rank, pi := range byForward {
		percentile := 100.0
		if n > 1 {
			percentile = (1 - float64(rank)/float64(n-1)) * 100
		}
		forwardQuartile := ranking.QuartileOf(percentile)
		scoreQuartile := scored[population[pi].idx].quartile
		if scoreQuartile == 0 {
			continue
		}
		if diff := scoreQuartile - forwardQuartile; diff >= -1 && diff <= 1 {
			stable++
		}
	}

	stability := float64(stable) / float64(n)
	return &stability
}

// directionMatch evaluates the recommendation's implied direction against
// the realized annualized return. HOLD carries no directional prediction
// and returns nil.
func directionMatch(rec scoring.Recommendation, annualizedReturn float64) *bool {
	outperformed := annualizedReturn >= OutperformThreshold
	var match bool
	switch rec {
	case scoring.StrongBuy, scoring.Buy:
		match = outperformed
	case scoring.Sell, scoring.StrongSell:
		match = !outperformed
	default:
		return nil
	}
	return &match
}

// agreementScore is the normalized agreement between a total score and a
// realized annualized return, in [0, 1]. The score maps linearly from its
// [34, 100] range; the return maps from [-10%, +30%] annualized.
func agreementScore(totalScore, annualizedReturn float64) float64 {
	sNorm := clamp01((totalScore - scoring.TotalScoreMin) / (scoring.TotalScoreMax - scoring.TotalScoreMin))
	rNorm := clamp01((annualizedReturn + 10.0) / 40.0)
	return 1 - math.Abs(sNorm-rNorm)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
