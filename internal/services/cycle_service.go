package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundscore/internal/database"
	"github.com/aristath/fundscore/internal/events"
	"github.com/aristath/fundscore/internal/modules/navdata"
	"github.com/aristath/fundscore/internal/modules/ranking"
	"github.com/aristath/fundscore/internal/modules/registry"
	"github.com/aristath/fundscore/internal/modules/scoring"
)

// seriesWindowYears is how far back the cycle loads NAV history. The longest
// scored period is five years; the extra year absorbs anchor tolerance and
// sparse early history.
const seriesWindowYears = 6

// CycleResult summarizes one scoring cycle.
type CycleResult struct {
	ScoreDate    time.Time            `json:"score_date"`
	FundsScored  int                  `json:"funds_scored"`
	FundsSkipped int                  `json:"funds_skipped"`
	Skips        []scoring.SkipReason `json:"skips,omitempty"`
	Duration     time.Duration        `json:"duration_ns"`
}

// CycleService runs the nightly scoring cycle: score every fund, rank peer
// groups, derive recommendations, and persist everything atomically.
//
// The cycle is idempotent for a given (fund universe, NAV data, score date):
// scores and rankings are whole-row replacements, so re-running a cycle
// converges to the same rows.
type CycleService struct {
	registry    *registry.Repository
	navSource   navdata.Source
	scorer      *scoring.CompositeScorer
	scores      *scoring.ScoreRepository
	rankings    *ranking.Repository
	scoresDB    *sql.DB
	events      *events.Manager
	concurrency int
	chunkSize   int
	log         zerolog.Logger
}

// NewCycleService creates a cycle service.
func NewCycleService(
	reg *registry.Repository,
	navSource navdata.Source,
	scorer *scoring.CompositeScorer,
	scores *scoring.ScoreRepository,
	rankings *ranking.Repository,
	scoresDB *sql.DB,
	eventManager *events.Manager,
	concurrency int,
	chunkSize int,
	log zerolog.Logger,
) *CycleService {
	if concurrency < 1 {
		concurrency = 1
	}
	if chunkSize < 1 {
		chunkSize = 1
	}
	return &CycleService{
		registry:    reg,
		navSource:   navSource,
		scorer:      scorer,
		scores:      scores,
		rankings:    rankings,
		scoresDB:    scoresDB,
		events:      eventManager,
		concurrency: concurrency,
		chunkSize:   chunkSize,
		log:         log.With().Str("service", "cycle").Logger(),
	}
}

// fundOutcome is the per-fund result of the scoring phase. Exactly one of
// set and skip is populated.
type fundOutcome struct {
	fund registry.Fund
	set  *scoring.ComponentScoreSet
	skip *scoring.SkipReason
}

// RunScoringCycle scores every fund in the registry as of scoreDate, ranks
// the results within category and subcategory peer groups, re-derives
// recommendations with the quartile context, and persists scores and
// rankings in a single transaction.
func (s *CycleService) RunScoringCycle(ctx context.Context, scoreDate time.Time) (*CycleResult, error) {
	started := time.Now()
	dateStr := scoreDate.Format("2006-01-02")

	funds, err := s.registry.ListFunds("")
	if err != nil {
		return nil, fmt.Errorf("failed to list funds: %w", err)
	}

	s.log.Info().
		Str("score_date", dateStr).
		Int("funds", len(funds)).
		Int("concurrency", s.concurrency).
		Msg("Scoring cycle started")
	if s.events != nil {
		s.events.Emit(events.CycleStarted, "cycle", map[string]interface{}{
			"score_date": dateStr,
			"funds":      len(funds),
		})
	}

	outcomes, err := s.scorePhase(ctx, funds, scoreDate)
	if err != nil {
		return nil, err
	}

	result := &CycleResult{ScoreDate: scoreDate}
	var scored []fundOutcome
	for _, o := range outcomes {
		if o.set != nil {
			scored = append(scored, o)
			result.FundsScored++
		} else {
			result.Skips = append(result.Skips, *o.skip)
			result.FundsSkipped++
		}
	}

	records := s.rankPhase(scoreDate, scored)

	if err := s.persist(scored, records, scoreDate); err != nil {
		return nil, err
	}

	result.Duration = time.Since(started)
	s.log.Info().
		Str("score_date", dateStr).
		Int("scored", result.FundsScored).
		Int("skipped", result.FundsSkipped).
		Dur("duration", result.Duration).
		Msg("Scoring cycle completed")
	if s.events != nil {
		s.events.EmitTyped("cycle", &events.CycleCompletedData{
			ScoreDate:  dateStr,
			Scored:     result.FundsScored,
			Skipped:    result.FundsSkipped,
			DurationMS: result.Duration.Milliseconds(),
		})
	}

	return result, nil
}

// scorePhase computes a ComponentScoreSet per fund, in chunks with bounded
// concurrency. Each goroutine writes only its own preallocated slot, so the
// phase shares no mutable state. A fund that fails never aborts the cycle;
// it becomes a skip with a reason.
func (s *CycleService) scorePhase(ctx context.Context, funds []registry.Fund, scoreDate time.Time) ([]fundOutcome, error) {
	outcomes := make([]fundOutcome, len(funds))
	from := scoreDate.AddDate(-seriesWindowYears, 0, 0)

	processed := 0
	for start := 0; start < len(funds); start += s.chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scoring cycle cancelled: %w", err)
		}

		end := start + s.chunkSize
		if end > len(funds) {
			end = len(funds)
		}

		var wg sync.WaitGroup
		sem := make(chan struct{}, s.concurrency)
		for i := start; i < end; i++ {
			wg.Add(1)
			sem <- struct{}{}
			go func(idx int) {
				defer wg.Done()
				defer func() { <-sem }()
				outcomes[idx] = s.scoreFund(funds[idx], from, scoreDate)
			}(i)
		}
		wg.Wait()

		processed = end
		s.reportProgress(scoreDate, outcomes[:processed], len(funds))
	}

	return outcomes, nil
}

func (s *CycleService) scoreFund(fund registry.Fund, from, scoreDate time.Time) fundOutcome {
	out := fundOutcome{fund: fund}

	series, err := s.navSource.GetObservations(fund.ID, from, scoreDate, nil)
	if err != nil {
		s.log.Warn().Err(err).Int64("fund_id", fund.ID).Msg("NAV fetch failed, skipping fund")
		out.skip = &scoring.SkipReason{FundID: fund.ID, Reason: fmt.Sprintf("nav fetch failed: %v", err)}
		return out
	}
	if series.Len() == 0 {
		out.skip = &scoring.SkipReason{FundID: fund.ID, Reason: "no NAV data"}
		return out
	}

	set := s.scorer.Score(fund, series, scoreDate)
	if set == nil {
		out.skip = &scoring.SkipReason{FundID: fund.ID, Reason: "insufficient NAV history for any return period"}
		return out
	}

	out.set = set
	return out
}

func (s *CycleService) reportProgress(scoreDate time.Time, outcomes []fundOutcome, total int) {
	if s.events == nil {
		return
	}
	scored, skipped := 0, 0
	for _, o := range outcomes {
		if o.set != nil {
			scored++
		} else if o.skip != nil {
			skipped++
		}
	}
	s.events.EmitTyped("cycle", &events.CycleProgressData{
		ScoreDate: scoreDate.Format("2006-01-02"),
		Scored:    scored,
		Skipped:   skipped,
		Total:     total,
		Phase:     "scoring",
	})
}

// rankPhase groups scored funds by category and subcategory and ranks each
// group. It runs only after every fund has finished scoring: percentile is a
// whole-population function, so ranking any earlier would observe a partial
// group. Category quartiles are authoritative for recommendations, so each
// scored set's recommendation is re-derived here.
func (s *CycleService) rankPhase(scoreDate time.Time, scored []fundOutcome) []ranking.Record {
	byCategory := make(map[string][]ranking.Entry)
	bySubcategory := make(map[string][]ranking.Entry)
	for _, o := range scored {
		entry := ranking.Entry{
			FundID:     o.fund.ID,
			SchemeCode: o.fund.SchemeCode,
			TotalScore: o.set.TotalScore,
		}
		byCategory[o.fund.Category] = append(byCategory[o.fund.Category], entry)
		if o.fund.Subcategory != "" {
			bySubcategory[o.fund.Subcategory] = append(bySubcategory[o.fund.Subcategory], entry)
		}
	}

	var records []ranking.Record
	categoryQuartile := make(map[int64]int)
	for _, group := range sortedKeys(byCategory) {
		recs := ranking.Rank(scoreDate, ranking.GroupCategory, group, byCategory[group])
		for _, rec := range recs {
			categoryQuartile[rec.FundID] = rec.Quartile
		}
		records = append(records, recs...)
	}
	for _, group := range sortedKeys(bySubcategory) {
		records = append(records, ranking.Rank(scoreDate, ranking.GroupSubcategory, group, bySubcategory[group])...)
	}

	for _, o := range scored {
		o.set.Recommendation = scoring.Recommend(o.set.TotalScore, categoryQuartile[o.fund.ID])
	}

	return records
}

// persist writes all scores and all ranking rows in one transaction. The
// cycle either lands whole or not at all; readers never observe scores for a
// date without that date's rankings.
func (s *CycleService) persist(scored []fundOutcome, records []ranking.Record, scoreDate time.Time) error {
	byGroup := make(map[string][]ranking.Record)
	for _, rec := range records {
		key := string(rec.PeerGroupType) + "\x00" + rec.PeerGroup
		byGroup[key] = append(byGroup[key], rec)
	}

	return database.WithTransaction(s.scoresDB, func(tx *sql.Tx) error {
		for _, o := range scored {
			if err := s.scores.UpsertTx(tx, o.set); err != nil {
				return err
			}
		}
		for _, group := range sortedKeys(byGroup) {
			recs := byGroup[group]
			if err := s.rankings.ReplaceGroupTx(tx, scoreDate, recs[0].PeerGroupType, recs[0].PeerGroup, recs); err != nil {
				return err
			}
		}
		return nil
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
