package scoring

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ScoreRepository persists ComponentScoreSets. A score row is only ever
// written whole: the upsert replaces every column for (fund, date) so a
// concurrent rewrite is last-writer-wins on the full record and partial
// field merges cannot produce inconsistent aggregates.
type ScoreRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewScoreRepository creates a score repository.
func NewScoreRepository(db *sql.DB, log zerolog.Logger) *ScoreRepository {
	return &ScoreRepository{
		db:  db,
		log: log.With().Str("repository", "scores").Logger(),
	}
}

const scoreColumns = `
	fund_id, score_date,
	return_3m_score, return_6m_score, return_1y_score, return_3y_score, return_5y_score,
	vol_1y_score, vol_3y_score, capture_1y_score, capture_3y_score, drawdown_score,
	expense_score, size_score, age_score,
	sector_similarity_score, forward_score, momentum_score, consistency_score,
	historical_returns_total, risk_grade_total, fundamentals_total, other_metrics_total,
	total_score, recommendation`

// Upsert writes the full score row for (fund, date), replacing any previous
// row atomically.
func (r *ScoreRepository) Upsert(set *ComponentScoreSet) error {
	return r.UpsertTx(r.db, set)
}

// execer covers *sql.DB and *sql.Tx so cycle persistence can run inside one
// transaction.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// UpsertTx writes the full score row using the supplied handle.
func (r *ScoreRepository) UpsertTx(e execer, set *ComponentScoreSet) error {
	_, err := e.Exec(`
		INSERT OR REPLACE INTO fund_scores (`+scoreColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		set.FundID, set.ScoreDate.Format("2006-01-02"),
		set.Return3MScore, set.Return6MScore, set.Return1YScore, set.Return3YScore, set.Return5YScore,
		set.Vol1YScore, set.Vol3YScore, set.Capture1YScore, set.Capture3YScore, set.DrawdownScore,
		set.ExpenseScore, set.SizeScore, set.AgeScore,
		set.SectorSimilarityScore, set.ForwardScore, set.MomentumScore, set.ConsistencyScore,
		set.HistoricalReturnsTotal, set.RiskGradeTotal, set.FundamentalsTotal, set.OtherMetricsTotal,
		set.TotalScore, string(set.Recommendation),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert score for fund %d: %w", set.FundID, err)
	}

	return nil
}

// Get returns the score row for (fund, date), or nil when absent.
func (r *ScoreRepository) Get(fundID int64, date time.Time) (*ComponentScoreSet, error) {
	row := r.db.QueryRow(`
		SELECT `+scoreColumns+`
		FROM fund_scores
		WHERE fund_id = ? AND score_date = ?`,
		fundID, date.Format("2006-01-02"))

	set, err := scanScore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get score for fund %d: %w", fundID, err)
	}

	return set, nil
}

// ListByDate returns all score rows for a scoring date, ordered by fund ID.
func (r *ScoreRepository) ListByDate(date time.Time) ([]ComponentScoreSet, error) {
	rows, err := r.db.Query(`
		SELECT `+scoreColumns+`
		FROM fund_scores
		WHERE score_date = ?
		ORDER BY fund_id ASC`,
		date.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to list scores for %s: %w", date.Format("2006-01-02"), err)
	}
	defer rows.Close()

	var sets []ComponentScoreSet
	for rows.Next() {
		set, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan score row: %w", err)
		}
		sets = append(sets, *set)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating score rows: %w", err)
	}

	return sets, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanScore(s scanner) (*ComponentScoreSet, error) {
	var set ComponentScoreSet
	var dateStr, recommendation string

	err := s.Scan(
		&set.FundID, &dateStr,
		&set.Return3MScore, &set.Return6MScore, &set.Return1YScore, &set.Return3YScore, &set.Return5YScore,
		&set.Vol1YScore, &set.Vol3YScore, &set.Capture1YScore, &set.Capture3YScore, &set.DrawdownScore,
		&set.ExpenseScore, &set.SizeScore, &set.AgeScore,
		&set.SectorSimilarityScore, &set.ForwardScore, &set.MomentumScore, &set.ConsistencyScore,
		&set.HistoricalReturnsTotal, &set.RiskGradeTotal, &set.FundamentalsTotal, &set.OtherMetricsTotal,
		&set.TotalScore, &recommendation,
	)
	if err != nil {
		return nil, err
	}

	if t, err := time.Parse("2006-01-02", dateStr); err == nil {
		set.ScoreDate = t
	}
	set.Recommendation = Recommendation(recommendation)

	return &set, nil
}
