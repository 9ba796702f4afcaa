package backtest

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/fundscore/internal/database"
	"github.com/aristath/fundscore/internal/modules/scoring"
)

// Repository persists validation runs and their per-fund detail rows.
// Runs are append-only: a run row is created when the sweep starts, filled
// in once when it finishes, and never mutated afterward.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a backtest repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "backtest").Logger(),
	}
}

// CreateRun inserts the run header at sweep start so an interrupted run
// remains visible with a NULL finished_at.
func (r *Repository) CreateRun(s *Summary) error {
	_, err := r.db.Exec(`
		INSERT INTO validation_runs
			(run_uuid, started_at, scoring_date, lookback_months, horizons, category_filter)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.RunID,
		s.StartedAt.Format(time.RFC3339),
		s.ScoringDate.Format("2006-01-02"),
		s.LookbackMonths,
		joinHorizons(s.Horizons),
		nullIfEmpty(s.CategoryFilter),
	)
	if err != nil {
		return fmt.Errorf("failed to create validation run %s: %w", s.RunID, err)
	}
	return nil
}

// FinishRun writes the run outcome and all detail rows in one transaction.
// Each detail row carries a msgpack snapshot of the full point-in-time
// score set for audit.
func (r *Repository) FinishRun(s *Summary, details []Detail) error {
	summaryJSON, err := json.Marshal(s.ByHorizon)
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}

	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			UPDATE validation_runs
			SET finished_at = ?, candidates = ?, scored = ?, skipped = ?, summary_json = ?
			WHERE run_uuid = ?`,
			s.FinishedAt.Format(time.RFC3339),
			s.Candidates, s.Scored, s.Skipped,
			string(summaryJSON), s.RunID,
		)
		if err != nil {
			return fmt.Errorf("failed to finalize validation run %s: %w", s.RunID, err)
		}

		for _, d := range details {
			snapshot, err := msgpack.Marshal(d.Snapshot)
			if err != nil {
				return fmt.Errorf("failed to encode score snapshot for fund %d: %w", d.FundID, err)
			}

			_, err = tx.Exec(`
				INSERT INTO validation_details
					(run_uuid, fund_id, horizon_months, total_score, quartile, recommendation,
					 forward_return, direction_match, agreement, score_snapshot)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				d.RunID, d.FundID, d.HorizonMonths,
				d.TotalScore, d.Quartile, string(d.Recommendation),
				d.ForwardReturn, boolPtrToIntPtr(d.DirectionMatch), d.Agreement,
				snapshot,
			)
			if err != nil {
				return fmt.Errorf("failed to insert validation detail for fund %d: %w", d.FundID, err)
			}
		}

		return nil
	})
}

// GetRun returns one run summary by ID, or nil when absent.
func (r *Repository) GetRun(runID string) (*Summary, error) {
	row := r.db.QueryRow(`
		SELECT run_uuid, started_at, finished_at, scoring_date, lookback_months,
		       horizons, category_filter, candidates, scored, skipped, summary_json
		FROM validation_runs
		WHERE run_uuid = ?`, runID)

	s, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get validation run %s: %w", runID, err)
	}
	return s, nil
}

// ListRuns returns run summaries newest first.
func (r *Repository) ListRuns(limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(`
		SELECT run_uuid, started_at, finished_at, scoring_date, lookback_months,
		       horizons, category_filter, candidates, scored, skipped, summary_json
		FROM validation_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list validation runs: %w", err)
	}
	defer rows.Close()

	var runs []Summary
	for rows.Next() {
		s, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan validation run: %w", err)
		}
		runs = append(runs, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating validation runs: %w", err)
	}
	return runs, nil
}

// Details returns the per-fund rows for a run, decoding the score
// snapshots.
func (r *Repository) Details(runID string) ([]Detail, error) {
	rows, err := r.db.Query(`
		SELECT run_uuid, fund_id, horizon_months, total_score, quartile, recommendation,
		       forward_return, direction_match, agreement, score_snapshot
		FROM validation_details
		WHERE run_uuid = ?
		ORDER BY horizon_months ASC, fund_id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list validation details for run %s: %w", runID, err)
	}
	defer rows.Close()

	var details []Detail
	for rows.Next() {
		var d Detail
		var rec string
		var directionMatch *int64
		var snapshot []byte
		err := rows.Scan(&d.RunID, &d.FundID, &d.HorizonMonths, &d.TotalScore, &d.Quartile, &rec,
			&d.ForwardReturn, &directionMatch, &d.Agreement, &snapshot)
		if err != nil {
			return nil, fmt.Errorf("failed to scan validation detail: %w", err)
		}

		d.Recommendation = scoring.Recommendation(rec)
		if directionMatch != nil {
			v := *directionMatch != 0
			d.DirectionMatch = &v
		}
		if len(snapshot) > 0 {
			var set scoring.ComponentScoreSet
			if err := msgpack.Unmarshal(snapshot, &set); err != nil {
				r.log.Warn().Err(err).Int64("fund_id", d.FundID).Msg("Failed to decode score snapshot")
			} else {
				d.Snapshot = &set
			}
		}

		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating validation details: %w", err)
	}
	return details, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Summary, error) {
	var sum Summary
	var startedAt string
	var finishedAt, categoryFilter, summaryJSON sql.NullString
	var horizons string
	var scoringDate string

	err := s.Scan(&sum.RunID, &startedAt, &finishedAt, &scoringDate, &sum.LookbackMonths,
		&horizons, &categoryFilter, &sum.Candidates, &sum.Scored, &sum.Skipped, &summaryJSON)
	if err != nil {
		return nil, err
	}

	if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		sum.StartedAt = t
	}
	if finishedAt.Valid {
		if t, err := time.Parse(time.RFC3339, finishedAt.String); err == nil {
			sum.FinishedAt = t
		}
	}
	if t, err := time.Parse("2006-01-02", scoringDate); err == nil {
		sum.ScoringDate = t
	}
	sum.Horizons = splitHorizons(horizons)
	sum.CategoryFilter = categoryFilter.String
	if summaryJSON.Valid && summaryJSON.String != "" {
		if err := json.Unmarshal([]byte(summaryJSON.String), &sum.ByHorizon); err != nil {
			return nil, fmt.Errorf("failed to decode run summary: %w", err)
		}
	}

	return &sum, nil
}

func joinHorizons(horizons []int) string {
	parts := make([]string, len(horizons))
	for i, h := range horizons {
		parts[i] = strconv.Itoa(h)
	}
	return strings.Join(parts, ",")
}

func splitHorizons(s string) []int {
	var horizons []int
	for _, part := range strings.Split(s, ",") {
		if h, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			horizons = append(horizons, h)
		}
	}
	return horizons
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolPtrToIntPtr(b *bool) interface{} {
	if b == nil {
		return nil
	}
	if *b {
		return 1
	}
	return 0
}
