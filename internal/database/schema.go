package database

import "fmt"

// scoresSchema defines the engine-owned tables. All three stores are
// append/replace-only: score rows are replaced whole per (fund, date),
// ranking rows are rewritten per (date, peer group), validation rows are
// never mutated after a run completes.
const scoresSchema = `
CREATE TABLE IF NOT EXISTS fund_scores (
    fund_id                  INTEGER NOT NULL,
    score_date               TEXT    NOT NULL,

    return_3m_score          REAL,
    return_6m_score          REAL,
    return_1y_score          REAL,
    return_3y_score          REAL,
    return_5y_score          REAL,

    vol_1y_score             REAL,
    vol_3y_score             REAL,
    capture_1y_score         REAL,
    capture_3y_score         REAL,
    drawdown_score           REAL,

    expense_score            REAL,
    size_score               REAL,
    age_score                REAL,

    sector_similarity_score  REAL,
    forward_score            REAL,
    momentum_score           REAL,
    consistency_score        REAL,

    historical_returns_total REAL NOT NULL,
    risk_grade_total         REAL NOT NULL,
    fundamentals_total       REAL NOT NULL,
    other_metrics_total      REAL NOT NULL,
    total_score              REAL NOT NULL,

    recommendation           TEXT NOT NULL,
    created_at               TEXT NOT NULL DEFAULT (datetime('now')),

    PRIMARY KEY (fund_id, score_date)
);

CREATE TABLE IF NOT EXISTS fund_rankings (
    fund_id         INTEGER NOT NULL,
    score_date      TEXT    NOT NULL,
    peer_group_type TEXT    NOT NULL, -- 'category' or 'subcategory'
    peer_group      TEXT    NOT NULL,
    rank            INTEGER NOT NULL,
    peer_count      INTEGER NOT NULL,
    percentile      REAL    NOT NULL,
    quartile        INTEGER NOT NULL,
    created_at      TEXT    NOT NULL DEFAULT (datetime('now')),

    PRIMARY KEY (fund_id, score_date, peer_group_type)
);

CREATE INDEX IF NOT EXISTS idx_rankings_group
    ON fund_rankings (score_date, peer_group_type, peer_group);

CREATE TABLE IF NOT EXISTS validation_runs (
    run_uuid         TEXT PRIMARY KEY,
    started_at       TEXT NOT NULL,
    finished_at      TEXT,
    scoring_date     TEXT NOT NULL,
    lookback_months  INTEGER NOT NULL,
    horizons         TEXT NOT NULL, -- comma-separated month counts
    category_filter  TEXT,
    candidates       INTEGER NOT NULL DEFAULT 0,
    scored           INTEGER NOT NULL DEFAULT 0,
    skipped          INTEGER NOT NULL DEFAULT 0,
    summary_json     TEXT
);

CREATE TABLE IF NOT EXISTS validation_details (
    run_uuid         TEXT    NOT NULL,
    fund_id          INTEGER NOT NULL,
    horizon_months   INTEGER NOT NULL,
    total_score      REAL    NOT NULL,
    quartile         INTEGER NOT NULL,
    recommendation   TEXT    NOT NULL,
    forward_return   REAL,
    direction_match  INTEGER, -- 1/0, NULL when forward data missing
    agreement        REAL,
    score_snapshot   BLOB,    -- msgpack ComponentScoreSet as of scoring date

    PRIMARY KEY (run_uuid, fund_id, horizon_months),
    FOREIGN KEY (run_uuid) REFERENCES validation_runs (run_uuid)
);
`

// Migrate creates the engine-owned tables if they do not exist.
// Safe to run repeatedly.
func (db *DB) Migrate() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}

	if _, err := tx.Exec(scoresSchema); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to apply scores schema: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scores schema: %w", err)
	}

	return nil
}
