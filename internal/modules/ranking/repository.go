package ranking

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository persists ranking records. Rankings for a (date, group type,
// group) are always rewritten as a set; a ranking row outside its group
// context is meaningless.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a ranking repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "rankings").Logger(),
	}
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// ReplaceGroupTx deletes and rewrites all ranking rows for one peer group on
// one date, inside the caller's transaction.
func (r *Repository) ReplaceGroupTx(e execer, date time.Time, groupType PeerGroupType, group string, records []Record) error {
	dateStr := date.Format("2006-01-02")

	_, err := e.Exec(`
		DELETE FROM fund_rankings
		WHERE score_date = ? AND peer_group_type = ? AND peer_group = ?`,
		dateStr, string(groupType), group)
	if err != nil {
		return fmt.Errorf("failed to clear rankings for %s/%s: %w", groupType, group, err)
	}

	for _, rec := range records {
		_, err := e.Exec(`
			INSERT INTO fund_rankings
				(fund_id, score_date, peer_group_type, peer_group, rank, peer_count, percentile, quartile)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.FundID, dateStr, string(rec.PeerGroupType), rec.PeerGroup,
			rec.Rank, rec.PeerCount, rec.Percentile, rec.Quartile)
		if err != nil {
			return fmt.Errorf("failed to insert ranking for fund %d: %w", rec.FundID, err)
		}
	}

	return nil
}

// Get returns the ranking record for a fund on a date and group type, or nil
// when absent.
func (r *Repository) Get(fundID int64, date time.Time, groupType PeerGroupType) (*Record, error) {
	row := r.db.QueryRow(`
		SELECT fund_id, score_date, peer_group_type, peer_group, rank, peer_count, percentile, quartile
		FROM fund_rankings
		WHERE fund_id = ? AND score_date = ? AND peer_group_type = ?`,
		fundID, date.Format("2006-01-02"), string(groupType))

	var rec Record
	var dateStr, gt string
	err := row.Scan(&rec.FundID, &dateStr, &gt, &rec.PeerGroup,
		&rec.Rank, &rec.PeerCount, &rec.Percentile, &rec.Quartile)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ranking for fund %d: %w", fundID, err)
	}

	if t, err := time.Parse("2006-01-02", dateStr); err == nil {
		rec.ScoreDate = t
	}
	rec.PeerGroupType = PeerGroupType(gt)

	return &rec, nil
}
