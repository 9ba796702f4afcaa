package navdata

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver (read-only handle)
	"github.com/rs/zerolog"
)

// Source is the valuation series accessor consumed by the calculators and
// the backtesting engine. asOfCutoff, when non-nil, excludes observations
// recorded after that instant regardless of their nominal NAV date.
type Source interface {
	GetObservations(fundID int64, from, to time.Time, asOfCutoff *time.Time) (Series, error)
	NearestObservation(fundID int64, target time.Time, tolerance time.Duration) (*Observation, error)
}

// Repository reads NAV observations from the ingestion-owned funds database.
// The connection is opened in read-only mode; this engine never mutates
// valuation data.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens the funds database read-only and returns a repository.
func Open(path string, log zerolog.Logger) (*Repository, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open funds database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping funds database: %w", err)
	}

	// Readers only; keep the handle count modest.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)

	return &Repository{
		db:  db,
		log: log.With().Str("component", "navdata").Logger(),
	}, nil
}

// NewRepository wraps an existing connection (used by tests and by the
// registry module, which shares the same database file).
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "navdata").Logger(),
	}
}

// Close closes the underlying connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Conn exposes the read-only handle for sibling read models (fund registry).
func (r *Repository) Conn() *sql.DB {
	return r.db
}

// GetObservations returns the ordered NAV series for a fund between from and
// to inclusive. When asOfCutoff is set, rows recorded after the cutoff are
// excluded so historical scoring cannot leak future data.
func (r *Repository) GetObservations(fundID int64, from, to time.Time, asOfCutoff *time.Time) (Series, error) {
	query := `
		SELECT nav_date, nav, COALESCE(created_at, nav_date)
		FROM nav_data
		WHERE fund_id = ? AND nav_date >= ? AND nav_date <= ?`
	args := []interface{}{fundID, from.Format(dateLayout), to.Format(dateLayout)}

	if asOfCutoff != nil {
		query += ` AND COALESCE(created_at, nav_date) <= ?`
		args = append(args, asOfCutoff.Format(timeLayout))
	}

	query += ` ORDER BY nav_date ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return Series{}, fmt.Errorf("failed to query nav observations: %w", err)
	}
	defer rows.Close()

	series := Series{FundID: fundID}
	for rows.Next() {
		var dateStr, recordedStr string
		var nav float64

		if err := rows.Scan(&dateStr, &nav, &recordedStr); err != nil {
			return Series{}, fmt.Errorf("failed to scan nav observation: %w", err)
		}

		date, err := parseDate(dateStr)
		if err != nil {
			r.log.Warn().Str("nav_date", dateStr).Int64("fund_id", fundID).Msg("Unparseable NAV date, skipping row")
			continue
		}
		recorded, err := parseDate(recordedStr)
		if err != nil {
			recorded = date
		}

		series.Observations = append(series.Observations, Observation{
			Date:       date,
			NAV:        nav,
			RecordedAt: recorded,
		})
	}

	if err := rows.Err(); err != nil {
		return Series{}, fmt.Errorf("error iterating nav observations: %w", err)
	}

	return series, nil
}

// NearestObservation returns the observation closest to target within
// tolerance, or nil when none qualifies.
func (r *Repository) NearestObservation(fundID int64, target time.Time, tolerance time.Duration) (*Observation, error) {
	from := target.Add(-tolerance)
	to := target.Add(tolerance)

	series, err := r.GetObservations(fundID, from, to, nil)
	if err != nil {
		return nil, err
	}

	return series.Nearest(target, tolerance), nil
}

// FundIDsWithData returns the IDs of funds that have at least minObservations
// NAV rows, in ascending ID order. The deterministic order matters: scoring
// cycles iterate funds in this order so reruns are reproducible.
func (r *Repository) FundIDsWithData(minObservations int) ([]int64, error) {
	rows, err := r.db.Query(`
		SELECT fund_id
		FROM nav_data
		GROUP BY fund_id
		HAVING COUNT(*) >= ?
		ORDER BY fund_id ASC`, minObservations)
	if err != nil {
		return nil, fmt.Errorf("failed to query funds with data: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan fund id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fund ids: %w", err)
	}

	return ids, nil
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "2006-01-02 15:04:05"
)

// parseDate accepts both bare dates and datetime strings as stored by the
// ingestion side.
func parseDate(s string) (time.Time, error) {
	if len(s) >= len(timeLayout) {
		if t, err := time.Parse(timeLayout, s[:len(timeLayout)]); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
