package registry

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository reads funds from the ingestion-owned database. It shares the
// read-only handle opened by the navdata module.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a fund registry read model.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "registry").Logger(),
	}
}

const fundColumns = `
	id, scheme_code, fund_name,
	COALESCE(category, ''), COALESCE(subcategory, ''),
	expense_ratio, aum_crores, inception_date`

// GetFund returns a single fund by ID.
func (r *Repository) GetFund(fundID int64) (*Fund, error) {
	row := r.db.QueryRow(`SELECT `+fundColumns+` FROM funds WHERE id = ?`, fundID)

	fund, err := scanFund(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fund %d: %w", fundID, err)
	}

	return fund, nil
}

// ListFunds returns all funds, optionally filtered by category, ordered by ID
// so scoring cycles iterate deterministically.
func (r *Repository) ListFunds(category string) ([]Fund, error) {
	query := `SELECT ` + fundColumns + ` FROM funds`
	var args []interface{}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list funds: %w", err)
	}
	defer rows.Close()

	var funds []Fund
	for rows.Next() {
		fund, err := scanFund(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fund: %w", err)
		}
		funds = append(funds, *fund)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating funds: %w", err)
	}

	return funds, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFund(s scanner) (*Fund, error) {
	var fund Fund
	var expense, aum sql.NullFloat64
	var inception sql.NullString

	err := s.Scan(
		&fund.ID, &fund.SchemeCode, &fund.Name,
		&fund.Category, &fund.Subcategory,
		&expense, &aum, &inception,
	)
	if err != nil {
		return nil, err
	}

	if expense.Valid {
		fund.ExpenseRatio = &expense.Float64
	}
	if aum.Valid {
		fund.AUMCrores = &aum.Float64
	}
	if inception.Valid && len(inception.String) >= 10 {
		if t, err := time.Parse("2006-01-02", inception.String[:10]); err == nil {
			fund.InceptionDate = &t
		}
	}

	return &fund, nil
}
