// Package registry provides a read model over the externally-owned fund
// registry (identity, classification, descriptive attributes).
package registry

import "time"

// Fund describes one scheme as recorded by the registry. Descriptive fields
// are nullable because the ingestion side fills them incrementally.
type Fund struct {
	ID            int64      `json:"id"`
	SchemeCode    string     `json:"scheme_code"`
	Name          string     `json:"name"`
	Category      string     `json:"category"`
	Subcategory   string     `json:"subcategory"`
	ExpenseRatio  *float64   `json:"expense_ratio,omitempty"`
	AUMCrores     *float64   `json:"aum_crores,omitempty"`
	InceptionDate *time.Time `json:"inception_date,omitempty"`
}

// AgeYears returns the fund age at asOf in fractional years, or nil when the
// inception date is unknown.
func (f Fund) AgeYears(asOf time.Time) *float64 {
	if f.InceptionDate == nil || f.InceptionDate.After(asOf) {
		return nil
	}

	years := asOf.Sub(*f.InceptionDate).Hours() / 24 / 365.25
	return &years
}
