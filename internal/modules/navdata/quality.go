package navdata

import (
	"math"
	"time"
)

// QualityReport summarizes the health of a fund's NAV series. It mirrors the
// checks the scoring pipeline applies, so a flagged artifact day here is
// exactly a day the risk calculator would exclude.
type QualityReport struct {
	FundID          int64      `json:"fund_id"`
	Observations    int        `json:"observations"`
	FirstDate       *time.Time `json:"first_date,omitempty"`
	LastDate        *time.Time `json:"last_date,omitempty"`
	NonPositiveNAVs int        `json:"non_positive_navs"`
	DuplicateDates  int        `json:"duplicate_dates"`
	ArtifactDays    int        `json:"artifact_days"`
	MaxGapDays      int        `json:"max_gap_days"`
}

// CheckQuality scans a series against the supplied daily-return artifact
// bound (a decimal, e.g. 0.10 for 10%).
func CheckQuality(series Series, artifactBound float64) QualityReport {
	report := QualityReport{
		FundID:       series.FundID,
		Observations: series.Len(),
	}

	if series.Len() == 0 {
		return report
	}

	first := series.First().Date
	last := series.Last().Date
	report.FirstDate = &first
	report.LastDate = &last

	var prev *Observation
	for i := range series.Observations {
		o := &series.Observations[i]

		if o.NAV <= 0 || math.IsNaN(o.NAV) || math.IsInf(o.NAV, 0) {
			report.NonPositiveNAVs++
		}

		if prev != nil {
			if o.Date.Equal(prev.Date) {
				report.DuplicateDates++
			}

			gap := int(o.Date.Sub(prev.Date).Hours() / 24)
			if gap > report.MaxGapDays {
				report.MaxGapDays = gap
			}

			if prev.NAV > 0 && o.NAV > 0 {
				ret := (o.NAV - prev.NAV) / prev.NAV
				if math.Abs(ret) > artifactBound {
					report.ArtifactDays++
				}
			}
		}

		prev = o
	}

	return report
}
