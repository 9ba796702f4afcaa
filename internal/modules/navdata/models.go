// Package navdata provides read-only access to per-fund NAV observation
// series. The underlying database is owned by the ingestion collaborator;
// this package never writes to it.
package navdata

import (
	"time"
)

// Observation is a single dated NAV point for a fund.
type Observation struct {
	Date       time.Time `json:"date"`
	NAV        float64   `json:"nav"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Series is an ordered (ascending by date) NAV series for one fund. It is a
// value type: calculators operate on an in-memory series so a scoring run
// touches the database once per fund.
type Series struct {
	FundID       int64
	Observations []Observation
}

// Len returns the number of observations.
func (s Series) Len() int {
	return len(s.Observations)
}

// Values returns the NAV values in date order.
func (s Series) Values() []float64 {
	values := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		values[i] = o.NAV
	}
	return values
}

// First returns the earliest observation, or nil for an empty series.
func (s Series) First() *Observation {
	if len(s.Observations) == 0 {
		return nil
	}
	return &s.Observations[0]
}

// Last returns the latest observation, or nil for an empty series.
func (s Series) Last() *Observation {
	if len(s.Observations) == 0 {
		return nil
	}
	return &s.Observations[len(s.Observations)-1]
}

// Between returns the sub-series with dates in [from, to], inclusive.
func (s Series) Between(from, to time.Time) Series {
	out := Series{FundID: s.FundID}
	for _, o := range s.Observations {
		if o.Date.Before(from) || o.Date.After(to) {
			continue
		}
		out.Observations = append(out.Observations, o)
	}
	return out
}

// AsOf returns the sub-series of observations recorded on or before cutoff.
// The filter applies to the ingestion timestamp, not the nominal NAV date, so
// point-in-time scoring never sees late-arriving rows.
func (s Series) AsOf(cutoff time.Time) Series {
	out := Series{FundID: s.FundID}
	for _, o := range s.Observations {
		if o.RecordedAt.After(cutoff) {
			continue
		}
		out.Observations = append(out.Observations, o)
	}
	return out
}

// Nearest returns the observation closest to target within tolerance, or nil
// when no observation falls inside the window. Ties resolve to the earlier
// observation.
func (s Series) Nearest(target time.Time, tolerance time.Duration) *Observation {
	// Binary search for the insertion point, then compare neighbors.
	lo, hi := 0, len(s.Observations)
	for lo < hi {
		mid := (lo + hi) / 2
		if s.Observations[mid].Date.Before(target) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	var best *Observation
	bestDist := tolerance + 1
	for _, idx := range []int{lo - 1, lo} {
		if idx < 0 || idx >= len(s.Observations) {
			continue
		}
		o := &s.Observations[idx]
		dist := o.Date.Sub(target)
		if dist < 0 {
			dist = -dist
		}
		if dist <= tolerance && dist < bestDist {
			best = o
			bestDist = dist
		}
	}

	return best
}
