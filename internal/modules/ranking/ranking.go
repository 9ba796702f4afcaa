// Package ranking computes rank, percentile, and quartile within peer
// groups. Ranking is always computed over the entire group at once:
// percentile is a function of the whole population, so there is no
// incremental re-ranking of a subset.
package ranking

import (
	"sort"
	"time"
)

// PeerGroupType identifies which classification axis a ranking applies to.
type PeerGroupType string

const (
	GroupCategory    PeerGroupType = "category"
	GroupSubcategory PeerGroupType = "subcategory"
)

// Entry is one fund's score within a peer group, as input to ranking.
type Entry struct {
	FundID     int64
	SchemeCode string // deterministic tie-break key
	TotalScore float64
}

// Record is the ranking outcome for one fund in one peer group.
type Record struct {
	FundID        int64         `json:"fund_id"`
	ScoreDate     time.Time     `json:"score_date"`
	PeerGroupType PeerGroupType `json:"peer_group_type"`
	PeerGroup     string        `json:"peer_group"`
	Rank          int           `json:"rank"`
	PeerCount     int           `json:"peer_count"`
	Percentile    float64       `json:"percentile"`
	Quartile      int           `json:"quartile"`
}

// Rank orders a peer group by total score descending and derives rank,
// percentile, and quartile for every member. Ties break on scheme code
// ascending so identical inputs always produce identical output.
//
// percentile(i) = (1 − (rank(i)−1)/(n−1)) × 100 for n > 1; 100 for n = 1.
// Quartile bands: ≥75 → 1, ≥50 → 2, ≥25 → 3, else 4.
func Rank(date time.Time, groupType PeerGroupType, group string, entries []Entry) []Record {
	if len(entries) == 0 {
		return nil
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].TotalScore != sorted[j].TotalScore {
			return sorted[i].TotalScore > sorted[j].TotalScore
		}
		return sorted[i].SchemeCode < sorted[j].SchemeCode
	})

	n := len(sorted)
	records := make([]Record, n)
	for i, e := range sorted {
		rank := i + 1
		percentile := 100.0
		if n > 1 {
			percentile = (1 - float64(rank-1)/float64(n-1)) * 100
		}

		records[i] = Record{
			FundID:        e.FundID,
			ScoreDate:     date,
			PeerGroupType: groupType,
			PeerGroup:     group,
			Rank:          rank,
			PeerCount:     n,
			Percentile:    percentile,
			Quartile:      QuartileOf(percentile),
		}
	}

	return records
}

// QuartileOf maps a percentile to its quartile band.
func QuartileOf(percentile float64) int {
	switch {
	case percentile >= 75:
		return 1
	case percentile >= 50:
		return 2
	case percentile >= 25:
		return 3
	default:
		return 4
	}
}
