package ranking

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

var rankDate = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func TestRankFourFunds(t *testing.T) {
	entries := []Entry{
		{FundID: 1, SchemeCode: "A", TotalScore: 90},
		{FundID: 2, SchemeCode: "B", TotalScore: 80},
		{FundID: 3, SchemeCode: "C", TotalScore: 70},
		{FundID: 4, SchemeCode: "D", TotalScore: 60},
	}

	records := Rank(rankDate, GroupCategory, "Equity", entries)
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}

	wantRanks := []int{1, 2, 3, 4}
	wantPercentiles := []float64{100, 66.666666667, 33.333333333, 0}
	wantQuartiles := []int{1, 2, 3, 4}

	for i, rec := range records {
		if rec.Rank != wantRanks[i] {
			t.Errorf("record %d rank = %d, want %d", i, rec.Rank, wantRanks[i])
		}
		if math.Abs(rec.Percentile-wantPercentiles[i]) > 1e-6 {
			t.Errorf("record %d percentile = %v, want %v", i, rec.Percentile, wantPercentiles[i])
		}
		if rec.Quartile != wantQuartiles[i] {
			t.Errorf("record %d quartile = %d, want %d", i, rec.Quartile, wantQuartiles[i])
		}
		if rec.PeerCount != 4 {
			t.Errorf("record %d peer count = %d, want 4", i, rec.PeerCount)
		}
	}
}

func TestRankSingleFund(t *testing.T) {
	records := Rank(rankDate, GroupCategory, "Debt", []Entry{
		{FundID: 1, SchemeCode: "A", TotalScore: 50},
	})
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Rank != 1 || records[0].Percentile != 100 || records[0].Quartile != 1 {
		t.Errorf("single fund should be rank 1 at percentile 100 in quartile 1, got %+v", records[0])
	}
}

func TestRankEmptyGroup(t *testing.T) {
	if records := Rank(rankDate, GroupCategory, "Hybrid", nil); records != nil {
		t.Errorf("expected nil for an empty group, got %v", records)
	}
}

func TestRankTieBreaksOnSchemeCode(t *testing.T) {
	entries := []Entry{
		{FundID: 2, SchemeCode: "B", TotalScore: 75},
		{FundID: 1, SchemeCode: "A", TotalScore: 75},
	}

	records := Rank(rankDate, GroupCategory, "Equity", entries)
	if records[0].FundID != 1 || records[1].FundID != 2 {
		t.Errorf("tied scores must order by scheme code: got %d then %d", records[0].FundID, records[1].FundID)
	}
}

// TestRankInputOrderInvariant feeds the same group in shuffled orders and
// requires identical output every time.
func TestRankInputOrderInvariant(t *testing.T) {
	entries := make([]Entry, 20)
	for i := range entries {
		entries[i] = Entry{
			FundID:     int64(i + 1),
			SchemeCode: string(rune('A' + i)),
			TotalScore: float64(40 + (i*7)%55),
		}
	}

	baseline := Rank(rankDate, GroupCategory, "Equity", entries)

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 10; trial++ {
		shuffled := make([]Entry, len(entries))
		copy(shuffled, entries)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		records := Rank(rankDate, GroupCategory, "Equity", shuffled)
		for i := range baseline {
			if records[i] != baseline[i] {
				t.Fatalf("trial %d: record %d differs: %+v vs %+v", trial, i, records[i], baseline[i])
			}
		}
	}
}

func TestQuartileOf(t *testing.T) {
	tests := []struct {
		percentile float64
		want       int
	}{
		{100, 1}, {75, 1}, {74.99, 2}, {50, 2}, {49.99, 3}, {25, 3}, {24.99, 4}, {0, 4},
	}

	for _, tt := range tests {
		if got := QuartileOf(tt.percentile); got != tt.want {
			t.Errorf("QuartileOf(%v) = %d, want %d", tt.percentile, got, tt.want)
		}
	}
}

// TestPercentileMonotonic checks that higher scores never receive lower
// percentiles.
func TestPercentileMonotonic(t *testing.T) {
	entries := []Entry{
		{FundID: 1, SchemeCode: "A", TotalScore: 95},
		{FundID: 2, SchemeCode: "B", TotalScore: 80},
		{FundID: 3, SchemeCode: "C", TotalScore: 80},
		{FundID: 4, SchemeCode: "D", TotalScore: 41},
		{FundID: 5, SchemeCode: "E", TotalScore: 38},
	}

	records := Rank(rankDate, GroupSubcategory, "Large Cap", entries)
	for i := 1; i < len(records); i++ {
		if records[i].Percentile > records[i-1].Percentile {
			t.Errorf("percentile increased down the ranking: %v then %v", records[i-1].Percentile, records[i].Percentile)
		}
	}
}
