package scoring

import (
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/aristath/fundscore/internal/modules/registry"
)

func testFund() registry.Fund {
	expense := 1.2
	aum := 5000.0
	inception := testAsOf.AddDate(-8, 0, 0)
	return registry.Fund{
		ID:            42,
		SchemeCode:    "100042",
		Name:          "Test Growth Fund",
		Category:      "Equity",
		Subcategory:   "Large Cap",
		ExpenseRatio:  &expense,
		AUMCrores:     &aum,
		InceptionDate: &inception,
	}
}

func newTestScorer() *CompositeScorer {
	return NewCompositeScorer(zerolog.Nop())
}

func TestScoreReturnThresholds(t *testing.T) {
	tests := []struct {
		name      string
		pct       float64
		periodCap float64
		want      float64
	}{
		{"top threshold", 15.0, 8.0, 8.0},
		{"top threshold capped for 1y", 15.0, 5.9, 5.9},
		{"second band", 12.0, 8.0, 6.4},
		{"third band", 8.0, 8.0, 4.8},
		{"fourth band", 5.0, 8.0, 3.2},
		{"barely positive", 0.5, 8.0, 1.6},
		{"small negative penalty", -5.0, 8.0, -0.15},
		{"penalty floored", -20.0, 8.0, ReturnPenaltyFloor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scoreReturn(tt.pct, tt.periodCap); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("scoreReturn(%v, %v) = %v, want %v", tt.pct, tt.periodCap, got, tt.want)
			}
		})
	}
}

func TestOneYearCapIsLower(t *testing.T) {
	if ReturnPeriodCaps["1y"] != 5.9 {
		t.Errorf("1y cap = %v, want 5.9", ReturnPeriodCaps["1y"])
	}
	for _, name := range []string{"3m", "6m", "3y", "5y"} {
		if ReturnPeriodCaps[name] != 8.0 {
			t.Errorf("%s cap = %v, want 8.0", name, ReturnPeriodCaps[name])
		}
	}
}

func TestScoreNilWithoutAnyReturn(t *testing.T) {
	// 40 days of history resolves no period at all; the fund is excluded,
	// never scored on fabricated defaults.
	s := dailySeries(40, 100, flatGrowth(0.001))

	set := newTestScorer().Score(testFund(), s, testAsOf)
	if set != nil {
		t.Fatalf("expected nil score set, got total %v", set.TotalScore)
	}
}

func TestScorePartialHistory(t *testing.T) {
	// 220 days: short periods score, long periods stay nil, and the fund is
	// still scored.
	s := dailySeries(220, 100, flatGrowth(0.0008))

	set := newTestScorer().Score(testFund(), s, testAsOf)
	if set == nil {
		t.Fatal("expected a score set")
	}

	if set.Return3MScore == nil {
		t.Error("expected a 3m sub-score")
	}
	if set.Return6MScore == nil {
		t.Error("expected a 6m sub-score")
	}
	if set.Return1YScore != nil || set.Return3YScore != nil || set.Return5YScore != nil {
		t.Error("long-period sub-scores should be nil with 220 days of history")
	}
}

func TestScoreTotalsAreConsistent(t *testing.T) {
	s := dailySeries(800, 100, func(i int, nav float64) float64 {
		if i%3 == 0 {
			return nav * 0.998
		}
		return nav * 1.0015
	})

	set := newTestScorer().Score(testFund(), s, testAsOf)
	if set == nil {
		t.Fatal("expected a score set")
	}

	// Each total is its raw sub-score sum clamped to the documented range.
	checks := []struct {
		name     string
		raw      float64
		total    float64
		min, max float64
	}{
		{"historical_returns", set.HistoricalReturnsRaw, set.HistoricalReturnsTotal, HistoricalReturnsMin, HistoricalReturnsMax},
		{"risk_grade", set.RiskGradeRaw, set.RiskGradeTotal, RiskGradeMin, RiskGradeMax},
		{"fundamentals", set.FundamentalsRaw, set.FundamentalsTotal, FundamentalsMin, FundamentalsMax},
		{"other_metrics", set.OtherMetricsRaw, set.OtherMetricsTotal, OtherMetricsMin, OtherMetricsMax},
	}
	for _, c := range checks {
		want := math.Min(math.Max(c.raw, c.min), c.max)
		if math.Abs(c.total-want) > 1e-9 {
			t.Errorf("%s total = %v, want clamp(%v) = %v", c.name, c.total, c.raw, want)
		}
		if c.total < c.min || c.total > c.max {
			t.Errorf("%s total %v outside [%v, %v]", c.name, c.total, c.min, c.max)
		}
	}

	componentSum := set.HistoricalReturnsTotal + set.RiskGradeTotal +
		set.FundamentalsTotal + set.OtherMetricsTotal
	wantTotal := math.Min(math.Max(componentSum, TotalScoreMin), TotalScoreMax)
	if math.Abs(set.TotalScore-wantTotal) > 1e-9 {
		t.Errorf("total score = %v, want %v", set.TotalScore, wantTotal)
	}
	if set.TotalScore < TotalScoreMin || set.TotalScore > TotalScoreMax {
		t.Errorf("total score %v outside [%v, %v]", set.TotalScore, TotalScoreMin, TotalScoreMax)
	}
}

func TestRiskGradeFloorApplies(t *testing.T) {
	set := &ComponentScoreSet{FundID: 1}
	// No risk sub-scores at all: the raw sum is zero and the component
	// clamps up to its floor.
	newTestScorer().deriveTotals(set)

	if set.RiskGradeTotal != RiskGradeMin {
		t.Errorf("risk grade total = %v, want floor %v", set.RiskGradeTotal, RiskGradeMin)
	}
	if set.TotalScore != TotalScoreMin {
		t.Errorf("total score = %v, want floor %v", set.TotalScore, TotalScoreMin)
	}
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		quartile int
		want     Recommendation
	}{
		{"strong buy on score", 72, 0, StrongBuy},
		{"strong buy on quartile", 66, 1, StrongBuy},
		{"not strong buy without quartile", 66, 0, Buy},
		{"buy on score", 61, 4, Buy},
		{"buy on top half", 56, 2, Buy},
		{"not buy in bottom half", 56, 3, Hold},
		{"hold", 45, 0, Hold},
		{"sell", 34, 0, Sell},
		{"strong sell", 20, 0, StrongSell},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Recommend(tt.score, tt.quartile); got != tt.want {
				t.Errorf("Recommend(%v, %d) = %s, want %s", tt.score, tt.quartile, got, tt.want)
			}
		})
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := dailySeries(800, 100, flatGrowth(0.0006))
	fund := testFund()
	scorer := newTestScorer()

	a := scorer.Score(fund, s, testAsOf)
	b := scorer.Score(fund, s, testAsOf)
	if a == nil || b == nil {
		t.Fatal("expected score sets")
	}
	if a.TotalScore != b.TotalScore {
		t.Errorf("scoring is not deterministic: %v vs %v", a.TotalScore, b.TotalScore)
	}
}

func TestFundamentalDefaultsWhenUnknown(t *testing.T) {
	fund := registry.Fund{ID: 9, SchemeCode: "9", Name: "Sparse Fund", Category: "Equity"}
	s := dailySeries(400, 100, flatGrowth(0.0006))

	set := newTestScorer().Score(fund, s, testAsOf)
	if set == nil {
		t.Fatal("expected a score set")
	}

	if set.ExpenseScore == nil || *set.ExpenseScore != expenseScoreDefault {
		t.Errorf("expense score = %v, want default %v", set.ExpenseScore, expenseScoreDefault)
	}
	if set.SizeScore == nil || *set.SizeScore != sizeScoreDefault {
		t.Errorf("size score = %v, want default %v", set.SizeScore, sizeScoreDefault)
	}
	if set.AgeScore == nil || *set.AgeScore != ageScoreDefault {
		t.Errorf("age score = %v, want default %v", set.AgeScore, ageScoreDefault)
	}
}
