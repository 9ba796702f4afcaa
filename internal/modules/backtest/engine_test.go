package backtest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundscore/internal/modules/navdata"
	"github.com/aristath/fundscore/internal/modules/registry"
	"github.com/aristath/fundscore/internal/modules/scoring"
)

var backtestDate = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// fakeSource serves canned NAV series and records every as-of cutoff it is
// asked to apply.
type fakeSource struct {
	series  map[int64]navdata.Series
	cutoffs []time.Time
}

func (f *fakeSource) GetObservations(fundID int64, from, to time.Time, asOfCutoff *time.Time) (navdata.Series, error) {
	s := f.series[fundID]
	if asOfCutoff != nil {
		f.cutoffs = append(f.cutoffs, *asOfCutoff)
		s = s.AsOf(*asOfCutoff)
	}
	return s.Between(from, to), nil
}

func (f *fakeSource) NearestObservation(fundID int64, target time.Time, tolerance time.Duration) (*navdata.Observation, error) {
	return f.series[fundID].Nearest(target, tolerance), nil
}

// growthSeries builds one observation per day from start for the given number
// of days, compounding dailyPct. RecordedAt matches the nominal date.
func growthSeries(fundID int64, start time.Time, days int, dailyPct float64) navdata.Series {
	s := navdata.Series{FundID: fundID}
	nav := 100.0
	for i := 0; i <= days; i++ {
		date := start.AddDate(0, 0, i)
		if i > 0 {
			nav *= 1 + dailyPct
		}
		s.Observations = append(s.Observations, navdata.Observation{
			Date:       date,
			NAV:        nav,
			RecordedAt: date,
		})
	}
	return s
}

func testEngine(src navdata.Source) *Engine {
	return &Engine{
		navSource: src,
		scorer:    scoring.NewCompositeScorer(zerolog.Nop()),
		log:       zerolog.Nop(),
	}
}

func TestDirectionMatch(t *testing.T) {
	truePtr := func(b bool) *bool { return &b }

	tests := []struct {
		name       string
		rec        scoring.Recommendation
		annualized float64
		want       *bool
	}{
		{"buy outperformed", scoring.Buy, 12.0, truePtr(true)},
		{"buy underperformed", scoring.Buy, 3.0, truePtr(false)},
		{"strong buy at threshold", scoring.StrongBuy, 8.0, truePtr(true)},
		{"sell underperformed", scoring.Sell, -2.0, truePtr(true)},
		{"strong sell outperformed", scoring.StrongSell, 15.0, truePtr(false)},
		{"hold predicts nothing", scoring.Hold, 20.0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := directionMatch(tt.rec, tt.annualized)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("directionMatch(%s, %v) nil mismatch", tt.rec, tt.annualized)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("directionMatch(%s, %v) = %v, want %v", tt.rec, tt.annualized, *got, *tt.want)
			}
		})
	}
}

func TestAgreementScore(t *testing.T) {
	// A score at the bottom of the range against a -10% annualized return is
	// perfect agreement; against +30% it is total disagreement.
	if got := agreementScore(scoring.TotalScoreMin, -10.0); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("bottom score vs worst return: agreement = %v, want 1", got)
	}
	if got := agreementScore(scoring.TotalScoreMin, 30.0); math.Abs(got) > 1e-9 {
		t.Errorf("bottom score vs best return: agreement = %v, want 0", got)
	}
	if got := agreementScore(scoring.TotalScoreMax, 30.0); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("top score vs best return: agreement = %v, want 1", got)
	}

	// Returns beyond the normalization band clamp rather than overflow.
	for _, ann := range []float64{-500, 0, 500} {
		got := agreementScore(70, ann)
		if got < 0 || got > 1 {
			t.Errorf("agreementScore(70, %v) = %v, outside [0, 1]", ann, got)
		}
	}
}

func TestForwardReturn(t *testing.T) {
	src := &fakeSource{series: map[int64]navdata.Series{
		1: growthSeries(1, backtestDate.AddDate(0, 0, -10), 110, 0.001),
	}}
	e := testEngine(src)

	target := backtestDate.AddDate(0, 3, 0)
	tolerance := 9 * 24 * time.Hour

	simple, annualized := e.forwardReturn(1, backtestDate, target, tolerance)
	if simple == nil || annualized == nil {
		t.Fatal("expected a forward return with anchors on both sides")
	}
	if *simple <= 0 {
		t.Errorf("growing series should yield a positive forward return, got %v", *simple)
	}

	// No observations anywhere near the horizon end.
	farTarget := backtestDate.AddDate(2, 0, 0)
	if s, _ := e.forwardReturn(1, backtestDate, farTarget, tolerance); s != nil {
		t.Errorf("expected nil forward return without an end anchor, got %v", *s)
	}

	// Unknown fund has no start anchor either.
	if s, _ := e.forwardReturn(99, backtestDate, target, tolerance); s != nil {
		t.Errorf("expected nil forward return for unknown fund, got %v", *s)
	}
}

func TestScoreCandidatesAppliesCutoff(t *testing.T) {
	// Series long enough to score, starting well before the lookback window.
	src := &fakeSource{series: map[int64]navdata.Series{
		1: growthSeries(1, backtestDate.AddDate(-4, 0, 0), 4*365, 0.0005),
	}}
	e := testEngine(src)

	funds := []registry.Fund{{ID: 1, SchemeCode: "1", Name: "Old Fund", Category: "Equity"}}
	cfg := RunConfig{ScoringDate: backtestDate, LookbackMonths: 36, Horizons: []int{3}}

	scored, err := e.scoreCandidates(context.Background(), "run-1", funds, cfg)
	if err != nil {
		t.Fatalf("scoreCandidates: %v", err)
	}
	if len(scored) != 1 {
		t.Fatalf("expected 1 scored candidate, got %d", len(scored))
	}

	// Every fetch must carry the scoring date as its ingestion cutoff.
	if len(src.cutoffs) == 0 {
		t.Fatal("no cutoff was passed to the NAV source")
	}
	for _, c := range src.cutoffs {
		if !c.Equal(backtestDate) {
			t.Errorf("cutoff = %v, want %v", c, backtestDate)
		}
	}
}

func TestScoreCandidatesLookbackPredicate(t *testing.T) {
	// Fund 1 starts right at the lookback boundary, fund 2 starts two years
	// in. Only fund 1 qualifies.
	lookbackStart := backtestDate.AddDate(0, -36, 0)
	src := &fakeSource{series: map[int64]navdata.Series{
		1: growthSeries(1, lookbackStart, 3*365, 0.0005),
		2: growthSeries(2, backtestDate.AddDate(-1, 0, 0), 365, 0.0005),
	}}
	e := testEngine(src)

	funds := []registry.Fund{
		{ID: 1, SchemeCode: "1", Name: "Seasoned", Category: "Equity"},
		{ID: 2, SchemeCode: "2", Name: "Young", Category: "Equity"},
	}
	cfg := RunConfig{ScoringDate: backtestDate, LookbackMonths: 36, Horizons: []int{3}}

	scored, err := e.scoreCandidates(context.Background(), "run-1", funds, cfg)
	if err != nil {
		t.Fatalf("scoreCandidates: %v", err)
	}
	if len(scored) != 1 || scored[0].fund.ID != 1 {
		t.Fatalf("expected only fund 1 to qualify, got %d candidates", len(scored))
	}
}

func TestMeasureHorizonSkipsMissingForwardData(t *testing.T) {
	// Fund 1 has data through the horizon, fund 2 stops at the scoring date.
	src := &fakeSource{series: map[int64]navdata.Series{
		1: growthSeries(1, backtestDate.AddDate(-3, 0, 0), 3*365+120, 0.0005),
		2: growthSeries(2, backtestDate.AddDate(-3, 0, 0), 3*365, 0.0005),
	}}
	e := testEngine(src)

	set1 := &scoring.ComponentScoreSet{FundID: 1, TotalScore: 72}
	set1.Recommendation = scoring.Recommend(set1.TotalScore, 1)
	set2 := &scoring.ComponentScoreSet{FundID: 2, TotalScore: 45}
	set2.Recommendation = scoring.Recommend(set2.TotalScore, 3)

	scored := []scoredCandidate{
		{fund: registry.Fund{ID: 1, SchemeCode: "1", Category: "Equity"}, set: set1, quartile: 1},
		{fund: registry.Fund{ID: 2, SchemeCode: "2", Category: "Equity"}, set: set2, quartile: 3},
	}

	hs, details := e.measureHorizon(backtestDate, 3, scored, "run-1")
	if hs.Measured != 1 {
		t.Errorf("measured = %d, want 1", hs.Measured)
	}
	if hs.SkippedForward != 1 {
		t.Errorf("skipped forward = %d, want 1", hs.SkippedForward)
	}
	if len(details) != 2 {
		t.Fatalf("expected 2 details, got %d", len(details))
	}

	for _, d := range details {
		switch d.FundID {
		case 1:
			if d.ForwardReturn == nil || d.Agreement == nil {
				t.Error("fund 1 should carry a forward return and agreement")
			}
		case 2:
			if d.ForwardReturn != nil {
				t.Error("fund 2 has no forward data and should carry no forward return")
			}
		}
	}
}

func TestQuartileStability(t *testing.T) {
	// Four funds whose forward-return order matches their score quartiles
	// exactly: stability 1. Then invert the best fund's forward return so it
	// lands in the bottom forward quartile, three quartiles away.
	scored := []scoredCandidate{
		{quartile: 1, set: &scoring.ComponentScoreSet{TotalScore: 90}},
		{quartile: 2, set: &scoring.ComponentScoreSet{TotalScore: 70}},
		{quartile: 3, set: &scoring.ComponentScoreSet{TotalScore: 50}},
		{quartile: 4, set: &scoring.ComponentScoreSet{TotalScore: 40}},
	}

	aligned := []horizonSample{
		{idx: 0, forwardReturn: 20},
		{idx: 1, forwardReturn: 12},
		{idx: 2, forwardReturn: 5},
		{idx: 3, forwardReturn: -2},
	}
	if got := quartileStability(scored, aligned); got == nil || *got != 1.0 {
		t.Errorf("aligned population stability = %v, want 1", got)
	}

	inverted := []horizonSample{
		{idx: 0, forwardReturn: -9},
		{idx: 1, forwardReturn: 12},
		{idx: 2, forwardReturn: 5},
		{idx: 3, forwardReturn: -2},
	}
	got := quartileStability(scored, inverted)
	if got == nil {
		t.Fatal("expected a stability value")
	}
	if *got >= 1.0 {
		t.Errorf("inverting the top fund should lower stability, got %v", *got)
	}

	if quartileStability(nil, nil) != nil {
		t.Error("empty population should yield nil stability")
	}
}

func TestRunRequiresScoringDate(t *testing.T) {
	e := testEngine(&fakeSource{series: map[int64]navdata.Series{}})
	if _, err := e.Run(context.Background(), RunConfig{}); err == nil {
		t.Error("expected an error without a scoring date")
	}
}
