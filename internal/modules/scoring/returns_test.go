package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/aristath/fundscore/internal/modules/navdata"
)

var testAsOf = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

// dailySeries builds an observation per day for the given number of trailing
// days, ending at testAsOf, applying step to derive each NAV from the prior
// one.
func dailySeries(days int, startNAV float64, step func(i int, nav float64) float64) navdata.Series {
	s := navdata.Series{FundID: 1}
	nav := startNAV
	for i := 0; i <= days; i++ {
		date := testAsOf.AddDate(0, 0, -days+i)
		if i > 0 {
			nav = step(i, nav)
		}
		s.Observations = append(s.Observations, navdata.Observation{
			Date:       date,
			NAV:        nav,
			RecordedAt: date,
		})
	}
	return s
}

func flatGrowth(pct float64) func(int, float64) float64 {
	return func(_ int, nav float64) float64 {
		return nav * (1 + pct)
	}
}

func TestPeriodReturnOneYearSimple(t *testing.T) {
	// NAV 100 one year before asOf, 115 at asOf: simple 15% return.
	s := navdata.Series{FundID: 1}
	for _, o := range []struct {
		daysAgo int
		nav     float64
	}{{365, 100}, {200, 108}, {0, 115}} {
		date := testAsOf.AddDate(0, 0, -o.daysAgo)
		s.Observations = append(s.Observations, navdata.Observation{Date: date, NAV: o.nav, RecordedAt: date})
	}

	calc := NewReturnCalculator()
	got := calc.PeriodReturn(s, testAsOf, ReturnPeriod{Name: "1y", Days: 365})
	if got == nil {
		t.Fatal("expected a 1y return")
	}
	if math.Abs(*got-15.0) > 1e-9 {
		t.Errorf("1y return = %v, want 15", *got)
	}
}

func TestPeriodReturnAnnualizesBeyondOneYear(t *testing.T) {
	// 100 → 144 over three years annualizes with the actual elapsed days.
	s := navdata.Series{FundID: 1}
	for _, o := range []struct {
		daysAgo int
		nav     float64
	}{{1095, 100}, {0, 144}} {
		date := testAsOf.AddDate(0, 0, -o.daysAgo)
		s.Observations = append(s.Observations, navdata.Observation{Date: date, NAV: o.nav, RecordedAt: date})
	}

	calc := NewReturnCalculator()
	got := calc.PeriodReturn(s, testAsOf, ReturnPeriod{Name: "3y", Days: 1095})
	if got == nil {
		t.Fatal("expected a 3y return")
	}
	want := (math.Pow(1.44, 365.0/1095.0) - 1) * 100
	if math.Abs(*got-want) > 1e-9 {
		t.Errorf("3y return = %v, want %v", *got, want)
	}
}

func TestPeriodReturnMissingAnchor(t *testing.T) {
	// Only 40 days of history: no anchor near asOf-91d within the 9-day
	// tolerance, so the 3m return is insufficient data, not zero.
	s := dailySeries(40, 100, flatGrowth(0.001))

	calc := NewReturnCalculator()
	if got := calc.PeriodReturn(s, testAsOf, ReturnPeriod{Name: "3m", Days: 91}); got != nil {
		t.Errorf("expected nil 3m return, got %v", *got)
	}
}

func TestPeriodReturnNonPositiveAnchor(t *testing.T) {
	s := navdata.Series{FundID: 1}
	for _, o := range []struct {
		daysAgo int
		nav     float64
	}{{91, -10}, {0, 115}} {
		date := testAsOf.AddDate(0, 0, -o.daysAgo)
		s.Observations = append(s.Observations, navdata.Observation{Date: date, NAV: o.nav, RecordedAt: date})
	}

	calc := NewReturnCalculator()
	if got := calc.PeriodReturn(s, testAsOf, ReturnPeriod{Name: "3m", Days: 91}); got != nil {
		t.Errorf("expected nil return for non-positive anchor, got %v", *got)
	}
}

func TestAllPeriodReturnsPartialHistory(t *testing.T) {
	// 220 days of history: 3m and 6m resolve, 1y/3y/5y are nil.
	s := dailySeries(220, 100, flatGrowth(0.0005))

	calc := NewReturnCalculator()
	returns := calc.AllPeriodReturns(s, testAsOf)

	if returns["3m"] == nil {
		t.Error("expected a 3m return")
	}
	if returns["6m"] == nil {
		t.Error("expected a 6m return")
	}
	for _, name := range []string{"1y", "3y", "5y"} {
		if returns[name] != nil {
			t.Errorf("expected nil %s return, got %v", name, *returns[name])
		}
	}
}

func TestToleranceClamp(t *testing.T) {
	tests := []struct {
		days int
		want time.Duration
	}{
		{91, 9 * 24 * time.Hour},     // 91/10 = 9 days
		{30, 5 * 24 * time.Hour},     // floor at 5
		{1825, 182 * 24 * time.Hour}, // 1825/10 = 182, under the 183 cap
		{3650, 183 * 24 * time.Hour}, // cap at 183
	}

	for _, tt := range tests {
		if got := (ReturnPeriod{Days: tt.days}).Tolerance(); got != tt.want {
			t.Errorf("Tolerance(%d days) = %v, want %v", tt.days, got, tt.want)
		}
	}
}
