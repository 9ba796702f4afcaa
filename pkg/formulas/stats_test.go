package formulas

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestMean(t *testing.T) {
	tests := []struct {
		name string
		data []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{5}, 5},
		{"simple", []float64{1, 2, 3, 4}, 2.5},
		{"negative", []float64{-1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mean(tt.data); !almostEqual(got, tt.want) {
				t.Errorf("Mean(%v) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}

func TestStdDev(t *testing.T) {
	tests := []struct {
		name string
		data []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{5}, 0},
		{"constant", []float64{2, 2, 2, 2}, 0},
		// Sample std dev of {2,4,4,4,5,5,7,9} with n-1 denominator.
		{"known", []float64{2, 4, 4, 4, 5, 5, 7, 9}, math.Sqrt(32.0 / 7.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StdDev(tt.data); !almostEqual(got, tt.want) {
				t.Errorf("StdDev(%v) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}

func TestAnnualizedVolatility(t *testing.T) {
	// Annualized volatility must reproduce stddev × sqrt(252) exactly.
	returns := []float64{0.01, -0.005, 0.002, 0.007, -0.01, 0.004}
	want := StdDev(returns) * math.Sqrt(252)
	if got := AnnualizedVolatility(returns); !almostEqual(got, want) {
		t.Errorf("AnnualizedVolatility = %v, want %v", got, want)
	}

	if got := AnnualizedVolatility([]float64{0.01}); got != 0 {
		t.Errorf("AnnualizedVolatility with one sample = %v, want 0", got)
	}
}

func TestDailyReturns(t *testing.T) {
	prices := []float64{100, 110, 99}
	returns := DailyReturns(prices)
	if len(returns) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(returns))
	}
	if !almostEqual(returns[0], 0.10) {
		t.Errorf("returns[0] = %v, want 0.10", returns[0])
	}
	if !almostEqual(returns[1], -0.10) {
		t.Errorf("returns[1] = %v, want -0.10", returns[1])
	}

	if got := DailyReturns([]float64{100}); len(got) != 0 {
		t.Errorf("single price should yield no returns, got %v", got)
	}
}

func TestCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	yPos := []float64{2, 4, 6, 8, 10}
	yNeg := []float64{10, 8, 6, 4, 2}

	if got := Correlation(x, yPos); !almostEqual(got, 1) {
		t.Errorf("perfect positive correlation = %v, want 1", got)
	}
	if got := Correlation(x, yNeg); !almostEqual(got, -1) {
		t.Errorf("perfect negative correlation = %v, want -1", got)
	}
	if got := Correlation(x, []float64{1, 2}); got != 0 {
		t.Errorf("mismatched lengths should yield 0, got %v", got)
	}
}

func TestDownsideDeviation(t *testing.T) {
	if got := DownsideDeviation([]float64{0.01, 0.02, 0.03}, 0); got != nil {
		t.Errorf("all-positive series should yield nil, got %v", *got)
	}

	// Two below-target observations, full-sample denominator.
	returns := []float64{0.02, -0.01, -0.03, 0.01}
	got := DownsideDeviation(returns, 0)
	if got == nil {
		t.Fatal("expected non-nil downside deviation")
	}
	want := math.Sqrt((0.01*0.01+0.03*0.03)/4.0) * math.Sqrt(252)
	if !almostEqual(*got, want) {
		t.Errorf("DownsideDeviation = %v, want %v", *got, want)
	}
}

func TestIsFinitePositive(t *testing.T) {
	tests := []struct {
		v    float64
		want bool
	}{
		{1.5, true},
		{0, false},
		{-3, false},
		{math.NaN(), false},
		{math.Inf(1), false},
		{math.Inf(-1), false},
	}

	for _, tt := range tests {
		if got := IsFinitePositive(tt.v); got != tt.want {
			t.Errorf("IsFinitePositive(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
