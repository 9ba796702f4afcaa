package formulas

import (
	"math"
	"testing"
)

func TestSimpleReturn(t *testing.T) {
	tests := []struct {
		name       string
		historical float64
		latest     float64
		want       *float64
	}{
		{"gain", 100, 115, ptr(15.0)},
		{"loss", 100, 90, ptr(-10.0)},
		{"flat", 100, 100, ptr(0.0)},
		{"zero historical", 0, 100, nil},
		{"negative latest", 100, -5, nil},
		{"nan", math.NaN(), 100, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SimpleReturn(tt.historical, tt.latest)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("SimpleReturn(%v, %v) nil mismatch: got %v, want %v", tt.historical, tt.latest, got, tt.want)
			}
			if got != nil && !almostEqual(*got, *tt.want) {
				t.Errorf("SimpleReturn(%v, %v) = %v, want %v", tt.historical, tt.latest, *got, *tt.want)
			}
		})
	}
}

func TestAnnualizedReturn(t *testing.T) {
	// Doubling over exactly two years annualizes to sqrt(2)-1.
	got := AnnualizedReturn(100, 200, 730)
	if got == nil {
		t.Fatal("expected non-nil annualized return")
	}
	want := (math.Pow(2, 365.0/730.0) - 1) * 100
	if !almostEqual(*got, want) {
		t.Errorf("AnnualizedReturn = %v, want %v", *got, want)
	}

	// One year exactly: annualized equals simple.
	got = AnnualizedReturn(100, 115, 365)
	if got == nil || !almostEqual(*got, 15.0) {
		t.Errorf("AnnualizedReturn over 365 days = %v, want 15", got)
	}

	if AnnualizedReturn(100, 115, 0) != nil {
		t.Error("zero elapsed days should yield nil")
	}
	if AnnualizedReturn(0, 115, 365) != nil {
		t.Error("zero historical anchor should yield nil")
	}
}

func TestCumulativeReturn(t *testing.T) {
	got := CumulativeReturn([]float64{50, 60, 75})
	if got == nil || !almostEqual(*got, 50.0) {
		t.Errorf("CumulativeReturn = %v, want 50", got)
	}

	if CumulativeReturn([]float64{100}) != nil {
		t.Error("single-point series should yield nil")
	}
}

func ptr(v float64) *float64 { return &v }
