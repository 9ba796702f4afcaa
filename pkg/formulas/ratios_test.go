package formulas

import (
	"math"
	"testing"
)

func TestSharpeRatio(t *testing.T) {
	returns := []float64{0.01, 0.002, -0.004, 0.008, 0.001}
	got := SharpeRatio(returns, 0.065)
	if got == nil {
		t.Fatal("expected non-nil Sharpe ratio")
	}
	want := (Mean(returns) - 0.065/252) / StdDev(returns) * math.Sqrt(252)
	if !almostEqual(*got, want) {
		t.Errorf("SharpeRatio = %v, want %v", *got, want)
	}

	if SharpeRatio([]float64{0.01}, 0.065) != nil {
		t.Error("one sample should yield nil")
	}
	if SharpeRatio([]float64{0.01, 0.01, 0.01}, 0.065) != nil {
		t.Error("zero volatility should yield nil")
	}
}

func TestSortinoRatio(t *testing.T) {
	returns := []float64{0.01, -0.005, 0.002, -0.008, 0.006}
	got := SortinoRatio(returns, 0.065)
	if got == nil {
		t.Fatal("expected non-nil Sortino ratio")
	}

	periodicRF := 0.065 / 252
	dd := DownsideDeviation(returns, periodicRF)
	want := (Mean(returns) - periodicRF) * 252 / *dd
	if !almostEqual(*got, want) {
		t.Errorf("SortinoRatio = %v, want %v", *got, want)
	}

	// All returns above the target leave no downside to measure.
	if SortinoRatio([]float64{0.01, 0.02, 0.03}, 0.0) != nil {
		t.Error("no downside should yield nil")
	}
}

func TestCalmarRatio(t *testing.T) {
	got := CalmarRatio(0.12, 0.25)
	if got == nil || !almostEqual(*got, 0.48) {
		t.Errorf("CalmarRatio = %v, want 0.48", got)
	}

	if CalmarRatio(0.12, 0) != nil {
		t.Error("zero drawdown should yield nil")
	}
}

func TestCapRatio(t *testing.T) {
	tests := []struct {
		ratio, ceiling, want float64
	}{
		{5, 10, 5},
		{15, 10, 10},
		{-15, 10, -10},
		{-5, 10, -5},
	}

	for _, tt := range tests {
		if got := CapRatio(tt.ratio, tt.ceiling); got != tt.want {
			t.Errorf("CapRatio(%v, %v) = %v, want %v", tt.ratio, tt.ceiling, got, tt.want)
		}
	}
}
