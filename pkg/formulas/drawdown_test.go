package formulas

import "testing"

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   *float64
	}{
		{"too short", []float64{100}, nil},
		{"monotonic rise", []float64{100, 110, 120}, ptr(0.0)},
		// Peak 120, trough 90: drawdown 25%.
		{"single decline", []float64{100, 120, 90, 110}, ptr(0.25)},
		// Later deeper decline wins: peak 150, trough 75.
		{"two declines", []float64{100, 120, 96, 150, 75}, ptr(0.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxDrawdown(tt.prices)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("MaxDrawdown(%v) nil mismatch", tt.prices)
			}
			if got != nil && !almostEqual(*got, *tt.want) {
				t.Errorf("MaxDrawdown(%v) = %v, want %v", tt.prices, *got, *tt.want)
			}
		})
	}
}

func TestCaptureRatio(t *testing.T) {
	// Avg up 0.02, avg down 0.01: ratio 2.
	returns := []float64{0.02, -0.01, 0.02, -0.01}
	got := CaptureRatio(returns)
	if got == nil || !almostEqual(*got, 2.0) {
		t.Errorf("CaptureRatio = %v, want 2", got)
	}

	if CaptureRatio([]float64{0.01, 0.02}) != nil {
		t.Error("no down days should yield nil")
	}
	if CaptureRatio([]float64{-0.01, -0.02}) != nil {
		t.Error("no up days should yield nil")
	}
}

func TestAvgUpDown(t *testing.T) {
	up, down := AvgUpDown([]float64{0.03, -0.01, 0.01, -0.03})
	if up == nil || !almostEqual(*up, 0.02) {
		t.Errorf("up = %v, want 0.02", up)
	}
	if down == nil || !almostEqual(*down, 0.02) {
		t.Errorf("down = %v, want 0.02", down)
	}

	up, down = AvgUpDown([]float64{0.01})
	if up == nil || down != nil {
		t.Errorf("one-sided series: up = %v, down = %v", up, down)
	}
}

func TestPositiveDayRatio(t *testing.T) {
	got := PositiveDayRatio([]float64{0.01, -0.01, 0.02, 0.03})
	if got == nil || !almostEqual(*got, 0.75) {
		t.Errorf("PositiveDayRatio = %v, want 0.75", got)
	}

	if PositiveDayRatio(nil) != nil {
		t.Error("empty series should yield nil")
	}
}
