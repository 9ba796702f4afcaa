package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// RSI calculates the current Relative Strength Index of a NAV series.
//
//	RSI = 100 - (100 / (1 + RS))
//	where RS = Average Gain / Average Loss over N periods
//
// Returns the latest value (0-100) or nil if the series is shorter than
// length+1 observations.
func RSI(closes []float64, length int) *float64 {
	if len(closes) < length+1 {
		return nil
	}

	rsi := talib.Rsi(closes, length)
	if len(rsi) == 0 {
		return nil
	}

	last := rsi[len(rsi)-1]
	if math.IsNaN(last) {
		return nil
	}
	return &last
}
