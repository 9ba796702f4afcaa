package formulas

// MaxDrawdown calculates the largest peak-to-trough decline in a price
// series, tracked via a running peak. Expressed as a positive fraction
// (0.25 = 25% decline). Returns nil when there are fewer than two points.
func MaxDrawdown(prices []float64) *float64 {
	if len(prices) < 2 {
		return nil
	}

	maxDrawdown := 0.0
	peak := prices[0]

	for _, price := range prices {
		if price > peak {
			peak = price
		}

		if peak > 0 {
			drawdown := (peak - price) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return &maxDrawdown
}

// CaptureRatio calculates the up/down capture consistency proxy: the average
// magnitude of positive daily returns divided by the average magnitude of
// negative daily returns. A ratio above 1.0 means gains have historically
// outweighed losses of similar frequency. Returns nil when either side of the
// series is empty.
func CaptureRatio(dailyReturns []float64) *float64 {
	var upSum, downSum float64
	var upCount, downCount int

	for _, r := range dailyReturns {
		if r > 0 {
			upSum += r
			upCount++
		} else if r < 0 {
			downSum += -r
			downCount++
		}
	}

	if upCount == 0 || downCount == 0 {
		return nil
	}

	avgUp := upSum / float64(upCount)
	avgDown := downSum / float64(downCount)
	if avgDown == 0 {
		return nil
	}

	ratio := avgUp / avgDown
	return &ratio
}

// AvgUpDown returns the average magnitude of positive-day and negative-day
// returns. Either side is nil when that side of the series is empty.
func AvgUpDown(dailyReturns []float64) (up *float64, down *float64) {
	var upSum, downSum float64
	var upCount, downCount int

	for _, r := range dailyReturns {
		if r > 0 {
			upSum += r
			upCount++
		} else if r < 0 {
			downSum += -r
			downCount++
		}
	}

	if upCount > 0 {
		avg := upSum / float64(upCount)
		up = &avg
	}
	if downCount > 0 {
		avg := downSum / float64(downCount)
		down = &avg
	}
	return up, down
}

// PositiveDayRatio returns the fraction of daily returns that were positive.
// Returns nil for an empty series.
func PositiveDayRatio(dailyReturns []float64) *float64 {
	if len(dailyReturns) == 0 {
		return nil
	}

	positive := 0
	for _, r := range dailyReturns {
		if r > 0 {
			positive++
		}
	}

	ratio := float64(positive) / float64(len(dailyReturns))
	return &ratio
}
