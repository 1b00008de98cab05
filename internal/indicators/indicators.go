// Package indicators provides stateless technical indicators over a price
// series of closes, oldest-first. Every function returns a documented neutral
// default when the series is too short; callers must treat those defaults as
// "insufficient data" rather than a real reading.
package indicators

import "math"

// ============================================================================
// MOVING AVERAGES
// ============================================================================

// SMA calculates the Simple Moving Average over the last period samples.
// With fewer than period samples it falls back to the plain mean of
// everything available.
func SMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		return mean(prices)
	}

	return mean(prices[len(prices)-period:])
}

// EMA calculates the Exponential Moving Average, seeded with the SMA of the
// first period samples. With fewer than period samples it falls back to the
// plain mean.
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		return mean(prices)
	}

	ema := mean(prices[:period])
	multiplier := 2.0 / float64(period+1)

	for i := period; i < len(prices); i++ {
		ema = (prices[i] * multiplier) + (ema * (1 - multiplier))
	}

	return ema
}

// ============================================================================
// RSI (Relative Strength Index)
// ============================================================================

// RSI calculates the Relative Strength Index over the last period deltas.
// Returns 50 (neutral) with fewer than period+1 samples, and 100 when the
// average loss is exactly zero.
func RSI(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 50.0 // Neutral RSI
	}

	gains := 0.0
	losses := 0.0
	start := len(prices) - period - 1

	for i := start + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

// ============================================================================
// BOLLINGER BANDS
// ============================================================================

// BollingerBands calculates (upper, lower, middle) bands over the last period
// samples using stdDev standard deviations. Returns (0, 0, 0) with
// insufficient data. Callers derive band width as (upper-lower)/middle.
func BollingerBands(prices []float64, period int, stdDev float64) (upper, lower, middle float64) {
	if len(prices) < period {
		return 0, 0, 0
	}

	window := prices[len(prices)-period:]
	middle = mean(window)

	variance := 0.0
	for _, p := range window {
		diff := p - middle
		variance += diff * diff
	}
	sigma := math.Sqrt(variance / float64(period))

	upper = middle + stdDev*sigma
	lower = middle - stdDev*sigma
	return upper, lower, middle
}

// ============================================================================
// ATR (Average True Range)
// ============================================================================

// ATR calculates the Average True Range over the last period steps,
// normalized by the latest close so the result is a fraction rather than an
// absolute price. For a close-only series the true range degenerates to the
// absolute close-to-close change. Returns 0 with fewer than period+1 samples
// or a non-positive latest close.
func ATR(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 0
	}

	sum := 0.0
	start := len(prices) - period

	for i := start; i < len(prices); i++ {
		sum += math.Abs(prices[i] - prices[i-1])
	}

	last := prices[len(prices)-1]
	if last <= 0 {
		return 0
	}

	return (sum / float64(period)) / last
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
