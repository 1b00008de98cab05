package indicators

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestSMAFallsBackToPlainMean(t *testing.T) {
	prices := []float64{0.40, 0.50, 0.60}

	sma := SMA(prices, 10)
	if !almostEqual(sma, 0.50, 1e-9) {
		t.Errorf("Should fall back to plain mean with short series, got %.4f", sma)
	}

	if SMA(nil, 10) != 0 {
		t.Error("Should return 0 for an empty series")
	}
}

func TestSMAUsesLastPeriodSamples(t *testing.T) {
	prices := []float64{100, 100, 100, 0.50, 0.50}

	sma := SMA(prices, 2)
	if !almostEqual(sma, 0.50, 1e-9) {
		t.Errorf("Should average only the last period samples, got %.4f", sma)
	}
}

func TestEMAShortSeriesFallback(t *testing.T) {
	prices := []float64{0.40, 0.60}

	ema := EMA(prices, 5)
	if !almostEqual(ema, 0.50, 1e-9) {
		t.Errorf("Should fall back to plain mean, got %.4f", ema)
	}
}

func TestEMATracksRecentPrices(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 0.50
	}
	prices[len(prices)-1] = 0.60

	ema := EMA(prices, 10)
	if ema <= 0.50 || ema >= 0.60 {
		t.Errorf("EMA should sit between flat history and the latest jump, got %.4f", ema)
	}
}

func TestRSINeutralDefault(t *testing.T) {
	prices := []float64{0.50, 0.51, 0.52}

	rsi := RSI(prices, 14)
	if rsi != 50.0 {
		t.Errorf("Should return exactly 50 with insufficient data, got %.2f", rsi)
	}
}

func TestRSIMonotonicIncrease(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 0.30 + float64(i)*0.01
	}

	rsi := RSI(prices, 14)
	if rsi != 100.0 {
		t.Errorf("Strictly increasing series has zero average loss, expected 100, got %.2f", rsi)
	}
}

func TestRSIMonotonicDecrease(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 0.80 - float64(i)*0.01
	}

	rsi := RSI(prices, 14)
	if rsi != 0.0 {
		t.Errorf("Strictly decreasing series should read 0, got %.2f", rsi)
	}
}

func TestBollingerBandsInsufficientData(t *testing.T) {
	upper, lower, middle := BollingerBands([]float64{0.50, 0.51}, 20, 2.0)
	if upper != 0 || lower != 0 || middle != 0 {
		t.Error("Should return (0, 0, 0) with insufficient data")
	}
}

func TestBollingerBandsFlatSeries(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 0.50
	}

	upper, lower, middle := BollingerBands(prices, 20, 2.0)
	if !almostEqual(middle, 0.50, 1e-9) {
		t.Errorf("Middle band should equal the mean, got %.4f", middle)
	}
	if !almostEqual(upper, lower, 1e-9) {
		t.Error("Flat series has zero sigma, bands should collapse onto the mean")
	}
}

func TestBollingerBandsSymmetry(t *testing.T) {
	prices := []float64{0.45, 0.55, 0.45, 0.55, 0.45, 0.55, 0.45, 0.55, 0.45, 0.55}

	upper, lower, middle := BollingerBands(prices, 10, 2.0)
	if !almostEqual(upper-middle, middle-lower, 1e-9) {
		t.Error("Bands should be symmetric around the middle")
	}
	if upper <= middle {
		t.Error("Upper band should sit above the middle with nonzero variance")
	}
}

func TestATRInsufficientData(t *testing.T) {
	prices := []float64{0.50, 0.52}

	if atr := ATR(prices, 15); atr != 0 {
		t.Errorf("Should return 0 with insufficient data, got %.6f", atr)
	}
}

func TestATRNormalizedByLatestClose(t *testing.T) {
	// Alternate +-0.01 around 0.50 so every true range is exactly 0.01.
	prices := make([]float64, 16)
	for i := range prices {
		if i%2 == 0 {
			prices[i] = 0.50
		} else {
			prices[i] = 0.51
		}
	}

	atr := ATR(prices, 15)
	expected := 0.01 / prices[len(prices)-1]
	if !almostEqual(atr, expected, 1e-9) {
		t.Errorf("Expected normalized ATR %.6f, got %.6f", expected, atr)
	}
}

func TestATRFlatSeries(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 0.50
	}

	if atr := ATR(prices, 15); atr != 0 {
		t.Errorf("Flat series should have zero ATR, got %.6f", atr)
	}
}
