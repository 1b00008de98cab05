package detector

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"polymarket-fade-bot/config"
	"polymarket-fade-bot/internal/market"
)

func testConfig() config.DetectorConfig {
	return config.DetectorConfig{
		MoveWindowMinutes:       5,
		MinPriceChange:          0.03,
		UnderlyingMoveMax:       0.0035,
		VolumeRecentMinutes:     2,
		VolumeBaselineMinutes:   10,
		VolumeSpikeMultiplier:   1.8,
		RetailMedianNotionalMax: 40,
		RetailMeanNotionalMax:   60,
		RetailSmallFractionMin:  0.60,
		ImbalanceExtreme:        0.75,
		RSIPeriod:               14,
		RSISampleEveryN:         3,
		RSIOversold:             30,
		RSIOverbought:           70,
		MinScore:                55,
		EdgeScale:               0.06,
	}
}

func newTestDetector() *Detector {
	return New(testConfig(), zerolog.Nop())
}

// flatTape builds a quiet tape: one trade every 30s from -10m to now at a
// constant price and size.
func flatTape(now time.Time, price, size float64) []market.Trade {
	var trades []market.Trade
	for offset := 10 * time.Minute; offset > 0; offset -= 30 * time.Second {
		trades = append(trades, market.Trade{
			Timestamp: now.Add(-offset),
			Price:     price,
			Size:      size,
			Side:      market.SideBuy,
			Outcome:   "Up",
		})
	}
	return trades
}

// panicTape builds a tape with a flat first half and a heavy spike in the
// last two minutes ending near spikePrice.
func panicTape(now time.Time, basePrice, spikePrice float64) []market.Trade {
	var trades []market.Trade
	for offset := 10 * time.Minute; offset > 2*time.Minute; offset -= 30 * time.Second {
		trades = append(trades, market.Trade{
			Timestamp: now.Add(-offset),
			Price:     basePrice,
			Size:      20, // $10 notional at 0.50
			Side:      market.SideBuy,
			Outcome:   "Up",
		})
	}
	for offset := 2 * time.Minute; offset > 0; offset -= 10 * time.Second {
		trades = append(trades, market.Trade{
			Timestamp: now.Add(-offset),
			Price:     spikePrice,
			Size:      30,
			Side:      market.SideBuy,
			Outcome:   "Up",
		})
	}
	return trades
}

func imbalancedBook() *market.OrderBookSnapshot {
	return market.NewOrderBookSnapshot(
		[]market.PriceLevel{{Price: 0.57, Size: 800}},
		[]market.PriceLevel{{Price: 0.59, Size: 100}},
	)
}

func balancedBook() *market.OrderBookSnapshot {
	return market.NewOrderBookSnapshot(
		[]market.PriceLevel{{Price: 0.50, Size: 100}},
		[]market.PriceLevel{{Price: 0.52, Size: 100}},
	)
}

func TestGateRejectsSmallMove(t *testing.T) {
	now := time.Now().UTC()
	cfg := testConfig()
	cfg.MinPriceChange = 0.05
	d := New(cfg, zerolog.Nop())

	// 4% move off a 0.50 reference.
	sig := d.detectAt(Input{
		CurrentPrice:    0.52,
		Trades:          flatTape(now, 0.50, 20),
		Book:            balancedBook(),
		OutcomeLabel:    "Up",
		ComplementLabel: "Down",
	}, now)

	if sig != nil {
		t.Fatal("4% move should not clear a 5% gate")
	}
}

func TestGateAcceptsSharpMove(t *testing.T) {
	now := time.Now().UTC()
	cfg := testConfig()
	cfg.MinPriceChange = 0.05
	d := New(cfg, zerolog.Nop())

	// 12% move off a 0.50 reference, quiet underlying.
	sig := d.detectAt(Input{
		CurrentPrice:     0.56,
		Trades:           flatTape(now, 0.50, 20),
		Book:             balancedBook(),
		UnderlyingChange: 0.001,
		OutcomeLabel:     "Up",
		ComplementLabel:  "Down",
	}, now)

	if sig == nil {
		t.Fatal("12% move with a quiet underlying should signal")
	}
	if sig.FadeDirection != FadeUp {
		t.Errorf("Upward move should fade up, got %s", sig.FadeDirection)
	}
	if sig.RecommendedOutcome != "Down" {
		t.Errorf("Recommended outcome should be the complement, got %q", sig.RecommendedOutcome)
	}
	if sig.Action != "BUY" {
		t.Errorf("Action should always be BUY, got %q", sig.Action)
	}
}

func TestThinTapeReturnsNoSignal(t *testing.T) {
	now := time.Now().UTC()
	trades := flatTape(now, 0.50, 20)[:5]

	sig := newTestDetector().detectAt(Input{CurrentPrice: 0.60, Trades: trades}, now)
	if sig != nil {
		t.Fatal("Fewer than 10 trades should never signal")
	}
}

func TestFadeDownOnDrop(t *testing.T) {
	now := time.Now().UTC()

	sig := newTestDetector().detectAt(Input{
		CurrentPrice:     0.42,
		Trades:           flatTape(now, 0.50, 20),
		Book:             balancedBook(),
		UnderlyingChange: 0.0,
		OutcomeLabel:     "Up",
		ComplementLabel:  "Down",
	}, now)

	if sig == nil {
		t.Fatal("16% drop should signal")
	}
	if sig.FadeDirection != FadeDown {
		t.Errorf("Downward move should fade down, got %s", sig.FadeDirection)
	}
	if sig.PriceChange >= 0 {
		t.Errorf("Price change should be negative, got %v", sig.PriceChange)
	}
}

func TestUnderlyingMoveSuppressesBonus(t *testing.T) {
	now := time.Now().UTC()
	d := newTestDetector()

	// Move just at the 3% gate gives base 35. Without the mismatch bonus
	// the score stays below 55.
	in := Input{
		CurrentPrice:     0.515,
		Trades:           flatTape(now, 0.50, 2000), // $1000 notional, not retail
		Book:             balancedBook(),
		UnderlyingChange: 0.02, // underlying moved too
		OutcomeLabel:     "Up",
		ComplementLabel:  "Down",
	}

	if sig := d.detectAt(in, now); sig != nil {
		t.Fatalf("Base move alone should not clear min score, got %v", sig.Score)
	}

	// Same move with a quiet underlying crosses the threshold: 35 + 20.
	in.UnderlyingChange = 0.001
	in.Trades = flatTape(now, 0.50, 2000)
	sig := d.detectAt(in, now)
	if sig == nil {
		t.Fatal("Mismatch bonus should lift the score over the threshold")
	}
}

func TestFullPanicScenarioScoresAllFactors(t *testing.T) {
	now := time.Now().UTC()

	sig := newTestDetector().detectAt(Input{
		CurrentPrice:     0.58,
		Trades:           panicTape(now, 0.50, 0.575),
		Book:             imbalancedBook(),
		UnderlyingChange: 0.0005,
		OutcomeLabel:     "Up",
		ComplementLabel:  "Down",
	}, now)

	if sig == nil {
		t.Fatal("Full panic scenario should signal")
	}

	triggered := map[string]bool{}
	for _, f := range sig.Factors {
		triggered[f.Name] = f.Triggered
	}

	for _, name := range []string{FactorSharpMove, FactorBTCMismatch, FactorRetailPanic, FactorVolumeSpike, FactorBookImbalance} {
		if !triggered[name] {
			t.Errorf("Factor %s should trigger in the panic scenario", name)
		}
	}

	if sig.Score < 90 {
		t.Errorf("Panic scenario should score high, got %v", sig.Score)
	}
	if sig.Score > 100 {
		t.Errorf("Score must be capped at 100, got %v", sig.Score)
	}
	if sig.Confidence != sig.Score/100 {
		t.Errorf("Confidence should be score/100, got %v", sig.Confidence)
	}

	wantEdge := sig.Score / 100 * 0.06
	if diff := sig.ExpectedEdge - wantEdge; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Edge should scale linearly with score, got %v want %v", sig.ExpectedEdge, wantEdge)
	}
}

func TestReferenceFallsBackToOldestTrade(t *testing.T) {
	now := time.Now().UTC()

	// Every trade is inside the 5-minute window, so the oldest one becomes
	// the reference.
	var trades []market.Trade
	for offset := 4 * time.Minute; offset > 0; offset -= 20 * time.Second {
		trades = append(trades, market.Trade{
			Timestamp: now.Add(-offset),
			Price:     0.50,
			Size:      20,
		})
	}

	sig := newTestDetector().detectAt(Input{
		CurrentPrice:     0.58,
		Trades:           trades,
		Book:             balancedBook(),
		UnderlyingChange: 0.001,
		OutcomeLabel:     "Up",
		ComplementLabel:  "Down",
	}, now)

	if sig == nil {
		t.Fatal("Oldest-trade fallback should still allow the gate to pass")
	}
}

func TestUnorderedTapeHandled(t *testing.T) {
	now := time.Now().UTC()
	trades := flatTape(now, 0.50, 20)

	// Reverse the tape; the detector must sort by timestamp itself.
	for i, j := 0, len(trades)-1; i < j; i, j = i+1, j-1 {
		trades[i], trades[j] = trades[j], trades[i]
	}

	sig := newTestDetector().detectAt(Input{
		CurrentPrice:     0.58,
		Trades:           trades,
		Book:             balancedBook(),
		UnderlyingChange: 0.001,
		OutcomeLabel:     "Up",
		ComplementLabel:  "Down",
	}, now)

	if sig == nil {
		t.Fatal("Trade order must not matter")
	}
	if sig.PriceChange < 0.15 {
		t.Errorf("Reference should be a 0.50 trade from before the window, move = %v", sig.PriceChange)
	}
}

func TestVolumeWindowBoundaryTradeCountsOnce(t *testing.T) {
	now := time.Now().UTC()

	// Ten $50 prints spread over [-10m, -3m15s], then one $250 print stamped
	// exactly on the recent-window boundary at -2m. Counted only as recent
	// volume, the ratio is 250 / (500/8*2) = 2.0 and the spike fires; leaked
	// into the baseline too, it would be 250 / (750/8*2) = 1.33 and not.
	var trades []market.Trade
	for i := 0; i < 10; i++ {
		trades = append(trades, market.Trade{
			Timestamp: now.Add(-10 * time.Minute).Add(time.Duration(i) * 45 * time.Second),
			Price:     0.50,
			Size:      100,
			Side:      market.SideBuy,
			Outcome:   "Up",
		})
	}
	trades = append(trades, market.Trade{
		Timestamp: now.Add(-2 * time.Minute),
		Price:     0.50,
		Size:      500,
		Side:      market.SideBuy,
		Outcome:   "Up",
	})

	sig := newTestDetector().detectAt(Input{
		CurrentPrice:     0.60,
		Trades:           trades,
		UnderlyingChange: 0,
		OutcomeLabel:     "Up",
		ComplementLabel:  "Down",
	}, now)

	if sig == nil {
		t.Fatal("Should produce a signal")
	}

	var spike *Factor
	for i := range sig.Factors {
		if sig.Factors[i].Name == FactorVolumeSpike {
			spike = &sig.Factors[i]
		}
	}
	if spike == nil {
		t.Fatal("Should report a volume spike factor")
	}
	if !spike.Triggered {
		t.Errorf("Boundary trade should only count as recent volume, ratio = %.2f", spike.Value)
	}
	if spike.Value < 1.99 || spike.Value > 2.01 {
		t.Errorf("Ratio should be 2.0 with the boundary trade excluded from baseline, got %.2f", spike.Value)
	}
}
