// Package detector scores "retail overreaction" hypotheses on a 0-100 scale
// and emits directional fade signals. One hard gate (a sharp move on the
// trade tape) plus additive evidence bonuses; partial evidence can still
// cross the threshold.
package detector

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"polymarket-fade-bot/config"
	"polymarket-fade-bot/internal/indicators"
	"polymarket-fade-bot/internal/market"
)

// Fade directions.
const (
	FadeUp   = "FADE_UP"
	FadeDown = "FADE_DOWN"
)

// Factor names in the signal breakdown.
const (
	FactorSharpMove     = "sharp_move"
	FactorBTCMismatch   = "underlying_mismatch"
	FactorRetailPanic   = "retail_panic"
	FactorVolumeSpike   = "volume_spike"
	FactorBookImbalance = "orderbook_imbalance"
	FactorRSIExtreme    = "rsi_extreme"
)

// Factor is one scored component of a signal, kept for observability and
// journal rows.
type Factor struct {
	Name      string
	Triggered bool
	Value     float64
	Threshold float64
	Score     float64
	Note      string
}

// Signal is an overreaction fade recommendation. Constructed once at the
// detector boundary with a normalized field set and never mutated.
type Signal struct {
	Action             string // always "BUY": the strategy acquires, never shorts
	FadeDirection      string
	RecommendedOutcome string
	Score              float64 // 0-100
	Confidence         float64 // Score / 100
	ExpectedEdge       float64
	Factors            []Factor
	CurrentPrice       float64
	PriceChange        float64
	Timestamp          time.Time
}

// Input carries one detection request.
type Input struct {
	CurrentPrice     float64
	RecentPrices     []float64 // fallback series for RSI, oldest-first
	Trades           []market.Trade
	Book             *market.OrderBookSnapshot
	UnderlyingChange float64 // underlying move over the reference window
	OutcomeLabel     string  // label of the token being analyzed
	ComplementLabel  string  // the other element of the two-label set
}

// Detector evaluates overreaction signals.
type Detector struct {
	cfg    config.DetectorConfig
	logger zerolog.Logger
}

// New creates a detector.
func New(cfg config.DetectorConfig, logger zerolog.Logger) *Detector {
	return &Detector{cfg: cfg, logger: logger}
}

// Detect returns a fade signal, or nil when the evidence does not clear the
// minimum score. The sharp-move gate is mandatory; everything else is bonus.
func (d *Detector) Detect(in Input) *Signal {
	now := time.Now().UTC()
	return d.detectAt(in, now)
}

func (d *Detector) detectAt(in Input, now time.Time) *Signal {
	// Trade timestamps drive every window calculation; a thin tape is not
	// enough to call anything an overreaction.
	if len(in.Trades) < 10 {
		return nil
	}

	trades := market.SortTradesByTime(in.Trades)

	currentPrice := in.CurrentPrice
	if currentPrice <= 0 {
		currentPrice = trades[len(trades)-1].Price
		if currentPrice <= 0 {
			return nil
		}
	}

	// Hard gate: sharp move over the reference window.
	cutoff := now.Add(-time.Duration(d.cfg.MoveWindowMinutes) * time.Minute)
	refPrice, refTime, ok := referencePrice(trades, cutoff)
	if !ok || refPrice <= 0 {
		return nil
	}

	move := (currentPrice - refPrice) / refPrice
	absMove := move
	if absMove < 0 {
		absMove = -absMove
	}
	if absMove < d.cfg.MinPriceChange {
		return nil
	}

	// Base score 35 at the threshold, +3 per extra 1% of move, capped 50.
	sharpScore := 35.0 + float64(min(15, int((absMove-d.cfg.MinPriceChange)/0.01)*3))
	if sharpScore > 50 {
		sharpScore = 50
	}
	score := sharpScore

	fadeDirection := FadeDown
	if move > 0 {
		fadeDirection = FadeUp
	}

	factors := []Factor{{
		Name:      FactorSharpMove,
		Triggered: true,
		Value:     move,
		Threshold: d.cfg.MinPriceChange,
		Score:     sharpScore,
		Note:      "reference " + refTime.Format(time.RFC3339),
	}}

	// Underlying mismatch: the contract jumped but the underlying did not,
	// so the move is unexplained by reality.
	underlyingAbs := in.UnderlyingChange
	if underlyingAbs < 0 {
		underlyingAbs = -underlyingAbs
	}
	mismatch := underlyingAbs <= d.cfg.UnderlyingMoveMax
	f := Factor{Name: FactorBTCMismatch, Triggered: mismatch, Value: in.UnderlyingChange, Threshold: d.cfg.UnderlyingMoveMax}
	if mismatch {
		f.Score = 20
		score += 20
	} else {
		f.Note = "underlying also moved"
	}
	factors = append(factors, f)

	// Retail panic on window trades, falling back to the last 20 when the
	// window is too thin.
	windowTrades := market.TradesInWindow(trades, cutoff, now)
	if len(windowTrades) < 8 {
		windowTrades = trades
		if len(windowTrades) > 20 {
			windowTrades = windowTrades[len(windowTrades)-20:]
		}
	}
	factors = append(factors, d.scoreRetailPanic(windowTrades, &score))

	// Time-windowed volume spike.
	factors = append(factors, d.scoreVolumeSpike(trades, now, &score))

	// Order book imbalance at an extreme.
	factors = append(factors, d.scoreImbalance(in.Book, &score))

	// RSI extreme on sampled trade prices.
	factors = append(factors, d.scoreRSI(windowTrades, in.RecentPrices, &score))

	if score > 100 {
		score = 100
	}
	if score < d.cfg.MinScore {
		return nil
	}

	return &Signal{
		Action:             "BUY",
		FadeDirection:      fadeDirection,
		RecommendedOutcome: in.ComplementLabel,
		Score:              score,
		Confidence:         score / 100.0,
		ExpectedEdge:       (score / 100.0) * d.cfg.EdgeScale,
		Factors:            factors,
		CurrentPrice:       currentPrice,
		PriceChange:        move,
		Timestamp:          now,
	}
}

// referencePrice finds the most recent trade at or before the cutoff. With
// no trade that old it falls back to the oldest available trade. trades must
// be sorted oldest-first.
func referencePrice(trades []market.Trade, cutoff time.Time) (float64, time.Time, bool) {
	if len(trades) == 0 {
		return 0, time.Time{}, false
	}
	for i := len(trades) - 1; i >= 0; i-- {
		if !trades[i].Timestamp.After(cutoff) {
			return trades[i].Price, trades[i].Timestamp, true
		}
	}
	return trades[0].Price, trades[0].Timestamp, true
}

func (d *Detector) scoreRetailPanic(windowTrades []market.Trade, score *float64) Factor {
	f := Factor{Name: FactorRetailPanic, Threshold: d.cfg.RetailMedianNotionalMax}

	notionals := make([]float64, 0, len(windowTrades))
	small := 0
	for _, t := range windowTrades {
		n := t.Notional()
		notionals = append(notionals, n)
		if n <= d.cfg.RetailMedianNotionalMax {
			small++
		}
	}
	if len(notionals) == 0 {
		return f
	}

	sort.Float64s(notionals)
	median := notionals[len(notionals)/2]
	mean := 0.0
	for _, n := range notionals {
		mean += n
	}
	mean /= float64(len(notionals))
	smallFrac := float64(small) / float64(len(notionals))

	f.Value = median
	if (median <= d.cfg.RetailMedianNotionalMax && mean <= d.cfg.RetailMeanNotionalMax) ||
		smallFrac >= d.cfg.RetailSmallFractionMin {
		f.Triggered = true
		f.Score = 15
		*score += 15
	}
	return f
}

func (d *Detector) scoreVolumeSpike(trades []market.Trade, now time.Time, score *float64) Factor {
	f := Factor{Name: FactorVolumeSpike, Threshold: d.cfg.VolumeSpikeMultiplier}

	recentStart := now.Add(-time.Duration(d.cfg.VolumeRecentMinutes) * time.Minute)
	baseStart := now.Add(-time.Duration(d.cfg.VolumeBaselineMinutes) * time.Minute)

	recentNotional := sumNotional(market.TradesInWindow(trades, recentStart, now))

	// Baseline is half-open [baseStart, recentStart) so a print stamped
	// exactly on the boundary only counts toward the recent window.
	baseNotional := 0.0
	for _, t := range trades {
		if !t.Timestamp.Before(baseStart) && t.Timestamp.Before(recentStart) {
			baseNotional += t.Notional()
		}
	}

	if baseNotional <= 0 {
		f.Note = "no baseline volume"
		return f
	}

	// Baseline normalized to per-minute flow so the 2m window compares
	// against its expected share, not the whole 10m total.
	baseMinutes := float64(d.cfg.VolumeBaselineMinutes - d.cfg.VolumeRecentMinutes)
	if baseMinutes <= 0 {
		baseMinutes = 1
	}
	expected := (baseNotional / baseMinutes) * float64(d.cfg.VolumeRecentMinutes)
	if expected <= 0 {
		return f
	}

	f.Value = recentNotional / expected
	if f.Value >= d.cfg.VolumeSpikeMultiplier {
		f.Triggered = true
		f.Score = 15
		*score += 15
	}
	return f
}

func (d *Detector) scoreImbalance(book *market.OrderBookSnapshot, score *float64) Factor {
	f := Factor{Name: FactorBookImbalance, Threshold: d.cfg.ImbalanceExtreme}
	if book == nil {
		f.Note = "no orderbook"
		return f
	}
	imbalance, ok := book.Imbalance()
	if !ok {
		f.Note = "zero total depth"
		return f
	}
	f.Value = imbalance
	if imbalance >= d.cfg.ImbalanceExtreme || imbalance <= 1.0-d.cfg.ImbalanceExtreme {
		f.Triggered = true
		f.Score = 10
		*score += 10
	}
	return f
}

func (d *Detector) scoreRSI(windowTrades []market.Trade, recentPrices []float64, score *float64) Factor {
	f := Factor{Name: FactorRSIExtreme, Threshold: d.cfg.RSIOverbought}

	// Every Nth trade price to denoise ticks.
	var prices []float64
	for i, t := range windowTrades {
		if d.cfg.RSISampleEveryN > 1 && i%d.cfg.RSISampleEveryN != 0 {
			continue
		}
		prices = append(prices, t.Price)
	}

	if len(prices) < d.cfg.RSIPeriod+2 && len(recentPrices) > 0 {
		keep := d.cfg.RSIPeriod + 5
		if keep < 30 {
			keep = 30
		}
		if len(recentPrices) > keep {
			prices = recentPrices[len(recentPrices)-keep:]
		} else {
			prices = recentPrices
		}
	}

	if len(prices) < d.cfg.RSIPeriod+1 {
		f.Note = "insufficient data"
		return f
	}

	f.Value = indicators.RSI(prices, d.cfg.RSIPeriod)
	if f.Value <= d.cfg.RSIOversold || f.Value >= d.cfg.RSIOverbought {
		f.Triggered = true
		f.Score = 10
		*score += 10
	}
	return f
}

func sumNotional(trades []market.Trade) float64 {
	total := 0.0
	for _, t := range trades {
		total += t.Notional()
	}
	return total
}
