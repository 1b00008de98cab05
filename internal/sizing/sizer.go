// Package sizing converts signal edge and confidence into a bounded dollar
// position via fractional Kelly with hard caps.
package sizing

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"polymarket-fade-bot/config"
)

// Result is the outcome of one sizing calculation.
type Result struct {
	FinalSize     float64
	KellySize     float64 // raw Kelly dollars before regime adjustment and caps
	Tradeable     bool
	Reasoning     string
	PctOfBankroll float64
	PctOfDepth    float64
	CapsApplied   []string
}

// Sizer calculates position sizes against a compounding bankroll.
type Sizer struct {
	mu       sync.RWMutex
	cfg      config.SizingConfig
	bankroll float64
	logger   zerolog.Logger
}

// NewSizer creates a sizer with the given starting bankroll.
func NewSizer(cfg config.SizingConfig, bankroll float64, logger zerolog.Logger) *Sizer {
	return &Sizer{cfg: cfg, bankroll: bankroll, logger: logger}
}

// Size calculates the dollar position for a signal. edge is the expected
// fractional edge, confidence is 0-1, marketDepth is the book's dollar
// depth, and regimeScore (0-1) scales the size down in a weak regime.
// Callers pass regimeScore = 1 when no regime reading is available.
func (s *Sizer) Size(edge, confidence, marketDepth, regimeScore float64) Result {
	s.mu.RLock()
	bankroll := s.bankroll
	s.mu.RUnlock()

	// Kelly = (edge x confidence) / variance, quartered for safety.
	kellyRaw := (edge * confidence) / s.cfg.AssumedVariance
	fractionalKelly := kellyRaw * s.cfg.KellyFraction
	kellySize := bankroll * fractionalKelly

	adjusted := kellySize * regimeScore

	var caps []string

	maxBankrollSize := bankroll * s.cfg.MaxBankrollPct
	if adjusted > maxBankrollSize {
		adjusted = maxBankrollSize
		caps = append(caps, fmt.Sprintf("bankroll cap (%.1f%%)", s.cfg.MaxBankrollPct*100))
	}

	maxDepthSize := marketDepth * s.cfg.MaxDepthPct
	if adjusted > maxDepthSize {
		adjusted = maxDepthSize
		caps = append(caps, fmt.Sprintf("depth cap (%.1f%%)", s.cfg.MaxDepthPct*100))
	}

	if adjusted > s.cfg.MaxTradeSize {
		adjusted = s.cfg.MaxTradeSize
		caps = append(caps, fmt.Sprintf("max trade cap ($%.0f)", s.cfg.MaxTradeSize))
	}

	if adjusted < s.cfg.MinTradeSize {
		return Result{
			KellySize:   kellySize,
			Tradeable:   false,
			Reasoning:   fmt.Sprintf("size $%.2f below minimum $%.0f", adjusted, s.cfg.MinTradeSize),
			CapsApplied: caps,
		}
	}

	parts := []string{fmt.Sprintf("kelly: $%.2f", kellySize)}
	if regimeScore < 1.0 {
		parts = append(parts, fmt.Sprintf("regime adj: %.0f%%", regimeScore*100))
	}
	if len(caps) > 0 {
		parts = append(parts, "caps: "+strings.Join(caps, ", "))
	} else {
		parts = append(parts, "no caps hit")
	}

	result := Result{
		FinalSize:     adjusted,
		KellySize:     kellySize,
		Tradeable:     true,
		Reasoning:     strings.Join(parts, " | "),
		PctOfBankroll: adjusted / bankroll * 100,
		CapsApplied:   caps,
	}
	if marketDepth > 0 {
		result.PctOfDepth = adjusted / marketDepth * 100
	}
	return result
}

// UpdateBankroll sets the bankroll after a realized PnL event so subsequent
// sizing compounds.
func (s *Sizer) UpdateBankroll(bankroll float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bankroll = bankroll
}

// Bankroll returns the current bankroll.
func (s *Sizer) Bankroll() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bankroll
}
