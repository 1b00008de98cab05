// Package exits evaluates per-position exit conditions as an ordered
// decision list. The first matching rule wins; its priority is recorded so
// the orchestrator can close urgent exits first.
package exits

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"polymarket-fade-bot/config"
	"polymarket-fade-bot/internal/position"
)

// Exit reasons.
const (
	ReasonStopLoss      = "stop_loss"
	ReasonTakeProfit    = "take_profit"
	ReasonMaxHold       = "max_hold_time"
	ReasonMeanReversion = "mean_reversion"
	ReasonRegimeBreak   = "regime_break"
	ReasonTimePressure  = "time_pressure"
)

// Decision is the outcome of one exit check.
type Decision struct {
	Position     *position.Position
	ShouldExit   bool
	Reason       string
	Detail       string
	Priority     int // 1 = hard exit, 3 = soft
	PnlPct       float64
	ElapsedSec   float64
	RemainingSec float64
	CurrentPrice float64
}

// Manager evaluates exit rules against open positions.
type Manager struct {
	cfg    config.ExitConfig
	logger zerolog.Logger
}

// NewManager creates an exit manager.
func NewManager(cfg config.ExitConfig, logger zerolog.Logger) *Manager {
	return &Manager{cfg: cfg, logger: logger}
}

// CheckExit evaluates the rules in priority order for one position.
// underlyingATR may be 0 when no underlying reading is available, which
// disables the regime-break rule for this check.
func (m *Manager) CheckExit(pos *position.Position, currentPrice float64, now time.Time, underlyingATR float64) Decision {
	pnlPct := pos.PnlPct(currentPrice)
	elapsed := now.Sub(pos.EntryTime).Seconds()
	remaining := pos.MarketEndTime.Sub(now).Seconds()

	d := Decision{
		Position:     pos,
		PnlPct:       pnlPct,
		ElapsedSec:   elapsed,
		RemainingSec: remaining,
		CurrentPrice: currentPrice,
	}

	// Priority 1: hard exits.
	if pnlPct <= -m.cfg.StopLossPct {
		d.ShouldExit = true
		d.Reason = ReasonStopLoss
		d.Detail = fmt.Sprintf("pnl %.1f%% <= -%.1f%%", pnlPct*100, m.cfg.StopLossPct*100)
		d.Priority = 1
		return d
	}
	if pnlPct >= m.cfg.TakeProfitPct {
		d.ShouldExit = true
		d.Reason = ReasonTakeProfit
		d.Detail = fmt.Sprintf("pnl %.1f%% >= %.1f%%", pnlPct*100, m.cfg.TakeProfitPct*100)
		d.Priority = 1
		return d
	}
	if elapsed >= float64(m.cfg.MaxHoldSeconds) {
		d.ShouldExit = true
		d.Reason = ReasonMaxHold
		d.Detail = fmt.Sprintf("held %.0fs >= %ds", elapsed, m.cfg.MaxHoldSeconds)
		d.Priority = 1
		return d
	}

	// Priority 2: reversion completed or regime gone.
	// Only exits on reversion when already profitable, so a loss is never
	// locked in under a "reversion" label.
	if math.Abs(currentPrice-0.50) <= m.cfg.MeanReversionThreshold && pnlPct > 0 {
		d.ShouldExit = true
		d.Reason = ReasonMeanReversion
		d.Detail = fmt.Sprintf("price %.3f back near 0.50 with pnl %.1f%%", currentPrice, pnlPct*100)
		d.Priority = 2
		return d
	}
	if underlyingATR > m.cfg.RegimeBreakATR {
		d.ShouldExit = true
		d.Reason = ReasonRegimeBreak
		d.Detail = fmt.Sprintf("underlying ATR %.2f%% > %.2f%%", underlyingATR*100, m.cfg.RegimeBreakATR*100)
		d.Priority = 2
		return d
	}

	// Priority 3: lock small profits near settlement.
	if remaining < float64(m.cfg.TimePressureSeconds) && pnlPct > m.cfg.TimePressureMinPnl {
		d.ShouldExit = true
		d.Reason = ReasonTimePressure
		d.Detail = fmt.Sprintf("%.0fs to settlement with pnl %.1f%%", remaining, pnlPct*100)
		d.Priority = 3
		return d
	}

	return d
}

// CheckAllPositions evaluates every open position and returns the decisions
// that call for an exit, most urgent first.
func (m *Manager) CheckAllPositions(positions []*position.Position, prices map[string]float64, now time.Time, underlyingATR float64) []Decision {
	var exits []Decision
	for _, pos := range positions {
		price, ok := prices[pos.TokenID]
		if !ok {
			// No price this cycle; skip rather than guess.
			m.logger.Debug().Str("token_id", pos.TokenID).Msg("no price for exit check")
			continue
		}
		if d := m.CheckExit(pos, price, now, underlyingATR); d.ShouldExit {
			exits = append(exits, d)
		}
	}
	sort.SliceStable(exits, func(i, j int) bool { return exits[i].Priority < exits[j].Priority })
	return exits
}
