// Package risk enforces portfolio-level limits with sticky circuit breakers.
// A tripped breaker pauses trading until ResetDaily is explicitly called; a
// later winning trade never clears it on its own.
package risk

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"polymarket-fade-bot/config"
)

// Manager owns the mutable risk state: bankroll, day counters, streaks, and
// the open-position set.
type Manager struct {
	mu  sync.RWMutex
	cfg config.RiskConfig

	startingBankroll   float64
	currentBankroll    float64
	todayStartBankroll float64
	todayPnl           float64

	consecutiveLosses int
	tradeHistory      []bool // ordered win/loss booleans, lifetime

	tradingPaused bool
	pauseReason   string
	lastReset     time.Time

	openPositions map[string]float64 // token id -> size in dollars

	logger zerolog.Logger
}

// NewManager creates a risk manager with the given starting bankroll.
func NewManager(cfg config.RiskConfig, startingBankroll float64, logger zerolog.Logger) *Manager {
	return &Manager{
		cfg:                cfg,
		startingBankroll:   startingBankroll,
		currentBankroll:    startingBankroll,
		todayStartBankroll: startingBankroll,
		lastReset:          time.Now(),
		openPositions:      make(map[string]float64),
		logger:             logger,
	}
}

// CanOpenPosition checks every limit in order and reports whether a new
// position of the proposed size may open. On failure the reason concatenates
// every failing check.
func (m *Manager) CanOpenPosition(proposedSize float64) (bool, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var reasons []string

	if m.tradingPaused {
		reasons = append(reasons, fmt.Sprintf("trading paused: %s", m.pauseReason))
	}

	dailyLossLimit := m.todayStartBankroll * m.cfg.DailyLossLimitPct
	if m.todayPnl <= -dailyLossLimit {
		reasons = append(reasons, fmt.Sprintf("daily loss limit hit ($%.2f <= -$%.2f)", m.todayPnl, dailyLossLimit))
	}

	if len(m.openPositions) >= m.cfg.MaxConcurrent {
		reasons = append(reasons, fmt.Sprintf("max concurrent positions (%d)", m.cfg.MaxConcurrent))
	}

	if m.consecutiveLosses >= m.cfg.MaxConsecutiveLosses {
		reasons = append(reasons, fmt.Sprintf("%d consecutive losses", m.consecutiveLosses))
	}

	if len(m.tradeHistory) >= m.cfg.MinTradesForWinRate {
		if wr := m.winRateLocked(); wr < m.cfg.MinWinRate {
			reasons = append(reasons, fmt.Sprintf("win rate %.0f%% below %.0f%% floor", wr*100, m.cfg.MinWinRate*100))
		}
	}

	if proposedSize > m.currentBankroll*m.cfg.MaxSizeBankrollPct {
		reasons = append(reasons, fmt.Sprintf("size $%.2f exceeds %.0f%% of bankroll", proposedSize, m.cfg.MaxSizeBankrollPct*100))
	}

	if len(reasons) > 0 {
		return false, strings.Join(reasons, "; ")
	}
	return true, ""
}

// RegisterPositionOpen records an opened position. Eligibility is not
// re-checked; the caller must already have called CanOpenPosition.
func (m *Manager) RegisterPositionOpen(tokenID string, size float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openPositions[tokenID] = size
	m.logger.Info().
		Str("token_id", tokenID).
		Float64("size", size).
		Int("open_positions", len(m.openPositions)).
		Msg("position registered")
}

// RegisterPositionClose removes a position, applies the realized PnL, and
// re-evaluates the circuit breakers. Any breaker that now trips sets a
// sticky pause that only ResetDaily clears.
func (m *Manager) RegisterPositionClose(tokenID string, pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.openPositions, tokenID)

	m.currentBankroll += pnl
	m.todayPnl += pnl

	win := pnl > 0
	m.tradeHistory = append(m.tradeHistory, win)
	if win {
		m.consecutiveLosses = 0
	} else {
		m.consecutiveLosses++
	}

	m.checkCircuitBreakersLocked()

	m.logger.Info().
		Str("token_id", tokenID).
		Float64("pnl", pnl).
		Float64("bankroll", m.currentBankroll).
		Float64("today_pnl", m.todayPnl).
		Int("consecutive_losses", m.consecutiveLosses).
		Msg("position closed")
}

func (m *Manager) checkCircuitBreakersLocked() {
	dailyLossLimit := m.todayStartBankroll * m.cfg.DailyLossLimitPct
	if m.todayPnl <= -dailyLossLimit {
		m.tripLocked(fmt.Sprintf("daily loss limit: $%.2f", m.todayPnl))
		return
	}
	if m.consecutiveLosses >= m.cfg.MaxConsecutiveLosses {
		m.tripLocked(fmt.Sprintf("%d consecutive losses", m.consecutiveLosses))
		return
	}
	if len(m.tradeHistory) >= m.cfg.MinTradesForWinRate {
		if wr := m.winRateLocked(); wr < m.cfg.MinWinRate {
			m.tripLocked(fmt.Sprintf("win rate %.0f%% below floor", wr*100))
		}
	}
}

func (m *Manager) tripLocked(reason string) {
	if m.tradingPaused {
		return
	}
	m.tradingPaused = true
	m.pauseReason = reason
	m.logger.Warn().Str("reason", reason).Msg("circuit breaker tripped, trading paused")
}

// ResetDaily clears the day-scoped counters and the pause flag at the start
// of a trading day. Lifetime counters survive: consecutive losses, trade
// history, and the bankroll carry over.
func (m *Manager) ResetDaily() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.todayStartBankroll = m.currentBankroll
	m.todayPnl = 0
	m.tradingPaused = false
	m.pauseReason = ""
	m.lastReset = time.Now()

	m.logger.Info().Float64("bankroll", m.currentBankroll).Msg("daily risk state reset")
}

// WinRate returns the lifetime win rate, or 0 with no history.
func (m *Manager) WinRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.winRateLocked()
}

func (m *Manager) winRateLocked() float64 {
	if len(m.tradeHistory) == 0 {
		return 0
	}
	wins := 0
	for _, w := range m.tradeHistory {
		if w {
			wins++
		}
	}
	return float64(wins) / float64(len(m.tradeHistory))
}

// CurrentBankroll returns the live bankroll.
func (m *Manager) CurrentBankroll() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentBankroll
}

// TodayPnl returns the realized PnL since the last daily reset.
func (m *Manager) TodayPnl() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.todayPnl
}

// OpenPositionCount returns the number of registered open positions.
func (m *Manager) OpenPositionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.openPositions)
}

// Paused reports the sticky pause state and its reason.
func (m *Manager) Paused() (bool, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tradingPaused, m.pauseReason
}

// GetStatus returns a snapshot of the risk state for status prints and the
// journal.
func (m *Manager) GetStatus() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"starting_bankroll":    m.startingBankroll,
		"current_bankroll":     m.currentBankroll,
		"today_start_bankroll": m.todayStartBankroll,
		"today_pnl":            m.todayPnl,
		"open_positions":       len(m.openPositions),
		"consecutive_losses":   m.consecutiveLosses,
		"total_trades":         len(m.tradeHistory),
		"win_rate":             m.winRateLocked(),
		"trading_paused":       m.tradingPaused,
		"pause_reason":         m.pauseReason,
		"last_reset":           m.lastReset,
	}
}
