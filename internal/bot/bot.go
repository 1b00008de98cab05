// Package bot runs the trading loop: discover 15-minute markets, gate them
// through the regime filter, score overreactions, size and open positions,
// and manage exits until settlement. The loop is single-threaded; each pass
// runs on its own wall-clock interval.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"polymarket-fade-bot/config"
	"polymarket-fade-bot/internal/alpaca"
	"polymarket-fade-bot/internal/detector"
	"polymarket-fade-bot/internal/events"
	"polymarket-fade-bot/internal/exits"
	"polymarket-fade-bot/internal/indicators"
	"polymarket-fade-bot/internal/journal"
	"polymarket-fade-bot/internal/market"
	"polymarket-fade-bot/internal/notification"
	"polymarket-fade-bot/internal/polymarket"
	"polymarket-fade-bot/internal/position"
	"polymarket-fade-bot/internal/regime"
	"polymarket-fade-bot/internal/risk"
	"polymarket-fade-bot/internal/sizing"
	"polymarket-fade-bot/internal/statestore"
)

// tradeTapeLimit is how many recent prints the detector sees per market.
const tradeTapeLimit = 200

// Bot wires the pipeline together and owns the open-position set.
type Bot struct {
	cfg      *config.Config
	gateway  polymarket.Gateway
	bars     alpaca.BarSource
	regime   *regime.Filter
	detector *detector.Detector
	sizer    *sizing.Sizer
	risk     *risk.Manager
	exits    *exits.Manager
	journal  journal.Journal
	store    *statestore.Store
	bus      *events.EventBus
	notifier *notification.Manager
	logger   zerolog.Logger

	positions  map[string]*position.Position // by token id
	lastPrices map[string]float64            // last observed price per held token

	lastCloses []float64 // underlying close series from the latest scan

	currentDay  time.Time
	todayTrades int
	todayWins   int

	pausedNotified bool

	lastExitCheck time.Time
	lastScan      time.Time
	lastStatus    time.Time
}

// New builds a bot from its collaborators.
func New(
	cfg *config.Config,
	gateway polymarket.Gateway,
	bars alpaca.BarSource,
	jrnl journal.Journal,
	store *statestore.Store,
	bus *events.EventBus,
	notifier *notification.Manager,
	logger zerolog.Logger,
) *Bot {
	b := &Bot{
		cfg:        cfg,
		gateway:    gateway,
		bars:       bars,
		journal:    jrnl,
		store:      store,
		bus:        bus,
		notifier:   notifier,
		logger:     logger,
		positions:  make(map[string]*position.Position),
		lastPrices: make(map[string]float64),
		currentDay: time.Now().UTC().Truncate(24 * time.Hour),
	}

	b.regime = regime.NewFilter(cfg.RegimeConfig, gateway, logger)
	b.detector = detector.New(cfg.DetectorConfig, logger)
	b.sizer = sizing.NewSizer(cfg.SizingConfig, cfg.TradingConfig.StartingBankroll, logger)
	b.risk = risk.NewManager(cfg.RiskConfig, cfg.TradingConfig.StartingBankroll, logger)
	b.exits = exits.NewManager(cfg.ExitConfig, logger)
	return b
}

// Run executes the trading loop until ctx is cancelled, then closes all
// open positions and flushes the day's performance.
func (b *Bot) Run(ctx context.Context) error {
	b.restorePositions(ctx)

	mode := "live"
	if b.cfg.TradingConfig.DryRun {
		mode = "dry-run"
	}
	b.logger.Info().
		Str("mode", mode).
		Float64("bankroll", b.risk.CurrentBankroll()).
		Int("restored_positions", len(b.positions)).
		Msg("bot started")
	b.bus.Publish(events.Event{Type: events.EventBotStarted, Data: map[string]interface{}{"mode": mode}})
	if err := b.notifier.SendInfo("Bot started", fmt.Sprintf("%s mode, bankroll $%.2f", mode, b.risk.CurrentBankroll())); err != nil {
		b.logger.Warn().Err(err).Msg("startup notification failed")
	}

	exitEvery := time.Duration(b.cfg.TradingConfig.ExitCheckInterval) * time.Second
	scanEvery := time.Duration(b.cfg.TradingConfig.ScanInterval) * time.Second
	statusEvery := time.Duration(b.cfg.TradingConfig.StatusInterval) * time.Second
	sleep := time.Duration(b.cfg.TradingConfig.LoopSleep) * time.Second

	for {
		select {
		case <-ctx.Done():
			b.shutdown()
			return nil
		default:
		}

		now := time.Now()
		b.maybeResetDaily(now)

		if now.Sub(b.lastExitCheck) >= exitEvery {
			b.exitPass(ctx, now)
			b.lastExitCheck = now
		}
		if now.Sub(b.lastScan) >= scanEvery {
			b.scanPass(ctx, now)
			b.lastScan = now
		}
		if now.Sub(b.lastStatus) >= statusEvery {
			b.logStatus()
			b.lastStatus = now
		}

		select {
		case <-ctx.Done():
			b.shutdown()
			return nil
		case <-time.After(sleep):
		}
	}
}

// restorePositions reloads open positions persisted by a previous run.
func (b *Bot) restorePositions(ctx context.Context) {
	if b.store == nil {
		return
	}
	positions, err := b.store.LoadAll(ctx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to restore positions")
		return
	}
	for _, pos := range positions {
		b.positions[pos.TokenID] = pos
		b.lastPrices[pos.TokenID] = pos.EntryPrice
		b.risk.RegisterPositionOpen(pos.TokenID, pos.Size)
		b.logger.Info().
			Str("market", pos.MarketSlug).
			Str("outcome", pos.Outcome).
			Float64("entry", pos.EntryPrice).
			Msg("restored open position")
	}
}

// maybeResetDaily rolls the risk counters when the UTC day changes.
func (b *Bot) maybeResetDaily(now time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	if day.Equal(b.currentDay) {
		return
	}
	b.flushDailyPerformance(b.currentDay)
	b.risk.ResetDaily()
	b.currentDay = day
	b.todayTrades = 0
	b.todayWins = 0
	b.pausedNotified = false
	b.logger.Info().Str("day", day.Format("2006-01-02")).Msg("daily counters reset")
}

// =============================================================================
// SCAN PASS
// =============================================================================

// scanPass discovers eligible markets and hunts for fade entries.
func (b *Bot) scanPass(ctx context.Context, now time.Time) {
	closes, err := b.bars.GetCloses("1Min", 30)
	if err != nil {
		b.logger.Warn().Err(err).Msg("underlying bar fetch failed, skipping scan")
		b.bus.PublishError("bot", "underlying bar fetch failed", err)
		return
	}
	b.lastCloses = closes

	underlyingChange, err := b.bars.GetRecentChange(5)
	if err != nil {
		b.logger.Warn().Err(err).Msg("underlying change fetch failed, skipping scan")
		return
	}

	lookahead := time.Duration(b.cfg.TradingConfig.LookaheadMinutes) * time.Minute
	markets, err := b.gateway.ListActiveMarkets(lookahead)
	if err != nil {
		b.logger.Warn().Err(err).Msg("market discovery failed")
		b.bus.PublishError("bot", "market discovery failed", err)
		if nerr := b.notifier.SendError("Market discovery failed", err.Error()); nerr != nil {
			b.logger.Warn().Err(nerr).Msg("error notification failed")
		}
		return
	}

	scanned := 0
	for _, mkt := range markets {
		minutes := mkt.MinutesToExpiry(now)
		if minutes < b.cfg.TradingConfig.MinMinutesToExpiry || minutes > b.cfg.TradingConfig.MaxMinutesToExpiry {
			continue
		}
		if b.holdsPositionIn(mkt) {
			continue
		}
		scanned++
		if err := b.scanMarket(ctx, mkt, minutes, closes, underlyingChange, now); err != nil {
			b.logger.Warn().Err(err).Str("market", mkt.Slug).Msg("market scan failed")
		}
	}
	b.logger.Debug().Int("eligible", scanned).Int("discovered", len(markets)).Msg("scan pass complete")
}

func (b *Bot) holdsPositionIn(mkt market.Market) bool {
	for _, tok := range mkt.Tokens {
		if _, ok := b.positions[tok.TokenID]; ok {
			return true
		}
	}
	return false
}

// bucketSpreadCap widens the allowed spread for markets further from expiry,
// where books are thinner but fills are still workable.
func (b *Bot) bucketSpreadCap(minutes float64) float64 {
	tc := b.cfg.TradingConfig
	switch {
	case minutes <= tc.CurrentBucketMaxMin:
		return tc.CurrentBucketSpread
	case minutes <= tc.NextBucketMaxMin:
		return tc.NextBucketSpread
	default:
		return tc.FutureBucketSpread
	}
}

// scanMarket runs one market through regime -> detector -> sizing -> risk and
// opens a position when everything clears.
func (b *Bot) scanMarket(ctx context.Context, mkt market.Market, minutes float64, closes []float64, underlyingChange float64, now time.Time) error {
	res := b.regime.Evaluate(closes, mkt, b.bucketSpreadCap(minutes))

	b.recordSnapshot(ctx, mkt, res, now)

	if !res.OK {
		b.logger.Debug().Str("market", mkt.Slug).Str("reason", res.Reason).Msg("regime rejected")
		b.bus.PublishRegimeRejected(mkt.Slug, res.Reason, res.Score)
		return nil
	}

	trades, err := b.gateway.GetRecentTrades(res.SelectedToken.TokenID, tradeTapeLimit)
	if err != nil {
		return fmt.Errorf("fetch trades: %w", err)
	}

	recentPrices := make([]float64, 0, len(trades))
	for _, tr := range market.SortTradesByTime(trades) {
		recentPrices = append(recentPrices, tr.Price)
	}

	sig := b.detector.Detect(detector.Input{
		CurrentPrice:     res.SelectedMid,
		RecentPrices:     recentPrices,
		Trades:           trades,
		Book:             res.SelectedBook,
		UnderlyingChange: underlyingChange,
		OutcomeLabel:     res.SelectedToken.Label,
		ComplementLabel:  mkt.ComplementLabel(res.SelectedToken.Label),
	})
	if sig == nil {
		return nil
	}

	b.logger.Info().
		Str("market", mkt.Slug).
		Str("outcome", sig.RecommendedOutcome).
		Str("direction", sig.FadeDirection).
		Float64("score", sig.Score).
		Float64("edge", sig.ExpectedEdge).
		Msg("fade signal detected")
	b.bus.PublishSignalDetected(mkt.Slug, sig.RecommendedOutcome, int(sig.Score), sig.ExpectedEdge)
	if err := b.notifier.SendSignal(mkt.Slug, sig.RecommendedOutcome, sig.FadeDirection, int(sig.Score), sig.CurrentPrice, sig.ExpectedEdge); err != nil {
		b.logger.Warn().Err(err).Msg("signal notification failed")
	}

	sized := b.sizer.Size(sig.ExpectedEdge, sig.Confidence, res.SelectedBook.TotalDepthDollars(), res.Score)
	if !sized.Tradeable {
		b.recordSignal(ctx, mkt, res, sig, false, "sizing: "+sized.Reasoning, now)
		return nil
	}

	if ok, reason := b.risk.CanOpenPosition(sized.FinalSize); !ok {
		b.logger.Info().Str("market", mkt.Slug).Str("reason", reason).Msg("risk blocked entry")
		b.bus.PublishRiskBlocked(mkt.Slug, reason)
		b.recordSignal(ctx, mkt, res, sig, false, "risk: "+reason, now)
		return nil
	}

	return b.openPosition(ctx, mkt, res, sig, sized.FinalSize, now)
}

// openPosition executes the entry on the recommended (complement) token.
func (b *Bot) openPosition(ctx context.Context, mkt market.Market, res regime.Result, sig *detector.Signal, size float64, now time.Time) error {
	tokenID, ok := mkt.TokenForLabel(sig.RecommendedOutcome)
	if !ok {
		return fmt.Errorf("no token for outcome %q", sig.RecommendedOutcome)
	}

	entryPrice, err := b.gateway.GetCurrentPrice(tokenID)
	if err != nil || entryPrice <= 0 {
		// Complement of a binary market; derive from the analyzed side.
		entryPrice = 1 - sig.CurrentPrice
	}

	if !b.cfg.TradingConfig.DryRun {
		if _, err := b.gateway.PlaceOrder(tokenID, market.SideBuy, entryPrice, size); err != nil {
			return fmt.Errorf("place order: %w", err)
		}
	}

	pos := &position.Position{
		ID:            uuid.New().String(),
		TokenID:       tokenID,
		MarketSlug:    mkt.Slug,
		Question:      mkt.Question,
		Outcome:       sig.RecommendedOutcome,
		Side:          market.SideBuy,
		EntryPrice:    entryPrice,
		EntryTime:     now,
		Size:          size,
		SignalScore:   sig.Score,
		ExpectedEdge:  sig.ExpectedEdge,
		FadeDirection: sig.FadeDirection,
		MarketEndTime: mkt.EndTime,
	}

	b.positions[tokenID] = pos
	b.lastPrices[tokenID] = entryPrice
	b.risk.RegisterPositionOpen(tokenID, size)
	if b.store != nil {
		if err := b.store.Save(ctx, pos); err != nil {
			b.logger.Warn().Err(err).Msg("failed to persist position state")
		}
	}

	b.recordSignal(ctx, mkt, res, sig, true, "", now)

	b.logger.Info().
		Str("market", mkt.Slug).
		Str("outcome", pos.Outcome).
		Float64("entry", entryPrice).
		Float64("size", size).
		Bool("dry_run", b.cfg.TradingConfig.DryRun).
		Msg("position opened")
	b.bus.PublishPositionOpened(mkt.Slug, pos.Outcome, pos.Side, entryPrice, size)
	if err := b.notifier.SendPositionOpen(mkt.Slug, pos.Outcome, entryPrice, size); err != nil {
		b.logger.Warn().Err(err).Msg("open notification failed")
	}
	return nil
}

// =============================================================================
// EXIT PASS
// =============================================================================

// exitPass prices every open position and closes the ones whose exit rules
// fire, hard exits first.
func (b *Bot) exitPass(ctx context.Context, now time.Time) {
	if len(b.positions) == 0 {
		return
	}

	prices := make(map[string]float64, len(b.positions))
	open := make([]*position.Position, 0, len(b.positions))
	for tokenID, pos := range b.positions {
		open = append(open, pos)
		price, err := b.gateway.GetCurrentPrice(tokenID)
		if err != nil {
			b.logger.Warn().Err(err).Str("market", pos.MarketSlug).Msg("price fetch failed, skipping exit check")
			continue
		}
		prices[tokenID] = price
		b.lastPrices[tokenID] = price
	}

	atr := indicators.ATR(b.lastCloses, b.cfg.RegimeConfig.ATRPeriod)

	for _, dec := range b.exits.CheckAllPositions(open, prices, now, atr) {
		if !dec.ShouldExit {
			continue
		}
		b.closePosition(ctx, dec.Position, dec.CurrentPrice, dec.Reason, now)
	}
}

// closePosition unwinds one position and updates every downstream consumer.
func (b *Bot) closePosition(ctx context.Context, pos *position.Position, exitPrice float64, reason string, now time.Time) {
	if !b.cfg.TradingConfig.DryRun {
		if _, err := b.gateway.PlaceOrder(pos.TokenID, market.SideSell, exitPrice, pos.Size); err != nil {
			b.logger.Warn().Err(err).Str("market", pos.MarketSlug).Msg("close order failed, unwinding anyway")
		}
	}

	pnl := pos.PnlDollars(exitPrice)
	pnlPct := pos.PnlPct(exitPrice) * 100

	delete(b.positions, pos.TokenID)
	delete(b.lastPrices, pos.TokenID)
	b.risk.RegisterPositionClose(pos.TokenID, pnl)
	b.sizer.UpdateBankroll(b.risk.CurrentBankroll())
	b.todayTrades++
	if pnl > 0 {
		b.todayWins++
	}

	if b.store != nil {
		if err := b.store.Delete(ctx, pos.TokenID); err != nil {
			b.logger.Warn().Err(err).Msg("failed to delete position state")
		}
	}

	if err := b.journal.RecordTrade(ctx, &journal.TradeRecord{
		MarketSlug: pos.MarketSlug,
		TokenID:    pos.TokenID,
		Outcome:    pos.Outcome,
		Side:       pos.Side,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		Size:       pos.Size,
		Pnl:        pnl,
		PnlPct:     pnlPct,
		EntryTime:  pos.EntryTime,
		ExitTime:   now,
		ExitReason: reason,
		Score:      pos.SignalScore,
	}); err != nil {
		b.logger.Warn().Err(err).Msg("trade journal write failed")
	}

	b.logger.Info().
		Str("market", pos.MarketSlug).
		Str("reason", reason).
		Float64("entry", pos.EntryPrice).
		Float64("exit", exitPrice).
		Float64("pnl", pnl).
		Msg("position closed")
	b.bus.PublishPositionClosed(pos.MarketSlug, pos.Outcome, reason, exitPrice, pnl)
	b.bus.PublishBankrollUpdate(b.risk.CurrentBankroll(), b.risk.TodayPnl())
	if err := b.notifier.SendPositionClose(pos.MarketSlug, pos.Outcome, pos.EntryPrice, exitPrice, pnl, pnlPct, reason); err != nil {
		b.logger.Warn().Err(err).Msg("close notification failed")
	}

	if paused, pauseReason := b.risk.Paused(); paused && !b.pausedNotified {
		b.pausedNotified = true
		b.logger.Warn().Str("reason", pauseReason).Msg("circuit breaker tripped, trading paused")
		b.bus.PublishTradingPaused(pauseReason)
		if err := b.notifier.SendRiskPause(pauseReason); err != nil {
			b.logger.Warn().Err(err).Msg("pause notification failed")
		}
	}
}

// =============================================================================
// STATUS AND SHUTDOWN
// =============================================================================

func (b *Bot) logStatus() {
	status := b.risk.GetStatus()
	b.logger.Info().
		Fields(status).
		Int("today_trades", b.todayTrades).
		Int("today_wins", b.todayWins).
		Msg("status")

	for _, pos := range b.positions {
		price := b.lastPrices[pos.TokenID]
		b.logger.Info().
			Str("market", pos.MarketSlug).
			Str("outcome", pos.Outcome).
			Float64("entry", pos.EntryPrice).
			Float64("last", price).
			Float64("pnl", pos.PnlDollars(price)).
			Msg("open position")
	}
}

// shutdown closes every open position at its last observed price and
// flushes the day's performance. Runs on a fresh context because the loop
// context is already cancelled.
func (b *Bot) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	b.logger.Info().Int("open_positions", len(b.positions)).Msg("shutting down")

	now := time.Now()
	for _, pos := range b.openPositionsSnapshot() {
		price, ok := b.lastPrices[pos.TokenID]
		if !ok || price <= 0 {
			price = pos.EntryPrice
		}
		b.closePosition(ctx, pos, price, "shutdown", now)
	}

	b.flushDailyPerformance(b.currentDay)
	b.logStatus()
	b.bus.Publish(events.Event{Type: events.EventBotStopped, Data: map[string]interface{}{
		"bankroll": b.risk.CurrentBankroll(),
	}})
	if err := b.notifier.SendInfo("Bot stopped", fmt.Sprintf("bankroll $%.2f", b.risk.CurrentBankroll())); err != nil {
		b.logger.Warn().Err(err).Msg("shutdown notification failed")
	}
	b.logger.Info().Float64("bankroll", b.risk.CurrentBankroll()).Msg("bot stopped")
}

func (b *Bot) openPositionsSnapshot() []*position.Position {
	out := make([]*position.Position, 0, len(b.positions))
	for _, pos := range b.positions {
		out = append(out, pos)
	}
	return out
}

func (b *Bot) flushDailyPerformance(day time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := b.journal.UpdateDailyPerformance(ctx, day, b.risk.CurrentBankroll(), b.risk.TodayPnl(), b.todayTrades, b.todayWins)
	if err != nil {
		b.logger.Warn().Err(err).Msg("daily performance write failed")
	}
}

// =============================================================================
// JOURNAL HELPERS
// =============================================================================

func (b *Bot) recordSnapshot(ctx context.Context, mkt market.Market, res regime.Result, now time.Time) {
	rec := &journal.SnapshotRecord{
		Time:         now,
		MarketSlug:   mkt.Slug,
		RegimeOK:     res.OK,
		RegimeScore:  res.Score,
		RegimeReason: res.Reason,
	}
	if res.SelectedBook != nil {
		rec.TokenID = res.SelectedToken.TokenID
		rec.Mid = res.SelectedMid
		rec.SpreadAbs = res.SelectedBook.SpreadAbs()
		rec.BidDepth = res.SelectedBook.BidDepth()
		rec.AskDepth = res.SelectedBook.AskDepth()
	}
	if err := b.journal.RecordSnapshot(ctx, rec); err != nil {
		b.logger.Warn().Err(err).Msg("snapshot journal write failed")
	}
}

func (b *Bot) recordSignal(ctx context.Context, mkt market.Market, res regime.Result, sig *detector.Signal, executed bool, blockReason string, now time.Time) {
	tokenID, _ := mkt.TokenForLabel(sig.RecommendedOutcome)
	err := b.journal.RecordSignal(ctx, &journal.SignalRecord{
		Time:         now,
		MarketSlug:   mkt.Slug,
		TokenID:      tokenID,
		Outcome:      sig.RecommendedOutcome,
		Action:       sig.Action,
		FadeDir:      sig.FadeDirection,
		Score:        sig.Score,
		ExpectedEdge: sig.ExpectedEdge,
		CurrentPrice: sig.CurrentPrice,
		PriceChange:  sig.PriceChange,
		RegimeScore:  res.Score,
		Executed:     executed,
		BlockReason:  blockReason,
	})
	if err != nil {
		b.logger.Warn().Err(err).Msg("signal journal write failed")
	}
}
