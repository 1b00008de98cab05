package bot

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"polymarket-fade-bot/config"
	"polymarket-fade-bot/internal/alpaca"
	"polymarket-fade-bot/internal/events"
	"polymarket-fade-bot/internal/journal"
	"polymarket-fade-bot/internal/market"
	"polymarket-fade-bot/internal/notification"
	"polymarket-fade-bot/internal/polymarket"
	"polymarket-fade-bot/internal/position"
	"polymarket-fade-bot/internal/statestore"
)

func testConfig() *config.Config {
	return &config.Config{
		TradingConfig: config.TradingConfig{
			DryRun:              false,
			StartingBankroll:    250,
			ScanInterval:        30,
			ExitCheckInterval:   10,
			StatusInterval:      60,
			LoopSleep:           5,
			MinMinutesToExpiry:  1.5,
			MaxMinutesToExpiry:  40,
			LookaheadMinutes:    45,
			CurrentBucketMaxMin: 14,
			NextBucketMaxMin:    28,
			CurrentBucketSpread: 0.12,
			NextBucketSpread:    0.20,
			FutureBucketSpread:  0.30,
		},
		RegimeConfig: config.RegimeConfig{
			MaxUnderlyingATR: 0.015,
			ATRPeriod:        15,
			MaxBBWidth:       0.020,
			BBPeriod:         20,
			MinMid:           0.10,
			MaxMid:           0.90,
			MaxSpreadAbs:     0.12,
			MinBookBalance:   0.40,
			MaxBookBalance:   0.60,
		},
		DetectorConfig: config.DetectorConfig{
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
		},
		SizingConfig: config.SizingConfig{
			KellyFraction:   0.25,
			AssumedVariance: 0.5,
			MaxBankrollPct:  0.02,
			MaxDepthPct:     0.05,
			MaxTradeSize:    40,
			MinTradeSize:    5,
		},
		RiskConfig: config.RiskConfig{
			DailyLossLimitPct:    0.05,
			MaxConcurrent:        3,
			MaxConsecutiveLosses: 5,
			MinWinRate:           0.40,
			MinTradesForWinRate:  20,
			MaxSizeBankrollPct:   0.50,
		},
		ExitConfig: config.ExitConfig{
			StopLossPct:            0.06,
			TakeProfitPct:          0.04,
			MaxHoldSeconds:         480,
			MeanReversionThreshold: 0.04,
			RegimeBreakATR:         0.035,
			TimePressureSeconds:    120,
			TimePressureMinPnl:     0.01,
		},
	}
}

func flatCloses(n int, price float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return closes
}

func newTestBot(cfg *config.Config, gw *polymarket.MockGateway, bars *alpaca.MockBarSource) *Bot {
	store := statestore.New(config.RedisConfig{Enabled: false}, zerolog.Nop())
	return New(cfg, gw, bars, journal.Noop{}, store, events.NewEventBus(), notification.NewManager(), zerolog.Nop())
}

// spikeMarket builds a market whose Up token jumped from 0.50 to 0.62 while
// the underlying barely moved, which should produce a FADE_UP entry on Down.
func spikeMarket(now time.Time) (market.Market, *polymarket.MockGateway) {
	mkt := market.Market{
		Slug:     "bitcoin-up-or-down-15m-1756500000",
		Question: "Bitcoin Up or Down?",
		EndTime:  now.Add(10 * time.Minute),
		Tokens: [2]market.OutcomeToken{
			{TokenID: "tok-up", Label: "Up"},
			{TokenID: "tok-down", Label: "Down"},
		},
	}

	gw := polymarket.NewMockGateway()
	gw.Markets = []market.Market{mkt}
	gw.Books["tok-up"] = market.NewOrderBookSnapshot(
		[]market.PriceLevel{{Price: 0.61, Size: 2000}},
		[]market.PriceLevel{{Price: 0.63, Size: 2000}},
	)
	gw.Prices["tok-down"] = 0.38

	// Small retail-sized prints ($30 notional) from 10 to 6 minutes ago.
	var trades []market.Trade
	for i := 0; i < 12; i++ {
		trades = append(trades, market.Trade{
			Timestamp: now.Add(-10 * time.Minute).Add(time.Duration(i) * 20 * time.Second),
			Price:     0.50,
			Size:      60,
			Side:      market.SideBuy,
			Outcome:   "Up",
		})
	}
	gw.Trades["tok-up"] = trades

	return mkt, gw
}

func TestScanPassOpensFadePosition(t *testing.T) {
	now := time.Now()
	_, gw := spikeMarket(now)
	bars := &alpaca.MockBarSource{Closes: flatCloses(30, 65000), Change: 0.001}
	b := newTestBot(testConfig(), gw, bars)

	b.scanPass(context.Background(), now)

	if len(b.positions) != 1 {
		t.Fatalf("Should open 1 position, got %d", len(b.positions))
	}
	pos, ok := b.positions["tok-down"]
	if !ok {
		t.Fatal("Should hold the complement (Down) token")
	}
	if pos.Outcome != "Down" {
		t.Errorf("Should fade into Down, got %s", pos.Outcome)
	}
	if pos.FadeDirection != "FADE_UP" {
		t.Errorf("Should record FADE_UP direction, got %s", pos.FadeDirection)
	}
	if pos.EntryPrice != 0.38 {
		t.Errorf("Should enter at the Down token price 0.38, got %.3f", pos.EntryPrice)
	}
	if pos.Size < 4.99 || pos.Size > 5.01 {
		t.Errorf("Should size at the 2%% bankroll cap ($5), got %.2f", pos.Size)
	}

	if len(gw.PlacedOrders) != 1 {
		t.Fatalf("Should place 1 order, got %d", len(gw.PlacedOrders))
	}
	if gw.PlacedOrders[0].Side != market.SideBuy || gw.PlacedOrders[0].TokenID != "tok-down" {
		t.Errorf("Should BUY tok-down, got %s %s", gw.PlacedOrders[0].Side, gw.PlacedOrders[0].TokenID)
	}
	if b.risk.OpenPositionCount() != 1 {
		t.Errorf("Should register the open with the risk manager, got %d", b.risk.OpenPositionCount())
	}
}

func TestScanPassSkipsMarketAlreadyHeld(t *testing.T) {
	now := time.Now()
	_, gw := spikeMarket(now)
	bars := &alpaca.MockBarSource{Closes: flatCloses(30, 65000), Change: 0.001}
	b := newTestBot(testConfig(), gw, bars)

	b.scanPass(context.Background(), now)
	b.scanPass(context.Background(), now.Add(30*time.Second))

	if len(b.positions) != 1 {
		t.Errorf("Should not double up on a held market, got %d positions", len(b.positions))
	}
	if len(gw.PlacedOrders) != 1 {
		t.Errorf("Should not place a second order, got %d", len(gw.PlacedOrders))
	}
}

func TestScanPassDryRunPlacesNoOrders(t *testing.T) {
	now := time.Now()
	_, gw := spikeMarket(now)
	bars := &alpaca.MockBarSource{Closes: flatCloses(30, 65000), Change: 0.001}
	cfg := testConfig()
	cfg.TradingConfig.DryRun = true
	b := newTestBot(cfg, gw, bars)

	b.scanPass(context.Background(), now)

	if len(b.positions) != 1 {
		t.Fatalf("Should still track the position in dry-run, got %d", len(b.positions))
	}
	if len(gw.PlacedOrders) != 0 {
		t.Errorf("Should not transmit orders in dry-run, got %d", len(gw.PlacedOrders))
	}
}

func TestScanPassRegimeRejection(t *testing.T) {
	now := time.Now()
	_, gw := spikeMarket(now)
	// Widen the spread past every bucket cap.
	gw.Books["tok-up"] = market.NewOrderBookSnapshot(
		[]market.PriceLevel{{Price: 0.30, Size: 2000}},
		[]market.PriceLevel{{Price: 0.70, Size: 2000}},
	)
	bars := &alpaca.MockBarSource{Closes: flatCloses(30, 65000), Change: 0.001}
	b := newTestBot(testConfig(), gw, bars)

	b.scanPass(context.Background(), now)

	if len(b.positions) != 0 {
		t.Errorf("Should not open positions in a bad regime, got %d", len(b.positions))
	}
	if len(gw.PlacedOrders) != 0 {
		t.Errorf("Should not place orders in a bad regime, got %d", len(gw.PlacedOrders))
	}
}

func TestScanPassSkipsWhenBarsUnavailable(t *testing.T) {
	now := time.Now()
	_, gw := spikeMarket(now)
	bars := &alpaca.MockBarSource{Err: context.DeadlineExceeded}
	b := newTestBot(testConfig(), gw, bars)

	b.scanPass(context.Background(), now)

	if len(b.positions) != 0 {
		t.Errorf("Should not trade without underlying data, got %d positions", len(b.positions))
	}
}

func TestExitPassTakesProfit(t *testing.T) {
	now := time.Now()
	gw := polymarket.NewMockGateway()
	gw.Prices["tok-down"] = 0.50
	bars := &alpaca.MockBarSource{Closes: flatCloses(30, 65000)}
	b := newTestBot(testConfig(), gw, bars)

	pos := &position.Position{
		ID:            "pos-1",
		TokenID:       "tok-down",
		MarketSlug:    "bitcoin-up-or-down-15m-1756500000",
		Outcome:       "Down",
		Side:          market.SideBuy,
		EntryPrice:    0.38,
		EntryTime:     now.Add(-2 * time.Minute),
		Size:          5,
		MarketEndTime: now.Add(8 * time.Minute),
	}
	b.positions[pos.TokenID] = pos
	b.lastPrices[pos.TokenID] = pos.EntryPrice
	b.risk.RegisterPositionOpen(pos.TokenID, pos.Size)

	b.exitPass(context.Background(), now)

	if len(b.positions) != 0 {
		t.Fatalf("Should close the winning position, got %d still open", len(b.positions))
	}
	if b.risk.OpenPositionCount() != 0 {
		t.Errorf("Should release the risk slot, got %d", b.risk.OpenPositionCount())
	}
	if b.todayTrades != 1 || b.todayWins != 1 {
		t.Errorf("Should count 1 trade and 1 win, got %d/%d", b.todayTrades, b.todayWins)
	}

	// BUY 0.38 -> 0.50 on $5 is about +$1.58.
	wantPnl := 5 * (0.50 - 0.38) / 0.38
	got := b.risk.TodayPnl()
	if got < wantPnl-0.01 || got > wantPnl+0.01 {
		t.Errorf("Should book pnl %.2f, got %.2f", wantPnl, got)
	}

	if len(gw.PlacedOrders) != 1 || gw.PlacedOrders[0].Side != market.SideSell {
		t.Fatalf("Should place one SELL to close, got %v", gw.PlacedOrders)
	}
}

func TestExitPassHoldsQuietPosition(t *testing.T) {
	now := time.Now()
	gw := polymarket.NewMockGateway()
	gw.Prices["tok-down"] = 0.385
	bars := &alpaca.MockBarSource{Closes: flatCloses(30, 65000)}
	b := newTestBot(testConfig(), gw, bars)

	pos := &position.Position{
		ID:            "pos-1",
		TokenID:       "tok-down",
		MarketSlug:    "bitcoin-up-or-down-15m-1756500000",
		Outcome:       "Down",
		Side:          market.SideBuy,
		EntryPrice:    0.38,
		EntryTime:     now.Add(-1 * time.Minute),
		Size:          5,
		MarketEndTime: now.Add(10 * time.Minute),
	}
	b.positions[pos.TokenID] = pos
	b.risk.RegisterPositionOpen(pos.TokenID, pos.Size)

	b.exitPass(context.Background(), now)

	if len(b.positions) != 1 {
		t.Errorf("Should keep a position with no exit condition, got %d open", len(b.positions))
	}
}

func TestRestorePositions(t *testing.T) {
	now := time.Now()
	gw := polymarket.NewMockGateway()
	bars := &alpaca.MockBarSource{Closes: flatCloses(30, 65000)}
	cfg := testConfig()

	store := statestore.New(config.RedisConfig{Enabled: false}, zerolog.Nop())
	store.Save(context.Background(), &position.Position{
		ID:            "pos-1",
		TokenID:       "tok-down",
		MarketSlug:    "bitcoin-up-or-down-15m-1756500000",
		Outcome:       "Down",
		Side:          market.SideBuy,
		EntryPrice:    0.38,
		EntryTime:     now.Add(-3 * time.Minute),
		Size:          5,
		MarketEndTime: now.Add(7 * time.Minute),
	})

	b := New(cfg, gw, bars, journal.Noop{}, store, events.NewEventBus(), notification.NewManager(), zerolog.Nop())
	b.restorePositions(context.Background())

	if len(b.positions) != 1 {
		t.Fatalf("Should restore 1 position, got %d", len(b.positions))
	}
	if b.risk.OpenPositionCount() != 1 {
		t.Errorf("Should re-register restored positions with risk, got %d", b.risk.OpenPositionCount())
	}
}

func TestBucketSpreadCap(t *testing.T) {
	b := newTestBot(testConfig(), polymarket.NewMockGateway(), &alpaca.MockBarSource{})

	if got := b.bucketSpreadCap(10); got != 0.12 {
		t.Errorf("Should use the tight cap inside 14 minutes, got %.2f", got)
	}
	if got := b.bucketSpreadCap(20); got != 0.20 {
		t.Errorf("Should use the middle cap inside 28 minutes, got %.2f", got)
	}
	if got := b.bucketSpreadCap(35); got != 0.30 {
		t.Errorf("Should use the wide cap past 28 minutes, got %.2f", got)
	}
}

type captureNotifier struct {
	sent []*notification.Notification
}

func (c *captureNotifier) Send(n *notification.Notification) error {
	c.sent = append(c.sent, n)
	return nil
}

func (c *captureNotifier) Name() string    { return "capture" }
func (c *captureNotifier) IsEnabled() bool { return true }

func (c *captureNotifier) byType(t notification.NotificationType) []*notification.Notification {
	var out []*notification.Notification
	for _, n := range c.sent {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

func TestScanPassNotifiesSignalAndOpen(t *testing.T) {
	now := time.Now()
	_, gw := spikeMarket(now)
	bars := &alpaca.MockBarSource{Closes: flatCloses(30, 65000), Change: 0.001}

	capture := &captureNotifier{}
	notifier := notification.NewManager()
	notifier.AddNotifier(capture)

	store := statestore.New(config.RedisConfig{Enabled: false}, zerolog.Nop())
	b := New(testConfig(), gw, bars, journal.Noop{}, store, events.NewEventBus(), notifier, zerolog.Nop())

	b.scanPass(context.Background(), now)

	signals := capture.byType(notification.NotifySignal)
	if len(signals) != 1 {
		t.Fatalf("Should notify on the detected signal, got %d", len(signals))
	}
	if signals[0].Outcome != "Down" {
		t.Errorf("Should name the faded outcome, got %s", signals[0].Outcome)
	}
	if len(capture.byType(notification.NotifyPositionOpen)) != 1 {
		t.Errorf("Should notify on the opened position")
	}
}

func TestScanPassNotifiesDiscoveryFailure(t *testing.T) {
	now := time.Now()
	gw := polymarket.NewMockGateway()
	gw.FailMarkets = true
	bars := &alpaca.MockBarSource{Closes: flatCloses(30, 65000), Change: 0.001}

	capture := &captureNotifier{}
	notifier := notification.NewManager()
	notifier.AddNotifier(capture)

	store := statestore.New(config.RedisConfig{Enabled: false}, zerolog.Nop())
	b := New(testConfig(), gw, bars, journal.Noop{}, store, events.NewEventBus(), notifier, zerolog.Nop())

	b.scanPass(context.Background(), now)

	if len(capture.byType(notification.NotifyError)) != 1 {
		t.Errorf("Should notify when market discovery fails")
	}
}
