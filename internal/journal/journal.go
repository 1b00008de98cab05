// Package journal persists signals, trades, market snapshots, and daily
// performance to PostgreSQL. Every write is append-only, and journal
// unavailability must never stop the trading loop; callers log and continue.
package journal

import (
	"context"
	"time"
)

// SignalRecord is one detected (or blocked) signal.
type SignalRecord struct {
	ID           int64
	Time         time.Time
	MarketSlug   string
	TokenID      string
	Outcome      string
	Action       string
	FadeDir      string
	Score        float64
	ExpectedEdge float64
	CurrentPrice float64
	PriceChange  float64
	RegimeScore  float64
	Executed     bool
	BlockReason  string // empty when executed; risk/sizing reason otherwise
}

// TradeRecord is one completed round trip.
type TradeRecord struct {
	ID         int64
	MarketSlug string
	TokenID    string
	Outcome    string
	Side       string
	EntryPrice float64
	ExitPrice  float64
	Size       float64
	Pnl        float64
	PnlPct     float64
	EntryTime  time.Time
	ExitTime   time.Time
	ExitReason string
	Score      float64
}

// SnapshotRecord is one market observation per scan, for post-hoc analysis.
type SnapshotRecord struct {
	ID           int64
	Time         time.Time
	MarketSlug   string
	TokenID      string
	Mid          float64
	SpreadAbs    float64
	BidDepth     float64
	AskDepth     float64
	RegimeOK     bool
	RegimeScore  float64
	RegimeReason string
}

// Journal is the durable trade log consumed by the orchestrator.
type Journal interface {
	RecordSignal(ctx context.Context, rec *SignalRecord) error
	RecordTrade(ctx context.Context, rec *TradeRecord) error
	RecordSnapshot(ctx context.Context, rec *SnapshotRecord) error
	UpdateDailyPerformance(ctx context.Context, day time.Time, bankroll, pnl float64, trades, wins int) error
	WinRate(ctx context.Context) (float64, error)
	TotalPnl(ctx context.Context) (float64, error)
	Close()
}

// Noop is the journal used when no database is configured. Every operation
// succeeds without doing anything.
type Noop struct{}

func (Noop) RecordSignal(context.Context, *SignalRecord) error     { return nil }
func (Noop) RecordTrade(context.Context, *TradeRecord) error       { return nil }
func (Noop) RecordSnapshot(context.Context, *SnapshotRecord) error { return nil }
func (Noop) UpdateDailyPerformance(context.Context, time.Time, float64, float64, int, int) error {
	return nil
}
func (Noop) WinRate(context.Context) (float64, error)  { return 0, nil }
func (Noop) TotalPnl(context.Context) (float64, error) { return 0, nil }
func (Noop) Close()                                    {}
