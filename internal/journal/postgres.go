package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"polymarket-fade-bot/config"
)

// Postgres is the pgx-backed journal.
type Postgres struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgres connects to the journal database and runs migrations.
func NewPostgres(ctx context.Context, cfg config.JournalConfig, logger zerolog.Logger) (*Postgres, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse journal config: %w", err)
	}
	poolConfig.MaxConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.HealthCheckPeriod = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create journal pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping journal database: %w", err)
	}

	j := &Postgres{pool: pool, logger: logger}
	if err := j.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info().Str("database", cfg.Database).Msg("journal connected")
	return j, nil
}

func (j *Postgres) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			id BIGSERIAL PRIMARY KEY,
			signal_time TIMESTAMPTZ NOT NULL,
			market_slug TEXT NOT NULL,
			token_id TEXT NOT NULL,
			outcome TEXT,
			action TEXT,
			fade_direction TEXT,
			score DOUBLE PRECISION,
			expected_edge DOUBLE PRECISION,
			current_price DOUBLE PRECISION,
			price_change DOUBLE PRECISION,
			regime_score DOUBLE PRECISION,
			executed BOOLEAN NOT NULL DEFAULT FALSE,
			block_reason TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id BIGSERIAL PRIMARY KEY,
			market_slug TEXT NOT NULL,
			token_id TEXT NOT NULL,
			outcome TEXT,
			side TEXT NOT NULL,
			entry_price DOUBLE PRECISION NOT NULL,
			exit_price DOUBLE PRECISION NOT NULL,
			size DOUBLE PRECISION NOT NULL,
			pnl DOUBLE PRECISION NOT NULL,
			pnl_pct DOUBLE PRECISION NOT NULL,
			entry_time TIMESTAMPTZ NOT NULL,
			exit_time TIMESTAMPTZ NOT NULL,
			exit_reason TEXT,
			signal_score DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS market_snapshots (
			id BIGSERIAL PRIMARY KEY,
			snapshot_time TIMESTAMPTZ NOT NULL,
			market_slug TEXT NOT NULL,
			token_id TEXT,
			mid DOUBLE PRECISION,
			spread_abs DOUBLE PRECISION,
			bid_depth DOUBLE PRECISION,
			ask_depth DOUBLE PRECISION,
			regime_ok BOOLEAN,
			regime_score DOUBLE PRECISION,
			regime_reason TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS daily_performance (
			day DATE PRIMARY KEY,
			bankroll DOUBLE PRECISION NOT NULL,
			pnl DOUBLE PRECISION NOT NULL,
			trades INT NOT NULL,
			wins INT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_time ON signals (signal_time)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades (exit_time)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_slug ON market_snapshots (market_slug, snapshot_time)`,
	}

	for _, migration := range migrations {
		if _, err := j.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("journal migration failed: %w", err)
		}
	}
	return nil
}

// RecordSignal inserts a signal row.
func (j *Postgres) RecordSignal(ctx context.Context, rec *SignalRecord) error {
	query := `
		INSERT INTO signals (signal_time, market_slug, token_id, outcome, action, fade_direction,
			score, expected_edge, current_price, price_change, regime_score, executed, block_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	return j.pool.QueryRow(ctx, query,
		rec.Time, rec.MarketSlug, rec.TokenID, rec.Outcome, rec.Action, rec.FadeDir,
		rec.Score, rec.ExpectedEdge, rec.CurrentPrice, rec.PriceChange, rec.RegimeScore,
		rec.Executed, rec.BlockReason,
	).Scan(&rec.ID)
}

// RecordTrade inserts a completed trade row.
func (j *Postgres) RecordTrade(ctx context.Context, rec *TradeRecord) error {
	query := `
		INSERT INTO trades (market_slug, token_id, outcome, side, entry_price, exit_price,
			size, pnl, pnl_pct, entry_time, exit_time, exit_reason, signal_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	return j.pool.QueryRow(ctx, query,
		rec.MarketSlug, rec.TokenID, rec.Outcome, rec.Side, rec.EntryPrice, rec.ExitPrice,
		rec.Size, rec.Pnl, rec.PnlPct, rec.EntryTime, rec.ExitTime, rec.ExitReason, rec.Score,
	).Scan(&rec.ID)
}

// RecordSnapshot inserts a market snapshot row.
func (j *Postgres) RecordSnapshot(ctx context.Context, rec *SnapshotRecord) error {
	query := `
		INSERT INTO market_snapshots (snapshot_time, market_slug, token_id, mid, spread_abs,
			bid_depth, ask_depth, regime_ok, regime_score, regime_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	return j.pool.QueryRow(ctx, query,
		rec.Time, rec.MarketSlug, rec.TokenID, rec.Mid, rec.SpreadAbs,
		rec.BidDepth, rec.AskDepth, rec.RegimeOK, rec.RegimeScore, rec.RegimeReason,
	).Scan(&rec.ID)
}

// UpdateDailyPerformance upserts the day's summary row.
func (j *Postgres) UpdateDailyPerformance(ctx context.Context, day time.Time, bankroll, pnl float64, trades, wins int) error {
	query := `
		INSERT INTO daily_performance (day, bankroll, pnl, trades, wins, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (day) DO UPDATE
		SET bankroll = $2, pnl = $3, trades = $4, wins = $5, updated_at = NOW()
	`
	_, err := j.pool.Exec(ctx, query, day.Format("2006-01-02"), bankroll, pnl, trades, wins)
	return err
}

// WinRate returns the lifetime win rate from the trades table.
func (j *Postgres) WinRate(ctx context.Context) (float64, error) {
	var total, wins int
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE pnl > 0) FROM trades`
	if err := j.pool.QueryRow(ctx, query).Scan(&total, &wins); err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	return float64(wins) / float64(total), nil
}

// TotalPnl returns the lifetime realized PnL.
func (j *Postgres) TotalPnl(ctx context.Context) (float64, error) {
	var pnl float64
	if err := j.pool.QueryRow(ctx, `SELECT COALESCE(SUM(pnl), 0) FROM trades`).Scan(&pnl); err != nil {
		return 0, err
	}
	return pnl, nil
}

// Close releases the connection pool.
func (j *Postgres) Close() {
	if j.pool != nil {
		j.pool.Close()
	}
}
