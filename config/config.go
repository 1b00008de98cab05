package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	PolymarketConfig   PolymarketConfig   `json:"polymarket"`
	AlpacaConfig       AlpacaConfig       `json:"alpaca"`
	TradingConfig      TradingConfig      `json:"trading"`
	RegimeConfig       RegimeConfig       `json:"regime"`
	DetectorConfig     DetectorConfig     `json:"detector"`
	SizingConfig       SizingConfig       `json:"sizing"`
	RiskConfig         RiskConfig         `json:"risk"`
	ExitConfig         ExitConfig         `json:"exit"`
	JournalConfig      JournalConfig      `json:"journal"`
	RedisConfig        RedisConfig        `json:"redis"`
	NotificationConfig NotificationConfig `json:"notification"`
	LoggingConfig      LoggingConfig      `json:"logging"`
}

// PolymarketConfig holds the market-data venue endpoints. No credentials:
// the bot only consumes public data and order placement is stubbed.
type PolymarketConfig struct {
	GammaBaseURL string `json:"gamma_base_url"`
	ClobBaseURL  string `json:"clob_base_url"`
	DataBaseURL  string `json:"data_base_url"`
	AssetTag     string `json:"asset_tag"` // btc or eth
	MockMode     bool   `json:"mock_mode"`
}

// AlpacaConfig holds the underlying-asset bar feed configuration.
type AlpacaConfig struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	BaseURL   string `json:"base_url"`
	Symbol    string `json:"symbol"` // e.g. BTC/USD
}

// TradingConfig holds the orchestrator loop settings.
type TradingConfig struct {
	DryRun              bool    `json:"dry_run"`
	StartingBankroll    float64 `json:"starting_bankroll"`
	ScanInterval        int     `json:"scan_interval_seconds"`
	ExitCheckInterval   int     `json:"exit_check_interval_seconds"`
	StatusInterval      int     `json:"status_interval_seconds"`
	LoopSleep           int     `json:"loop_sleep_seconds"`
	MinMinutesToExpiry  float64 `json:"min_minutes_to_expiry"`
	MaxMinutesToExpiry  float64 `json:"max_minutes_to_expiry"`
	LookaheadMinutes    int     `json:"lookahead_minutes"`
	CurrentBucketMaxMin float64 `json:"current_bucket_max_minutes"`
	NextBucketMaxMin    float64 `json:"next_bucket_max_minutes"`
	CurrentBucketSpread float64 `json:"current_bucket_spread"`
	NextBucketSpread    float64 `json:"next_bucket_spread"`
	FutureBucketSpread  float64 `json:"future_bucket_spread"`
}

// RegimeConfig holds the regime filter thresholds.
type RegimeConfig struct {
	MaxUnderlyingATR float64 `json:"max_underlying_atr"`
	ATRPeriod        int     `json:"atr_period"`
	MaxBBWidth       float64 `json:"max_bb_width"`
	BBPeriod         int     `json:"bb_period"`
	MinMid           float64 `json:"min_mid"`
	MaxMid           float64 `json:"max_mid"`
	MaxSpreadAbs     float64 `json:"max_spread_abs"`
	MinBookBalance   float64 `json:"min_book_balance"`
	MaxBookBalance   float64 `json:"max_book_balance"`
}

// DetectorConfig holds the overreaction detector thresholds.
type DetectorConfig struct {
	MoveWindowMinutes       int     `json:"move_window_minutes"`
	MinPriceChange          float64 `json:"min_price_change"`
	UnderlyingMoveMax       float64 `json:"underlying_move_max"`
	VolumeRecentMinutes     int     `json:"volume_recent_minutes"`
	VolumeBaselineMinutes   int     `json:"volume_baseline_minutes"`
	VolumeSpikeMultiplier   float64 `json:"volume_spike_multiplier"`
	RetailMedianNotionalMax float64 `json:"retail_median_notional_max"`
	RetailMeanNotionalMax   float64 `json:"retail_mean_notional_max"`
	RetailSmallFractionMin  float64 `json:"retail_small_fraction_min"`
	ImbalanceExtreme        float64 `json:"imbalance_extreme"`
	RSIPeriod               int     `json:"rsi_period"`
	RSISampleEveryN         int     `json:"rsi_sample_every_n"`
	RSIOversold             float64 `json:"rsi_oversold"`
	RSIOverbought           float64 `json:"rsi_overbought"`
	MinScore                float64 `json:"min_score"`
	EdgeScale               float64 `json:"edge_scale"`
}

// SizingConfig holds the position sizer parameters.
type SizingConfig struct {
	KellyFraction   float64 `json:"kelly_fraction"`
	AssumedVariance float64 `json:"assumed_variance"`
	MaxBankrollPct  float64 `json:"max_bankroll_pct"`
	MaxDepthPct     float64 `json:"max_depth_pct"`
	MaxTradeSize    float64 `json:"max_trade_size"`
	MinTradeSize    float64 `json:"min_trade_size"`
}

// RiskConfig holds the portfolio circuit-breaker limits.
type RiskConfig struct {
	DailyLossLimitPct    float64 `json:"daily_loss_limit_pct"`
	MaxConcurrent        int     `json:"max_concurrent_positions"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	MinWinRate           float64 `json:"min_win_rate"`
	MinTradesForWinRate  int     `json:"min_trades_for_win_rate"`
	MaxSizeBankrollPct   float64 `json:"max_size_bankroll_pct"`
}

// ExitConfig holds the exit manager thresholds.
type ExitConfig struct {
	StopLossPct            float64 `json:"stop_loss_pct"`
	TakeProfitPct          float64 `json:"take_profit_pct"`
	MaxHoldSeconds         int     `json:"max_hold_seconds"`
	MeanReversionThreshold float64 `json:"mean_reversion_threshold"`
	RegimeBreakATR         float64 `json:"regime_break_atr"`
	TimePressureSeconds    int     `json:"time_pressure_seconds"`
	TimePressureMinPnl     float64 `json:"time_pressure_min_pnl"`
}

// JournalConfig holds the Postgres trade journal connection settings.
type JournalConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds the position state store settings.
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// NotificationConfig holds notification provider settings.
type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

type LoggingConfig struct {
	Level      string `json:"level"`       // debug, info, warn, error
	JSONFormat bool   `json:"json_format"` // JSON output instead of console
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config and
// fills in defaults for anything left unset. Every threshold stays
// independently tunable.
func applyEnvOverrides(cfg *Config) {
	// Venue endpoints
	cfg.PolymarketConfig.GammaBaseURL = getEnvOrDefault("POLYMARKET_GAMMA_URL", defaultString(cfg.PolymarketConfig.GammaBaseURL, "https://gamma-api.polymarket.com"))
	cfg.PolymarketConfig.ClobBaseURL = getEnvOrDefault("POLYMARKET_CLOB_URL", defaultString(cfg.PolymarketConfig.ClobBaseURL, "https://clob.polymarket.com"))
	cfg.PolymarketConfig.DataBaseURL = getEnvOrDefault("POLYMARKET_DATA_URL", defaultString(cfg.PolymarketConfig.DataBaseURL, "https://data-api.polymarket.com"))
	cfg.PolymarketConfig.AssetTag = getEnvOrDefault("ASSET_TAG", defaultString(cfg.PolymarketConfig.AssetTag, "btc"))
	cfg.PolymarketConfig.MockMode = getEnvOrDefault("MOCK_MODE", "false") == "true" || cfg.PolymarketConfig.MockMode

	cfg.AlpacaConfig.APIKey = getEnvOrDefault("APCA_API_KEY_ID", cfg.AlpacaConfig.APIKey)
	cfg.AlpacaConfig.APISecret = getEnvOrDefault("APCA_API_SECRET_KEY", cfg.AlpacaConfig.APISecret)
	cfg.AlpacaConfig.BaseURL = getEnvOrDefault("APCA_DATA_URL", defaultString(cfg.AlpacaConfig.BaseURL, "https://data.alpaca.markets"))
	cfg.AlpacaConfig.Symbol = getEnvOrDefault("UNDERLYING_SYMBOL", defaultString(cfg.AlpacaConfig.Symbol, "BTC/USD"))

	// Trading loop
	if envSet("TRADING_DRY_RUN") {
		cfg.TradingConfig.DryRun = os.Getenv("TRADING_DRY_RUN") == "true"
	}
	cfg.TradingConfig.StartingBankroll = getEnvFloatOrDefault("STARTING_BANKROLL", defaultFloat(cfg.TradingConfig.StartingBankroll, 250))
	cfg.TradingConfig.ScanInterval = getEnvIntOrDefault("SCAN_INTERVAL_SECONDS", defaultInt(cfg.TradingConfig.ScanInterval, 30))
	cfg.TradingConfig.ExitCheckInterval = getEnvIntOrDefault("EXIT_CHECK_INTERVAL_SECONDS", defaultInt(cfg.TradingConfig.ExitCheckInterval, 10))
	cfg.TradingConfig.StatusInterval = getEnvIntOrDefault("STATUS_INTERVAL_SECONDS", defaultInt(cfg.TradingConfig.StatusInterval, 60))
	cfg.TradingConfig.LoopSleep = getEnvIntOrDefault("LOOP_SLEEP_SECONDS", defaultInt(cfg.TradingConfig.LoopSleep, 5))
	cfg.TradingConfig.MinMinutesToExpiry = getEnvFloatOrDefault("MIN_MINUTES_TO_EXPIRY", defaultFloat(cfg.TradingConfig.MinMinutesToExpiry, 1.5))
	cfg.TradingConfig.MaxMinutesToExpiry = getEnvFloatOrDefault("MAX_MINUTES_TO_EXPIRY", defaultFloat(cfg.TradingConfig.MaxMinutesToExpiry, 40))
	cfg.TradingConfig.LookaheadMinutes = getEnvIntOrDefault("LOOKAHEAD_MINUTES", defaultInt(cfg.TradingConfig.LookaheadMinutes, 45))
	cfg.TradingConfig.CurrentBucketMaxMin = getEnvFloatOrDefault("CURRENT_BUCKET_MAX_MINUTES", defaultFloat(cfg.TradingConfig.CurrentBucketMaxMin, 14))
	cfg.TradingConfig.NextBucketMaxMin = getEnvFloatOrDefault("NEXT_BUCKET_MAX_MINUTES", defaultFloat(cfg.TradingConfig.NextBucketMaxMin, 28))
	cfg.TradingConfig.CurrentBucketSpread = getEnvFloatOrDefault("CURRENT_BUCKET_SPREAD", defaultFloat(cfg.TradingConfig.CurrentBucketSpread, 0.12))
	cfg.TradingConfig.NextBucketSpread = getEnvFloatOrDefault("NEXT_BUCKET_SPREAD", defaultFloat(cfg.TradingConfig.NextBucketSpread, 0.20))
	cfg.TradingConfig.FutureBucketSpread = getEnvFloatOrDefault("FUTURE_BUCKET_SPREAD", defaultFloat(cfg.TradingConfig.FutureBucketSpread, 0.30))

	// Regime filter
	cfg.RegimeConfig.MaxUnderlyingATR = getEnvFloatOrDefault("REGIME_MAX_ATR", defaultFloat(cfg.RegimeConfig.MaxUnderlyingATR, 0.015))
	cfg.RegimeConfig.ATRPeriod = getEnvIntOrDefault("REGIME_ATR_PERIOD", defaultInt(cfg.RegimeConfig.ATRPeriod, 15))
	cfg.RegimeConfig.MaxBBWidth = getEnvFloatOrDefault("REGIME_MAX_BB_WIDTH", defaultFloat(cfg.RegimeConfig.MaxBBWidth, 0.020))
	cfg.RegimeConfig.BBPeriod = getEnvIntOrDefault("REGIME_BB_PERIOD", defaultInt(cfg.RegimeConfig.BBPeriod, 20))
	cfg.RegimeConfig.MinMid = getEnvFloatOrDefault("REGIME_MIN_MID", defaultFloat(cfg.RegimeConfig.MinMid, 0.10))
	cfg.RegimeConfig.MaxMid = getEnvFloatOrDefault("REGIME_MAX_MID", defaultFloat(cfg.RegimeConfig.MaxMid, 0.90))
	cfg.RegimeConfig.MaxSpreadAbs = getEnvFloatOrDefault("REGIME_MAX_SPREAD_ABS", defaultFloat(cfg.RegimeConfig.MaxSpreadAbs, 0.15))
	cfg.RegimeConfig.MinBookBalance = getEnvFloatOrDefault("REGIME_MIN_BOOK_BALANCE", defaultFloat(cfg.RegimeConfig.MinBookBalance, 0.40))
	cfg.RegimeConfig.MaxBookBalance = getEnvFloatOrDefault("REGIME_MAX_BOOK_BALANCE", defaultFloat(cfg.RegimeConfig.MaxBookBalance, 0.60))

	// Detector
	cfg.DetectorConfig.MoveWindowMinutes = getEnvIntOrDefault("DETECTOR_MOVE_WINDOW_MINUTES", defaultInt(cfg.DetectorConfig.MoveWindowMinutes, 5))
	cfg.DetectorConfig.MinPriceChange = getEnvFloatOrDefault("DETECTOR_MIN_PRICE_CHANGE", defaultFloat(cfg.DetectorConfig.MinPriceChange, 0.03))
	cfg.DetectorConfig.UnderlyingMoveMax = getEnvFloatOrDefault("DETECTOR_UNDERLYING_MOVE_MAX", defaultFloat(cfg.DetectorConfig.UnderlyingMoveMax, 0.0035))
	cfg.DetectorConfig.VolumeRecentMinutes = getEnvIntOrDefault("DETECTOR_VOLUME_RECENT_MINUTES", defaultInt(cfg.DetectorConfig.VolumeRecentMinutes, 2))
	cfg.DetectorConfig.VolumeBaselineMinutes = getEnvIntOrDefault("DETECTOR_VOLUME_BASELINE_MINUTES", defaultInt(cfg.DetectorConfig.VolumeBaselineMinutes, 10))
	cfg.DetectorConfig.VolumeSpikeMultiplier = getEnvFloatOrDefault("DETECTOR_VOLUME_SPIKE_MULTIPLIER", defaultFloat(cfg.DetectorConfig.VolumeSpikeMultiplier, 1.8))
	cfg.DetectorConfig.RetailMedianNotionalMax = getEnvFloatOrDefault("DETECTOR_RETAIL_MEDIAN_NOTIONAL_MAX", defaultFloat(cfg.DetectorConfig.RetailMedianNotionalMax, 40))
	cfg.DetectorConfig.RetailMeanNotionalMax = getEnvFloatOrDefault("DETECTOR_RETAIL_MEAN_NOTIONAL_MAX", defaultFloat(cfg.DetectorConfig.RetailMeanNotionalMax, 60))
	cfg.DetectorConfig.RetailSmallFractionMin = getEnvFloatOrDefault("DETECTOR_RETAIL_SMALL_FRACTION_MIN", defaultFloat(cfg.DetectorConfig.RetailSmallFractionMin, 0.60))
	cfg.DetectorConfig.ImbalanceExtreme = getEnvFloatOrDefault("DETECTOR_IMBALANCE_EXTREME", defaultFloat(cfg.DetectorConfig.ImbalanceExtreme, 0.75))
	cfg.DetectorConfig.RSIPeriod = getEnvIntOrDefault("DETECTOR_RSI_PERIOD", defaultInt(cfg.DetectorConfig.RSIPeriod, 14))
	cfg.DetectorConfig.RSISampleEveryN = getEnvIntOrDefault("DETECTOR_RSI_SAMPLE_EVERY_N", defaultInt(cfg.DetectorConfig.RSISampleEveryN, 3))
	cfg.DetectorConfig.RSIOversold = getEnvFloatOrDefault("DETECTOR_RSI_OVERSOLD", defaultFloat(cfg.DetectorConfig.RSIOversold, 30))
	cfg.DetectorConfig.RSIOverbought = getEnvFloatOrDefault("DETECTOR_RSI_OVERBOUGHT", defaultFloat(cfg.DetectorConfig.RSIOverbought, 70))
	cfg.DetectorConfig.MinScore = getEnvFloatOrDefault("DETECTOR_MIN_SCORE", defaultFloat(cfg.DetectorConfig.MinScore, 55))
	cfg.DetectorConfig.EdgeScale = getEnvFloatOrDefault("DETECTOR_EDGE_SCALE", defaultFloat(cfg.DetectorConfig.EdgeScale, 0.06))

	// Sizing
	cfg.SizingConfig.KellyFraction = getEnvFloatOrDefault("SIZING_KELLY_FRACTION", defaultFloat(cfg.SizingConfig.KellyFraction, 0.25))
	cfg.SizingConfig.AssumedVariance = getEnvFloatOrDefault("SIZING_ASSUMED_VARIANCE", defaultFloat(cfg.SizingConfig.AssumedVariance, 0.5))
	cfg.SizingConfig.MaxBankrollPct = getEnvFloatOrDefault("SIZING_MAX_BANKROLL_PCT", defaultFloat(cfg.SizingConfig.MaxBankrollPct, 0.02))
	cfg.SizingConfig.MaxDepthPct = getEnvFloatOrDefault("SIZING_MAX_DEPTH_PCT", defaultFloat(cfg.SizingConfig.MaxDepthPct, 0.05))
	cfg.SizingConfig.MaxTradeSize = getEnvFloatOrDefault("SIZING_MAX_TRADE_SIZE", defaultFloat(cfg.SizingConfig.MaxTradeSize, 40))
	cfg.SizingConfig.MinTradeSize = getEnvFloatOrDefault("SIZING_MIN_TRADE_SIZE", defaultFloat(cfg.SizingConfig.MinTradeSize, 5))

	// Risk
	cfg.RiskConfig.DailyLossLimitPct = getEnvFloatOrDefault("RISK_DAILY_LOSS_LIMIT_PCT", defaultFloat(cfg.RiskConfig.DailyLossLimitPct, 0.05))
	cfg.RiskConfig.MaxConcurrent = getEnvIntOrDefault("RISK_MAX_CONCURRENT", defaultInt(cfg.RiskConfig.MaxConcurrent, 3))
	cfg.RiskConfig.MaxConsecutiveLosses = getEnvIntOrDefault("RISK_MAX_CONSECUTIVE_LOSSES", defaultInt(cfg.RiskConfig.MaxConsecutiveLosses, 5))
	cfg.RiskConfig.MinWinRate = getEnvFloatOrDefault("RISK_MIN_WIN_RATE", defaultFloat(cfg.RiskConfig.MinWinRate, 0.40))
	cfg.RiskConfig.MinTradesForWinRate = getEnvIntOrDefault("RISK_MIN_TRADES_FOR_WIN_RATE", defaultInt(cfg.RiskConfig.MinTradesForWinRate, 20))
	cfg.RiskConfig.MaxSizeBankrollPct = getEnvFloatOrDefault("RISK_MAX_SIZE_BANKROLL_PCT", defaultFloat(cfg.RiskConfig.MaxSizeBankrollPct, 0.50))

	// Exits
	cfg.ExitConfig.StopLossPct = getEnvFloatOrDefault("EXIT_STOP_LOSS_PCT", defaultFloat(cfg.ExitConfig.StopLossPct, 0.06))
	cfg.ExitConfig.TakeProfitPct = getEnvFloatOrDefault("EXIT_TAKE_PROFIT_PCT", defaultFloat(cfg.ExitConfig.TakeProfitPct, 0.04))
	cfg.ExitConfig.MaxHoldSeconds = getEnvIntOrDefault("EXIT_MAX_HOLD_SECONDS", defaultInt(cfg.ExitConfig.MaxHoldSeconds, 480))
	cfg.ExitConfig.MeanReversionThreshold = getEnvFloatOrDefault("EXIT_MEAN_REVERSION_THRESHOLD", defaultFloat(cfg.ExitConfig.MeanReversionThreshold, 0.04))
	cfg.ExitConfig.RegimeBreakATR = getEnvFloatOrDefault("EXIT_REGIME_BREAK_ATR", defaultFloat(cfg.ExitConfig.RegimeBreakATR, 0.035))
	cfg.ExitConfig.TimePressureSeconds = getEnvIntOrDefault("EXIT_TIME_PRESSURE_SECONDS", defaultInt(cfg.ExitConfig.TimePressureSeconds, 120))
	cfg.ExitConfig.TimePressureMinPnl = getEnvFloatOrDefault("EXIT_TIME_PRESSURE_MIN_PNL", defaultFloat(cfg.ExitConfig.TimePressureMinPnl, 0.01))

	// Journal
	if envSet("JOURNAL_ENABLED") {
		cfg.JournalConfig.Enabled = os.Getenv("JOURNAL_ENABLED") == "true"
	}
	cfg.JournalConfig.Host = getEnvOrDefault("DB_HOST", defaultString(cfg.JournalConfig.Host, "localhost"))
	cfg.JournalConfig.Port = getEnvIntOrDefault("DB_PORT", defaultInt(cfg.JournalConfig.Port, 5432))
	cfg.JournalConfig.User = getEnvOrDefault("DB_USER", defaultString(cfg.JournalConfig.User, "fade_bot"))
	cfg.JournalConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.JournalConfig.Password)
	cfg.JournalConfig.Database = getEnvOrDefault("DB_NAME", defaultString(cfg.JournalConfig.Database, "fade_bot"))
	cfg.JournalConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", defaultString(cfg.JournalConfig.SSLMode, "disable"))

	// Redis
	if envSet("REDIS_ENABLED") {
		cfg.RedisConfig.Enabled = os.Getenv("REDIS_ENABLED") == "true"
	}
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", defaultString(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)

	// Notifications
	if envSet("NOTIFICATIONS_ENABLED") {
		cfg.NotificationConfig.Enabled = os.Getenv("NOTIFICATIONS_ENABLED") == "true"
	}
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)
	if cfg.NotificationConfig.Telegram.BotToken != "" && cfg.NotificationConfig.Telegram.ChatID != "" {
		cfg.NotificationConfig.Telegram.Enabled = true
	}
	cfg.NotificationConfig.Discord.WebhookURL = getEnvOrDefault("DISCORD_WEBHOOK_URL", cfg.NotificationConfig.Discord.WebhookURL)
	if cfg.NotificationConfig.Discord.WebhookURL != "" {
		cfg.NotificationConfig.Discord.Enabled = true
	}

	// Logging
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", defaultString(cfg.LoggingConfig.Level, "info"))
	if envSet("LOG_JSON") {
		cfg.LoggingConfig.JSONFormat = os.Getenv("LOG_JSON") == "true"
	}
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func envSet(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func defaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func defaultFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// GenerateSampleConfig creates a sample configuration file
func GenerateSampleConfig(filename string) error {
	cfg := &Config{}
	applyEnvOverrides(cfg)
	cfg.JournalConfig.Enabled = false
	cfg.RedisConfig.Enabled = false
	cfg.TradingConfig.DryRun = true
	cfg.PolymarketConfig.MockMode = false

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling sample config: %w", err)
	}

	return os.WriteFile(filename, data, 0644)
}
