package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"polymarket-fade-bot/config"
	"polymarket-fade-bot/internal/alpaca"
	"polymarket-fade-bot/internal/bot"
	"polymarket-fade-bot/internal/events"
	"polymarket-fade-bot/internal/journal"
	"polymarket-fade-bot/internal/logging"
	"polymarket-fade-bot/internal/notification"
	"polymarket-fade-bot/internal/polymarket"
	"polymarket-fade-bot/internal/statestore"
)

func main() {
	generateConfig := flag.Bool("generate-config", false, "write a sample config.json and exit")
	flag.Parse()

	if *generateConfig {
		if err := config.GenerateSampleConfig("config.json"); err != nil {
			log.Fatalf("Failed to generate sample config: %v", err)
		}
		log.Println("Wrote config.json")
		return
	}

	// .env is optional; environment variables win either way
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logging.SetDefault(logging.New(&logging.Config{
		Level:      cfg.LoggingConfig.Level,
		JSONFormat: cfg.LoggingConfig.JSONFormat,
	}))
	logger := logging.WithComponent("main")
	logger.Info().Msg("Structured logging initialized")

	// Initialize event bus with a debug trace of the full event stream
	eventBus := events.NewEventBus()
	eventBus.SubscribeAll(events.LogSubscriber(logging.WithComponent("events")))
	logger.Info().Msg("Event bus initialized")

	// Initialize notification manager
	notifyManager := notification.NewManager()
	if cfg.NotificationConfig.Enabled {
		if cfg.NotificationConfig.Telegram.Enabled {
			notifyManager.AddNotifier(notification.NewTelegramNotifier(notification.TelegramConfig{
				BotToken: cfg.NotificationConfig.Telegram.BotToken,
				ChatID:   cfg.NotificationConfig.Telegram.ChatID,
				Enabled:  cfg.NotificationConfig.Telegram.Enabled,
			}))
			logger.Info().Msg("Telegram notifications enabled")
		}
		if cfg.NotificationConfig.Discord.Enabled {
			notifyManager.AddNotifier(notification.NewDiscordNotifier(notification.DiscordConfig{
				WebhookURL: cfg.NotificationConfig.Discord.WebhookURL,
				Enabled:    cfg.NotificationConfig.Discord.Enabled,
			}))
			logger.Info().Msg("Discord notifications enabled")
		}
	}

	// Initialize the trade journal. A missing database never blocks trading.
	var jrnl journal.Journal = journal.Noop{}
	if cfg.JournalConfig.Enabled {
		pg, err := journal.NewPostgres(context.Background(), cfg.JournalConfig,
			logging.WithComponent("journal"))
		if err != nil {
			logger.Warn().Err(err).Msg("Trade journal unavailable, continuing without persistence")
		} else {
			jrnl = pg
			logger.Info().Msg("Trade journal connected")
		}
	}
	defer jrnl.Close()

	// Initialize the position state store
	store := statestore.New(cfg.RedisConfig, logging.WithComponent("statestore"))
	defer store.Close()

	// Initialize the market gateway
	var gateway polymarket.Gateway
	if cfg.PolymarketConfig.MockMode {
		gateway = polymarket.NewMockGateway()
		logger.Warn().Msg("Mock market gateway enabled, no live data")
	} else {
		gateway = polymarket.NewClient(
			cfg.PolymarketConfig.GammaBaseURL,
			cfg.PolymarketConfig.ClobBaseURL,
			cfg.PolymarketConfig.DataBaseURL,
			cfg.PolymarketConfig.AssetTag,
			logging.WithComponent("polymarket"),
		)
	}

	// Initialize the underlying bar feed
	bars := alpaca.NewClient(
		cfg.AlpacaConfig.APIKey,
		cfg.AlpacaConfig.APISecret,
		cfg.AlpacaConfig.BaseURL,
		cfg.AlpacaConfig.Symbol,
	)

	tradingBot := bot.New(cfg, gateway, bars, jrnl, store, eventBus, notifyManager,
		logging.WithComponent("bot"))

	// Run until interrupted; the bot closes its positions on the way out
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	if err := tradingBot.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Bot exited with error")
		os.Exit(1)
	}
	logger.Info().Msg("Shutdown complete")
}
