package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load should not fail without a config file: %v", err)
	}

	if cfg.TradingConfig.StartingBankroll != 250 {
		t.Errorf("Default starting bankroll should be 250, got %v", cfg.TradingConfig.StartingBankroll)
	}
	if cfg.DetectorConfig.MinScore != 55 {
		t.Errorf("Default min score should be 55, got %v", cfg.DetectorConfig.MinScore)
	}
	if cfg.RiskConfig.MaxConcurrent != 3 {
		t.Errorf("Default max concurrent should be 3, got %v", cfg.RiskConfig.MaxConcurrent)
	}
	if cfg.RegimeConfig.MaxSpreadAbs != 0.15 {
		t.Errorf("Default max spread should be 0.15, got %v", cfg.RegimeConfig.MaxSpreadAbs)
	}
	if cfg.ExitConfig.MaxHoldSeconds != 480 {
		t.Errorf("Default max hold should be 480s, got %v", cfg.ExitConfig.MaxHoldSeconds)
	}
}

func TestEnvOverrides(t *testing.T) {
	os.Setenv("STARTING_BANKROLL", "1000")
	os.Setenv("DETECTOR_MIN_SCORE", "60")
	os.Setenv("TRADING_DRY_RUN", "true")
	defer func() {
		os.Unsetenv("STARTING_BANKROLL")
		os.Unsetenv("DETECTOR_MIN_SCORE")
		os.Unsetenv("TRADING_DRY_RUN")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.TradingConfig.StartingBankroll != 1000 {
		t.Errorf("Env override should win, got %v", cfg.TradingConfig.StartingBankroll)
	}
	if cfg.DetectorConfig.MinScore != 60 {
		t.Errorf("Env override should win, got %v", cfg.DetectorConfig.MinScore)
	}
	if !cfg.TradingConfig.DryRun {
		t.Error("TRADING_DRY_RUN=true should enable dry run")
	}
}

func TestGenerateSampleConfig(t *testing.T) {
	path := t.TempDir() + "/config.json"

	if err := GenerateSampleConfig(path); err != nil {
		t.Fatalf("GenerateSampleConfig failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Sample config file should exist: %v", err)
	}
}
