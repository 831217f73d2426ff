package config

import (
	"os"
	"testing"
)

// saveEnv saves current environment variables for restoration
func saveEnv(t *testing.T, keys []string) map[string]string {
	t.Helper()
	saved := make(map[string]string)
	for _, key := range keys {
		saved[key] = os.Getenv(key)
	}
	return saved
}

// restoreEnv restores previously saved environment variables
func restoreEnv(t *testing.T, saved map[string]string) {
	t.Helper()
	for key, val := range saved {
		if val == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, val)
		}
	}
}

// clearEnv clears environment variables
func clearEnv(t *testing.T, keys []string) {
	t.Helper()
	for _, key := range keys {
		os.Unsetenv(key)
	}
}

var allEnvKeys = []string{
	"DATABASE_URL",
	"MARKET_DATA_BASE_URL",
	"MARKET_DATA_TIMEOUT_SECONDS",
	"ORACLE_BACKEND",
	"ORACLE_MODEL",
	"ORACLE_BASE_URL",
	"ORACLE_MAX_TOKENS",
	"AWS_REGION",
	"BEDROCK_MODEL_ID",
	"ANTHROPIC_VERSION",
	"PRICE_TTL_SECONDS",
	"QUOTE_TIMEOUT_SECONDS",
	"SWEEP_INTERVAL_SECONDS",
	"TRADER_ENABLED",
	"TRADER_INTERVAL_SECONDS",
	"TRADER_MAX_PORTION",
	"TRADER_SYMBOLS",
	"HTTP_ADDR",
	"CORS_ALLOWED_ORIGINS",
	"SECRETS_PASSPHRASE",
}

func TestLoad_Defaults(t *testing.T) {
	saved := saveEnv(t, allEnvKeys)
	defer restoreEnv(t, saved)
	clearEnv(t, allEnvKeys)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.MarketData.BaseURL != "https://api.binance.com" {
		t.Errorf("market data base URL = %q", cfg.MarketData.BaseURL)
	}
	if cfg.Oracle.Backend != "openai" {
		t.Errorf("oracle backend = %q, want openai", cfg.Oracle.Backend)
	}
	if cfg.Engine.PriceTTLSeconds != 60 {
		t.Errorf("price TTL = %d, want 60", cfg.Engine.PriceTTLSeconds)
	}
	if cfg.Trader.IntervalSeconds != 300 {
		t.Errorf("trader interval = %d, want 300", cfg.Trader.IntervalSeconds)
	}
	if cfg.Trader.MaxPortion != 0.2 {
		t.Errorf("max portion = %.2f, want 0.2", cfg.Trader.MaxPortion)
	}
	if !cfg.Trader.Enabled {
		t.Error("trader should default to enabled")
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("http addr = %q, want :8080", cfg.HTTP.Addr)
	}
}

func TestLoad_Overrides(t *testing.T) {
	saved := saveEnv(t, allEnvKeys)
	defer restoreEnv(t, saved)
	clearEnv(t, allEnvKeys)

	os.Setenv("ORACLE_BACKEND", "bedrock")
	os.Setenv("PRICE_TTL_SECONDS", "30")
	os.Setenv("TRADER_ENABLED", "false")
	os.Setenv("TRADER_MAX_PORTION", "0.5")
	os.Setenv("TRADER_SYMBOLS", "BTC,ETH")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Oracle.Backend != "bedrock" {
		t.Errorf("oracle backend = %q, want bedrock", cfg.Oracle.Backend)
	}
	if cfg.Engine.PriceTTLSeconds != 30 {
		t.Errorf("price TTL = %d, want 30", cfg.Engine.PriceTTLSeconds)
	}
	if cfg.Trader.Enabled {
		t.Error("trader should be disabled")
	}
	if cfg.Trader.MaxPortion != 0.5 {
		t.Errorf("max portion = %.2f, want 0.5", cfg.Trader.MaxPortion)
	}
	if cfg.Trader.Symbols != "BTC,ETH" {
		t.Errorf("symbols = %q", cfg.Trader.Symbols)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	saved := saveEnv(t, allEnvKeys)
	defer restoreEnv(t, saved)
	clearEnv(t, allEnvKeys)

	os.Setenv("PRICE_TTL_SECONDS", "not-a-number")
	os.Setenv("TRADER_MAX_PORTION", "7.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.PriceTTLSeconds != 60 {
		t.Errorf("price TTL = %d, want default 60", cfg.Engine.PriceTTLSeconds)
	}
	if cfg.Trader.MaxPortion != 0.2 {
		t.Errorf("max portion = %.2f, want default 0.2", cfg.Trader.MaxPortion)
	}
}

func TestValidate_BadBackend(t *testing.T) {
	saved := saveEnv(t, allEnvKeys)
	defer restoreEnv(t, saved)
	clearEnv(t, allEnvKeys)

	os.Setenv("ORACLE_BACKEND", "gemini")

	if _, err := Load(); err == nil {
		t.Error("expected error for unknown oracle backend")
	}
}
