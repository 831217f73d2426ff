package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Market data source configuration
	MarketData MarketDataConfig

	// Decision oracle (LLM) configuration
	Oracle OracleConfig

	// Matching engine configuration
	Engine EngineConfig

	// Auto-trader configuration
	Trader TraderConfig

	// HTTP configuration
	HTTP HTTPConfig

	// Secrets configuration
	Secrets SecretsConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// MarketDataConfig holds exchange quote API configuration
type MarketDataConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// OracleConfig holds the default LLM backend configuration. Accounts may
// override the model, base URL and API key per account.
type OracleConfig struct {
	Backend          string // openai or bedrock
	Model            string
	BaseURL          string
	MaxTokens        int
	AWSRegion        string
	BedrockModelID   string
	AnthropicVersion string
}

// EngineConfig holds matching engine configuration
type EngineConfig struct {
	PriceTTLSeconds      int
	QuoteTimeoutSeconds  int
	SweepIntervalSeconds int
}

// TraderConfig holds auto-trader configuration
type TraderConfig struct {
	Enabled         bool
	IntervalSeconds int
	MaxPortion      float64
	Symbols         string // comma separated, e.g. "BTC,ETH,SOL"
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Addr               string
	CORSAllowedOrigins string
}

// SecretsConfig holds at-rest encryption configuration
type SecretsConfig struct {
	Passphrase string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		MarketData: MarketDataConfig{
			BaseURL:        getEnvString("MARKET_DATA_BASE_URL", "https://api.binance.com"),
			TimeoutSeconds: getEnvInt("MARKET_DATA_TIMEOUT_SECONDS", 10),
		},
		Oracle: OracleConfig{
			Backend:          getEnvString("ORACLE_BACKEND", "openai"),
			Model:            getEnvString("ORACLE_MODEL", "gpt-4o"),
			BaseURL:          os.Getenv("ORACLE_BASE_URL"),
			MaxTokens:        getEnvInt("ORACLE_MAX_TOKENS", 4096),
			AWSRegion:        getEnvString("AWS_REGION", "us-east-1"),
			BedrockModelID:   getEnvString("BEDROCK_MODEL_ID", "anthropic.claude-3-5-sonnet-20241022-v2:0"),
			AnthropicVersion: getEnvString("ANTHROPIC_VERSION", "bedrock-2023-05-31"),
		},
		Engine: EngineConfig{
			PriceTTLSeconds:      getEnvInt("PRICE_TTL_SECONDS", 60),
			QuoteTimeoutSeconds:  getEnvInt("QUOTE_TIMEOUT_SECONDS", 5),
			SweepIntervalSeconds: getEnvInt("SWEEP_INTERVAL_SECONDS", 15),
		},
		Trader: TraderConfig{
			Enabled:         getEnvBool("TRADER_ENABLED", true),
			IntervalSeconds: getEnvInt("TRADER_INTERVAL_SECONDS", 300),
			MaxPortion:      getEnvFloatRange("TRADER_MAX_PORTION", 0.2, 0.01, 1.0),
			Symbols:         getEnvString("TRADER_SYMBOLS", "BTC,ETH,SOL,BNB,XRP,DOGE"),
		},
		HTTP: HTTPConfig{
			Addr:               getEnvString("HTTP_ADDR", ":8080"),
			CORSAllowedOrigins: getEnvString("CORS_ALLOWED_ORIGINS", "*"),
		},
		Secrets: SecretsConfig{
			Passphrase: os.Getenv("SECRETS_PASSPHRASE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Oracle.Backend != "openai" && c.Oracle.Backend != "bedrock" {
		return fmt.Errorf("ORACLE_BACKEND must be openai or bedrock, got %q", c.Oracle.Backend)
	}
	if c.Engine.PriceTTLSeconds <= 0 {
		return fmt.Errorf("PRICE_TTL_SECONDS must be positive, got %d", c.Engine.PriceTTLSeconds)
	}
	if c.Engine.QuoteTimeoutSeconds <= 0 {
		return fmt.Errorf("QUOTE_TIMEOUT_SECONDS must be positive, got %d", c.Engine.QuoteTimeoutSeconds)
	}
	if c.Engine.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL_SECONDS must be positive, got %d", c.Engine.SweepIntervalSeconds)
	}
	if c.Trader.IntervalSeconds <= 0 {
		return fmt.Errorf("TRADER_INTERVAL_SECONDS must be positive, got %d", c.Trader.IntervalSeconds)
	}
	if c.Trader.MaxPortion <= 0 || c.Trader.MaxPortion > 1 {
		return fmt.Errorf("TRADER_MAX_PORTION must be in (0, 1], got %.2f", c.Trader.MaxPortion)
	}
	return nil
}

// NewTestConfig returns a configuration suitable for tests
func NewTestConfig() *Config {
	return &Config{
		MarketData: MarketDataConfig{
			BaseURL:        "https://api.binance.com",
			TimeoutSeconds: 10,
		},
		Oracle: OracleConfig{
			Backend:   "openai",
			Model:     "gpt-4o",
			MaxTokens: 4096,
		},
		Engine: EngineConfig{
			PriceTTLSeconds:      60,
			QuoteTimeoutSeconds:  5,
			SweepIntervalSeconds: 15,
		},
		Trader: TraderConfig{
			Enabled:         false,
			IntervalSeconds: 300,
			MaxPortion:      0.2,
			Symbols:         "BTC,ETH",
		},
		HTTP: HTTPConfig{
			Addr:               ":8080",
			CORSAllowedOrigins: "*",
		},
	}
}

// HasDatabase returns true if database configuration is available
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatRange(key string, defaultValue, minVal, maxVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed >= minVal && parsed <= maxVal {
			return parsed
		}
	}
	return defaultValue
}
