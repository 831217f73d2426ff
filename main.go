package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"paper-trader/config"
	"paper-trader/engine"
	"paper-trader/internal/api"
	"paper-trader/internal/app"
	"paper-trader/internal/secrets"
	"paper-trader/models"
	"paper-trader/observability"
	"paper-trader/repository"
	"paper-trader/services"
	"paper-trader/trader"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		observability.Info("no .env file found, using environment variables")
	}

	observability.InitLogger(true)
	observability.InitMetrics()

	cfg, err := config.Load()
	if err != nil {
		observability.Fatal("invalid configuration", "error", err)
	}
	if !cfg.HasDatabase() {
		observability.Fatal("DATABASE_URL environment variable is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	crypto, err := secrets.NewCrypto(cfg.Secrets.Passphrase)
	if err != nil {
		observability.Fatal("failed to initialize secrets", "error", err)
	}
	repo, err := repository.NewRepository(ctx, cfg.Database.URL, crypto)
	if err != nil {
		observability.Fatal("failed to connect to database", "error", err)
	}
	defer repo.Close()
	if err := repo.InitSchema(ctx); err != nil {
		observability.Fatal("failed to initialize schema", "error", err)
	}
	observability.Info("connected to database")

	// Market data: exchange client behind the TTL cache
	binance := services.NewBinanceService(cfg.MarketData.BaseURL,
		time.Duration(cfg.MarketData.TimeoutSeconds)*time.Second)
	priceCache := services.NewPriceCache(binance,
		time.Duration(cfg.Engine.PriceTTLSeconds)*time.Second)

	// Matching engine
	store := repository.NewEngineStore(repo)
	eng := engine.New(store, priceCache, engine.LogNotifier{}, engine.Config{
		QuoteTimeout: time.Duration(cfg.Engine.QuoteTimeoutSeconds) * time.Second,
	})

	// Auto trader
	var autoTrader *trader.AutoTrader
	if cfg.Trader.Enabled {
		llmFor, err := newLLMFactory(ctx, cfg)
		if err != nil {
			observability.Fatal("failed to initialize oracle backend", "error", err)
		}
		autoTrader = trader.New(repo, eng, priceCache, llmFor, trader.Config{
			Symbols:    splitSymbols(cfg.Trader.Symbols),
			MaxPortion: cfg.Trader.MaxPortion,
		})
	}

	// Background loops
	application := app.New(cfg, eng, autoTrader, priceCache)
	application.Start(ctx)

	// HTTP server
	handler := api.NewHandler(repo, eng, priceCache, cfg)
	router := api.NewRouter(handler, cfg)
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		observability.Info("starting server", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observability.Fatal("server error", "error", err)
		}
	}()

	<-ctx.Done()
	observability.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Error("server forced to shutdown", "error", err)
	}
	application.Wait()
	observability.Info("stopped")
}

// newLLMFactory builds the per-account model client constructor. With the
// openai backend, accounts may override the model, base URL and API key;
// bedrock uses one shared client authenticated by the AWS SDK chain.
func newLLMFactory(ctx context.Context, cfg *config.Config) (trader.LLMFactory, error) {
	switch cfg.Oracle.Backend {
	case "bedrock":
		bedrock, err := services.NewBedrockService(ctx, cfg.Oracle.AWSRegion,
			cfg.Oracle.BedrockModelID, cfg.Oracle.MaxTokens, cfg.Oracle.AnthropicVersion)
		if err != nil {
			return nil, err
		}
		return func(*models.Account) (services.LLMServiceInterface, error) {
			return bedrock, nil
		}, nil

	case "openai":
		return func(account *models.Account) (services.LLMServiceInterface, error) {
			model := account.OracleModel
			if model == "" {
				model = cfg.Oracle.Model
			}
			baseURL := account.OracleBaseURL
			if baseURL == "" {
				baseURL = cfg.Oracle.BaseURL
			}
			return services.NewOpenAIService(account.OracleAPIKey, baseURL, model, cfg.Oracle.MaxTokens)
		}, nil

	default:
		return nil, fmt.Errorf("unknown oracle backend %q", cfg.Oracle.Backend)
	}
}

func splitSymbols(s string) []string {
	var symbols []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			symbols = append(symbols, part)
		}
	}
	return symbols
}
