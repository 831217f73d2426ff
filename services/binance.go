package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"paper-trader/observability"
)

// BinanceService fetches spot prices from the Binance public REST API. All
// symbols are quoted against USDT, so a lookup for "BTC" hits the BTCUSDT
// ticker.
type BinanceService struct {
	httpClient *http.Client
	baseURL    string
}

// NewBinanceService creates a new BinanceService instance. An empty baseURL
// selects the public endpoint.
func NewBinanceService(baseURL string, timeout time.Duration) *BinanceService {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BinanceService{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// tickerResponse represents the ticker price response from Binance
type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// GetLastPrice returns the last traded price for a symbol, e.g. "BTC".
func (s *BinanceService) GetLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	pair := symbol + "USDT"

	return WithCircuitBreaker(ctx, BreakerBinance, func() (decimal.Decimal, error) {
		var price decimal.Decimal

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			timer := observability.GetMetrics().NewTimer()
			observability.GetMetrics().RecordExternalAPIRequest("binance", "ticker_price")

			params := url.Values{}
			params.Set("symbol", pair)

			req, err := http.NewRequestWithContext(ctx, http.MethodGet,
				s.baseURL+"/api/v3/ticker/price?"+params.Encode(), nil)
			if err != nil {
				return fmt.Errorf("build ticker request: %w", err)
			}

			resp, err := s.httpClient.Do(req)
			if err != nil {
				observability.GetMetrics().RecordExternalAPIError("binance", "ticker_price", "network")
				return fmt.Errorf("fetch ticker for %s: %w", pair, err)
			}
			defer resp.Body.Close()
			timer.ObserveExternalAPI("binance", "ticker_price")

			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				observability.GetMetrics().RecordExternalAPIError("binance", "ticker_price", "http_status")
				return fmt.Errorf("ticker for %s returned %d: %s", pair, resp.StatusCode, string(body))
			}

			var ticker tickerResponse
			if err := json.NewDecoder(resp.Body).Decode(&ticker); err != nil {
				observability.GetMetrics().RecordExternalAPIError("binance", "ticker_price", "decode")
				return fmt.Errorf("decode ticker for %s: %w", pair, err)
			}

			price, err = decimal.NewFromString(ticker.Price)
			if err != nil {
				observability.GetMetrics().RecordExternalAPIError("binance", "ticker_price", "parse")
				return fmt.Errorf("parse price %q for %s: %w", ticker.Price, pair, err)
			}
			if !price.IsPositive() {
				observability.GetMetrics().RecordExternalAPIError("binance", "ticker_price", "parse")
				return fmt.Errorf("non-positive price %q for %s", ticker.Price, pair)
			}
			return nil
		})
		if err != nil {
			return decimal.Zero, err
		}
		return price, nil
	})
}
