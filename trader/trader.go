package trader

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"paper-trader/engine"
	"paper-trader/models"
	"paper-trader/observability"
	"paper-trader/services"
)

// SupportedSymbols maps tradable symbols to their display names.
var SupportedSymbols = map[string]string{
	"BTC":  "Bitcoin",
	"ETH":  "Ethereum",
	"SOL":  "Solana",
	"DOGE": "Dogecoin",
	"XRP":  "Ripple",
	"BNB":  "Binance Coin",
}

// quantityPlaces bounds order quantities to a sane crypto precision.
const quantityPlaces = 8

// Store is the persistence the auto trader needs.
type Store interface {
	// ListOracleAccounts returns active accounts with an oracle configured.
	ListOracleAccounts(ctx context.Context) ([]models.Account, error)
	ListPositions(ctx context.Context, accountID uuid.UUID) ([]models.Position, error)
	GetPosition(ctx context.Context, accountID uuid.UUID, symbol string) (*models.Position, error)
	SaveDecision(ctx context.Context, decision *models.Decision) error
	MarkDecisionExecuted(ctx context.Context, decisionID, orderID uuid.UUID) error
}

// OrderPlacer submits orders; satisfied by *engine.Engine.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req engine.PlaceOrderRequest) (*models.Order, error)
}

// PriceSource supplies quotes; satisfied by *services.PriceCache.
type PriceSource interface {
	GetPrice(ctx context.Context, symbol string) (*models.Quote, error)
}

// NewsProvider supplies recent market headlines for prompt enrichment.
// Optional; without one the prompt carries portfolio and price data only.
type NewsProvider interface {
	LatestHeadlines(ctx context.Context, symbols []string) ([]string, error)
}

// LLMFactory builds a model client for one account's oracle settings.
type LLMFactory func(account *models.Account) (services.LLMServiceInterface, error)

// AutoTrader runs periodic decision cycles: snapshot each oracle account's
// portfolio, ask its model for an intent, and turn buy/sell intents into
// MARKET orders.
type AutoTrader struct {
	store      Store
	orders     OrderPlacer
	prices     PriceSource
	llmFor     LLMFactory
	news       NewsProvider
	symbols    []string
	maxPortion float64
}

// Config holds auto trader tuning knobs.
type Config struct {
	// Symbols traded by the oracle; defaults to all supported symbols.
	Symbols []string

	// MaxPortion caps the portion of cash (buy) or position (sell) one
	// decision may commit. Defaults to 0.2.
	MaxPortion float64

	// News, when set, adds recent headlines to the oracle prompt.
	News NewsProvider
}

// New creates an AutoTrader.
func New(store Store, orders OrderPlacer, prices PriceSource, llmFor LLMFactory, cfg Config) *AutoTrader {
	symbols := cfg.Symbols
	if len(symbols) == 0 {
		symbols = []string{"BTC", "ETH", "SOL", "BNB", "XRP", "DOGE"}
	}
	maxPortion := cfg.MaxPortion
	if maxPortion <= 0 {
		maxPortion = 0.2
	}
	return &AutoTrader{
		store:      store,
		orders:     orders,
		prices:     prices,
		llmFor:     llmFor,
		news:       cfg.News,
		symbols:    symbols,
		maxPortion: maxPortion,
	}
}

// RunCycle performs one decision pass over every oracle account. The cycle
// needs a coherent view of the market, so a missing quote for any traded
// symbol aborts the whole pass rather than deciding on partial data.
func (t *AutoTrader) RunCycle(ctx context.Context) error {
	timer := observability.GetMetrics().NewTimer()

	quotes := make(map[string]*models.Quote, len(t.symbols))
	for _, symbol := range t.symbols {
		q, err := t.prices.GetPrice(ctx, symbol)
		if err != nil {
			timer.ObserveOracleCycle("price_unavailable")
			return fmt.Errorf("quote %s: %w", symbol, err)
		}
		quotes[symbol] = q
	}

	accounts, err := t.store.ListOracleAccounts(ctx)
	if err != nil {
		timer.ObserveOracleCycle("store_error")
		return fmt.Errorf("list oracle accounts: %w", err)
	}
	if len(accounts) == 0 {
		timer.ObserveOracleCycle("no_accounts")
		return nil
	}

	// Headlines are shared by every account in the cycle; a failed fetch
	// degrades the prompt rather than aborting the pass.
	var headlines []string
	if t.news != nil {
		headlines, err = t.news.LatestHeadlines(ctx, t.symbols)
		if err != nil {
			observability.Warn("news fetch failed, deciding without headlines", "error", err)
			headlines = nil
		}
	}

	for i := range accounts {
		if ctx.Err() != nil {
			timer.ObserveOracleCycle("cancelled")
			return ctx.Err()
		}
		if err := t.runAccount(ctx, &accounts[i], quotes, headlines); err != nil {
			observability.WithAccount(accounts[i].ID).Warn("decision cycle failed for account",
				"error", err)
		}
	}

	timer.ObserveOracleCycle("ok")
	return nil
}

func (t *AutoTrader) runAccount(ctx context.Context, account *models.Account, quotes map[string]*models.Quote, headlines []string) error {
	positions, err := t.store.ListPositions(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("list positions: %w", err)
	}

	userPrompt, err := t.buildPrompt(account, positions, quotes, headlines)
	if err != nil {
		return fmt.Errorf("build prompt: %w", err)
	}

	llm, err := t.llmFor(account)
	if err != nil {
		return fmt.Errorf("oracle client: %w", err)
	}

	raw, err := llm.InvokeWithPrompt(ctx, systemPrompt, userPrompt)
	if err != nil {
		return fmt.Errorf("invoke oracle: %w", err)
	}

	intent, err := ParseIntent(raw)
	if err != nil {
		return err
	}
	if err := intent.Validate(SupportedSymbols, t.maxPortion); err != nil {
		return fmt.Errorf("invalid intent: %w", err)
	}

	// The decision is recorded before any order attempt so rejected or
	// failed orders still leave an audit trail.
	decision := models.NewDecision(account.ID, models.DecisionOperation(intent.Operation),
		intent.Symbol, decimal.NewFromFloat(intent.TargetPortion), intent.Reason)
	if err := t.store.SaveDecision(ctx, decision); err != nil {
		return fmt.Errorf("save decision: %w", err)
	}
	executed := false
	defer func() {
		observability.GetMetrics().RecordOracleDecision(intent.Operation, executed)
	}()

	logger := observability.WithAccount(account.ID).With(
		"operation", intent.Operation,
		"symbol", intent.Symbol,
		"portion", intent.TargetPortion,
	)
	logger.Info("oracle decision", "reason", intent.Reason)

	if intent.Operation == "hold" {
		return nil
	}

	quantity, err := t.sizeOrder(ctx, account, intent, quotes[intent.Symbol])
	if err != nil {
		return err
	}
	if !quantity.IsPositive() {
		logger.Info("decision sized to zero quantity, skipping")
		return nil
	}

	side := models.OrderSideBuy
	if intent.Operation == "sell" {
		side = models.OrderSideSell
	}

	order, err := t.orders.PlaceOrder(ctx, engine.PlaceOrderRequest{
		AccountID: account.ID,
		Symbol:    intent.Symbol,
		Side:      side,
		Type:      models.OrderTypeMarket,
		Quantity:  quantity,
	})
	if err != nil {
		return fmt.Errorf("place oracle order: %w", err)
	}

	if err := t.store.MarkDecisionExecuted(ctx, decision.ID, order.ID); err != nil {
		return fmt.Errorf("mark decision executed: %w", err)
	}
	executed = true

	logger.Info("oracle order placed",
		"order_id", order.ID.String(),
		"quantity", quantity.String(),
		"status", string(order.Status))
	return nil
}

// sizeOrder converts a validated intent into an order quantity.
func (t *AutoTrader) sizeOrder(ctx context.Context, account *models.Account, intent *Intent, quote *models.Quote) (decimal.Decimal, error) {
	portion := decimal.NewFromFloat(intent.TargetPortion)

	if intent.Operation == "buy" {
		orderValue := account.AvailableCash().Mul(portion)
		return orderValue.DivRound(quote.Price, quantityPlaces+2).Truncate(quantityPlaces), nil
	}

	position, err := t.store.GetPosition(ctx, account.ID, intent.Symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load position: %w", err)
	}
	if position == nil || !position.AvailableQuantity.IsPositive() {
		return decimal.Zero, nil
	}

	quantity := position.AvailableQuantity.Mul(portion).Truncate(quantityPlaces)
	if quantity.GreaterThan(position.AvailableQuantity) {
		quantity = position.AvailableQuantity
	}
	return quantity, nil
}

const systemPrompt = "You are a cryptocurrency trading assistant managing a simulated portfolio. " +
	"Respond with ONLY a JSON object, no prose and no markdown."

// buildPrompt renders the portfolio snapshot and market prices into the user
// prompt for the model.
func (t *AutoTrader) buildPrompt(account *models.Account, positions []models.Position, quotes map[string]*models.Quote, headlines []string) (string, error) {
	type positionView struct {
		Quantity     float64 `json:"quantity"`
		AvgCost      float64 `json:"avg_cost"`
		CurrentValue float64 `json:"current_value"`
	}

	holdings := make(map[string]positionView)
	positionsValue := decimal.Zero
	for _, pos := range positions {
		if !pos.Quantity.IsPositive() {
			continue
		}
		value := pos.CostBasis()
		if q, ok := quotes[pos.Symbol]; ok {
			value = pos.MarketValue(q.Price)
		}
		positionsValue = positionsValue.Add(value)
		holdings[pos.Symbol] = positionView{
			Quantity:     pos.Quantity.InexactFloat64(),
			AvgCost:      pos.AvgCost.InexactFloat64(),
			CurrentValue: value.InexactFloat64(),
		}
	}

	prices := make(map[string]float64, len(quotes))
	for symbol, q := range quotes {
		prices[symbol] = q.Price.InexactFloat64()
	}

	holdingsJSON, err := json.MarshalIndent(holdings, "", "  ")
	if err != nil {
		return "", err
	}
	pricesJSON, err := json.MarshalIndent(prices, "", "  ")
	if err != nil {
		return "", err
	}

	totalAssets := account.CurrentCash.Add(positionsValue)

	var b strings.Builder
	fmt.Fprintf(&b, "Based on the following portfolio and market data, decide on a trading action.\n\n")
	fmt.Fprintf(&b, "Portfolio Data:\n")
	fmt.Fprintf(&b, "- Cash Available: $%s\n", account.AvailableCash().StringFixed(2))
	fmt.Fprintf(&b, "- Frozen Cash: $%s\n", account.FrozenCash.StringFixed(2))
	fmt.Fprintf(&b, "- Total Assets: $%s\n", totalAssets.StringFixed(2))
	fmt.Fprintf(&b, "- Current Positions: %s\n\n", holdingsJSON)
	fmt.Fprintf(&b, "Current Market Prices:\n%s\n\n", pricesJSON)
	if len(headlines) > 0 {
		fmt.Fprintf(&b, "Recent Headlines:\n")
		for _, headline := range headlines {
			fmt.Fprintf(&b, "- %s\n", headline)
		}
		fmt.Fprintf(&b, "\n")
	}
	fmt.Fprintf(&b, "Respond with ONLY a JSON object in this exact format:\n")
	fmt.Fprintf(&b, `{"operation": "buy" or "sell" or "hold", "symbol": "%s", "target_portion_of_balance": 0.1, "reason": "Brief explanation"}`,
		strings.Join(t.symbols, `" or "`))
	fmt.Fprintf(&b, "\n\nRules:\n")
	fmt.Fprintf(&b, "- For \"buy\": target_portion_of_balance is the portion of available cash to spend\n")
	fmt.Fprintf(&b, "- For \"sell\": target_portion_of_balance is the portion of the position to sell\n")
	fmt.Fprintf(&b, "- For \"hold\": no action is taken\n")
	fmt.Fprintf(&b, "- target_portion_of_balance must be greater than 0 and at most %.2f\n", t.maxPortion)
	fmt.Fprintf(&b, "- Only choose symbols listed in the market prices\n")

	return b.String(), nil
}
