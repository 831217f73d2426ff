package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"paper-trader/config"
	"paper-trader/engine"
	"paper-trader/models"
	"paper-trader/services"
)

// AccountStore defines the repository operations needed by the API
type AccountStore interface {
	Health(ctx context.Context) error
	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	UpdateAccount(ctx context.Context, a *models.Account) error
	DeactivateAccount(ctx context.Context, id uuid.UUID) error
	ListPositions(ctx context.Context, accountID uuid.UUID) ([]models.Position, error)
	ListOrdersByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Order, error)
	ListTradesByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Trade, error)
	ListDecisionsByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Decision, error)
}

// OrderEngine defines the matching engine operations needed by the API
type OrderEngine interface {
	PlaceOrder(ctx context.Context, req engine.PlaceOrderRequest) (*models.Order, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

// QuoteSource serves last-traded prices, typically through the cache
type QuoteSource interface {
	GetPrice(ctx context.Context, symbol string) (*models.Quote, error)
}

// Handler handles HTTP API requests
type Handler struct {
	store  AccountStore
	engine OrderEngine
	quotes QuoteSource
	cfg    *config.Config
}

// NewHandler creates a new Handler
func NewHandler(store AccountStore, eng OrderEngine, quotes QuoteSource, cfg *config.Config) *Handler {
	return &Handler{store: store, engine: eng, quotes: quotes, cfg: cfg}
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
		"services": map[string]string{
			"database": "unknown",
		},
	}

	if err := h.store.Health(r.Context()); err == nil {
		status["services"].(map[string]string)["database"] = "connected"
	} else {
		status["services"].(map[string]string)["database"] = "disconnected"
		status["status"] = "degraded"
	}

	cbStatus := services.GetGlobalRegistry().Status()
	status["circuit_breakers"] = cbStatus

	for _, cb := range cbStatus {
		if cb.State == "open" {
			status["status"] = "degraded"
			break
		}
	}

	h.jsonResponse(w, status)
}

type createAccountRequest struct {
	Name           string `json:"name"`
	InitialCapital string `json:"initial_capital"`
	OracleModel    string `json:"oracle_model"`
	OracleBaseURL  string `json:"oracle_base_url"`
	OracleAPIKey   string `json:"oracle_api_key"`
}

// HandleCreateAccount opens a new simulated account
func (h *Handler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.jsonError(w, "name is required", http.StatusBadRequest)
		return
	}
	capital, err := decimal.NewFromString(req.InitialCapital)
	if err != nil || !capital.IsPositive() {
		h.jsonError(w, "initial_capital must be a positive number", http.StatusBadRequest)
		return
	}

	account := models.NewAccount(strings.TrimSpace(req.Name), capital)
	account.OracleModel = req.OracleModel
	account.OracleBaseURL = req.OracleBaseURL
	account.OracleAPIKey = req.OracleAPIKey

	if err := h.store.CreateAccount(r.Context(), account); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponseStatus(w, account, http.StatusCreated)
}

// HandleListAccounts returns every account
func (h *Handler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.store.ListAccounts(r.Context())
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonResponse(w, accounts)
}

// HandleGetAccount returns a single account
func (h *Handler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, ok := h.loadAccount(w, r)
	if !ok {
		return
	}
	h.jsonResponse(w, account)
}

type updateOracleRequest struct {
	OracleModel   string  `json:"oracle_model"`
	OracleBaseURL string  `json:"oracle_base_url"`
	OracleAPIKey  *string `json:"oracle_api_key"`
}

// HandleUpdateOracle updates an account's AI trading configuration. A null
// oracle_api_key leaves the stored key untouched.
func (h *Handler) HandleUpdateOracle(w http.ResponseWriter, r *http.Request) {
	account, ok := h.loadAccount(w, r)
	if !ok {
		return
	}

	var req updateOracleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	account.OracleModel = req.OracleModel
	account.OracleBaseURL = req.OracleBaseURL
	if req.OracleAPIKey != nil {
		account.OracleAPIKey = *req.OracleAPIKey
	}

	if err := h.store.UpdateAccount(r.Context(), account); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonResponse(w, account)
}

// HandleDeactivateAccount soft-deletes an account
func (h *Handler) HandleDeactivateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseIDParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.store.DeactivateAccount(r.Context(), id); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonResponse(w, map[string]string{"status": "deactivated"})
}

type positionView struct {
	models.Position
	LastPrice    *decimal.Decimal `json:"last_price,omitempty"`
	MarketValue  *decimal.Decimal `json:"market_value,omitempty"`
	UnrealizedPL *decimal.Decimal `json:"unrealized_pl,omitempty"`
}

// HandleGetOverview returns an account's balances and holdings valued at
// current quotes. Positions whose quote is unavailable are returned without
// valuation rather than failing the whole overview.
func (h *Handler) HandleGetOverview(w http.ResponseWriter, r *http.Request) {
	account, ok := h.loadAccount(w, r)
	if !ok {
		return
	}

	positions, err := h.store.ListPositions(r.Context(), account.ID)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	views := make([]positionView, 0, len(positions))
	totalValue := account.CurrentCash
	for _, p := range positions {
		view := positionView{Position: p}
		if quote, err := h.quotes.GetPrice(r.Context(), p.Symbol); err == nil {
			value := p.MarketValue(quote.Price)
			pl := p.UnrealizedPL(quote.Price)
			view.LastPrice = &quote.Price
			view.MarketValue = &value
			view.UnrealizedPL = &pl
			totalValue = totalValue.Add(value)
		}
		views = append(views, view)
	}

	h.jsonResponse(w, map[string]interface{}{
		"account":     account.Summary(),
		"positions":   views,
		"total_value": totalValue,
	})
}

// HandleGetPositions returns an account's open positions
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseIDParam(w, r, "id")
	if !ok {
		return
	}
	positions, err := h.store.ListPositions(r.Context(), id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonResponse(w, positions)
}

// HandleGetOrders returns an account's recent orders
func (h *Handler) HandleGetOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseIDParam(w, r, "id")
	if !ok {
		return
	}
	limit := h.ParseLimitParam(r, 50)
	orders, err := h.store.ListOrdersByAccount(r.Context(), id, limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonResponse(w, orders)
}

// HandleGetTrades returns an account's recent executions
func (h *Handler) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseIDParam(w, r, "id")
	if !ok {
		return
	}
	limit := h.ParseLimitParam(r, 50)
	trades, err := h.store.ListTradesByAccount(r.Context(), id, limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonResponse(w, trades)
}

// HandleGetDecisions returns an account's recent oracle decisions
func (h *Handler) HandleGetDecisions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseIDParam(w, r, "id")
	if !ok {
		return
	}
	limit := h.ParseLimitParam(r, 50)
	decisions, err := h.store.ListDecisionsByAccount(r.Context(), id, limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonResponse(w, decisions)
}

type placeOrderRequest struct {
	AccountID  string `json:"account_id"`
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	Type       string `json:"type"`
	Quantity   string `json:"quantity"`
	LimitPrice string `json:"limit_price"`
}

// HandlePlaceOrder submits a new order to the matching engine
func (h *Handler) HandlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		h.jsonError(w, "invalid account_id", http.StatusBadRequest)
		return
	}

	side := models.OrderSide(strings.ToUpper(req.Side))
	if side != models.OrderSideBuy && side != models.OrderSideSell {
		h.jsonError(w, "side must be BUY or SELL", http.StatusBadRequest)
		return
	}
	typ := models.OrderType(strings.ToUpper(req.Type))
	if typ != models.OrderTypeMarket && typ != models.OrderTypeLimit {
		h.jsonError(w, "type must be MARKET or LIMIT", http.StatusBadRequest)
		return
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		h.jsonError(w, "quantity must be a number", http.StatusBadRequest)
		return
	}
	limitPrice := decimal.Zero
	if req.LimitPrice != "" {
		limitPrice, err = decimal.NewFromString(req.LimitPrice)
		if err != nil {
			h.jsonError(w, "limit_price must be a number", http.StatusBadRequest)
			return
		}
	}

	order, err := h.engine.PlaceOrder(r.Context(), engine.PlaceOrderRequest{
		AccountID:  accountID,
		Symbol:     strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Side:       side,
		Type:       typ,
		Quantity:   quantity,
		LimitPrice: limitPrice,
	})
	if err != nil {
		h.engineError(w, err)
		return
	}

	h.jsonResponseStatus(w, order, http.StatusCreated)
}

// HandleCancelOrder cancels a pending order and releases its reservation
func (h *Handler) HandleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseIDParam(w, r, "id")
	if !ok {
		return
	}
	order, err := h.engine.CancelOrder(r.Context(), id)
	if err != nil {
		h.engineError(w, err)
		return
	}
	h.jsonResponse(w, order)
}

// HandleGetQuote returns the current (possibly cached) price for a symbol
func (h *Handler) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	if symbol == "" {
		h.jsonError(w, "symbol is required", http.StatusBadRequest)
		return
	}
	quote, err := h.quotes.GetPrice(r.Context(), symbol)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	h.jsonResponse(w, quote)
}

// engineError maps engine sentinel errors to HTTP status codes
func (h *Handler) engineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidQuantity), errors.Is(err, engine.ErrInvalidPrice):
		h.jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, engine.ErrAccountNotFound), errors.Is(err, engine.ErrOrderNotFound):
		h.jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrInsufficientFunds), errors.Is(err, engine.ErrInsufficientPosition):
		h.jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, engine.ErrInvalidOrderState):
		h.jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, engine.ErrPriceUnavailable):
		h.jsonError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

// loadAccount parses the id URL param and fetches the account, writing the
// error response itself when either step fails
func (h *Handler) loadAccount(w http.ResponseWriter, r *http.Request) (*models.Account, bool) {
	id, ok := h.parseIDParam(w, r, "id")
	if !ok {
		return nil, false
	}
	account, err := h.store.GetAccount(r.Context(), id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	if account == nil {
		h.jsonError(w, "account not found", http.StatusNotFound)
		return nil, false
	}
	return account, true
}

func (h *Handler) parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		h.jsonError(w, "invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// ParseLimitParam parses the limit query parameter with a default
func (h *Handler) ParseLimitParam(r *http.Request, defaultLimit int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			return l
		}
	}
	return defaultLimit
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonResponseStatus(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
