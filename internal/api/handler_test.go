package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"paper-trader/config"
	"paper-trader/engine"
	"paper-trader/models"
)

type mockStore struct {
	healthErr error
	accounts  map[uuid.UUID]*models.Account
	positions map[uuid.UUID][]models.Position
	orders    []models.Order
	trades    []models.Trade
	decisions []models.Decision
	created   []*models.Account
	updated   []*models.Account
}

func newMockStore() *mockStore {
	return &mockStore{
		accounts:  make(map[uuid.UUID]*models.Account),
		positions: make(map[uuid.UUID][]models.Position),
	}
}

func (m *mockStore) Health(ctx context.Context) error { return m.healthErr }

func (m *mockStore) CreateAccount(ctx context.Context, a *models.Account) error {
	m.accounts[a.ID] = a
	m.created = append(m.created, a)
	return nil
}

func (m *mockStore) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return m.accounts[id], nil
}

func (m *mockStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var out []models.Account
	for _, a := range m.accounts {
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockStore) UpdateAccount(ctx context.Context, a *models.Account) error {
	m.accounts[a.ID] = a
	m.updated = append(m.updated, a)
	return nil
}

func (m *mockStore) DeactivateAccount(ctx context.Context, id uuid.UUID) error {
	if a := m.accounts[id]; a != nil {
		a.Active = false
	}
	return nil
}

func (m *mockStore) ListPositions(ctx context.Context, accountID uuid.UUID) ([]models.Position, error) {
	return m.positions[accountID], nil
}

func (m *mockStore) ListOrdersByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Order, error) {
	return m.orders, nil
}

func (m *mockStore) ListTradesByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Trade, error) {
	return m.trades, nil
}

func (m *mockStore) ListDecisionsByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Decision, error) {
	return m.decisions, nil
}

type mockEngine struct {
	placeErr  error
	cancelErr error
	placed    []engine.PlaceOrderRequest
}

func (m *mockEngine) PlaceOrder(ctx context.Context, req engine.PlaceOrderRequest) (*models.Order, error) {
	m.placed = append(m.placed, req)
	if m.placeErr != nil {
		return nil, m.placeErr
	}
	return models.NewOrder(req.AccountID, req.Symbol, req.Side, req.Type, req.Quantity, req.LimitPrice), nil
}

func (m *mockEngine) CancelOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if m.cancelErr != nil {
		return nil, m.cancelErr
	}
	o := models.NewOrder(uuid.New(), "BTC", models.OrderSideBuy, models.OrderTypeLimit,
		decimal.NewFromInt(1), decimal.NewFromInt(40000))
	o.Status = models.OrderStatusCancelled
	return o, nil
}

type mockQuotes struct {
	prices map[string]decimal.Decimal
}

func (m *mockQuotes) GetPrice(ctx context.Context, symbol string) (*models.Quote, error) {
	price, ok := m.prices[symbol]
	if !ok {
		return nil, errors.New("no quote for " + symbol)
	}
	return &models.Quote{Symbol: symbol, Price: price, ObservedAt: time.Now()}, nil
}

func testRouter(store *mockStore, eng *mockEngine, quotes *mockQuotes) http.Handler {
	cfg := config.NewTestConfig()
	h := NewHandler(store, eng, quotes, cfg)
	return NewRouter(h, cfg)
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	t.Run("reports ok with database connected", func(t *testing.T) {
		router := testRouter(newMockStore(), &mockEngine{}, &mockQuotes{})

		w := doRequest(t, router, http.MethodGet, "/api/health", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}

		var body map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &body)
		if body["status"] != "ok" {
			t.Errorf("status = %v, want ok", body["status"])
		}
	})

	t.Run("degraded when database is down", func(t *testing.T) {
		store := newMockStore()
		store.healthErr = errors.New("connection refused")
		router := testRouter(store, &mockEngine{}, &mockQuotes{})

		w := doRequest(t, router, http.MethodGet, "/api/health", "")
		var body map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &body)
		if body["status"] != "degraded" {
			t.Errorf("status = %v, want degraded", body["status"])
		}
	})
}

func TestHandleCreateAccount(t *testing.T) {
	t.Run("creates account", func(t *testing.T) {
		store := newMockStore()
		router := testRouter(store, &mockEngine{}, &mockQuotes{})

		w := doRequest(t, router, http.MethodPost, "/api/accounts/",
			`{"name": "alice", "initial_capital": "10000"}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201, body %s", w.Code, w.Body.String())
		}
		if len(store.created) != 1 {
			t.Fatalf("created = %d accounts, want 1", len(store.created))
		}
		if !store.created[0].CurrentCash.Equal(decimal.NewFromInt(10000)) {
			t.Errorf("cash = %s, want 10000", store.created[0].CurrentCash)
		}
	})

	t.Run("rejects missing name", func(t *testing.T) {
		router := testRouter(newMockStore(), &mockEngine{}, &mockQuotes{})
		w := doRequest(t, router, http.MethodPost, "/api/accounts/",
			`{"initial_capital": "10000"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("rejects non-positive capital", func(t *testing.T) {
		router := testRouter(newMockStore(), &mockEngine{}, &mockQuotes{})
		w := doRequest(t, router, http.MethodPost, "/api/accounts/",
			`{"name": "bob", "initial_capital": "-5"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestHandleGetAccount(t *testing.T) {
	store := newMockStore()
	account := models.NewAccount("carol", decimal.NewFromInt(5000))
	store.accounts[account.ID] = account
	router := testRouter(store, &mockEngine{}, &mockQuotes{})

	t.Run("found", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/api/accounts/"+account.ID.String(), "")
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("not found", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/api/accounts/"+uuid.NewString(), "")
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("bad id", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/api/accounts/not-a-uuid", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestHandleUpdateOracle(t *testing.T) {
	store := newMockStore()
	account := models.NewAccount("dave", decimal.NewFromInt(5000))
	account.OracleAPIKey = "sk-old"
	store.accounts[account.ID] = account
	router := testRouter(store, &mockEngine{}, &mockQuotes{})

	// null api key keeps the stored one
	w := doRequest(t, router, http.MethodPut, "/api/accounts/"+account.ID.String()+"/oracle",
		`{"oracle_model": "gpt-4o", "oracle_base_url": "https://api.openai.com/v1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if account.OracleModel != "gpt-4o" || account.OracleAPIKey != "sk-old" {
		t.Errorf("model = %q key = %q, want updated model and untouched key",
			account.OracleModel, account.OracleAPIKey)
	}

	w = doRequest(t, router, http.MethodPut, "/api/accounts/"+account.ID.String()+"/oracle",
		`{"oracle_model": "gpt-4o", "oracle_api_key": "sk-new"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if account.OracleAPIKey != "sk-new" {
		t.Errorf("key = %q, want sk-new", account.OracleAPIKey)
	}
}

func TestHandlePlaceOrder(t *testing.T) {
	accountID := uuid.New()

	t.Run("accepts market buy", func(t *testing.T) {
		eng := &mockEngine{}
		router := testRouter(newMockStore(), eng, &mockQuotes{})

		w := doRequest(t, router, http.MethodPost, "/api/orders/",
			`{"account_id": "`+accountID.String()+`", "symbol": "btc", "side": "buy", "type": "market", "quantity": "0.5"}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201, body %s", w.Code, w.Body.String())
		}
		if len(eng.placed) != 1 {
			t.Fatalf("placed = %d orders, want 1", len(eng.placed))
		}
		req := eng.placed[0]
		if req.Symbol != "BTC" || req.Side != models.OrderSideBuy || req.Type != models.OrderTypeMarket {
			t.Errorf("request not normalized: %+v", req)
		}
	})

	t.Run("rejects unknown side", func(t *testing.T) {
		router := testRouter(newMockStore(), &mockEngine{}, &mockQuotes{})
		w := doRequest(t, router, http.MethodPost, "/api/orders/",
			`{"account_id": "`+accountID.String()+`", "symbol": "BTC", "side": "SHORT", "type": "MARKET", "quantity": "1"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	engineErrors := []struct {
		err  error
		want int
	}{
		{engine.ErrInvalidQuantity, http.StatusBadRequest},
		{engine.ErrAccountNotFound, http.StatusNotFound},
		{engine.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{engine.ErrInsufficientPosition, http.StatusUnprocessableEntity},
		{engine.ErrPriceUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range engineErrors {
		t.Run(tc.err.Error(), func(t *testing.T) {
			router := testRouter(newMockStore(), &mockEngine{placeErr: tc.err}, &mockQuotes{})
			w := doRequest(t, router, http.MethodPost, "/api/orders/",
				`{"account_id": "`+accountID.String()+`", "symbol": "BTC", "side": "BUY", "type": "MARKET", "quantity": "1"}`)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestHandleCancelOrder(t *testing.T) {
	t.Run("cancels pending order", func(t *testing.T) {
		router := testRouter(newMockStore(), &mockEngine{}, &mockQuotes{})
		w := doRequest(t, router, http.MethodDelete, "/api/orders/"+uuid.NewString(), "")
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("conflict on terminal order", func(t *testing.T) {
		router := testRouter(newMockStore(), &mockEngine{cancelErr: engine.ErrInvalidOrderState}, &mockQuotes{})
		w := doRequest(t, router, http.MethodDelete, "/api/orders/"+uuid.NewString(), "")
		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", w.Code)
		}
	})
}

func TestHandleGetOverview(t *testing.T) {
	store := newMockStore()
	account := models.NewAccount("erin", decimal.NewFromInt(1000))
	store.accounts[account.ID] = account

	btc := models.NewPosition(account.ID, "BTC")
	btc.Quantity = decimal.RequireFromString("0.1")
	btc.AvailableQuantity = btc.Quantity
	btc.AvgCost = decimal.NewFromInt(40000)
	sol := models.NewPosition(account.ID, "SOL")
	sol.Quantity = decimal.NewFromInt(10)
	sol.AvailableQuantity = sol.Quantity
	sol.AvgCost = decimal.NewFromInt(100)
	store.positions[account.ID] = []models.Position{*btc, *sol}

	// SOL quote missing: its position is listed without valuation
	quotes := &mockQuotes{prices: map[string]decimal.Decimal{
		"BTC": decimal.NewFromInt(50000),
	}}
	router := testRouter(store, &mockEngine{}, quotes)

	w := doRequest(t, router, http.MethodGet, "/api/accounts/"+account.ID.String()+"/overview", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		Positions []struct {
			Symbol      string  `json:"symbol"`
			MarketValue *string `json:"market_value"`
		} `json:"positions"`
		TotalValue string `json:"total_value"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Positions) != 2 {
		t.Fatalf("positions = %d, want 2", len(body.Positions))
	}
	for _, p := range body.Positions {
		switch p.Symbol {
		case "BTC":
			if p.MarketValue == nil || *p.MarketValue != "5000" {
				t.Errorf("BTC market value = %v, want 5000", p.MarketValue)
			}
		case "SOL":
			if p.MarketValue != nil {
				t.Errorf("SOL market value = %v, want omitted", *p.MarketValue)
			}
		}
	}
	// 1000 cash + 0.1 BTC at 50000
	if body.TotalValue != "6000" {
		t.Errorf("total value = %s, want 6000", body.TotalValue)
	}
}

func TestHandleGetQuote(t *testing.T) {
	quotes := &mockQuotes{prices: map[string]decimal.Decimal{
		"ETH": decimal.NewFromInt(2500),
	}}
	router := testRouter(newMockStore(), &mockEngine{}, quotes)

	t.Run("available", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/api/quotes/eth", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		var quote models.Quote
		json.Unmarshal(w.Body.Bytes(), &quote)
		if quote.Symbol != "ETH" {
			t.Errorf("symbol = %q, want ETH", quote.Symbol)
		}
	})

	t.Run("unavailable", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/api/quotes/XYZ", "")
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", w.Code)
		}
	})
}

func TestCORSPreflight(t *testing.T) {
	router := testRouter(newMockStore(), &mockEngine{}, &mockQuotes{})
	w := doRequest(t, router, http.MethodOptions, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
