package engine

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"paper-trader/models"
)

// memStore is an in-memory Store. Reads hand out copies, so abandoned
// settlement attempts leave no trace, matching the transactional Postgres
// implementation.
type memStore struct {
	mu        sync.Mutex
	accounts  map[uuid.UUID]models.Account
	positions map[posKey]models.Position
	orders    map[uuid.UUID]models.Order
	nextNo    int64

	fillErr error // injected failure for ExecuteFill
}

type posKey struct {
	accountID uuid.UUID
	symbol    string
}

func newMemStore() *memStore {
	return &memStore{
		accounts:  make(map[uuid.UUID]models.Account),
		positions: make(map[posKey]models.Position),
		orders:    make(map[uuid.UUID]models.Order),
	}
}

func (s *memStore) putAccount(a *models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = *a
}

func (s *memStore) putPosition(p *models.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[posKey{p.AccountID, p.Symbol}] = *p
}

func (s *memStore) GetAccount(_ context.Context, id uuid.UUID) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *memStore) GetPosition(_ context.Context, accountID uuid.UUID, symbol string) (*models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[posKey{accountID, symbol}]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *memStore) GetOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (s *memStore) ListPendingOrders(context.Context) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.Status == models.OrderStatusPending {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNo < out[j].OrderNo })
	return out, nil
}

func (s *memStore) CreatePendingOrder(_ context.Context, order *models.Order, account *models.Account, position *models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextNo++
	order.OrderNo = s.nextNo
	s.orders[order.ID] = *order
	s.accounts[account.ID] = *account
	if position != nil {
		s.positions[posKey{position.AccountID, position.Symbol}] = *position
	}
	return nil
}

func (s *memStore) ExecuteFill(_ context.Context, fill *Fill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fillErr != nil {
		return s.fillErr
	}
	s.accounts[fill.Account.ID] = *fill.Account
	s.positions[posKey{fill.Position.AccountID, fill.Position.Symbol}] = *fill.Position
	s.orders[fill.Order.ID] = *fill.Order
	return nil
}

func (s *memStore) CancelOrder(_ context.Context, order *models.Order, account *models.Account, position *models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = *order
	s.accounts[account.ID] = *account
	if position != nil {
		s.positions[posKey{position.AccountID, position.Symbol}] = *position
	}
	return nil
}

var errNoQuote = errors.New("no quote")

// fakePrices serves fixed prices and counts lookups. failFrom, when
// positive, makes every lookup from that call number on fail.
type fakePrices struct {
	mu       sync.Mutex
	prices   map[string]decimal.Decimal
	calls    int
	failFrom int
}

func newFakePrices(prices map[string]string) *fakePrices {
	f := &fakePrices{prices: make(map[string]decimal.Decimal)}
	for sym, p := range prices {
		f.prices[sym] = decimal.RequireFromString(p)
	}
	return f
}

func (f *fakePrices) set(symbol, price string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = decimal.RequireFromString(price)
}

func (f *fakePrices) unset(symbol string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.prices, symbol)
}

func (f *fakePrices) failFromCall(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFrom = n
}

func (f *fakePrices) GetPrice(_ context.Context, symbol string) (*models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failFrom > 0 && f.calls >= f.failFrom {
		return nil, errNoQuote
	}
	p, ok := f.prices[symbol]
	if !ok {
		return nil, errNoQuote
	}
	return &models.Quote{Symbol: symbol, Price: p}, nil
}

// captureNotifier records every event.
type captureNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *captureNotifier) Notify(_ context.Context, ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *captureNotifier) byType(typ EventType) []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Event
	for _, ev := range n.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func newTestAccount(cash string) *models.Account {
	return models.NewAccount("test", decimal.RequireFromString(cash))
}

func newTestEngine(store Store, prices PriceSource, notifier Notifier) *Engine {
	return New(store, prices, notifier, Config{})
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
