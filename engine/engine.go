package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"paper-trader/models"
	"paper-trader/observability"
)

// PriceSource supplies the last-traded price for a symbol.
type PriceSource interface {
	GetPrice(ctx context.Context, symbol string) (*models.Quote, error)
}

// Config holds engine tuning knobs.
type Config struct {
	Commission CommissionSchedule

	// QuoteTimeout bounds the price fetch of the synchronous execution
	// attempt inside PlaceOrder. On timeout the order is left PENDING for
	// the next sweep; the caller is never blocked indefinitely.
	QuoteTimeout time.Duration
}

// Engine validates, stores and fills simulated orders against the current
// market quote. All ledger mutations for one account are serialized by a
// keyed lock, and every settlement is committed through the store in a
// single atomic step.
type Engine struct {
	store      Store
	prices     PriceSource
	notifier   Notifier
	commission CommissionSchedule
	quoteTO    time.Duration
	locks      *accountLocks
}

// New creates an Engine. A nil notifier discards events.
func New(store Store, prices PriceSource, notifier Notifier, cfg Config) *Engine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if cfg.Commission.Rate.IsZero() && cfg.Commission.Minimum.IsZero() {
		cfg.Commission = DefaultCommissionSchedule()
	}
	if cfg.QuoteTimeout <= 0 {
		cfg.QuoteTimeout = 5 * time.Second
	}
	return &Engine{
		store:      store,
		prices:     prices,
		notifier:   notifier,
		commission: cfg.Commission,
		quoteTO:    cfg.QuoteTimeout,
		locks:      newAccountLocks(),
	}
}

// PlaceOrderRequest describes a new order. LimitPrice must be positive for
// LIMIT orders and zero for MARKET orders.
type PlaceOrderRequest struct {
	AccountID  uuid.UUID
	Symbol     string
	Side       models.OrderSide
	Type       models.OrderType
	Quantity   decimal.Decimal
	LimitPrice decimal.Decimal
}

// PlaceOrder validates the request, reserves funds or position quantity,
// creates the order PENDING and immediately attempts to execute it, so
// MARKET orders normally return already FILLED. Validation failures leave
// no state behind; a failed or ineligible execution attempt returns the
// order still PENDING.
func (e *Engine) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("quantity %s: %w", req.Quantity.String(), ErrInvalidQuantity)
	}
	switch req.Type {
	case models.OrderTypeLimit:
		if !req.LimitPrice.IsPositive() {
			return nil, fmt.Errorf("limit price %s: %w", req.LimitPrice.String(), ErrInvalidPrice)
		}
	case models.OrderTypeMarket:
		req.LimitPrice = decimal.Zero
	default:
		return nil, fmt.Errorf("order type %q: %w", req.Type, ErrInvalidPrice)
	}

	// The reference price sizes the cash reservation for BUY orders. It is
	// fetched before the account lock so the lock never spans network I/O.
	var refPrice decimal.Decimal
	if req.Side == models.OrderSideBuy {
		if req.Type == models.OrderTypeLimit {
			refPrice = req.LimitPrice
		} else {
			quoteCtx, cancel := context.WithTimeout(ctx, e.quoteTO)
			quote, err := e.prices.GetPrice(quoteCtx, req.Symbol)
			cancel()
			if err != nil {
				observability.GetMetrics().RecordPriceFailure(req.Symbol)
				return nil, fmt.Errorf("cannot size reservation for %s: %w", req.Symbol, ErrPriceUnavailable)
			}
			refPrice = quote.Price
		}
	}

	order, err := e.createPending(ctx, req, refPrice)
	if err != nil {
		return nil, err
	}
	observability.GetMetrics().RecordOrderPlaced(string(req.Side), string(req.Type))

	// Synchronous execution attempt, bounded so a slow quote leaves the
	// order PENDING instead of blocking the caller.
	execCtx, cancel := context.WithTimeout(ctx, e.quoteTO)
	defer cancel()

	filled, execErr := e.TryExecute(execCtx, order)
	if execErr != nil && !errors.Is(execErr, ErrPriceUnavailable) {
		observability.WithOrder(order.ID).Error("execution attempt failed after placement",
			"error", execErr)
	}
	if !filled {
		e.notifyOrder(ctx, EventOrderPending, order, nil)
	}
	return order, nil
}

// createPending performs the reservation and order insert under the account
// lock.
func (e *Engine) createPending(ctx context.Context, req PlaceOrderRequest, refPrice decimal.Decimal) (*models.Order, error) {
	mu := e.locks.get(req.AccountID)
	mu.Lock()
	defer mu.Unlock()

	account, err := e.store.GetAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", req.AccountID, ErrAccountNotFound)
	}

	order := models.NewOrder(req.AccountID, req.Symbol, req.Side, req.Type, req.Quantity, req.LimitPrice)

	var position *models.Position
	switch req.Side {
	case models.OrderSideBuy:
		notional := req.Quantity.Mul(refPrice)
		reserved := notional.Add(e.commission.For(notional))
		if err := reserveCash(account, reserved); err != nil {
			observability.GetMetrics().RecordOrderRejected("insufficient_funds")
			return nil, err
		}
		order.ReservedCash = reserved
	case models.OrderSideSell:
		position, err = e.store.GetPosition(ctx, req.AccountID, req.Symbol)
		if err != nil {
			return nil, err
		}
		if position == nil || position.AvailableQuantity.LessThan(req.Quantity) {
			observability.GetMetrics().RecordOrderRejected("insufficient_position")
			return nil, fmt.Errorf("sell %s %s: %w", req.Quantity.String(), req.Symbol, ErrInsufficientPosition)
		}
		position.AvailableQuantity = position.AvailableQuantity.Sub(req.Quantity)
		position.UpdatedAt = time.Now()
	default:
		return nil, fmt.Errorf("order side %q: %w", req.Side, ErrInvalidQuantity)
	}

	if err := e.store.CreatePendingOrder(ctx, order, account, position); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}
	return order, nil
}

// TryExecute evaluates one PENDING order against the current quote and
// settles it when eligible. It is the single matching entry point, shared by
// the synchronous attempt after placement and the periodic sweep.
//
// An ineligible order is not an error: (false, nil) and nothing changes.
// A missing quote returns ErrPriceUnavailable and the order stays PENDING.
func (e *Engine) TryExecute(ctx context.Context, order *models.Order) (bool, error) {
	if order.Status != models.OrderStatusPending {
		return false, fmt.Errorf("order %s is %s: %w", order.ID, order.Status, ErrInvalidOrderState)
	}

	quote, err := e.prices.GetPrice(ctx, order.Symbol)
	if err != nil {
		observability.GetMetrics().RecordPriceFailure(order.Symbol)
		observability.WithOrder(order.ID).Warn("quote unavailable, leaving order pending",
			"symbol", order.Symbol, "error", err)
		return false, fmt.Errorf("quote %s: %w", order.Symbol, ErrPriceUnavailable)
	}

	if !eligible(order, quote.Price) {
		return false, nil
	}

	// Fills happen at the current quote even for LIMIT orders, passing any
	// price improvement to the trader. This is a deliberate simplification
	// of a single-counterparty simulator.
	return e.settle(ctx, order, quote.Price)
}

func eligible(order *models.Order, price decimal.Decimal) bool {
	if order.Type == models.OrderTypeMarket {
		return true
	}
	if order.Side == models.OrderSideBuy {
		return order.LimitPrice.GreaterThanOrEqual(price)
	}
	return order.LimitPrice.LessThanOrEqual(price)
}

// settle commits the fill under the account lock. The rows loaded here are
// private copies: an error before ExecuteFill abandons them without any
// partial write.
func (e *Engine) settle(ctx context.Context, order *models.Order, price decimal.Decimal) (bool, error) {
	mu := e.locks.get(order.AccountID)
	mu.Lock()
	defer mu.Unlock()

	fresh, err := e.store.GetOrder(ctx, order.ID)
	if err != nil {
		return false, err
	}
	if fresh == nil {
		return false, fmt.Errorf("order %s: %w", order.ID, ErrOrderNotFound)
	}
	if fresh.Status != models.OrderStatusPending {
		// A concurrent attempt won the race; this one is a no-op.
		return false, nil
	}

	account, err := e.store.GetAccount(ctx, fresh.AccountID)
	if err != nil {
		return false, err
	}
	if account == nil {
		return false, fmt.Errorf("account %s: %w", fresh.AccountID, ErrAccountNotFound)
	}

	position, err := e.store.GetPosition(ctx, fresh.AccountID, fresh.Symbol)
	if err != nil {
		return false, err
	}

	qty := fresh.Quantity
	commission := e.commission.For(qty.Mul(price))

	switch fresh.Side {
	case models.OrderSideBuy:
		if position == nil {
			position = models.NewPosition(fresh.AccountID, fresh.Symbol)
		}
		releaseCash(account, fresh.ReservedCash)
		if err := applyBuy(account, position, qty, price, commission); err != nil {
			// Price moved past the reservation (swept MARKET order); the
			// order stays PENDING for a later attempt.
			return false, err
		}
	case models.OrderSideSell:
		if position == nil {
			return false, fmt.Errorf("no position in %s: %w", fresh.Symbol, ErrInsufficientPosition)
		}
		if err := applySell(account, position, qty, price, commission); err != nil {
			return false, err
		}
	}

	now := time.Now()
	fresh.Status = models.OrderStatusFilled
	fresh.FilledQuantity = qty
	fresh.FilledAt = &now
	fresh.UpdatedAt = now

	trade := models.NewTrade(fresh, price, qty, commission)

	fill := &Fill{Account: account, Position: position, Order: fresh, Trade: trade}
	if err := e.store.ExecuteFill(ctx, fill); err != nil {
		observability.GetMetrics().RecordSettlementError()
		return false, fmt.Errorf("commit fill for order %s: %v: %w", fresh.ID, err, ErrSettlementFailed)
	}

	observability.GetMetrics().RecordOrderFilled(string(fresh.Side), string(fresh.Type))
	*order = *fresh
	e.notifier.Notify(ctx, Event{
		Type:    EventOrderFilled,
		Order:   fresh,
		Account: account.Summary(),
		Trade:   trade,
	})
	return true, nil
}

// CancelOrder cancels a PENDING order and restores its reservation exactly.
// Terminal orders fail with ErrInvalidOrderState and nothing changes.
func (e *Engine) CancelOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	known, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if known == nil {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrOrderNotFound)
	}

	mu := e.locks.get(known.AccountID)
	mu.Lock()
	defer mu.Unlock()

	order, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.Status != models.OrderStatusPending {
		return nil, fmt.Errorf("cancel order %s: %w", orderID, ErrInvalidOrderState)
	}

	account, err := e.store.GetAccount(ctx, order.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", order.AccountID, ErrAccountNotFound)
	}

	var position *models.Position
	switch order.Side {
	case models.OrderSideBuy:
		releaseCash(account, order.ReservedCash)
	case models.OrderSideSell:
		position, err = e.store.GetPosition(ctx, order.AccountID, order.Symbol)
		if err != nil {
			return nil, err
		}
		if position != nil {
			position.AvailableQuantity = position.AvailableQuantity.Add(order.Quantity)
			if position.AvailableQuantity.GreaterThan(position.Quantity) {
				position.AvailableQuantity = position.Quantity
			}
			position.UpdatedAt = time.Now()
		}
	}

	order.Status = models.OrderStatusCancelled
	order.UpdatedAt = time.Now()

	if err := e.store.CancelOrder(ctx, order, account, position); err != nil {
		return nil, fmt.Errorf("persist cancellation: %w", err)
	}

	observability.GetMetrics().RecordOrderCancelled(string(order.Side))
	e.notifyOrder(ctx, EventOrderCancelled, order, account)
	return order, nil
}

// SweepStats summarizes one pass over the pending orders.
type SweepStats struct {
	Checked int
	Filled  int
}

// SweepPending re-evaluates all PENDING orders in submission order. Quote
// failures skip the affected order; they are already logged and counted by
// TryExecute.
func (e *Engine) SweepPending(ctx context.Context) (SweepStats, error) {
	timer := observability.GetMetrics().NewTimer()

	orders, err := e.store.ListPendingOrders(ctx)
	if err != nil {
		return SweepStats{}, fmt.Errorf("list pending orders: %w", err)
	}

	var stats SweepStats
	for i := range orders {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		stats.Checked++

		filled, err := e.TryExecute(ctx, &orders[i])
		if err != nil {
			if errors.Is(err, ErrPriceUnavailable) || errors.Is(err, ErrInsufficientFunds) {
				continue
			}
			observability.WithOrder(orders[i].ID).Warn("sweep execution failed", "error", err)
			continue
		}
		if filled {
			stats.Filled++
		}
	}

	timer.ObserveSweep(stats.Checked, stats.Filled)
	return stats, nil
}

// notifyOrder emits an event with a fresh account summary when one was not
// already at hand.
func (e *Engine) notifyOrder(ctx context.Context, typ EventType, order *models.Order, account *models.Account) {
	if account == nil {
		var err error
		account, err = e.store.GetAccount(ctx, order.AccountID)
		if err != nil || account == nil {
			return
		}
	}
	e.notifier.Notify(ctx, Event{Type: typ, Order: order, Account: account.Summary()})
}
