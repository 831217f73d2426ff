package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order is a simulated order. It is created PENDING and transitions exactly
// once, to FILLED or CANCELLED. OrderNo is a monotonically increasing
// sequence assigned by the store; pending orders are swept in OrderNo order.
type Order struct {
	ID        uuid.UUID   `json:"id"`
	OrderNo   int64       `json:"order_no"`
	AccountID uuid.UUID   `json:"account_id"`
	Symbol    string      `json:"symbol"`
	Side      OrderSide   `json:"side"`
	Type      OrderType   `json:"type"`

	// LimitPrice is zero for MARKET orders.
	LimitPrice     decimal.Decimal `json:"limit_price"`
	Quantity       decimal.Decimal `json:"quantity"`
	FilledQuantity decimal.Decimal `json:"filled_quantity"`

	// ReservedCash is the exact amount frozen at placement for a BUY order,
	// released in full on fill or cancellation. Zero for SELL orders.
	ReservedCash decimal.Decimal `json:"reserved_cash"`

	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	FilledAt  *time.Time  `json:"filled_at,omitempty"`
}

// NewOrder creates a PENDING order. limitPrice must be zero for MARKET orders.
func NewOrder(accountID uuid.UUID, symbol string, side OrderSide, typ OrderType, quantity, limitPrice decimal.Decimal) *Order {
	now := time.Now()
	return &Order{
		ID:             uuid.New(),
		AccountID:      accountID,
		Symbol:         symbol,
		Side:           side,
		Type:           typ,
		LimitPrice:     limitPrice,
		Quantity:       quantity,
		FilledQuantity: decimal.Zero,
		ReservedCash:   decimal.Zero,
		Status:         OrderStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsTerminal reports whether the order reached a final state.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusFilled || o.Status == OrderStatusCancelled
}
