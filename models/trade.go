package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade is the immutable record of a fill: exactly one per FILLED order.
type Trade struct {
	ID         uuid.UUID       `json:"id"`
	OrderID    uuid.UUID       `json:"order_id"`
	AccountID  uuid.UUID       `json:"account_id"`
	Symbol     string          `json:"symbol"`
	Side       OrderSide       `json:"side"`
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
	Commission decimal.Decimal `json:"commission"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewTrade records a fill at the given execution price.
func NewTrade(order *Order, price, quantity, commission decimal.Decimal) *Trade {
	return &Trade{
		ID:         uuid.New(),
		OrderID:    order.ID,
		AccountID:  order.AccountID,
		Symbol:     order.Symbol,
		Side:       order.Side,
		Price:      price,
		Quantity:   quantity,
		Commission: commission,
		CreatedAt:  time.Now(),
	}
}

// Notional returns price times quantity, the base for commission.
func (t *Trade) Notional() decimal.Decimal {
	return t.Price.Mul(t.Quantity)
}
