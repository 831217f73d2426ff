package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Position tracks holdings of one symbol in one account. AvailableQuantity
// is Quantity minus the amount committed to open SELL orders; it never
// exceeds Quantity. AvgCost is the volume-weighted average entry price,
// recomputed on BUY fills and untouched by SELLs.
type Position struct {
	ID                uuid.UUID       `json:"id"`
	AccountID         uuid.UUID       `json:"account_id"`
	Symbol            string          `json:"symbol"`
	Quantity          decimal.Decimal `json:"quantity"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	AvgCost           decimal.Decimal `json:"avg_cost"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// NewPosition creates an empty position for an account/symbol pair.
func NewPosition(accountID uuid.UUID, symbol string) *Position {
	now := time.Now()
	return &Position{
		ID:                uuid.New(),
		AccountID:         accountID,
		Symbol:            symbol,
		Quantity:          decimal.Zero,
		AvailableQuantity: decimal.Zero,
		AvgCost:           decimal.Zero,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// CostBasis returns quantity times average cost.
func (p *Position) CostBasis() decimal.Decimal {
	return p.Quantity.Mul(p.AvgCost)
}

// MarketValue returns the position value at the given price.
func (p *Position) MarketValue(price decimal.Decimal) decimal.Decimal {
	return p.Quantity.Mul(price)
}

// UnrealizedPL returns the open profit or loss at the given price.
func (p *Position) UnrealizedPL(price decimal.Decimal) decimal.Decimal {
	if p.Quantity.IsZero() {
		return decimal.Zero
	}
	return price.Sub(p.AvgCost).Mul(p.Quantity)
}
