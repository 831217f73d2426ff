package engine

import (
	"context"

	"github.com/google/uuid"

	"paper-trader/models"
)

// Fill bundles every row touched by one settlement. ExecuteFill commits the
// whole set atomically: either the account, position, order and trade are
// all written, or none are.
type Fill struct {
	Account  *models.Account
	Position *models.Position
	Order    *models.Order
	Trade    *models.Trade
}

// Store is the persistence contract the engine requires. Writes are
// immediately visible to subsequent reads; the three mutation methods are
// each atomic (a transaction in the Postgres implementation).
type Store interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetPosition(ctx context.Context, accountID uuid.UUID, symbol string) (*models.Position, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)

	// ListPendingOrders returns PENDING orders in ascending OrderNo
	// (submission) order.
	ListPendingOrders(ctx context.Context) ([]models.Order, error)

	// CreatePendingOrder persists a new PENDING order together with its
	// reservation: the account's frozen cash (BUY) or the position's
	// reduced available quantity (SELL; position is nil for BUY orders).
	CreatePendingOrder(ctx context.Context, order *models.Order, account *models.Account, position *models.Position) error

	// ExecuteFill commits a settlement atomically.
	ExecuteFill(ctx context.Context, fill *Fill) error

	// CancelOrder persists a cancellation together with the released
	// reservation (position is nil for BUY orders).
	CancelOrder(ctx context.Context, order *models.Order, account *models.Account, position *models.Position) error
}
