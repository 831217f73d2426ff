package engine

import (
	"context"

	"paper-trader/models"
	"paper-trader/observability"
)

type EventType string

const (
	EventOrderFilled    EventType = "order_filled"
	EventOrderPending   EventType = "order_pending"
	EventOrderCancelled EventType = "order_cancelled"
)

// Event carries the updated order, the account's balance snapshot and, on a
// fill, the new trade. Delivery to listeners is best-effort.
type Event struct {
	Type    EventType             `json:"type"`
	Order   *models.Order         `json:"order"`
	Account models.AccountSummary `json:"account"`
	Trade   *models.Trade         `json:"trade,omitempty"`
}

// Notifier receives engine events. Implementations must not block the
// caller; the engine treats Notify as fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// LogNotifier writes events to the structured log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, ev Event) {
	logger := observability.WithOrder(ev.Order.ID).With(
		"event", string(ev.Type),
		"account_id", ev.Account.AccountID,
		"symbol", ev.Order.Symbol,
		"side", string(ev.Order.Side),
		"status", string(ev.Order.Status),
	)
	if ev.Trade != nil {
		logger = logger.With(
			"price", ev.Trade.Price.String(),
			"quantity", ev.Trade.Quantity.String(),
			"commission", ev.Trade.Commission.String(),
		)
	}
	logger.Info("order event")
}

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) {}
