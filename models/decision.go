package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DecisionOperation string

const (
	DecisionBuy  DecisionOperation = "buy"
	DecisionSell DecisionOperation = "sell"
	DecisionHold DecisionOperation = "hold"
)

// Decision is the audit record of one oracle intent. It is persisted with
// Executed=false before any order is attempted, so failed attempts remain
// visible.
type Decision struct {
	ID            uuid.UUID         `json:"id"`
	AccountID     uuid.UUID         `json:"account_id"`
	Operation     DecisionOperation `json:"operation"`
	Symbol        string            `json:"symbol,omitempty"`
	TargetPortion decimal.Decimal   `json:"target_portion"`
	Reason        string            `json:"reason"`
	Executed      bool              `json:"executed"`
	OrderID       *uuid.UUID        `json:"order_id,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// NewDecision records an oracle intent for an account.
func NewDecision(accountID uuid.UUID, op DecisionOperation, symbol string, portion decimal.Decimal, reason string) *Decision {
	return &Decision{
		ID:            uuid.New(),
		AccountID:     accountID,
		Operation:     op,
		Symbol:        symbol,
		TargetPortion: portion,
		Reason:        reason,
		CreatedAt:     time.Now(),
	}
}
