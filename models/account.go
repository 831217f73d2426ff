package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account represents a simulated trading account. Cash is split into
// CurrentCash and FrozenCash; the frozen portion backs open BUY orders and
// is unavailable for new reservations.
type Account struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
	CurrentCash    decimal.Decimal `json:"current_cash"`
	FrozenCash     decimal.Decimal `json:"frozen_cash"`

	// Oracle configuration for AI-driven accounts. APIKey is stored
	// encrypted at rest and decrypted by the repository on read.
	OracleModel   string `json:"oracle_model,omitempty"`
	OracleBaseURL string `json:"oracle_base_url,omitempty"`
	OracleAPIKey  string `json:"-"`

	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAccount creates an account funded with the given initial capital.
func NewAccount(name string, initialCapital decimal.Decimal) *Account {
	now := time.Now()
	return &Account{
		ID:             uuid.New(),
		Name:           name,
		InitialCapital: initialCapital,
		CurrentCash:    initialCapital,
		FrozenCash:     decimal.Zero,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AvailableCash returns the cash not reserved against open BUY orders.
func (a *Account) AvailableCash() decimal.Decimal {
	return a.CurrentCash.Sub(a.FrozenCash)
}

// HasOracle reports whether the account is configured for AI-driven trading.
func (a *Account) HasOracle() bool {
	return a.OracleModel != "" && a.OracleAPIKey != ""
}

// AccountSummary is the balance snapshot attached to engine events and
// API responses.
type AccountSummary struct {
	AccountID     uuid.UUID       `json:"account_id"`
	CurrentCash   decimal.Decimal `json:"current_cash"`
	FrozenCash    decimal.Decimal `json:"frozen_cash"`
	AvailableCash decimal.Decimal `json:"available_cash"`
}

// Summary returns the account's balance snapshot.
func (a *Account) Summary() AccountSummary {
	return AccountSummary{
		AccountID:     a.ID,
		CurrentCash:   a.CurrentCash,
		FrozenCash:    a.FrozenCash,
		AvailableCash: a.AvailableCash(),
	}
}
