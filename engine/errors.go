package engine

import "errors"

// Sentinel errors returned by engine operations. Callers match them with
// errors.Is; validation failures never leave any state mutated.
var (
	// ErrInsufficientFunds is returned when a BUY reservation exceeds the
	// account's available (unfrozen) cash.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientPosition is returned when a SELL exceeds the
	// position's available quantity.
	ErrInsufficientPosition = errors.New("insufficient position")

	// ErrInvalidOrderState is returned when mutating an order that already
	// reached a terminal state.
	ErrInvalidOrderState = errors.New("invalid order state")

	// ErrPriceUnavailable is returned when no quote, not even a stale one,
	// can be obtained for a symbol.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrInvalidQuantity is returned for a non-positive order quantity.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInvalidPrice is returned for a LIMIT order without a positive
	// limit price.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrSettlementFailed is returned when the atomic fill commit fails.
	// No part of the fill was applied.
	ErrSettlementFailed = errors.New("settlement failed")

	// ErrAccountNotFound is returned for operations on unknown accounts.
	ErrAccountNotFound = errors.New("account not found")

	// ErrOrderNotFound is returned for operations on unknown orders.
	ErrOrderNotFound = errors.New("order not found")
)
