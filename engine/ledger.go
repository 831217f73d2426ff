package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"paper-trader/models"
)

// Ledger mutations. These operate on in-memory rows; the caller holds the
// account lock and commits the result through the store in one atomic step.

// reserveCash freezes amount against the account's available cash.
func reserveCash(a *models.Account, amount decimal.Decimal) error {
	if amount.GreaterThan(a.AvailableCash()) {
		return fmt.Errorf("reserve %s with available %s: %w",
			amount.String(), a.AvailableCash().String(), ErrInsufficientFunds)
	}
	a.FrozenCash = a.FrozenCash.Add(amount)
	a.UpdatedAt = time.Now()
	return nil
}

// releaseCash unfreezes amount, clamping at zero so partial releases can
// never drive frozen cash negative.
func releaseCash(a *models.Account, amount decimal.Decimal) {
	a.FrozenCash = a.FrozenCash.Sub(amount)
	if a.FrozenCash.IsNegative() {
		a.FrozenCash = decimal.Zero
	}
	a.UpdatedAt = time.Now()
}

// applyBuy settles a BUY fill: cash decreases by notional plus commission,
// the position grows and its average cost is recomputed as the
// volume-weighted mean of the old lot and the new fill. The caller has
// already released this order's own reservation, so any remaining frozen
// cash backs other open orders and must not fund this fill.
func applyBuy(a *models.Account, p *models.Position, qty, price, commission decimal.Decimal) error {
	cost := qty.Mul(price).Add(commission)
	if cost.GreaterThan(a.AvailableCash()) {
		return fmt.Errorf("fill cost %s with available %s: %w",
			cost.String(), a.AvailableCash().String(), ErrInsufficientFunds)
	}

	newQty := p.Quantity.Add(qty)
	p.AvgCost = p.Quantity.Mul(p.AvgCost).Add(qty.Mul(price)).Div(newQty)
	p.Quantity = newQty
	p.AvailableQuantity = p.AvailableQuantity.Add(qty)
	p.UpdatedAt = time.Now()

	a.CurrentCash = a.CurrentCash.Sub(cost)
	a.UpdatedAt = p.UpdatedAt
	return nil
}

// applySell settles a SELL fill: cash increases by notional minus
// commission, quantity decreases, average cost is unchanged. The sold
// quantity was already removed from AvailableQuantity at placement.
func applySell(a *models.Account, p *models.Position, qty, price, commission decimal.Decimal) error {
	if qty.GreaterThan(p.Quantity) {
		return fmt.Errorf("sell %s of %s held: %w",
			qty.String(), p.Quantity.String(), ErrInsufficientPosition)
	}

	p.Quantity = p.Quantity.Sub(qty)
	if p.Quantity.IsZero() {
		p.AvgCost = decimal.Zero
	}
	p.UpdatedAt = time.Now()

	a.CurrentCash = a.CurrentCash.Add(qty.Mul(price).Sub(commission))
	a.UpdatedAt = p.UpdatedAt
	return nil
}
