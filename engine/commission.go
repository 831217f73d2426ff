package engine

import "github.com/shopspring/decimal"

// CommissionSchedule is a proportional commission with a fixed floor.
type CommissionSchedule struct {
	Rate    decimal.Decimal
	Minimum decimal.Decimal
}

// DefaultCommissionSchedule charges 0.1% of notional with a 0.10 minimum.
func DefaultCommissionSchedule() CommissionSchedule {
	return CommissionSchedule{
		Rate:    decimal.NewFromFloat(0.001),
		Minimum: decimal.NewFromFloat(0.10),
	}
}

// For returns max(notional*rate, minimum).
func (s CommissionSchedule) For(notional decimal.Decimal) decimal.Decimal {
	c := notional.Mul(s.Rate)
	if c.LessThan(s.Minimum) {
		return s.Minimum
	}
	return c
}
