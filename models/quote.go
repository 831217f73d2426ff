package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a perishable last-traded-price observation for a symbol.
type Quote struct {
	Symbol     string          `json:"symbol"`
	Price      decimal.Decimal `json:"price"`
	ObservedAt time.Time       `json:"observed_at"`
}

// Age returns how long ago the quote was observed.
func (q *Quote) Age() time.Duration {
	return time.Since(q.ObservedAt)
}

// FresherThan reports whether the quote is younger than the given window.
func (q *Quote) FresherThan(window time.Duration) bool {
	return q.Age() < window
}
