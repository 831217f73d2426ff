package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"paper-trader/models"
)

// CreateTrade inserts an execution record
func (r *Repository) CreateTrade(ctx context.Context, t *models.Trade) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO trades (id, order_id, account_id, symbol, side, price, quantity, commission, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.ID, t.OrderID, t.AccountID, t.Symbol, t.Side, t.Price, t.Quantity, t.Commission, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	return nil
}

// ListTradesByAccount returns an account's most recent trades
func (r *Repository) ListTradesByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Trade, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, account_id, symbol, side, price, quantity, commission, created_at
		FROM trades
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		err := rows.Scan(&t.ID, &t.OrderID, &t.AccountID, &t.Symbol, &t.Side,
			&t.Price, &t.Quantity, &t.Commission, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
