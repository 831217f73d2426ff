package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"paper-trader/models"
)

const positionColumns = `id, account_id, symbol, quantity, available_quantity, avg_cost, created_at, updated_at`

// GetPosition returns an account's position in a symbol, or nil when flat
func (r *Repository) GetPosition(ctx context.Context, accountID uuid.UUID, symbol string) (*models.Position, error) {
	var p models.Position
	err := r.db.QueryRow(ctx, `
		SELECT `+positionColumns+` FROM positions
		WHERE account_id = $1 AND symbol = $2
	`, accountID, symbol).Scan(&p.ID, &p.AccountID, &p.Symbol, &p.Quantity,
		&p.AvailableQuantity, &p.AvgCost, &p.CreatedAt, &p.UpdatedAt)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query position: %w", err)
	}
	return &p, nil
}

// ListPositions returns all non-empty positions for an account
func (r *Repository) ListPositions(ctx context.Context, accountID uuid.UUID) ([]models.Position, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+positionColumns+` FROM positions
		WHERE account_id = $1 AND quantity > 0
		ORDER BY symbol
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []models.Position
	for rows.Next() {
		var p models.Position
		err := rows.Scan(&p.ID, &p.AccountID, &p.Symbol, &p.Quantity,
			&p.AvailableQuantity, &p.AvgCost, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// UpsertPosition inserts or updates an account's position in a symbol
func (r *Repository) UpsertPosition(ctx context.Context, p *models.Position) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO positions (id, account_id, symbol, quantity, available_quantity, avg_cost, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (account_id, symbol) DO UPDATE
		SET quantity = EXCLUDED.quantity,
			available_quantity = EXCLUDED.available_quantity,
			avg_cost = EXCLUDED.avg_cost,
			updated_at = EXCLUDED.updated_at
	`, p.ID, p.AccountID, p.Symbol, p.Quantity, p.AvailableQuantity, p.AvgCost, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}
	return nil
}
