package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"paper-trader/models"
)

// SaveDecision inserts an oracle decision record
func (r *Repository) SaveDecision(ctx context.Context, d *models.Decision) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO decisions (id, account_id, operation, symbol, target_portion, reason, executed, order_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, d.ID, d.AccountID, d.Operation, d.Symbol, d.TargetPortion, d.Reason, d.Executed, d.OrderID, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save decision: %w", err)
	}
	return nil
}

// MarkDecisionExecuted links a decision to the order it produced
func (r *Repository) MarkDecisionExecuted(ctx context.Context, decisionID, orderID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE decisions SET executed = TRUE, order_id = $2 WHERE id = $1
	`, decisionID, orderID)
	if err != nil {
		return fmt.Errorf("failed to mark decision executed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("decision %s not found", decisionID)
	}
	return nil
}

// ListDecisionsByAccount returns an account's most recent decisions
func (r *Repository) ListDecisionsByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Decision, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, account_id, operation, symbol, target_portion, reason, executed, order_id, created_at
		FROM decisions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []models.Decision
	for rows.Next() {
		var d models.Decision
		err := rows.Scan(&d.ID, &d.AccountID, &d.Operation, &d.Symbol,
			&d.TargetPortion, &d.Reason, &d.Executed, &d.OrderID, &d.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}
