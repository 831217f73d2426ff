package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"paper-trader/models"
)

const orderColumns = `id, order_no, account_id, symbol, side, order_type, limit_price,
	quantity, filled_quantity, reserved_cash, status, created_at, updated_at, filled_at`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.OrderNo, &o.AccountID, &o.Symbol, &o.Side, &o.Type,
		&o.LimitPrice, &o.Quantity, &o.FilledQuantity, &o.ReservedCash, &o.Status,
		&o.CreatedAt, &o.UpdatedAt, &o.FilledAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder inserts a new order; the submission sequence number is assigned
// by the database and written back to the model
func (r *Repository) CreateOrder(ctx context.Context, o *models.Order) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO orders (id, account_id, symbol, side, order_type, limit_price,
			quantity, filled_quantity, reserved_cash, status, created_at, updated_at, filled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING order_no
	`, o.ID, o.AccountID, o.Symbol, o.Side, o.Type, o.LimitPrice,
		o.Quantity, o.FilledQuantity, o.ReservedCash, o.Status, o.CreatedAt, o.UpdatedAt, o.FilledAt).
		Scan(&o.OrderNo)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetOrder returns a single order by ID, or nil when it does not exist
func (r *Repository) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	return o, nil
}

// ListPendingOrders returns all PENDING orders in submission order
func (r *Repository) ListPendingOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status = 'PENDING'
		ORDER BY order_no ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// ListOrdersByAccount returns an account's most recent orders
func (r *Repository) ListOrdersByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// UpdateOrder persists an order's mutable columns
func (r *Repository) UpdateOrder(ctx context.Context, o *models.Order) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = $2, filled_quantity = $3, updated_at = $4, filled_at = $5
		WHERE id = $1
	`, o.ID, o.Status, o.FilledQuantity, o.UpdatedAt, o.FilledAt)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s not found", o.ID)
	}
	return nil
}
