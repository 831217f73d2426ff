package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"paper-trader/models"
)

const accountColumns = `id, name, initial_capital, current_cash, frozen_cash,
	oracle_model, oracle_base_url, oracle_api_key, active, created_at, updated_at`

func (r *Repository) scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	var encryptedKey string
	err := row.Scan(&a.ID, &a.Name, &a.InitialCapital, &a.CurrentCash, &a.FrozenCash,
		&a.OracleModel, &a.OracleBaseURL, &encryptedKey, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.OracleAPIKey, err = r.crypto.DecryptString(encryptedKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt oracle key for account %s: %w", a.ID, err)
	}
	return &a, nil
}

// CreateAccount creates a new account
func (r *Repository) CreateAccount(ctx context.Context, a *models.Account) error {
	encryptedKey, err := r.crypto.EncryptString(a.OracleAPIKey)
	if err != nil {
		return fmt.Errorf("encrypt oracle key: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO accounts (id, name, initial_capital, current_cash, frozen_cash,
			oracle_model, oracle_base_url, oracle_api_key, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, a.ID, a.Name, a.InitialCapital, a.CurrentCash, a.FrozenCash,
		a.OracleModel, a.OracleBaseURL, encryptedKey, a.Active, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccount returns a single account by ID, or nil when it does not exist
func (r *Repository) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	a, err := r.scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return a, nil
}

// ListAccounts returns all accounts
func (r *Repository) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := r.scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// ListOracleAccounts returns active accounts with an oracle configured
func (r *Repository) ListOracleAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE active AND oracle_model <> '' AND oracle_api_key <> ''
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query oracle accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := r.scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// UpdateAccount updates an account's metadata and oracle configuration
func (r *Repository) UpdateAccount(ctx context.Context, a *models.Account) error {
	encryptedKey, err := r.crypto.EncryptString(a.OracleAPIKey)
	if err != nil {
		return fmt.Errorf("encrypt oracle key: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET name = $2, oracle_model = $3, oracle_base_url = $4, oracle_api_key = $5,
			active = $6, updated_at = $7
		WHERE id = $1
	`, a.ID, a.Name, a.OracleModel, a.OracleBaseURL, encryptedKey, a.Active, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s not found", a.ID)
	}
	return nil
}

// UpdateAccountBalances persists the cash and frozen cash columns only
func (r *Repository) UpdateAccountBalances(ctx context.Context, a *models.Account) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET current_cash = $2, frozen_cash = $3, updated_at = $4
		WHERE id = $1
	`, a.ID, a.CurrentCash, a.FrozenCash, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update account balances: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s not found", a.ID)
	}
	return nil
}

// DeactivateAccount soft-deletes an account; its history stays queryable
func (r *Repository) DeactivateAccount(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s not found", id)
	}
	return nil
}
