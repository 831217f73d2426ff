package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"paper-trader/engine"
	"paper-trader/models"
	"paper-trader/observability"
)

// EngineStore adapts the Repository to the engine's persistence contract.
// Each mutation runs in a single transaction, so a settlement either commits
// every touched row or none of them.
type EngineStore struct {
	repo *Repository
}

// NewEngineStore wraps a Repository for use by the matching engine
func NewEngineStore(repo *Repository) *EngineStore {
	return &EngineStore{repo: repo}
}

var _ engine.Store = (*EngineStore)(nil)

func (s *EngineStore) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.repo.GetAccount(ctx, id)
}

func (s *EngineStore) GetPosition(ctx context.Context, accountID uuid.UUID, symbol string) (*models.Position, error) {
	return s.repo.GetPosition(ctx, accountID, symbol)
}

func (s *EngineStore) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.repo.GetOrder(ctx, id)
}

func (s *EngineStore) ListPendingOrders(ctx context.Context) ([]models.Order, error) {
	return s.repo.ListPendingOrders(ctx)
}

// CreatePendingOrder persists a new order together with its reservation
func (s *EngineStore) CreatePendingOrder(ctx context.Context, order *models.Order, account *models.Account, position *models.Position) error {
	timer := observability.GetMetrics().NewTimer()
	defer timer.ObserveDB("insert", "orders")

	tx, txRepo, err := s.repo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := txRepo.CreateOrder(ctx, order); err != nil {
		observability.GetMetrics().RecordDBError("insert", "orders")
		return err
	}
	if err := txRepo.UpdateAccountBalances(ctx, account); err != nil {
		observability.GetMetrics().RecordDBError("update", "accounts")
		return err
	}
	if position != nil {
		if err := txRepo.UpsertPosition(ctx, position); err != nil {
			observability.GetMetrics().RecordDBError("upsert", "positions")
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit pending order: %w", err)
	}
	return nil
}

// ExecuteFill commits a settlement atomically
func (s *EngineStore) ExecuteFill(ctx context.Context, fill *engine.Fill) error {
	timer := observability.GetMetrics().NewTimer()
	defer timer.ObserveDB("update", "orders")

	tx, txRepo, err := s.repo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := txRepo.UpdateAccountBalances(ctx, fill.Account); err != nil {
		observability.GetMetrics().RecordDBError("update", "accounts")
		return err
	}
	if err := txRepo.UpsertPosition(ctx, fill.Position); err != nil {
		observability.GetMetrics().RecordDBError("upsert", "positions")
		return err
	}
	if err := txRepo.UpdateOrder(ctx, fill.Order); err != nil {
		observability.GetMetrics().RecordDBError("update", "orders")
		return err
	}
	if err := txRepo.CreateTrade(ctx, fill.Trade); err != nil {
		observability.GetMetrics().RecordDBError("insert", "trades")
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit fill: %w", err)
	}
	return nil
}

// CancelOrder persists a cancellation together with the released reservation
func (s *EngineStore) CancelOrder(ctx context.Context, order *models.Order, account *models.Account, position *models.Position) error {
	timer := observability.GetMetrics().NewTimer()
	defer timer.ObserveDB("update", "orders")

	tx, txRepo, err := s.repo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := txRepo.UpdateOrder(ctx, order); err != nil {
		observability.GetMetrics().RecordDBError("update", "orders")
		return err
	}
	if err := txRepo.UpdateAccountBalances(ctx, account); err != nil {
		observability.GetMetrics().RecordDBError("update", "accounts")
		return err
	}
	if position != nil {
		if err := txRepo.UpsertPosition(ctx, position); err != nil {
			observability.GetMetrics().RecordDBError("upsert", "positions")
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit cancellation: %w", err)
	}
	return nil
}
