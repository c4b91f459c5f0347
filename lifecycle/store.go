package lifecycle

import (
	"context"

	"Gin_postgres_redis_borrow_return/models"
)

// StockDelta adjusts the on-hand quantity of one equipment row.
type StockDelta struct {
	EquipmentID string
	Delta       int
}

// Change is what commits together with a transition: stock moves and the audit row.
type Change struct {
	Stock []StockDelta
	Log   *models.TransitionLog
}

type ListQuery struct {
	UserID string // empty = everyone
	Status Status // empty = any
}

// Store is the persistence collaborator: keyed documents with conditional merge.
type Store interface {
	// CreateTransaction writes a new document and its creation log.
	CreateTransaction(ctx context.Context, t *models.BorrowTransaction, log *models.TransitionLog) error
	// FindTransaction returns ErrNotFound when id does not exist.
	FindTransaction(ctx context.Context, id string) (*models.BorrowTransaction, error)
	// UpdateTransaction writes t only if the stored version still equals expectedVersion,
	// otherwise ErrConcurrencyConflict. Stock deltas that would drive a quantity below zero
	// fail with ErrInsufficientStock and nothing is written.
	UpdateTransaction(ctx context.Context, t *models.BorrowTransaction, expectedVersion int64, ch Change) error
	// ListTransactions orders by creation time, newest first.
	ListTransactions(ctx context.Context, q ListQuery) ([]models.BorrowTransaction, error)
	ListTransitions(ctx context.Context, transactionID string) ([]models.TransitionLog, error)
	// LookupEquipment returns the stored rows for ids, keyed by id. Unknown ids are absent.
	LookupEquipment(ctx context.Context, ids []string) (map[string]models.Equipment, error)
}
