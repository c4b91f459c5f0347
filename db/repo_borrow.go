package db

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"Gin_postgres_redis_borrow_return/lifecycle"
	"Gin_postgres_redis_borrow_return/models"

	"gorm.io/gorm"
)

var _ lifecycle.Store = (*Repo)(nil)

func (r *Repo) CreateTransaction(ctx context.Context, t *models.BorrowTransaction, log *models.TransitionLog) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(t).Error; err != nil {
			return fmt.Errorf("insert borrow transaction: %w", err)
		}
		if log == nil {
			return nil
		}
		if err := tx.Create(log).Error; err != nil {
			return fmt.Errorf("insert transition log: %w", err)
		}
		return nil
	})
}

func (r *Repo) FindTransaction(ctx context.Context, id string) (*models.BorrowTransaction, error) {
	var t models.BorrowTransaction
	err := r.DB.WithContext(ctx).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTransaction is one atomic unit: conditional row write → stock moves → audit row.
func (r *Repo) UpdateTransaction(ctx context.Context, t *models.BorrowTransaction, expectedVersion int64, ch lifecycle.Change) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(t).
			Where("version = ?", expectedVersion).
			Select("*").
			Omit("id", "created_at").
			Updates(t)
		if res.Error != nil {
			return fmt.Errorf("update borrow transaction: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return lifecycle.ErrConcurrencyConflict
		}

		// fixed order so two confirms touching the same items can't deadlock
		deltas := append([]lifecycle.StockDelta(nil), ch.Stock...)
		sort.Slice(deltas, func(i, j int) bool { return deltas[i].EquipmentID < deltas[j].EquipmentID })
		for _, d := range deltas {
			if d.Delta == 0 {
				continue
			}
			res := tx.Model(&models.Equipment{}).
				Where("id = ? AND quantity + ? >= 0", d.EquipmentID, d.Delta).
				Update("quantity", gorm.Expr("quantity + ?", d.Delta))
			if res.Error != nil {
				return fmt.Errorf("adjust stock %s: %w", d.EquipmentID, res.Error)
			}
			if res.RowsAffected == 0 && d.Delta < 0 {
				return fmt.Errorf("%w: %s", lifecycle.ErrInsufficientStock, d.EquipmentID)
			}
		}

		if ch.Log != nil {
			if err := tx.Create(ch.Log).Error; err != nil {
				return fmt.Errorf("insert transition log: %w", err)
			}
		}
		return nil
	})
}

func (r *Repo) ListTransactions(ctx context.Context, q lifecycle.ListQuery) ([]models.BorrowTransaction, error) {
	qry := r.DB.WithContext(ctx).Model(&models.BorrowTransaction{}).Order("created_at DESC")
	if q.UserID != "" {
		qry = qry.Where("user_id = ?", q.UserID)
	}
	if q.Status != "" {
		qry = qry.Where("status = ?", string(q.Status))
	}
	var ts []models.BorrowTransaction
	if err := qry.Find(&ts).Error; err != nil {
		return nil, err
	}
	return ts, nil
}

func (r *Repo) ListTransitions(ctx context.Context, transactionID string) ([]models.TransitionLog, error) {
	var logs []models.TransitionLog
	err := r.DB.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}
