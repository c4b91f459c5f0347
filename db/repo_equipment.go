// db/repo_equipment.go
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Gin_postgres_redis_borrow_return/catalog"
	"Gin_postgres_redis_borrow_return/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrEquipmentNotFound = errors.New("equipment not found")

type EquipmentRow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Quantity  int       `json:"quantity"`
	OnLoan    int       `json:"onLoan"` // summed from borrowed transactions
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type EquipmentQuery struct {
	Q        string // name, fuzzy
	Category string // "", "all" or one category
	Page     int
	Size     int
}

type PagedEquipment struct {
	Total int64          `json:"total"`
	Items []EquipmentRow `json:"items"`
}

func (r *Repo) equipmentView(db *gorm.DB) *gorm.DB {
	// quantity out on loan per equipment id, unnested from the jsonb item list
	onLoan := db.
		Table(models.BorrowTable+" b, jsonb_array_elements(b.equipment_items) AS item").
		Select(`
			item->>'equipmentId' AS equipment_id,
			SUM((item->>'quantityBorrowed')::int) AS on_loan
		`).
		Where("b.status = ?", "borrowed").
		Group("item->>'equipmentId'")

	return db.
		Table(models.EquipmentTable+" e").
		Select(`
			e.id, e.name, e.category, e.quantity, e.created_at, e.updated_at,
			COALESCE(ol.on_loan, 0) AS on_loan
		`).
		Joins("LEFT JOIN (?) AS ol ON ol.equipment_id = e.id", onLoan)
}

func (r *Repo) ListEquipment(ctx context.Context, q EquipmentQuery) (*PagedEquipment, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 || q.Size > 200 {
		q.Size = 50
	}
	db := r.DB.WithContext(ctx)

	filter := func(tx *gorm.DB) *gorm.DB {
		if s := strings.TrimSpace(q.Q); s != "" {
			tx = tx.Where("LOWER(e.name) LIKE ?", "%"+strings.ToLower(s)+"%")
		}
		if q.Category != "" && q.Category != "all" {
			tx = tx.Where("e.category = ?", q.Category)
		}
		return tx
	}

	var total int64
	if err := filter(db.Table(models.EquipmentTable + " e")).Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []EquipmentRow
	if err := filter(r.equipmentView(db)).
		Order("e.category, e.name, e.id").
		Offset((q.Page - 1) * q.Size).
		Limit(q.Size).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return &PagedEquipment{Total: total, Items: rows}, nil
}

func (r *Repo) FindEquipment(ctx context.Context, id string) (*models.Equipment, error) {
	var e models.Equipment
	err := r.DB.WithContext(ctx).First(&e, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEquipmentNotFound
	}
	return &e, err
}

// LookupEquipment implements lifecycle.Store.
func (r *Repo) LookupEquipment(ctx context.Context, ids []string) (map[string]models.Equipment, error) {
	var rows []models.Equipment
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]models.Equipment, len(rows))
	for _, e := range rows {
		out[e.ID] = e
	}
	return out, nil
}

func (r *Repo) CountEquipment(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Equipment{}).Count(&n).Error
	return n, err
}

// CreateEquipment inserts all rows or none. An id already in use is ErrDuplicateAssetID.
func (r *Repo) CreateEquipment(ctx context.Context, rows []models.Equipment) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertUnits(tx, rows)
	})
}

func insertUnits(tx *gorm.DB, rows []models.Equipment) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]string, 0, len(rows))
	for _, e := range rows {
		ids = append(ids, e.ID)
	}
	var taken []string
	if err := tx.Model(&models.Equipment{}).Where("id IN ?", ids).Pluck("id", &taken).Error; err != nil {
		return err
	}
	if len(taken) > 0 {
		return fmt.Errorf("%w: %s", catalog.ErrDuplicateAssetID, strings.Join(taken, ", "))
	}
	return tx.Create(&rows).Error
}

// RestockEquipment locks the row, validates the restock against it, then either bumps
// its quantity or adds asset unit rows.
func (r *Repo) RestockEquipment(ctx context.Context, id string, in catalog.Restock) ([]models.Equipment, error) {
	tx := r.DB.WithContext(ctx).Begin()
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	var e models.Equipment
	if err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&e).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEquipmentNotFound
		}
		return nil, err
	}

	delta, units, err := catalog.ValidateRestock(e, in)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if delta != 0 {
		if err := tx.Model(&models.Equipment{}).
			Where("id = ?", id).
			Update("quantity", gorm.Expr("quantity + ?", delta)).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		e.Quantity += delta
	}
	if err := insertUnits(tx, units); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return append([]models.Equipment{e}, units...), nil
}
