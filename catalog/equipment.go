// Package catalog holds the rules for equipment, rooms and room bookings.
// Persistence lives in db; nothing here touches the database.
package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"Gin_postgres_redis_borrow_return/models"
)

func ValidCategory(c string) bool {
	switch c {
	case models.CategoryConsumable, models.CategoryAsset, models.CategoryMain:
		return true
	}
	return false
}

// NewEquipment is the admin "add equipment" form.
type NewEquipment struct {
	NameThai    string   `json:"nameThai" binding:"required"`
	NameEnglish string   `json:"nameEnglish"`
	Category    string   `json:"category" binding:"required"`
	Quantity    int      `json:"quantity"`
	AssetIDs    []string `json:"assetIds"`
}

// DisplayName joins the Thai name and the optional English name in parentheses.
func (n NewEquipment) DisplayName() string {
	name := strings.TrimSpace(n.NameThai)
	if en := strings.TrimSpace(n.NameEnglish); en != "" {
		name += " (" + en + ")"
	}
	return name
}

// equipmentID is <category>-<unix ms>-<9 hex>; the suffix keeps same-millisecond creates apart.
func equipmentID(category string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s-%d-%s", category, now.UnixMilli(), suffix)
}

// ValidateNewEquipment returns the rows to insert. An asset becomes one unit row per asset id;
// every other category becomes a single row holding the whole quantity.
func ValidateNewEquipment(n NewEquipment, now time.Time) ([]models.Equipment, error) {
	if strings.TrimSpace(n.NameThai) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidEquipment)
	}
	if !ValidCategory(n.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidEquipment, n.Category)
	}
	if n.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidEquipment)
	}

	name := n.DisplayName()
	if n.Category != models.CategoryAsset {
		return []models.Equipment{{
			ID:       equipmentID(n.Category, now),
			Name:     name,
			Category: n.Category,
			Quantity: n.Quantity,
		}}, nil
	}

	ids, err := assetIDs(n.AssetIDs, n.Quantity)
	if err != nil {
		return nil, err
	}
	rows := make([]models.Equipment, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, models.Equipment{ID: id, Name: name, Category: n.Category, Quantity: 1})
	}
	return rows, nil
}

// Restock is the admin "add stock" form for an existing row.
type Restock struct {
	Quantity int      `json:"quantity"`
	AssetIDs []string `json:"assetIds"`
}

// ValidateRestock decides how a restock lands: assets add unit rows (delta 0),
// everything else adds delta to the existing row.
func ValidateRestock(existing models.Equipment, r Restock) (delta int, units []models.Equipment, err error) {
	if r.Quantity < 1 {
		return 0, nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidEquipment)
	}
	if existing.Category != models.CategoryAsset {
		return r.Quantity, nil, nil
	}
	ids, err := assetIDs(r.AssetIDs, r.Quantity)
	if err != nil {
		return 0, nil, err
	}
	for _, id := range ids {
		if id == existing.ID {
			return 0, nil, fmt.Errorf("%w: %s", ErrDuplicateAssetID, id)
		}
		units = append(units, models.Equipment{ID: id, Name: existing.Name, Category: existing.Category, Quantity: 1})
	}
	return 0, units, nil
}

func assetIDs(raw []string, want int) ([]string, error) {
	ids := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, id := range raw {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAssetID, id)
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) != want {
		return nil, fmt.Errorf("%w: %d asset ids for quantity %d", ErrInvalidEquipment, len(ids), want)
	}
	return ids, nil
}
