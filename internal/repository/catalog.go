package repository

import (
	"context"

	"order-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (r *Repository) AddTable(ctx context.Context, name string) (models.Table, error) {
	table := models.Table{ID: newID(), Name: name}
	if err := r.db.WithContext(ctx).Create(&table).Error; err != nil {
		return models.Table{}, storeError("adding table", err)
	}
	return table, nil
}

// AddMenu adds a menu entry; prepTime is in minutes.
func (r *Repository) AddMenu(ctx context.Context, name string, price decimal.Decimal, prepTime int32) (models.Menu, error) {
	if prepTime < 0 {
		return models.Menu{}, invalid("prep_time", "must not be negative, got %d", prepTime)
	}
	if price.IsNegative() {
		return models.Menu{}, invalid("price", "must not be negative, got %s", price)
	}

	entry := models.Menu{ID: newID(), Name: name, Price: price, PrepTime: prepTime}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return models.Menu{}, storeError("adding menu entry", err)
	}
	return entry, nil
}

// TableExists reports whether tableID names a known table.
func (r *Repository) TableExists(ctx context.Context, tableID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Table{}).Where("id = ?", tableID).Count(&count).Error; err != nil {
		return false, storeError("looking up table", err)
	}
	return count > 0, nil
}
