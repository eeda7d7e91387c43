package repository

import (
	"context"
	"errors"
	"fmt"

	"order-tracker/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxBatchItems caps how many items one create or update request may carry.
const MaxBatchItems = 100

const (
	DefaultLimit  = 10
	DefaultOffset = 0
)

type NewItemRequest struct {
	Quantity int32     `json:"quantity"`
	MenuID   uuid.UUID `json:"menu_id"`
}

type BulkNewItemRequest struct {
	Items []NewItemRequest `json:"items"`
}

// UpdateItemRequest sets Quantity and adds DeliveredQuantity to the stored value.
// A nil field leaves the column as it is.
type UpdateItemRequest struct {
	ID                uuid.UUID `json:"id"`
	Quantity          *int32    `json:"quantity"`
	DeliveredQuantity *int32    `json:"delivered_quantity"`
}

type BulkUpdateItemRequest struct {
	Items []UpdateItemRequest `json:"items"`
}

type Pagination struct {
	Limit  *int
	Offset *int
}

type FilterParams struct {
	MenuID *uuid.UUID
}

func checkBatchSize(n int) error {
	if n > MaxBatchItems {
		return fmt.Errorf("%w: got %d items, the limit is %d", ErrLimitExceeded, n, MaxBatchItems)
	}
	return nil
}

func validateNewItems(reqs []NewItemRequest) error {
	for i, req := range reqs {
		if req.Quantity < 0 {
			return invalid(fmt.Sprintf("items[%d].quantity", i), "must not be negative, got %d", req.Quantity)
		}
		if req.MenuID == uuid.Nil {
			return invalid(fmt.Sprintf("items[%d].menu_id", i), "is required")
		}
	}
	return nil
}

func validateUpdates(reqs []UpdateItemRequest) error {
	seen := make(map[uuid.UUID]struct{}, len(reqs))
	for i, req := range reqs {
		if req.ID == uuid.Nil {
			return invalid(fmt.Sprintf("items[%d].id", i), "is required")
		}
		if _, dup := seen[req.ID]; dup {
			return invalid(fmt.Sprintf("items[%d].id", i), "%s appears more than once in the batch", req.ID)
		}
		seen[req.ID] = struct{}{}

		if req.Quantity != nil && *req.Quantity < 0 {
			return invalid(fmt.Sprintf("items[%d].quantity", i), "must not be negative, got %d", *req.Quantity)
		}
		if req.DeliveredQuantity != nil && *req.DeliveredQuantity < 0 {
			return invalid(fmt.Sprintf("items[%d].delivered_quantity", i), "delivered quantity can only grow, got %d", *req.DeliveredQuantity)
		}
	}
	return nil
}

// CreateItems inserts every request as a row of tableID in one statement and
// returns exactly what was inserted. An empty batch inserts nothing and succeeds.
func (r *Repository) CreateItems(ctx context.Context, tableID uuid.UUID, reqs []NewItemRequest) ([]models.PartialItem, error) {
	if err := checkBatchSize(len(reqs)); err != nil {
		return nil, err
	}
	if err := validateNewItems(reqs); err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return []models.PartialItem{}, nil
	}

	stmt, created := BuildInsertItems(tableID, reqs)
	if _, err := r.exec(ctx, "creating items", stmt); err != nil {
		return nil, err
	}

	return created, nil
}

func checkUpdates(reqs []UpdateItemRequest) error {
	if err := checkBatchSize(len(reqs)); err != nil {
		return err
	}
	return validateUpdates(reqs)
}

// UpdateItems applies all requests in one statement and returns how many rows
// were affected. Ids that do not exist are skipped silently.
func (r *Repository) UpdateItems(ctx context.Context, reqs []UpdateItemRequest) (int, error) {
	if len(reqs) == 0 {
		return 0, nil
	}
	if err := checkUpdates(reqs); err != nil {
		return 0, err
	}

	affected, err := r.exec(ctx, "updating items", BuildUpdateItems(reqs))
	if err != nil {
		return 0, err
	}

	return int(affected), nil
}

// UpdateTableItems is UpdateItems limited to the items of tableID. It returns
// only the rows it actually changed; unknown ids and ids of other tables are
// skipped the same way UpdateItems skips them.
func (r *Repository) UpdateTableItems(ctx context.Context, tableID uuid.UUID, reqs []UpdateItemRequest) ([]models.ItemChange, error) {
	if len(reqs) == 0 {
		return []models.ItemChange{}, nil
	}
	if err := checkUpdates(reqs); err != nil {
		return nil, err
	}

	changes := []models.ItemChange{}
	if err := r.query(ctx, "updating items", BuildUpdateTableItems(tableID, reqs), &changes); err != nil {
		return nil, err
	}

	return changes, nil
}

func (r *Repository) itemsWithPrepTime(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("items").
		Select("items.id, items.tables_id, items.menu_id, items.quantity, items.delivered_quantity, items.created_at, COALESCE(menu.prep_time, 0) AS prep_time").
		Joins("LEFT JOIN menu ON items.menu_id = menu.id")
}

// ListRemaining returns the items of tableID that are not fully delivered yet,
// oldest first. Limit defaults to 10 and offset to 0.
func (r *Repository) ListRemaining(ctx context.Context, tableID uuid.UUID, page Pagination, filters FilterParams) ([]models.PartialItemReturn, error) {
	limit, offset := DefaultLimit, DefaultOffset
	if page.Limit != nil {
		limit = *page.Limit
	}
	if page.Offset != nil {
		offset = *page.Offset
	}
	if limit < 0 {
		return nil, invalid("limit", "must not be negative, got %d", limit)
	}
	if offset < 0 {
		return nil, invalid("offset", "must not be negative, got %d", offset)
	}

	query := r.itemsWithPrepTime(ctx).
		Where("items.tables_id = ?", tableID).
		Where("items.quantity > items.delivered_quantity")

	if filters.MenuID != nil {
		query = query.Where("items.menu_id = ?", *filters.MenuID)
	}

	items := []models.PartialItemReturn{}
	err := query.
		Order("items.created_at ASC, items.id ASC").
		Limit(limit).
		Offset(offset).
		Scan(&items).Error
	if err != nil {
		return nil, storeError("listing remaining items", err)
	}

	return items, nil
}

// GetItem returns one item of tableID, or ErrNotFound.
func (r *Repository) GetItem(ctx context.Context, tableID, itemID uuid.UUID) (models.PartialItemReturn, error) {
	var item models.PartialItemReturn
	result := r.itemsWithPrepTime(ctx).
		Where("items.tables_id = ? AND items.id = ?", tableID, itemID).
		Limit(1).
		Scan(&item)
	if result.Error != nil {
		return models.PartialItemReturn{}, storeError("getting item", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.PartialItemReturn{}, ErrNotFound
	}
	return item, nil
}

// DeleteItem removes at most one item and reports whether anything was deleted.
func (r *Repository) DeleteItem(ctx context.Context, tableID, itemID uuid.UUID) (bool, error) {
	_, err := r.RemoveItem(ctx, tableID, itemID)
	switch {
	case errors.Is(err, ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// RemoveItem deletes one item of tableID and returns the row as it was, or ErrNotFound.
func (r *Repository) RemoveItem(ctx context.Context, tableID, itemID uuid.UUID) (models.PartialItem, error) {
	var deleted []models.Item
	result := r.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("tables_id = ? AND id = ?", tableID, itemID).
		Delete(&deleted)
	if result.Error != nil {
		return models.PartialItem{}, storeError("deleting item", result.Error)
	}
	if result.RowsAffected == 0 || len(deleted) == 0 {
		return models.PartialItem{}, ErrNotFound
	}

	item := deleted[0]
	return models.PartialItem{
		ID:                item.ID,
		TablesID:          item.TablesID,
		MenuID:            item.MenuID,
		Quantity:          item.Quantity,
		DeliveredQuantity: item.DeliveredQuantity,
	}, nil
}
