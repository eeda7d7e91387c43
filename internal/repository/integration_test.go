package repository

import (
	"context"
	"os"
	"testing"

	"order-tracker/internal/database"
	"order-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestRepository connects to TEST_DATABASE_URL, migrates and empties the
// item tables. Tests using it are skipped when the variable is not set.
func setupTestRepository(t *testing.T) *Repository {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, db.Exec("TRUNCATE TABLE items, menu, tables, audit_logs RESTART IDENTITY CASCADE").Error)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return NewRepository(db)
}

func seedTableAndMenu(t *testing.T, r *Repository, prepTime int32) (models.Table, models.Menu) {
	t.Helper()
	ctx := context.Background()

	table, err := r.AddTable(ctx, "Test Table")
	require.NoError(t, err)
	menu, err := r.AddMenu(ctx, "Test Dish", decimal.NewFromInt(15), prepTime)
	require.NoError(t, err)

	return table, menu
}

func countItems(t *testing.T, r *Repository) int64 {
	t.Helper()
	var n int64
	require.NoError(t, r.DB().Model(&models.Item{}).Count(&n).Error)
	return n
}

func TestItemLifecycle(t *testing.T) {
	r := setupTestRepository(t)
	ctx := context.Background()
	table, menu := seedTableAndMenu(t, r, 15)

	created, err := r.CreateItems(ctx, table.ID, []NewItemRequest{{Quantity: 2, MenuID: menu.ID}})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, int32(0), created[0].DeliveredQuantity)
	itemID := created[0].ID

	n, err := r.UpdateItems(ctx, []UpdateItemRequest{{ID: itemID, DeliveredQuantity: int32Ptr(1)}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	item, err := r.GetItem(ctx, table.ID, itemID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), item.Quantity)
	assert.Equal(t, int32(1), item.DeliveredQuantity)
	assert.Equal(t, int32(15), item.PrepTime)

	remaining, err := r.ListRemaining(ctx, table.ID, Pagination{}, FilterParams{})
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	_, err = r.UpdateItems(ctx, []UpdateItemRequest{{ID: itemID, DeliveredQuantity: int32Ptr(1)}})
	require.NoError(t, err)

	item, err = r.GetItem(ctx, table.ID, itemID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), item.DeliveredQuantity)

	remaining, err = r.ListRemaining(ctx, table.ID, Pagination{}, FilterParams{})
	require.NoError(t, err)
	assert.Empty(t, remaining)

	deleted, err := r.DeleteItem(ctx, table.ID, itemID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = r.DeleteItem(ctx, table.ID, itemID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = r.GetItem(ctx, table.ID, itemID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateItemsPersistsFullBatch(t *testing.T) {
	r := setupTestRepository(t)
	ctx := context.Background()
	table, menu := seedTableAndMenu(t, r, 5)

	reqs := make([]NewItemRequest, MaxBatchItems)
	for i := range reqs {
		reqs[i] = NewItemRequest{Quantity: 3, MenuID: menu.ID}
	}

	created, err := r.CreateItems(ctx, table.ID, reqs)
	require.NoError(t, err)
	assert.Len(t, created, MaxBatchItems)
	assert.Equal(t, int64(MaxBatchItems), countItems(t, r))

	var undelivered int64
	require.NoError(t, r.DB().Model(&models.Item{}).Where("delivered_quantity <> 0").Count(&undelivered).Error)
	assert.Zero(t, undelivered)

	_, err = r.CreateItems(ctx, table.ID, append(reqs, NewItemRequest{Quantity: 1, MenuID: menu.ID}))
	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.Equal(t, int64(MaxBatchItems), countItems(t, r))
}

func TestUpdateItemsSetsQuantityAndAddsDelivered(t *testing.T) {
	r := setupTestRepository(t)
	ctx := context.Background()
	table, menu := seedTableAndMenu(t, r, 10)

	created, err := r.CreateItems(ctx, table.ID, []NewItemRequest{
		{Quantity: 4, MenuID: menu.ID},
		{Quantity: 4, MenuID: menu.ID},
		{Quantity: 4, MenuID: menu.ID},
	})
	require.NoError(t, err)
	a, b, untouched := created[0].ID, created[1].ID, created[2].ID

	_, err = r.UpdateItems(ctx, []UpdateItemRequest{{ID: b, DeliveredQuantity: int32Ptr(1)}})
	require.NoError(t, err)

	n, err := r.UpdateItems(ctx, []UpdateItemRequest{
		{ID: a, Quantity: int32Ptr(5)},
		{ID: b, DeliveredQuantity: int32Ptr(2)},
		{ID: uuid.New(), Quantity: int32Ptr(9)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	itemA, err := r.GetItem(ctx, table.ID, a)
	require.NoError(t, err)
	assert.Equal(t, int32(5), itemA.Quantity)
	assert.Equal(t, int32(0), itemA.DeliveredQuantity)

	itemB, err := r.GetItem(ctx, table.ID, b)
	require.NoError(t, err)
	assert.Equal(t, int32(4), itemB.Quantity)
	assert.Equal(t, int32(3), itemB.DeliveredQuantity)

	itemC, err := r.GetItem(ctx, table.ID, untouched)
	require.NoError(t, err)
	assert.Equal(t, int32(4), itemC.Quantity)
	assert.Equal(t, int32(0), itemC.DeliveredQuantity)
}

func TestUpdateItemsRejectsOverDeliveryAtomically(t *testing.T) {
	r := setupTestRepository(t)
	ctx := context.Background()
	table, menu := seedTableAndMenu(t, r, 10)

	created, err := r.CreateItems(ctx, table.ID, []NewItemRequest{
		{Quantity: 2, MenuID: menu.ID},
		{Quantity: 2, MenuID: menu.ID},
	})
	require.NoError(t, err)

	_, err = r.UpdateItems(ctx, []UpdateItemRequest{
		{ID: created[0].ID, DeliveredQuantity: int32Ptr(1)},
		{ID: created[1].ID, DeliveredQuantity: int32Ptr(3)},
	})
	require.Error(t, err)
	assert.Equal(t, PgErrCheckViolation, ErrorCode(err))
	assert.Contains(t, err.Error(), "updating items")

	first, err := r.GetItem(ctx, table.ID, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int32(0), first.DeliveredQuantity)
}

func TestCreateItemsUnknownMenu(t *testing.T) {
	r := setupTestRepository(t)
	ctx := context.Background()
	table, _ := seedTableAndMenu(t, r, 10)

	_, err := r.CreateItems(ctx, table.ID, []NewItemRequest{{Quantity: 1, MenuID: uuid.New()}})
	require.Error(t, err)
	assert.Equal(t, PgErrForeignKeyViolation, ErrorCode(err))
	assert.Contains(t, err.Error(), "creating items")
	assert.Zero(t, countItems(t, r))
}

func TestListRemainingFiltersAndPages(t *testing.T) {
	r := setupTestRepository(t)
	ctx := context.Background()
	table, pizza := seedTableAndMenu(t, r, 15)
	coffee, err := r.AddMenu(ctx, "Coffee", decimal.RequireFromString("2.50"), 2)
	require.NoError(t, err)
	other, err := r.AddTable(ctx, "Other Table")
	require.NoError(t, err)

	ordered, err := r.CreateItems(ctx, table.ID, []NewItemRequest{
		{Quantity: 1, MenuID: pizza.ID},
		{Quantity: 1, MenuID: pizza.ID},
		{Quantity: 1, MenuID: pizza.ID},
		{Quantity: 2, MenuID: coffee.ID},
		{Quantity: 1, MenuID: coffee.ID},
	})
	require.NoError(t, err)
	coffeeItem, done := ordered[3], ordered[4]
	_, err = r.CreateItems(ctx, other.ID, []NewItemRequest{{Quantity: 1, MenuID: coffee.ID}})
	require.NoError(t, err)
	n, err := r.UpdateItems(ctx, []UpdateItemRequest{{ID: done.ID, DeliveredQuantity: int32Ptr(1)}})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	all, err := r.ListRemaining(ctx, table.ID, Pagination{}, FilterParams{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
	for _, item := range all {
		assert.Equal(t, table.ID, item.TablesID)
		assert.Greater(t, item.Quantity, item.DeliveredQuantity)
	}

	coffeeOnly, err := r.ListRemaining(ctx, table.ID, Pagination{}, FilterParams{MenuID: &coffee.ID})
	require.NoError(t, err)
	require.Len(t, coffeeOnly, 1)
	assert.Equal(t, coffeeItem.ID, coffeeOnly[0].ID)
	assert.Equal(t, int32(2), coffeeOnly[0].PrepTime)

	limit, offset := 2, 3
	page, err := r.ListRemaining(ctx, table.ID, Pagination{Limit: &limit, Offset: &offset}, FilterParams{})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestUpdateItemsUnknownID(t *testing.T) {
	r := setupTestRepository(t)

	n, err := r.UpdateItems(context.Background(), []UpdateItemRequest{{ID: uuid.New(), Quantity: int32Ptr(1)}})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateTableItemsReturnsOnlyChangedRows(t *testing.T) {
	r := setupTestRepository(t)
	ctx := context.Background()
	table, menu := seedTableAndMenu(t, r, 10)
	other, err := r.AddTable(ctx, "Other Table")
	require.NoError(t, err)

	mine, err := r.CreateItems(ctx, table.ID, []NewItemRequest{{Quantity: 3, MenuID: menu.ID}})
	require.NoError(t, err)
	theirs, err := r.CreateItems(ctx, other.ID, []NewItemRequest{{Quantity: 3, MenuID: menu.ID}})
	require.NoError(t, err)

	changes, err := r.UpdateTableItems(ctx, table.ID, []UpdateItemRequest{
		{ID: mine[0].ID, Quantity: int32Ptr(4), DeliveredQuantity: int32Ptr(2)},
		{ID: theirs[0].ID, DeliveredQuantity: int32Ptr(1)},
		{ID: uuid.New(), Quantity: int32Ptr(1)},
	})
	require.NoError(t, err)
	require.Len(t, changes, 1)

	change := changes[0]
	assert.Equal(t, mine[0].ID, change.ID)
	assert.Equal(t, table.ID, change.TablesID)
	assert.Equal(t, menu.ID, change.MenuID)
	assert.Equal(t, int32(4), change.Quantity)
	assert.Equal(t, int32(2), change.DeliveredQuantity)
	assert.Equal(t, int32(3), change.PrevQuantity)
	assert.Equal(t, int32(0), change.PrevDeliveredQuantity)

	untouched, err := r.GetItem(ctx, other.ID, theirs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int32(0), untouched.DeliveredQuantity)
}

func TestRemoveItemReturnsDeletedRow(t *testing.T) {
	r := setupTestRepository(t)
	ctx := context.Background()
	table, menu := seedTableAndMenu(t, r, 10)
	other, err := r.AddTable(ctx, "Other Table")
	require.NoError(t, err)

	created, err := r.CreateItems(ctx, table.ID, []NewItemRequest{{Quantity: 2, MenuID: menu.ID}})
	require.NoError(t, err)

	_, err = r.RemoveItem(ctx, other.ID, created[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	removed, err := r.RemoveItem(ctx, table.ID, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, created[0], removed)

	_, err = r.RemoveItem(ctx, table.ID, created[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, countItems(t, r))
}

func TestSeedIsIdempotent(t *testing.T) {
	r := setupTestRepository(t)
	ctx := context.Background()

	require.NoError(t, r.Seed(ctx))
	require.NoError(t, r.Seed(ctx))

	var tables []models.Table
	require.NoError(t, r.DB().Order("name").Find(&tables).Error)
	assert.Len(t, tables, 2)

	var menuCount int64
	require.NoError(t, r.DB().Model(&models.Menu{}).Count(&menuCount).Error)
	assert.Equal(t, int64(3), menuCount)

	exists, err := r.TableExists(ctx, tables[0].ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = r.TableExists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)
}
