package models

import (
	"time"

	"github.com/google/uuid"
)

// Item: one ordered quantity of a menu entry for a table.
// The *_by and deleted_at columns are reserved; the item operations never fill them.
type Item struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TablesID          uuid.UUID  `gorm:"type:uuid;not null;index:idx_items_table_created,priority:1" json:"tables_id"`
	Table             Table      `gorm:"foreignKey:TablesID;constraint:OnDelete:CASCADE" json:"-"`
	MenuID            uuid.UUID  `gorm:"type:uuid;not null;index" json:"menu_id"`
	Menu              Menu       `gorm:"foreignKey:MenuID;constraint:OnDelete:RESTRICT" json:"-"`
	Quantity          int32      `gorm:"not null;check:chk_items_quantity,quantity >= 0" json:"quantity"`
	DeliveredQuantity int32      `gorm:"not null;default:0;check:chk_items_delivered,delivered_quantity >= 0 AND delivered_quantity <= quantity" json:"delivered_quantity"`
	DeliveredAt       *time.Time `json:"delivered_at"`
	CreatedAt         time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_items_table_created,priority:2" json:"created_at"`
	CreatedBy         *string    `gorm:"size:100" json:"created_by"`
	UpdatedAt         time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy         *string    `gorm:"size:100" json:"updated_by"`
	DeletedAt         *time.Time `json:"deleted_at"`
	DeletedBy         *string    `gorm:"size:100" json:"deleted_by"`
}

// PartialItem is what the batch create/update path works with.
type PartialItem struct {
	ID                uuid.UUID `json:"id"`
	TablesID          uuid.UUID `json:"tables_id"`
	MenuID            uuid.UUID `json:"menu_id"`
	Quantity          int32     `json:"quantity"`
	DeliveredQuantity int32     `json:"delivered_quantity"`
}

// PartialItemReturn is the read projection, joined with the menu's prep time.
type PartialItemReturn struct {
	ID                uuid.UUID `json:"id"`
	TablesID          uuid.UUID `json:"tables_id"`
	MenuID            uuid.UUID `json:"menu_id"`
	Quantity          int32     `json:"quantity"`
	DeliveredQuantity int32     `json:"delivered_quantity"`
	CreatedAt         time.Time `json:"created_at"`
	PrepTime          int32     `json:"prep_time"`
}

// Remaining is the quantity still to be delivered.
func (p PartialItemReturn) Remaining() int32 {
	return p.Quantity - p.DeliveredQuantity
}

// ItemChange is a row touched by a table-scoped batch update: its values after
// the update plus the quantities it had before.
type ItemChange struct {
	PartialItem
	PrevQuantity          int32 `json:"prev_quantity"`
	PrevDeliveredQuantity int32 `json:"prev_delivered_quantity"`
}

// Before rebuilds the row as it was before the update.
func (c ItemChange) Before() PartialItem {
	before := c.PartialItem
	before.Quantity = c.PrevQuantity
	before.DeliveredQuantity = c.PrevDeliveredQuantity
	return before
}
