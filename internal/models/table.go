package models

import "github.com/google/uuid"

// Table: a dining table that owns order items
type Table struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"size:100;not null" json:"name"`
}
