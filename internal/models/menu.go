package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Menu struct {
	ID       uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name     string          `gorm:"size:100;not null" json:"name"`
	Price    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	PrepTime int32           `gorm:"not null;check:chk_menu_prep_time,prep_time >= 0" json:"prep_time"` // minutes
}

func (Menu) TableName() string {
	return "menu"
}
