package repository

import (
	"context"
	"log"

	"order-tracker/internal/models"

	"github.com/shopspring/decimal"
)

// Seed fills an empty database with a couple of tables and menu entries for local use.
func (r *Repository) Seed(ctx context.Context) error {
	var tableCount int64
	if err := r.db.WithContext(ctx).Model(&models.Table{}).Count(&tableCount).Error; err != nil {
		return storeError("seeding", err)
	}
	if tableCount > 0 {
		log.Println("Seed data already exists, skipping...")
		return nil
	}

	log.Println("Seeding database with demo tables and menu...")

	for _, name := range []string{"Table 1", "Table 2"} {
		if _, err := r.AddTable(ctx, name); err != nil {
			return err
		}
	}

	menu := []struct {
		name     string
		price    string
		prepTime int32
	}{
		{"Margherita", "12.50", 15},
		{"Caesar Salad", "9.00", 8},
		{"Espresso", "2.80", 2},
	}
	for _, m := range menu {
		if _, err := r.AddMenu(ctx, m.name, decimal.RequireFromString(m.price), m.prepTime); err != nil {
			return err
		}
	}

	log.Println("Database seeding completed successfully")
	return nil
}
