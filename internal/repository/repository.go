package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Repository is the storage gateway for order items. It owns nothing but the
// connection pool handed to it, so it is safe for concurrent use.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the pool to collaborators that share it, such as the audit log service.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// Ping checks that the pool can reach Postgres.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return storeError("pinging database", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return storeError("pinging database", err)
	}
	return nil
}

// exec runs a built statement as a single round trip and reports the affected row count.
func (r *Repository) exec(ctx context.Context, op string, stmt Statement) (int64, error) {
	result := r.db.WithContext(ctx).Exec(stmt.SQL, stmt.Args...)
	if result.Error != nil {
		return 0, storeError(op, fmt.Errorf("executing statement: %w", result.Error))
	}
	return result.RowsAffected, nil
}

// query runs a built statement that returns rows and scans them into dest.
func (r *Repository) query(ctx context.Context, op string, stmt Statement, dest any) error {
	if err := r.db.WithContext(ctx).Raw(stmt.SQL, stmt.Args...).Scan(dest).Error; err != nil {
		return storeError(op, fmt.Errorf("executing statement: %w", err))
	}
	return nil
}
