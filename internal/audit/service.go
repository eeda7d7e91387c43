package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"order-tracker/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const EntityItem = "item"

type LogOptions struct {
	TablesID    *uuid.UUID
	EntityType  string
	EntityID    string
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

type Filter struct {
	EntityType string
	EntityID   string
	Action     models.AuditAction
	Limit      int
	Offset     int
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// jsonState encodes v for a jsonb column; Postgres needs "null" rather than an empty string.
func jsonState(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func toModel(opts LogOptions) models.AuditLog {
	var tablesID *string
	if opts.TablesID != nil {
		id := opts.TablesID.String()
		tablesID = &id
	}

	return models.AuditLog{
		TablesID:    tablesID,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  jsonState(opts.Before),
		AfterData:   jsonState(opts.After),
	}
}

// WriteLogs stores all entries with a single insert.
func (s *Service) WriteLogs(ctx context.Context, entries []LogOptions) error {
	if len(entries) == 0 {
		return nil
	}

	logs := make([]models.AuditLog, 0, len(entries))
	for _, opts := range entries {
		logs = append(logs, toModel(opts))
	}

	if err := s.db.WithContext(ctx).Create(&logs).Error; err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}
	return nil
}

// List returns audit entries newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]models.AuditLog, error) {
	query := s.db.WithContext(ctx).Model(&models.AuditLog{})

	if f.EntityType != "" {
		query = query.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		query = query.Where("entity_id = ?", f.EntityID)
	}
	if f.Action != "" {
		query = query.Where("action = ?", f.Action)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	logs := []models.AuditLog{}
	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(f.Offset).Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("listing audit logs: %w", err)
	}
	return logs, nil
}
