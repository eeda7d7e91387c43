package audit

import (
	"context"
	"strconv"

	"order-tracker/internal/models"

	"github.com/gofiber/fiber/v2"
)

type Lister interface {
	List(ctx context.Context, f Filter) ([]models.AuditLog, error)
}

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	TablesID    *string            `json:"tables_id"`
	EntityType  string             `json:"entity_type"`
	EntityID    string             `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
}

// GET /api/audit-logs?entity_type=item&entity_id=...&action=update&limit=20&offset=0
func ListAuditLogsHandler(svc Lister) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := Filter{
			EntityType: c.Query("entity_type"),
			EntityID:   c.Query("entity_id"),
			Action:     models.AuditAction(c.Query("action")),
		}

		if s := c.Query("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "limit must be a non-negative integer")
			}
			f.Limit = n
		}
		if s := c.Query("offset"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "offset must be a non-negative integer")
			}
			f.Offset = n
		}

		logs, err := svc.List(c.UserContext(), f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Audit logs could not be listed")
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, AuditLogResponse{
				ID:          l.ID,
				CreatedAt:   l.CreatedAt.Format("2006-01-02 15:04:05"),
				TablesID:    l.TablesID,
				EntityType:  l.EntityType,
				EntityID:    l.EntityID,
				Action:      l.Action,
				Description: l.Description,
			})
		}

		return c.JSON(resp)
	}
}
