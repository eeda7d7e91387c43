package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"order-tracker/internal/audit"
	"order-tracker/internal/models"
	"order-tracker/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ItemStore is the part of the repository the handlers need.
type ItemStore interface {
	CreateItems(ctx context.Context, tableID uuid.UUID, reqs []repository.NewItemRequest) ([]models.PartialItem, error)
	UpdateTableItems(ctx context.Context, tableID uuid.UUID, reqs []repository.UpdateItemRequest) ([]models.ItemChange, error)
	ListRemaining(ctx context.Context, tableID uuid.UUID, page repository.Pagination, filters repository.FilterParams) ([]models.PartialItemReturn, error)
	GetItem(ctx context.Context, tableID, itemID uuid.UUID) (models.PartialItemReturn, error)
	RemoveItem(ctx context.Context, tableID, itemID uuid.UUID) (models.PartialItem, error)
	TableExists(ctx context.Context, tableID uuid.UUID) (bool, error)
}

type AuditWriter interface {
	WriteLogs(ctx context.Context, entries []audit.LogOptions) error
}

type BulkNewItemResponse struct {
	Items []models.PartialItem `json:"items"`
}

// RemainingItemResponse is a list entry with the quantity still to be delivered.
type RemainingItemResponse struct {
	models.PartialItemReturn
	Remaining int32 `json:"remaining"`
}

type Handler struct {
	store   ItemStore
	audit   AuditWriter
	timeout time.Duration
}

func NewHandler(store ItemStore, auditLog AuditWriter, timeout time.Duration) *Handler {
	return &Handler{store: store, audit: auditLog, timeout: timeout}
}

// Register mounts the item routes on r.
func (h *Handler) Register(r fiber.Router) {
	items := r.Group("/tables/:tables_id/items")
	items.Get("", h.ListItemsHandler())
	items.Post("", h.CreateItemsHandler())
	items.Put("", h.UpdateItemsHandler())
	items.Get("/:item_id", h.GetItemHandler())
	items.Delete("/:item_id", h.DeleteItemHandler())
}

// ErrorHandler renders every error as {"error": message}. Anything that is not
// a *fiber.Error is logged and answered with a generic 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var e *fiber.Error
	if errors.As(err, &e) {
		return c.Status(e.Code).JSON(fiber.Map{
			"error": e.Message,
		})
	}
	log.Println("Unexpected error:", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Unexpected server error",
	})
}

func (h *Handler) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), h.timeout)
}

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%s must be a valid UUID", name))
	}
	return id, nil
}

func intQuery(c *fiber.Ctx, name string) (*int, error) {
	s := c.Query(name)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%s must be an integer", name))
	}
	return &n, nil
}

// toHTTPError maps repository outcomes to status codes. Store failures are logged with op.
func toHTTPError(op string, err error) error {
	var validationErr *repository.ValidationError
	switch {
	case errors.Is(err, repository.ErrLimitExceeded):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.As(err, &validationErr):
		return fiber.NewError(fiber.StatusBadRequest, validationErr.Error())
	case errors.Is(err, repository.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Item not found")
	}

	log.Printf("Failed %s: %v", op, err)

	switch repository.ErrorCode(err) {
	case repository.PgErrCheckViolation:
		return fiber.NewError(fiber.StatusConflict, "Delivered quantity cannot exceed the ordered quantity")
	case repository.PgErrForeignKeyViolation:
		return fiber.NewError(fiber.StatusUnprocessableEntity, "Unknown table or menu reference")
	case repository.CodeTimeout:
		return fiber.NewError(fiber.StatusGatewayTimeout, fmt.Sprintf("Timed out %s", op))
	}
	return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("Failed %s: %v", op, err))
}

func (h *Handler) requireTable(ctx context.Context, op string, tableID uuid.UUID) error {
	exists, err := h.store.TableExists(ctx, tableID)
	if err != nil {
		return toHTTPError(op, err)
	}
	if !exists {
		return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("Table with id %s not found", tableID))
	}
	return nil
}

// writeAudit never fails the request; a broken audit trail is only logged.
func (h *Handler) writeAudit(ctx context.Context, entries []audit.LogOptions) {
	if h.audit == nil || len(entries) == 0 {
		return
	}
	if err := h.audit.WriteLogs(ctx, entries); err != nil {
		log.Printf("Audit log could not be written: %v", err)
	}
}

// GET /api/tables/:tables_id/items?limit=10&offset=0&menu_id=...
func (h *Handler) ListItemsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tableID, err := uuidParam(c, "tables_id")
		if err != nil {
			return err
		}

		var page repository.Pagination
		if page.Limit, err = intQuery(c, "limit"); err != nil {
			return err
		}
		if page.Offset, err = intQuery(c, "offset"); err != nil {
			return err
		}

		var filters repository.FilterParams
		if s := c.Query("menu_id"); s != "" {
			menuID, err := uuid.Parse(s)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "menu_id must be a valid UUID")
			}
			filters.MenuID = &menuID
		}

		ctx, cancel := h.requestContext(c)
		defer cancel()

		items, err := h.store.ListRemaining(ctx, tableID, page, filters)
		if err != nil {
			return toHTTPError("listing items", err)
		}
		if len(items) == 0 {
			if err := h.requireTable(ctx, "listing items", tableID); err != nil {
				return err
			}
			return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("No items found for table with id %s", tableID))
		}

		resp := make([]RemainingItemResponse, 0, len(items))
		for _, item := range items {
			resp = append(resp, RemainingItemResponse{PartialItemReturn: item, Remaining: item.Remaining()})
		}

		return c.JSON(resp)
	}
}

// POST /api/tables/:tables_id/items
func (h *Handler) CreateItemsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tableID, err := uuidParam(c, "tables_id")
		if err != nil {
			return err
		}

		var body repository.BulkNewItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		ctx, cancel := h.requestContext(c)
		defer cancel()

		if err := h.requireTable(ctx, "creating items", tableID); err != nil {
			return err
		}

		created, err := h.store.CreateItems(ctx, tableID, body.Items)
		if err != nil {
			return toHTTPError("creating items", err)
		}
		if len(created) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("No items were created for table with id %s", tableID))
		}

		entries := make([]audit.LogOptions, 0, len(created))
		for _, item := range created {
			entries = append(entries, audit.LogOptions{
				TablesID:    &tableID,
				EntityType:  audit.EntityItem,
				EntityID:    item.ID.String(),
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Ordered %d x menu %s", item.Quantity, item.MenuID),
				After:       item,
			})
		}
		h.writeAudit(ctx, entries)

		return c.Status(fiber.StatusCreated).JSON(BulkNewItemResponse{Items: created})
	}
}

// PUT /api/tables/:tables_id/items
func (h *Handler) UpdateItemsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tableID, err := uuidParam(c, "tables_id")
		if err != nil {
			return err
		}

		var body repository.BulkUpdateItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		ctx, cancel := h.requestContext(c)
		defer cancel()

		changes, err := h.store.UpdateTableItems(ctx, tableID, body.Items)
		if err != nil {
			return toHTTPError("updating items", err)
		}
		if len(changes) == 0 {
			return fiber.NewError(fiber.StatusNotFound, "No items were updated")
		}

		entries := make([]audit.LogOptions, 0, len(changes))
		for _, change := range changes {
			change := change
			entries = append(entries, audit.LogOptions{
				TablesID:    &change.TablesID,
				EntityType:  audit.EntityItem,
				EntityID:    change.ID.String(),
				Action:      models.AuditActionUpdate,
				Description: "Item quantities updated",
				Before:      change.Before(),
				After:       change.PartialItem,
			})
		}
		h.writeAudit(ctx, entries)

		return c.JSON(fiber.Map{
			"message": fmt.Sprintf("%d items updated successfully", len(changes)),
		})
	}
}

// GET /api/tables/:tables_id/items/:item_id
func (h *Handler) GetItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tableID, err := uuidParam(c, "tables_id")
		if err != nil {
			return err
		}
		itemID, err := uuidParam(c, "item_id")
		if err != nil {
			return err
		}

		ctx, cancel := h.requestContext(c)
		defer cancel()

		item, err := h.store.GetItem(ctx, tableID, itemID)
		if err != nil {
			return toHTTPError("retrieving item", err)
		}

		return c.JSON(item)
	}
}

// DELETE /api/tables/:tables_id/items/:item_id
func (h *Handler) DeleteItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tableID, err := uuidParam(c, "tables_id")
		if err != nil {
			return err
		}
		itemID, err := uuidParam(c, "item_id")
		if err != nil {
			return err
		}

		ctx, cancel := h.requestContext(c)
		defer cancel()

		before, err := h.store.RemoveItem(ctx, tableID, itemID)
		if errors.Is(err, repository.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("Item with id %s not found in table %s", itemID, tableID))
		}
		if err != nil {
			return toHTTPError("deleting item", err)
		}

		h.writeAudit(ctx, []audit.LogOptions{{
			TablesID:    &tableID,
			EntityType:  audit.EntityItem,
			EntityID:    itemID.String(),
			Action:      models.AuditActionDelete,
			Description: "Item deleted",
			Before:      before,
		}})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
