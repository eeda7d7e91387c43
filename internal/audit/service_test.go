package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"order-tracker/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONState(t *testing.T) {
	assert.Equal(t, "null", jsonState(nil))
	assert.Equal(t, `{"quantity":2}`, jsonState(map[string]int{"quantity": 2}))
	assert.Equal(t, "null", jsonState(make(chan int)))
}

func TestToModel(t *testing.T) {
	tableID := uuid.New()
	itemID := uuid.New()

	log := toModel(LogOptions{
		TablesID:    &tableID,
		EntityType:  EntityItem,
		EntityID:    itemID.String(),
		Action:      models.AuditActionCreate,
		Description: "Ordered 2 x menu",
		After:       models.PartialItem{ID: itemID, Quantity: 2},
	})

	require.NotNil(t, log.TablesID)
	assert.Equal(t, tableID.String(), *log.TablesID)
	assert.Equal(t, "item", log.EntityType)
	assert.Equal(t, "null", log.BeforeData)

	var after models.PartialItem
	require.NoError(t, json.Unmarshal([]byte(log.AfterData), &after))
	assert.Equal(t, itemID, after.ID)
	assert.Equal(t, int32(2), after.Quantity)
}

func TestWriteLogsEmptyIsNoop(t *testing.T) {
	svc := NewService(nil)
	assert.NoError(t, svc.WriteLogs(context.Background(), nil))
}

type fakeLister struct {
	logs   []models.AuditLog
	err    error
	filter Filter
}

func (f *fakeLister) List(_ context.Context, filter Filter) ([]models.AuditLog, error) {
	f.filter = filter
	return f.logs, f.err
}

func TestListAuditLogsHandler(t *testing.T) {
	lister := &fakeLister{logs: []models.AuditLog{{
		ID:         7,
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		EntityType: EntityItem,
		EntityID:   "abc",
		Action:     models.AuditActionDelete,
	}}}

	app := fiber.New()
	app.Get("/audit-logs", ListAuditLogsHandler(lister))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/audit-logs?entity_type=item&action=delete&limit=5&offset=1", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var logs []AuditLogResponse
	require.NoError(t, json.Unmarshal(body, &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "2026-01-02 03:04:05", logs[0].CreatedAt)
	assert.Equal(t, models.AuditActionDelete, logs[0].Action)

	assert.Equal(t, Filter{EntityType: "item", Action: models.AuditActionDelete, Limit: 5, Offset: 1}, lister.filter)
}

func TestListAuditLogsHandlerErrors(t *testing.T) {
	app := fiber.New()
	app.Get("/audit-logs", ListAuditLogsHandler(&fakeLister{err: errors.New("down")}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/audit-logs", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/audit-logs?limit=-1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
