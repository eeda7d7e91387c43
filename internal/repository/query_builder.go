package repository

import (
	"strconv"
	"strings"

	"order-tracker/internal/models"

	"github.com/google/uuid"
)

const (
	insertItemColumns = 5 // id, tables_id, menu_id, quantity, delivered_quantity
	updateItemParams  = 3 // id, quantity, delivered_quantity delta
)

// newID is swapped out in tests that need predictable ids.
var newID = uuid.New

// Statement is a SQL text with numbered placeholders ($1, $2, ...) and the
// arguments for them, in placeholder order.
type Statement struct {
	SQL  string
	Args []any
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// placeholderGroups renders rows groups of cols numbered placeholders.
// Row r covers $(r*cols+1) .. $(r*cols+cols).
func placeholderGroups(rows, cols int) string {
	var sb strings.Builder
	for r := 0; r < rows; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := 0; c < cols; c++ {
			if c > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(placeholder(r*cols + c + 1))
		}
		sb.WriteByte(')')
	}
	return sb.String()
}

// BuildInsertItems builds one multi-row INSERT for reqs and returns the rows it
// will create. Every row gets a fresh id and delivered_quantity 0.
func BuildInsertItems(tableID uuid.UUID, reqs []NewItemRequest) (Statement, []models.PartialItem) {
	args := make([]any, 0, len(reqs)*insertItemColumns)
	created := make([]models.PartialItem, 0, len(reqs))

	for _, req := range reqs {
		item := models.PartialItem{
			ID:                newID(),
			TablesID:          tableID,
			MenuID:            req.MenuID,
			Quantity:          req.Quantity,
			DeliveredQuantity: 0,
		}
		args = append(args, item.ID, item.TablesID, item.MenuID, item.Quantity, item.DeliveredQuantity)
		created = append(created, item)
	}

	sql := "INSERT INTO items (id, tables_id, menu_id, quantity, delivered_quantity) VALUES " +
		placeholderGroups(len(reqs), insertItemColumns)

	return Statement{SQL: sql, Args: args}, created
}

// updateSet renders the SET list shared by the update statements.
// Item i binds $(3i+1) id, $(3i+2) quantity, $(3i+3) delivered delta; the id
// placeholder is referenced in both CASE expressions and in the returned id list.
// A nil quantity keeps the stored value, a nil delta adds nothing.
func updateSet(reqs []UpdateItemRequest) (set string, ids []string, args []any) {
	var quantityCases, deliveredCases strings.Builder
	ids = make([]string, 0, len(reqs))
	args = make([]any, 0, len(reqs)*updateItemParams+1)

	for i, req := range reqs {
		base := i * updateItemParams
		id := placeholder(base + 1)
		quantity := placeholder(base + 2)
		delta := placeholder(base + 3)

		quantityCases.WriteString("WHEN id = " + id + " THEN COALESCE(" + quantity + "::integer, quantity) ")
		deliveredCases.WriteString("WHEN id = " + id + " THEN delivered_quantity + COALESCE(" + delta + "::integer, 0) ")
		ids = append(ids, id)

		args = append(args, req.ID, req.Quantity, req.DeliveredQuantity)
	}

	set = "quantity = CASE " + quantityCases.String() + "ELSE quantity END, " +
		"delivered_quantity = CASE " + deliveredCases.String() + "ELSE delivered_quantity END, " +
		"updated_at = CURRENT_TIMESTAMP"
	return set, ids, args
}

// BuildUpdateItems builds one UPDATE covering every id in reqs, whatever table
// the rows belong to.
func BuildUpdateItems(reqs []UpdateItemRequest) Statement {
	set, ids, args := updateSet(reqs)

	sql := "UPDATE items SET " + set + " " +
		"WHERE id IN (" + strings.Join(ids, ", ") + ")"

	return Statement{SQL: sql, Args: args}
}

// BuildUpdateTableItems is BuildUpdateItems restricted to the rows of tableID.
// The rows are locked and read in the same statement, so RETURNING yields each
// changed row after the update together with its previous quantities.
// tableID binds the placeholder after the last item.
func BuildUpdateTableItems(tableID uuid.UUID, reqs []UpdateItemRequest) Statement {
	set, ids, args := updateSet(reqs)
	table := placeholder(len(args) + 1)
	args = append(args, tableID)

	sql := "UPDATE items SET " + set + " " +
		"FROM (SELECT id AS prev_id, quantity AS prev_quantity, delivered_quantity AS prev_delivered_quantity " +
		"FROM items WHERE id IN (" + strings.Join(ids, ", ") + ") AND tables_id = " + table + " FOR UPDATE) AS prev " +
		"WHERE items.id = prev.prev_id " +
		"RETURNING items.id, items.tables_id, items.menu_id, items.quantity, items.delivered_quantity, " +
		"prev.prev_quantity, prev.prev_delivered_quantity"

	return Statement{SQL: sql, Args: args}
}
