package rowstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/storestorm/intake/pkg/orders"
)

// OrderStore writes confirmed orders into the orders table. Line items are
// stored as a JSON document alongside the denormalized totals.
type OrderStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db, now: time.Now}
}

func (s *OrderStore) CreateOrder(ctx context.Context, rec orders.Record) (string, error) {
	items, err := json.Marshal(rec.Items)
	if err != nil {
		return "", fmt.Errorf("rowstore: marshal order items: %w", err)
	}

	id := uuid.NewString()
	query, args, err := qb.
		Insert("orders").
		Columns(
			"id", "shop_id", "customer_id", "order_number", "source",
			"items", "total_amount", "gst_amount", "status",
			"delivery_address", "notes", "created_at",
		).
		Values(
			id, rec.ShopID, rec.CustomerID, rec.OrderNumber, rec.Source,
			items, rec.TotalAmount, rec.GSTAmount, rec.Status,
			rec.DeliveryAddress, rec.Notes, s.now().UTC(),
		).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("rowstore: build order insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("rowstore: insert order: %w", err)
	}
	return id, nil
}

var _ orders.Store = (*OrderStore)(nil)
