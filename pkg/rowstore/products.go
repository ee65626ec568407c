package rowstore

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/storestorm/intake/pkg/catalog"
)

// ProductStore reads a shop's product snapshot from the products table.
type ProductStore struct {
	db *sql.DB
}

func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{db: db}
}

func (s *ProductStore) Products(ctx context.Context, shopID string) ([]catalog.Entry, error) {
	query, args, err := qb.
		Select("id", "name", "category", "price").
		From("products").
		Where(sq.Eq{"shop_id": shopID}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("rowstore: build products query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("rowstore: query products: %w", err)
	}
	defer rows.Close()

	var entries []catalog.Entry
	for rows.Next() {
		var e catalog.Entry
		var category sql.NullString
		if err := rows.Scan(&e.ID, &e.Name, &category, &e.Price); err != nil {
			return nil, fmt.Errorf("rowstore: scan product: %w", err)
		}
		e.Category = category.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rowstore: iterate products: %w", err)
	}
	return entries, nil
}

var _ catalog.Store = (*ProductStore)(nil)
