// Package catalog matches extracted order items against a shop's live
// product snapshot using alias normalization and fuzzy scoring.
package catalog

import "context"

// Entry is a read-only projection of one product row.
type Entry struct {
	ID       string
	Name     string
	Category string
	Price    float64
}

// Store fetches a shop-scoped snapshot of the product catalog. The matcher
// reads the snapshot once per Match call; mid-call catalog changes are not
// observed.
type Store interface {
	Products(ctx context.Context, shopID string) ([]Entry, error)
}
