package orders

import "context"

// Line is one committed order line. Only matched items become lines.
type Line struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	Price       float64 `json:"price"`
	Total       float64 `json:"total"`
}

// Record is the order row handed to storage.
type Record struct {
	ShopID          string
	CustomerID      string
	OrderNumber     string
	Source          string
	Items           []Line
	TotalAmount     float64
	GSTAmount       float64
	Status          string
	DeliveryAddress string
	Notes           string
}

// Store persists order records and returns the storage-assigned row ID.
type Store interface {
	CreateOrder(ctx context.Context, rec Record) (string, error)
}
