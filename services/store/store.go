package store

import "context"

// PricePoint is one observed price for a product.
type PricePoint struct {
	Price        string `json:"price"`
	Availability string `json:"availability"`
	Date         string `json:"date"`
}

// Store persists parsed products and their price history. Payloads are
// opaque JSON so the store stays decoupled from the product shape.
type Store interface {
	// SaveProduct upserts the serialized product under its ID.
	SaveProduct(ctx context.Context, id string, data []byte) error

	// GetProduct returns the serialized product, or nil when absent.
	GetProduct(ctx context.Context, id string) ([]byte, error)

	// RecordPrice appends a price observation for the product.
	RecordPrice(ctx context.Context, id string, point PricePoint) error

	// GetPriceHistory returns observations from the last N days, newest
	// first.
	GetPriceHistory(ctx context.Context, id string, days int) ([]PricePoint, error)

	// Close closes the store connection.
	Close() error
}
