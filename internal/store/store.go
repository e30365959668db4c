// Package store defines the ledger abstractions for products and orders.
// Handlers and the event consumer depend on these interfaces only, so the
// Postgres-backed repositories in internal/db and the in-memory stores used
// by tests are interchangeable.
package store

import (
	"context"
	"errors"
	"fmt"

	"stockgate/internal/models"
)

// ErrNotFound is returned for lookups and debits against unknown ids.
var ErrNotFound = errors.New("not found")

// InsufficientStockError reports the first product whose on-hand quantity
// cannot satisfy a demand.
type InsufficientStockError struct {
	ProductID int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d", e.ProductID)
}

type ProductStore interface {
	Create(ctx context.Context, req models.CreateProductRequest) (*models.Product, error)
	// GetByID returns (nil, nil) when the product does not exist.
	GetByID(ctx context.Context, id int) (*models.Product, error)
	GetAll(ctx context.Context) ([]models.Product, error)
	// ValidateDemand checks every (product, quantity) pair against current
	// stock and fails fast with *InsufficientStockError at the first entry
	// that is missing or short. It is a point-in-time check: nothing is
	// reserved, and a later Debit may still find less stock than validated.
	ValidateDemand(ctx context.Context, items []models.OrderItemEvent) error
	// Debit decrements one product's quantity. It must be atomic with a
	// floor at zero: a shortfall returns *InsufficientStockError and leaves
	// the quantity untouched, an unknown product returns ErrNotFound.
	Debit(ctx context.Context, productID, quantity int) error
}

type OrderStore interface {
	// Create persists the order and its items, assigning ids and CreatedAt.
	Create(ctx context.Context, order *models.Order) error
	// GetByID returns (nil, nil) when the order does not exist.
	GetByID(ctx context.Context, id int) (*models.Order, error)
}
