package db

import (
	"context"
	"database/sql"
	"fmt"

	"stockgate/internal/models"
	"stockgate/internal/store"
)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(database *PostgresDB) *ProductRepository {
	return &ProductRepository{db: database.Conn}
}

// GetAll returns all products
func (r *ProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	query := "SELECT id, name, description, price, quantity, created_at FROM products ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Quantity, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

// GetByID returns a single product
func (r *ProductRepository) GetByID(ctx context.Context, id int) (*models.Product, error) {
	query := "SELECT id, name, description, price, quantity, created_at FROM products WHERE id = $1"

	var p models.Product
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Quantity, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &p, nil
}

// Create inserts a new product
func (r *ProductRepository) Create(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	query := `
		INSERT INTO products (name, description, price, quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, description, price, quantity, created_at
	`

	var p models.Product
	err := r.db.QueryRowContext(ctx, query, req.Name, req.Description, req.Price, req.Quantity).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Quantity, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return &p, nil
}

// ValidateDemand checks each demand against current stock, failing fast at
// the first product that is missing or short. Point-in-time only: no row is
// locked past the query.
func (r *ProductRepository) ValidateDemand(ctx context.Context, items []models.OrderItemEvent) error {
	query := "SELECT quantity FROM products WHERE id = $1"

	for _, item := range items {
		var quantity int
		err := r.db.QueryRowContext(ctx, query, item.ProductID).Scan(&quantity)
		if err == sql.ErrNoRows {
			return &store.InsufficientStockError{ProductID: item.ProductID}
		}
		if err != nil {
			return fmt.Errorf("failed to check stock for product %d: %w", item.ProductID, err)
		}
		if quantity < item.Quantity {
			return &store.InsufficientStockError{ProductID: item.ProductID}
		}
	}

	return nil
}

// Debit decrements a product's quantity with a floor at zero. The guard in
// the WHERE clause makes the decrement atomic, so concurrent debits against
// the same product cannot drive it negative.
func (r *ProductRepository) Debit(ctx context.Context, productID, quantity int) error {
	query := `UPDATE products SET quantity = quantity - $1 WHERE id = $2 AND quantity >= $1`

	result, err := r.db.ExecContext(ctx, query, quantity, productID)
	if err != nil {
		return fmt.Errorf("failed to debit product %d: %w", productID, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		return nil
	}

	// Nothing updated: either the product is gone or stock ran short.
	var onHand int
	err = r.db.QueryRowContext(ctx, "SELECT quantity FROM products WHERE id = $1", productID).Scan(&onHand)
	if err == sql.ErrNoRows {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check product %d after debit: %w", productID, err)
	}
	return &store.InsufficientStockError{ProductID: productID}
}
