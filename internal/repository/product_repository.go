package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ProductRepository is the catalog reference used by pricing and order placement
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error)
	ListByCategories(ctx context.Context, categories []string) ([]*domain.Product, error)
	// DecrementStock applies every adjustment or none of them.
	DecrementStock(ctx context.Context, adjustments []domain.StockAdjustment) error
	RestoreStock(ctx context.Context, adjustments []domain.StockAdjustment) error
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, title, category, price, stock, thumbnail, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	err := row.Scan(
		&product.ID,
		&product.Title,
		&product.Category,
		&product.Price,
		&product.Stock,
		&product.Thumbnail,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Create inserts a new product using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, title, category, price, stock, thumbnail, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Title,
		product.Category,
		product.Price,
		product.Stock,
		product.Thumbnail,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindByIDs retrieves the products that exist among ids; missing ids are simply absent
func (r *productRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	products := make(map[uuid.UUID]*domain.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, uuidStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products[product.ID] = product
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// ListByCategories lists products whose category is one of categories, by title
func (r *productRepository) ListByCategories(ctx context.Context, categories []string) ([]*domain.Product, error) {
	products := []*domain.Product{}
	if len(categories) == 0 {
		return products, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE category = ANY($1) ORDER BY title ASC`

	rows, err := r.db.QueryContext(ctx, query, categories)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// DecrementStock removes the adjusted quantities inside one transaction
func (r *productRepository) DecrementStock(ctx context.Context, adjustments []domain.StockAdjustment) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin stock transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Lock rows in a stable order so concurrent placements cannot deadlock.
	ordered := sortedAdjustments(adjustments)

	for _, adj := range ordered {
		result, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $2, updated_at = now()
			WHERE id = $1 AND stock >= $2
		`, adj.ProductID, adj.Quantity)
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		if rowsAffected == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, adj.ProductID).Scan(&exists); err != nil {
				return fmt.Errorf("failed to check product: %w", err)
			}
			if !exists {
				return fmt.Errorf("%w: %s", ErrProductNotFound, adj.ProductID)
			}
			return fmt.Errorf("%w: %s", ErrInsufficientStock, adj.ProductID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit stock transaction: %w", err)
	}

	return nil
}

// RestoreStock returns previously decremented quantities
func (r *productRepository) RestoreStock(ctx context.Context, adjustments []domain.StockAdjustment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin stock transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, adj := range sortedAdjustments(adjustments) {
		if _, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock + $2, updated_at = now()
			WHERE id = $1
		`, adj.ProductID, adj.Quantity); err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit stock transaction: %w", err)
	}

	return nil
}

func sortedAdjustments(adjustments []domain.StockAdjustment) []domain.StockAdjustment {
	ordered := make([]domain.StockAdjustment, len(adjustments))
	copy(ordered, adjustments)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ProductID.String() < ordered[j].ProductID.String()
	})
	return ordered
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
