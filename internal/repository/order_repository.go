package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// OrderRepository defines the interface for order data access. Orders are never deleted.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByOwner(ctx context.Context, owner string) ([]*domain.Order, error)
	List(ctx context.Context, status *domain.OrderStatus) ([]*domain.Order, error)
	// UpdateStatus sets to only if the stored status still equals from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, at time.Time) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create inserts the order header and its item snapshot in one transaction
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin order transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, owner, cart_total, total_discount, final_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		order.ID,
		order.Owner,
		order.CartTotal,
		order.TotalDiscount,
		order.FinalAmount,
		string(order.Status),
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for i, item := range order.Items {
		offerID := uuid.NullUUID{}
		if item.OfferID != nil {
			offerID = uuid.NullUUID{UUID: *item.OfferID, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, product_id, title, quantity, unit_price, offer_id, discount_amount, final_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			order.ID,
			i,
			item.ProductID,
			item.Title,
			item.Quantity,
			item.UnitPrice,
			offerID,
			item.DiscountAmount,
			item.FinalPrice,
		)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	return nil
}

// FindByID retrieves an order with its items
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	orders, err := r.query(ctx, `WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return orders[0], nil
}

// ListByOwner retrieves the owner's orders, newest first
func (r *orderRepository) ListByOwner(ctx context.Context, owner string) ([]*domain.Order, error) {
	orders, err := r.query(ctx, `WHERE owner = $1`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders by owner: %w", err)
	}
	return orders, nil
}

// List retrieves every order, optionally filtered by status, newest first
func (r *orderRepository) List(ctx context.Context, status *domain.OrderStatus) ([]*domain.Order, error) {
	var (
		orders []*domain.Order
		err    error
	)
	if status != nil {
		orders, err = r.query(ctx, `WHERE status = $1`, string(*status))
	} else {
		orders, err = r.query(ctx, ``)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus performs a compare-and-set on the order status
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`, id, string(from), string(to), at)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check order: %w", err)
		}
		if !exists {
			return ErrOrderNotFound
		}
		return ErrStatusConflict
	}

	return nil
}

func (r *orderRepository) query(ctx context.Context, where string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner, cart_total, total_discount, final_amount, status, created_at, updated_at
		FROM orders
		`+where+`
		ORDER BY created_at DESC, id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []*domain.Order{}
	byID := map[uuid.UUID]*domain.Order{}
	for rows.Next() {
		order := &domain.Order{Items: []domain.OrderItem{}}
		var status string
		if err := rows.Scan(
			&order.ID,
			&order.Owner,
			&order.CartTotal,
			&order.TotalDiscount,
			&order.FinalAmount,
			&status,
			&order.CreatedAt,
			&order.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		order.Status = domain.OrderStatus(status)
		orders = append(orders, order)
		byID[order.ID] = order
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, title, quantity, unit_price, offer_id, discount_amount, final_price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, uuidStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			orderID uuid.UUID
			item    domain.OrderItem
			offerID uuid.NullUUID
		)
		if err := itemRows.Scan(
			&orderID,
			&item.ProductID,
			&item.Title,
			&item.Quantity,
			&item.UnitPrice,
			&offerID,
			&item.DiscountAmount,
			&item.FinalPrice,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if offerID.Valid {
			id := offerID.UUID
			item.OfferID = &id
		}
		if order, ok := byID[orderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	if err = itemRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return orders, nil
}
