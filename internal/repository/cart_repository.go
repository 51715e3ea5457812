package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

// CartRepository stores one cart per owner. Get never fails for an unknown owner;
// it returns an empty cart instead.
type CartRepository interface {
	Get(ctx context.Context, owner string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	Clear(ctx context.Context, owner string) error
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

// Get loads the owner's cart lines in insertion order
func (r *cartRepository) Get(ctx context.Context, owner string) (*domain.Cart, error) {
	cart := domain.NewCart(owner)

	err := r.db.QueryRowContext(ctx, `SELECT updated_at FROM carts WHERE owner = $1`, owner).Scan(&cart.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return cart, nil
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, quantity, applied_offer_id
		FROM cart_items
		WHERE owner = $1
		ORDER BY position ASC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item    domain.CartItem
			offerID uuid.NullUUID
		)
		if err := rows.Scan(&item.ProductID, &item.Quantity, &offerID); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		if offerID.Valid {
			id := offerID.UUID
			item.AppliedOfferID = &id
		}
		cart.Items = append(cart.Items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return cart, nil
}

// Save replaces the stored lines of the cart with cart.Items
func (r *cartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cart transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if cart.UpdatedAt.IsZero() {
		cart.UpdatedAt = time.Now().UTC()
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO carts (owner, updated_at) VALUES ($1, $2)
		ON CONFLICT (owner) DO UPDATE SET updated_at = EXCLUDED.updated_at
	`, cart.Owner, cart.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE owner = $1`, cart.Owner); err != nil {
		return fmt.Errorf("failed to reset cart items: %w", err)
	}

	for i, item := range cart.Items {
		offerID := uuid.NullUUID{}
		if item.AppliedOfferID != nil {
			offerID = uuid.NullUUID{UUID: *item.AppliedOfferID, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cart_items (owner, product_id, quantity, applied_offer_id, position)
			VALUES ($1, $2, $3, $4, $5)
		`, cart.Owner, item.ProductID, item.Quantity, offerID, i); err != nil {
			return fmt.Errorf("failed to insert cart item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cart: %w", err)
	}

	return nil
}

// Clear empties the owner's cart but keeps the cart itself. Either both the
// lines and the cart timestamp change or neither does.
func (r *cartRepository) Clear(ctx context.Context, owner string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cart transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE owner = $1`, owner); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE carts SET updated_at = now() WHERE owner = $1`, owner); err != nil {
		return fmt.Errorf("failed to touch cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cart: %w", err)
	}

	return nil
}
