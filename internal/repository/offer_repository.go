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
	ErrOfferNotFound = errors.New("offer not found")
)

// OfferRepository defines the interface for offer data access
type OfferRepository interface {
	Create(ctx context.Context, offer *domain.Offer) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Offer, error)
	// ListUnexpired returns offers whose end date is not before now, including
	// offers that have not started yet.
	ListUnexpired(ctx context.Context, now time.Time) ([]*domain.Offer, error)
}

type offerRepository struct {
	db *sql.DB
}

// NewOfferRepository creates a new instance of OfferRepository
func NewOfferRepository(db *sql.DB) OfferRepository {
	return &offerRepository{db: db}
}

// Create inserts an offer and its category set in one transaction
func (r *offerRepository) Create(ctx context.Context, offer *domain.Offer) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin offer transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO offers (id, title, discount_type, discount_value, min_cart_value, start_date, end_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		offer.ID,
		offer.Title,
		offer.DiscountType.String(),
		offer.DiscountValue,
		offer.MinCartValue,
		offer.StartDate,
		offer.EndDate,
		offer.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}

	for _, category := range offer.Categories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO offer_categories (offer_id, category) VALUES ($1, $2)
		`, offer.ID, category); err != nil {
			return fmt.Errorf("failed to attach offer category: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit offer: %w", err)
	}

	return nil
}

// Delete removes an offer; placed orders keep their own discount snapshot
func (r *offerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM offers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete offer: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrOfferNotFound
	}

	return nil
}

// FindByID retrieves an offer with its categories
func (r *offerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Offer, error) {
	offers, err := r.query(ctx, `WHERE o.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find offer by ID: %w", err)
	}
	if len(offers) == 0 {
		return nil, ErrOfferNotFound
	}
	return offers[0], nil
}

// ListUnexpired retrieves offers that are active now or start later
func (r *offerRepository) ListUnexpired(ctx context.Context, now time.Time) ([]*domain.Offer, error) {
	offers, err := r.query(ctx, `WHERE o.end_date >= $1`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	return offers, nil
}

func (r *offerRepository) query(ctx context.Context, where string, args ...any) ([]*domain.Offer, error) {
	query := `
		SELECT o.id, o.title, o.discount_type, o.discount_value, o.min_cart_value,
		       o.start_date, o.end_date, o.created_at, COALESCE(oc.category, '')
		FROM offers o
		LEFT JOIN offer_categories oc ON oc.offer_id = o.id
		` + where + `
		ORDER BY o.end_date ASC, o.id, oc.category
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	offers := []*domain.Offer{}
	byID := map[uuid.UUID]*domain.Offer{}
	for rows.Next() {
		var (
			offer        domain.Offer
			discountType string
			category     string
		)
		if err := rows.Scan(
			&offer.ID,
			&offer.Title,
			&discountType,
			&offer.DiscountValue,
			&offer.MinCartValue,
			&offer.StartDate,
			&offer.EndDate,
			&offer.CreatedAt,
			&category,
		); err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}

		existing, ok := byID[offer.ID]
		if !ok {
			if offer.DiscountType, err = domain.ParseDiscountType(discountType); err != nil {
				return nil, err
			}
			offer.Categories = []string{}
			existing = &offer
			byID[offer.ID] = existing
			offers = append(offers, existing)
		}
		if category != "" {
			existing.Categories = append(existing.Categories, category)
		}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating offers: %w", err)
	}

	return offers, nil
}
