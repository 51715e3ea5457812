// Package offer is the offer registry: read queries used by pricing and the cart,
// plus the administrative create and delete that keep its cached view fresh.
package offer

import (
	"context"
	"strings"
	"time"

	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductLister lists catalog products by category.
type ProductLister interface {
	ListByCategories(ctx context.Context, categories []string) ([]*domain.Product, error)
}

// CreateInput carries the administrative fields of a new offer.
type CreateInput struct {
	Title         string
	DiscountType  domain.DiscountType
	DiscountValue decimal.Decimal
	MinCartValue  int64
	Categories    []string
	StartDate     time.Time
	EndDate       time.Time
}

type Registry struct {
	offers     repository.OfferRepository
	categories repository.CategoryRepository
	products   ProductLister
	cache      cache.OfferCache
	cacheTTL   time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

func NewRegistry(
	offers repository.OfferRepository,
	categories repository.CategoryRepository,
	products ProductLister,
	offerCache cache.OfferCache,
	cacheTTL time.Duration,
	now func() time.Time,
	logger *zap.Logger,
) *Registry {
	if offerCache == nil {
		offerCache = cache.NoopOfferCache{}
	}
	if now == nil {
		now = time.Now
	}
	return &Registry{
		offers:     offers,
		categories: categories,
		products:   products,
		cache:      offerCache,
		cacheTTL:   cacheTTL,
		now:        now,
		logger:     logger.Named("offers"),
	}
}

// Now is the registry clock.
func (r *Registry) Now() time.Time {
	return r.now()
}

// ListActive returns the offers whose validity window contains now.
func (r *Registry) ListActive(ctx context.Context, now time.Time) ([]*domain.Offer, error) {
	unexpired, err := r.unexpired(ctx, now)
	if err != nil {
		return nil, err
	}

	active := make([]*domain.Offer, 0, len(unexpired))
	for _, o := range unexpired {
		if o.IsActive(now) {
			active = append(active, o)
		}
	}
	return active, nil
}

// ListActiveForCategory narrows ListActive to offers covering category.
// An empty category returns every active offer.
func (r *Registry) ListActiveForCategory(ctx context.Context, category string) ([]*domain.Offer, error) {
	active, err := r.ListActive(ctx, r.now())
	if err != nil {
		return nil, err
	}
	if category == "" {
		return active, nil
	}

	out := make([]*domain.Offer, 0, len(active))
	for _, o := range active {
		if o.AppliesTo(category) {
			out = append(out, o)
		}
	}
	return out, nil
}

// EligibleFor returns active offers for category whose minimum is met by categorySubtotal.
func (r *Registry) EligibleFor(ctx context.Context, category string, categorySubtotal int64) ([]*domain.Offer, error) {
	now := r.now()
	active, err := r.ListActive(ctx, now)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Offer, 0, len(active))
	for _, o := range active {
		if o.Eligible(category, categorySubtotal, now) {
			out = append(out, o)
		}
	}
	return out, nil
}

// Get returns an offer whether or not it is currently active.
func (r *Registry) Get(ctx context.Context, id uuid.UUID) (*domain.Offer, error) {
	o, err := r.offers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			return nil, domain.Wrap(domain.ErrOfferNotFound, "%s", id)
		}
		return nil, errors.Wrap(err, "find offer")
	}
	return o, nil
}

// CountActive counts the offers active right now.
func (r *Registry) CountActive(ctx context.Context) (int, error) {
	active, err := r.ListActive(ctx, r.now())
	if err != nil {
		return 0, err
	}
	return len(active), nil
}

// Products lists the catalog products an offer can discount.
func (r *Registry) Products(ctx context.Context, id uuid.UUID) ([]*domain.Product, error) {
	o, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	products, err := r.products.ListByCategories(ctx, o.Categories)
	if err != nil {
		return nil, errors.Wrap(err, "list offer products")
	}
	return products, nil
}

// Categories lists the registered category tags.
func (r *Registry) Categories(ctx context.Context) ([]*domain.Category, error) {
	categories, err := r.categories.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return categories, nil
}

// Create validates and registers a new offer.
func (r *Registry) Create(ctx context.Context, in CreateInput) (*domain.Offer, error) {
	o := &domain.Offer{
		ID:            uuid.New(),
		Title:         strings.TrimSpace(in.Title),
		DiscountType:  in.DiscountType,
		DiscountValue: in.DiscountValue,
		MinCartValue:  in.MinCartValue,
		Categories:    normalizeCategories(in.Categories),
		StartDate:     in.StartDate.UTC(),
		EndDate:       in.EndDate.UTC(),
		CreatedAt:     r.now().UTC(),
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}

	ok, err := r.categories.Exists(ctx, o.Categories...)
	if err != nil {
		return nil, errors.Wrap(err, "check offer categories")
	}
	if !ok {
		return nil, domain.Wrap(domain.ErrInvalidOffer, "unknown category in %v", o.Categories)
	}

	if err := r.offers.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create offer")
	}
	if err := r.invalidate(ctx); err != nil {
		return nil, err
	}

	r.logger.Info("Offer created",
		zap.String("offer_id", o.ID.String()),
		zap.String("discount_type", o.DiscountType.String()),
		zap.Strings("categories", o.Categories),
	)
	return o, nil
}

// Delete removes an offer. Carts holding it stop receiving its discount on the next read.
func (r *Registry) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.offers.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			return domain.Wrap(domain.ErrOfferNotFound, "%s", id)
		}
		return errors.Wrap(err, "delete offer")
	}
	if err := r.invalidate(ctx); err != nil {
		return err
	}

	r.logger.Info("Offer deleted", zap.String("offer_id", id.String()))
	return nil
}

func (r *Registry) unexpired(ctx context.Context, now time.Time) ([]*domain.Offer, error) {
	if cached, ok, err := r.cache.Get(ctx); err != nil {
		r.logger.Warn("Offer cache read failed", zap.Error(err))
	} else if ok {
		return cached, nil
	}

	// the generation is taken before the store read so a concurrent
	// Create or Delete makes this fill a no-op
	generation, genErr := r.cache.Generation(ctx)
	if genErr != nil {
		r.logger.Warn("Offer cache generation read failed", zap.Error(genErr))
	}

	offers, err := r.offers.ListUnexpired(ctx, now)
	if err != nil {
		return nil, errors.Wrap(err, "list offers")
	}

	if genErr == nil {
		if _, err := r.cache.Set(ctx, generation, offers, r.cacheTTL); err != nil {
			r.logger.Warn("Offer cache write failed", zap.Error(err))
		}
	}
	return offers, nil
}

func (r *Registry) invalidate(ctx context.Context) error {
	if err := r.cache.Invalidate(ctx); err != nil {
		r.logger.Error("Offer cache invalidation failed", zap.Error(err))
		return errors.Wrap(err, "invalidate offer cache")
	}
	return nil
}

func normalizeCategories(categories []string) []string {
	seen := make(map[string]struct{}, len(categories))
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
