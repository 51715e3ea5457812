package service

import (
	"context"
	"time"

	"storefront/internal/domain"
	"storefront/internal/lock"
	"storefront/internal/pricing"
	"storefront/internal/repository"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pricer prices a cart snapshot
type Pricer interface {
	Price(ctx context.Context, cart *domain.Cart) (*domain.PricedCart, error)
}

// OfferLookup is the part of the offer registry the cart needs
type OfferLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Offer, error)
}

// CartService defines the cart operations. Every call returns the cart priced
// after the operation, and mutations of one owner's cart never interleave.
type CartService interface {
	Snapshot(ctx context.Context, owner string) (*domain.PricedCart, error)
	AddItem(ctx context.Context, owner string, productID uuid.UUID, quantity int) (*domain.PricedCart, error)
	UpdateQuantity(ctx context.Context, owner string, productID uuid.UUID, quantity int) (*domain.PricedCart, error)
	RemoveItem(ctx context.Context, owner string, productID uuid.UUID) (*domain.PricedCart, error)
	ApplyOffer(ctx context.Context, owner string, productID, offerID uuid.UUID) (*domain.PricedCart, error)
	RemoveOffer(ctx context.Context, owner string, productID uuid.UUID) (*domain.PricedCart, error)
}

type cartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	offers   OfferLookup
	pricer   Pricer
	locker   lock.Locker
	now      func() time.Time
	logger   *zap.Logger
}

// NewCartService creates a new instance of CartService
func NewCartService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	offers OfferLookup,
	pricer Pricer,
	locker lock.Locker,
	now func() time.Time,
	logger *zap.Logger,
) CartService {
	if now == nil {
		now = time.Now
	}
	return &cartService{
		carts:    carts,
		products: products,
		offers:   offers,
		pricer:   pricer,
		locker:   locker,
		now:      now,
		logger:   logger.Named("cart"),
	}
}

func cartLockKey(owner string) string {
	return "cart:" + owner
}

// acquireOwner takes the owner's cart lock, translating contention into the domain error
func acquireOwner(ctx context.Context, locker lock.Locker, owner string) (func(), error) {
	release, err := locker.Acquire(ctx, cartLockKey(owner))
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, domain.WrapCause(domain.ErrLockContention, err)
		}
		return nil, errors.Wrap(err, "acquire cart lock")
	}
	return release, nil
}

// Snapshot prices the owner's current cart
func (s *cartService) Snapshot(ctx context.Context, owner string) (*domain.PricedCart, error) {
	cart, err := s.carts.Get(ctx, owner)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	return s.pricer.Price(ctx, cart)
}

// AddItem adds quantity units of a product, merging with an existing line
func (s *cartService) AddItem(ctx context.Context, owner string, productID uuid.UUID, quantity int) (*domain.PricedCart, error) {
	if quantity < 1 {
		return nil, domain.Wrap(domain.ErrInvalidQuantity, "got %d", quantity)
	}

	return s.mutate(ctx, owner, func(cart *domain.Cart) (bool, error) {
		product, err := s.findProduct(ctx, productID)
		if err != nil {
			return false, err
		}

		i := cart.Find(productID)
		requested := quantity
		if i >= 0 {
			requested += cart.Items[i].Quantity
		}
		if requested > product.Stock {
			return false, domain.Wrap(domain.ErrOutOfStock, "requested %d of %s, %d available", requested, productID, product.Stock)
		}

		if i >= 0 {
			cart.Items[i].Quantity = requested
		} else {
			cart.Items = append(cart.Items, domain.CartItem{ProductID: productID, Quantity: quantity})
		}

		s.logger.Info("Cart item added",
			zap.String("owner", owner),
			zap.String("product_id", productID.String()),
			zap.Int("quantity", requested),
		)
		return true, nil
	})
}

// UpdateQuantity sets a line's quantity; anything below 1 removes the line
func (s *cartService) UpdateQuantity(ctx context.Context, owner string, productID uuid.UUID, quantity int) (*domain.PricedCart, error) {
	if quantity < 1 {
		return s.RemoveItem(ctx, owner, productID)
	}

	return s.mutate(ctx, owner, func(cart *domain.Cart) (bool, error) {
		i := cart.Find(productID)
		if i < 0 {
			return false, domain.Wrap(domain.ErrCartLineNotFound, "%s", productID)
		}
		current := cart.Items[i].Quantity
		if quantity == current {
			return false, nil
		}

		if quantity > current {
			product, err := s.findProduct(ctx, productID)
			if err != nil {
				return false, err
			}
			if quantity > product.Stock {
				return false, domain.Wrap(domain.ErrOutOfStock, "requested %d of %s, %d available", quantity, productID, product.Stock)
			}
		}

		cart.Items[i].Quantity = quantity

		s.logger.Info("Cart quantity updated",
			zap.String("owner", owner),
			zap.String("product_id", productID.String()),
			zap.Int("quantity", quantity),
		)
		return true, nil
	})
}

// RemoveItem drops a line; removing an absent product is a no-op
func (s *cartService) RemoveItem(ctx context.Context, owner string, productID uuid.UUID) (*domain.PricedCart, error) {
	return s.mutate(ctx, owner, func(cart *domain.Cart) (bool, error) {
		if !cart.Remove(productID) {
			return false, nil
		}
		s.logger.Info("Cart item removed",
			zap.String("owner", owner),
			zap.String("product_id", productID.String()),
		)
		return true, nil
	})
}

// ApplyOffer attaches an offer to a line, replacing any offer it already had
func (s *cartService) ApplyOffer(ctx context.Context, owner string, productID, offerID uuid.UUID) (*domain.PricedCart, error) {
	return s.mutate(ctx, owner, func(cart *domain.Cart) (bool, error) {
		i := cart.Find(productID)
		if i < 0 {
			return false, domain.Wrap(domain.ErrCartLineNotFound, "%s", productID)
		}

		offer, err := s.offers.Get(ctx, offerID)
		if err != nil {
			return false, err
		}

		now := s.now()
		if !offer.IsActive(now) {
			return false, domain.Wrap(domain.ErrOfferNotActive, "valid from %s to %s",
				offer.StartDate.Format(time.RFC3339), offer.EndDate.Format(time.RFC3339))
		}

		ids := make([]uuid.UUID, 0, len(cart.Items))
		for _, item := range cart.Items {
			ids = append(ids, item.ProductID)
		}
		products, err := s.products.FindByIDs(ctx, ids)
		if err != nil {
			return false, errors.Wrap(err, "load cart products")
		}

		product, ok := products[productID]
		if !ok {
			return false, domain.Wrap(domain.ErrProductUnavailable, "%s", productID)
		}
		if !offer.AppliesTo(product.Category) {
			return false, domain.Wrap(domain.ErrCategoryMismatch, "category %q not in %v", product.Category, offer.Categories)
		}

		subtotal := pricing.CategorySubtotals(cart, products)[product.Category]
		if subtotal < offer.MinCartValue {
			return false, domain.Wrap(domain.ErrMinCartNotMet, "%s subtotal %d, minimum %d", product.Category, subtotal, offer.MinCartValue)
		}

		id := offer.ID
		cart.Items[i].AppliedOfferID = &id

		s.logger.Info("Offer applied",
			zap.String("owner", owner),
			zap.String("product_id", productID.String()),
			zap.String("offer_id", offerID.String()),
		)
		return true, nil
	})
}

// RemoveOffer detaches the offer of a line; a line without an offer is left as is
func (s *cartService) RemoveOffer(ctx context.Context, owner string, productID uuid.UUID) (*domain.PricedCart, error) {
	return s.mutate(ctx, owner, func(cart *domain.Cart) (bool, error) {
		i := cart.Find(productID)
		if i < 0 || cart.Items[i].AppliedOfferID == nil {
			return false, nil
		}
		cart.Items[i].AppliedOfferID = nil

		s.logger.Info("Offer removed",
			zap.String("owner", owner),
			zap.String("product_id", productID.String()),
		)
		return true, nil
	})
}

// mutate runs fn on the owner's cart under the owner lock, saves it when fn
// reports a change and prices the result before the lock is released
func (s *cartService) mutate(ctx context.Context, owner string, fn func(cart *domain.Cart) (bool, error)) (*domain.PricedCart, error) {
	release, err := acquireOwner(ctx, s.locker, owner)
	if err != nil {
		return nil, err
	}
	defer release()

	cart, err := s.carts.Get(ctx, owner)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}

	changed, err := fn(cart)
	if err != nil {
		if de, ok := domain.AsError(err); ok {
			s.logger.Debug("Cart operation rejected",
				zap.String("owner", owner),
				zap.String("reason", de.Code),
				zap.Error(err),
			)
		}
		return nil, err
	}

	if changed {
		cart.UpdatedAt = s.now().UTC()
		if err := s.carts.Save(ctx, cart); err != nil {
			s.logger.Error("Failed to save cart", zap.String("owner", owner), zap.Error(err))
			return nil, errors.Wrap(err, "save cart")
		}
	}

	return s.pricer.Price(ctx, cart)
}

func (s *cartService) findProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, domain.Wrap(domain.ErrProductNotFound, "%s", id)
		}
		return nil, errors.Wrap(err, "find product")
	}
	return product, nil
}
