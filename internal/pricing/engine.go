// Package pricing turns a cart into a PricedCart. It never writes to its collaborators
// and never caches results, so every read reflects the cart as it is at that moment.
package pricing

import (
	"context"
	"time"

	"storefront/internal/domain"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Catalog is the read side of the product catalog used for pricing.
type Catalog interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error)
}

// OfferSource lists the offers that are active at now.
type OfferSource interface {
	ListActive(ctx context.Context, now time.Time) ([]*domain.Offer, error)
}

type Engine struct {
	catalog Catalog
	offers  OfferSource
	now     func() time.Time
}

func NewEngine(catalog Catalog, offers OfferSource, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{catalog: catalog, offers: offers, now: now}
}

// Price reads the products and active offers referenced by cart and prices it.
func (e *Engine) Price(ctx context.Context, cart *domain.Cart) (*domain.PricedCart, error) {
	now := e.now()

	ids := make([]uuid.UUID, 0, len(cart.Items))
	hasOffer := false
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
		if item.AppliedOfferID != nil {
			hasOffer = true
		}
	}

	products, err := e.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "load cart products")
	}

	offers := map[uuid.UUID]*domain.Offer{}
	if hasOffer {
		active, err := e.offers.ListActive(ctx, now)
		if err != nil {
			return nil, errors.Wrap(err, "load active offers")
		}
		for _, o := range active {
			offers[o.ID] = o
		}
	}

	return Compute(cart, products, offers, now), nil
}

// Compute prices cart against fixed product and offer snapshots.
//
// Lines whose product is gone are reported unavailable and contribute nothing.
// An applied offer discounts its line only while it is active, covers the
// product's category and the cart's subtotal for that category reaches the
// offer minimum; otherwise the line keeps the offer id with a zero discount.
func Compute(cart *domain.Cart, products map[uuid.UUID]*domain.Product, offers map[uuid.UUID]*domain.Offer, now time.Time) *domain.PricedCart {
	priced := &domain.PricedCart{
		Owner:    cart.Owner,
		Items:    make([]domain.PricedLine, 0, len(cart.Items)),
		PricedAt: now,
	}

	categorySubtotals := CategorySubtotals(cart, products)

	for _, item := range cart.Items {
		line := domain.PricedLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
		if item.AppliedOfferID != nil {
			id := *item.AppliedOfferID
			line.AppliedOfferID = &id
		}

		product, ok := products[item.ProductID]
		if !ok {
			priced.Items = append(priced.Items, line)
			continue
		}

		line.Available = true
		line.Title = product.Title
		line.Category = product.Category
		line.Thumbnail = product.Thumbnail
		line.UnitPrice = product.Price
		line.LineSubtotal = product.Price * int64(item.Quantity)

		if line.AppliedOfferID != nil {
			if offer, ok := offers[*line.AppliedOfferID]; ok && offer.Eligible(product.Category, categorySubtotals[product.Category], now) {
				line.OfferEligible = true
				line.DiscountAmount = Discount(offer, line.LineSubtotal)
			}
		}
		line.FinalPrice = line.LineSubtotal - line.DiscountAmount

		priced.CartTotal += line.LineSubtotal
		priced.TotalDiscount += line.DiscountAmount
		priced.Items = append(priced.Items, line)
	}

	priced.PayableAmount = priced.CartTotal - priced.TotalDiscount
	if priced.PayableAmount < 0 {
		priced.PayableAmount = 0
	}

	return priced
}

// CategorySubtotals sums price × quantity per category over the cart's available lines.
func CategorySubtotals(cart *domain.Cart, products map[uuid.UUID]*domain.Product) map[string]int64 {
	subtotals := make(map[string]int64)
	for _, item := range cart.Items {
		if p, ok := products[item.ProductID]; ok {
			subtotals[p.Category] += p.Price * int64(item.Quantity)
		}
	}
	return subtotals
}

var hundred = decimal.NewFromInt(100)

// Discount is the single discount formula. PERCENT rounds half up to the minor
// unit; FLAT applies once per line regardless of quantity. The result is
// always within [0, lineSubtotal].
func Discount(offer *domain.Offer, lineSubtotal int64) int64 {
	if lineSubtotal <= 0 {
		return 0
	}

	var amount int64
	switch offer.DiscountType {
	case domain.DiscountPercent:
		amount = decimal.NewFromInt(lineSubtotal).
			Mul(offer.DiscountValue).
			Div(hundred).
			Round(0).
			IntPart()
	case domain.DiscountFlat:
		amount = offer.DiscountValue.Round(0).IntPart()
	}

	if amount < 0 {
		return 0
	}
	if amount > lineSubtotal {
		return lineSubtotal
	}
	return amount
}
