package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/lock"
	"storefront/internal/offer"
	"storefront/internal/pricing"
	"storefront/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	products *memory.ProductStore
	offers   *memory.OfferStore
	carts    *memory.CartStore
	orders   *memory.OrderStore
	locker   *lock.Local
	registry *offer.Registry
	engine   *pricing.Engine
	cart     CartService
	order    OrderService
}

func newFixture(t testing.TB, products ...*domain.Product) *fixture {
	t.Helper()
	return newFixtureWithOrders(t, nil, products...)
}

// newFixtureWithOrders lets a test swap the order repository, e.g. for one that fails
func newFixtureWithOrders(t testing.TB, orders *failingOrderStore, products ...*domain.Product) *fixture {
	t.Helper()

	clock := func() time.Time { return testNow }
	f := &fixture{
		products: memory.NewProductStore(products...),
		offers:   memory.NewOfferStore(),
		carts:    memory.NewCartStore(),
		orders:   memory.NewOrderStore(),
		locker:   lock.NewLocal(50 * time.Millisecond),
	}
	categories := memory.NewCategoryStore("electronics", "books", "grocery")
	f.registry = offer.NewRegistry(f.offers, categories, f.products, cache.NoopOfferCache{}, time.Minute, clock, zap.NewNop())
	f.engine = pricing.NewEngine(f.products, f.registry, clock)
	f.cart = NewCartService(f.carts, f.products, f.registry, f.engine, f.locker, clock, zap.NewNop())

	if orders != nil {
		orders.OrderStore = f.orders
		f.order = NewOrderService(orders, f.carts, f.products, f.engine, f.locker, clock, zap.NewNop())
	} else {
		f.order = NewOrderService(f.orders, f.carts, f.products, f.engine, f.locker, clock, zap.NewNop())
	}
	return f
}

func newProduct(title, category string, price int64, stock int) *domain.Product {
	return &domain.Product{
		ID:        uuid.New(),
		Title:     title,
		Category:  category,
		Price:     price,
		Stock:     stock,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
}

func newOffer(kind domain.DiscountType, value, minCart int64, categories ...string) *domain.Offer {
	return &domain.Offer{
		ID:            uuid.New(),
		Title:         "test offer",
		DiscountType:  kind,
		DiscountValue: decimal.NewFromInt(value),
		MinCartValue:  minCart,
		Categories:    categories,
		StartDate:     testNow.Add(-24 * time.Hour),
		EndDate:       testNow.Add(24 * time.Hour),
		CreatedAt:     testNow,
	}
}

func (f *fixture) addOffer(t testing.TB, o *domain.Offer) *domain.Offer {
	t.Helper()
	if err := f.offers.Create(context.Background(), o); err != nil {
		t.Fatalf("create offer: %v", err)
	}
	return o
}

func (f *fixture) stock(t testing.TB, id uuid.UUID) int {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find product: %v", err)
	}
	return p.Stock
}

var errOrderStoreDown = errors.New("order store unavailable")

// failingOrderStore rejects every Create and delegates the rest
type failingOrderStore struct {
	*memory.OrderStore
}

func (s *failingOrderStore) Create(context.Context, *domain.Order) error {
	return errOrderStoreDown
}
