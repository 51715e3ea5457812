package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
)

type checkoutTestContext struct {
	t        *testing.T
	f        *fixture
	products map[string]uuid.UUID
	offers   map[string]*domain.Offer
	owner    string
	priced   *domain.PricedCart
	order    *domain.Order
	err      error
}

func (c *checkoutTestContext) reset() {
	c.f = newFixture(c.t)
	c.products = map[string]uuid.UUID{}
	c.offers = map[string]*domain.Offer{}
	c.owner = ""
	c.priced = nil
	c.order = nil
	c.err = nil
}

// record keeps the first failure of a run of When steps so a Then can assert on it
func (c *checkoutTestContext) record(priced *domain.PricedCart, err error) {
	if priced != nil {
		c.priced = priced
	}
	if c.err == nil {
		c.err = err
	}
}

func (c *checkoutTestContext) productID(title string) (uuid.UUID, error) {
	id, ok := c.products[title]
	if !ok {
		return uuid.Nil, fmt.Errorf("unknown product %q", title)
	}
	return id, nil
}

func (c *checkoutTestContext) aProduct(title, category string, price int64, stock int) error {
	p := newProduct(title, category, price, stock)
	c.products[title] = p.ID
	return c.f.products.Create(context.Background(), p)
}

func (c *checkoutTestContext) anOffer(kind, name string, value int64, category string, minCart int64) error {
	discountType, err := domain.ParseDiscountType(kind)
	if err != nil {
		return err
	}
	o := newOffer(discountType, value, minCart, category)
	o.Title = name
	c.offers[name] = o
	return c.f.offers.Create(context.Background(), o)
}

func (c *checkoutTestContext) theOfferHasExpired(name string) error {
	o, ok := c.offers[name]
	if !ok {
		return fmt.Errorf("unknown offer %q", name)
	}
	ctx := context.Background()
	if err := c.f.offers.Delete(ctx, o.ID); err != nil {
		return err
	}
	o.StartDate = testNow.Add(-48 * time.Hour)
	o.EndDate = testNow.Add(-time.Hour)
	return c.f.offers.Create(ctx, o)
}

func (c *checkoutTestContext) theOfferIsDeleted(name string) error {
	o, ok := c.offers[name]
	if !ok {
		return fmt.Errorf("unknown offer %q", name)
	}
	return c.f.registry.Delete(context.Background(), o.ID)
}

func (c *checkoutTestContext) theStockDropsTo(title string, stock int) error {
	ctx := context.Background()
	id, err := c.productID(title)
	if err != nil {
		return err
	}
	p, err := c.f.products.FindByID(ctx, id)
	if err != nil {
		return err
	}
	p.Stock = stock
	return c.f.products.Create(ctx, p)
}

func (c *checkoutTestContext) adds(owner string, quantity int, title string) error {
	id, err := c.productID(title)
	if err != nil {
		return err
	}
	c.owner = owner
	c.record(c.f.cart.AddItem(context.Background(), owner, id, quantity))
	return nil
}

func (c *checkoutTestContext) appliesOffer(owner, name, title string) error {
	id, err := c.productID(title)
	if err != nil {
		return err
	}
	offerID := uuid.New()
	if o, ok := c.offers[name]; ok {
		offerID = o.ID
	}
	c.owner = owner
	c.record(c.f.cart.ApplyOffer(context.Background(), owner, id, offerID))
	return nil
}

func (c *checkoutTestContext) setsQuantity(owner, title string, quantity int) error {
	id, err := c.productID(title)
	if err != nil {
		return err
	}
	c.owner = owner
	c.record(c.f.cart.UpdateQuantity(context.Background(), owner, id, quantity))
	return nil
}

func (c *checkoutTestContext) removes(owner, title string) error {
	id, ok := c.products[title]
	if !ok {
		id = uuid.New()
	}
	c.owner = owner
	c.record(c.f.cart.RemoveItem(context.Background(), owner, id))
	return nil
}

func (c *checkoutTestContext) viewsTheCart(owner string) error {
	c.owner = owner
	c.record(c.f.cart.Snapshot(context.Background(), owner))
	return nil
}

func (c *checkoutTestContext) placesAnOrder(owner string) error {
	c.owner = owner
	order, err := c.f.order.Place(context.Background(), owner)
	if order != nil {
		c.order = order
	}
	c.record(nil, err)
	return nil
}

func (c *checkoutTestContext) theOrderIsMovedTo(status string) error {
	if c.order == nil {
		return fmt.Errorf("no order has been placed")
	}
	next, err := domain.ParseOrderStatus(status)
	if err != nil {
		return err
	}
	order, err := c.f.order.UpdateStatus(context.Background(), c.order.ID, next)
	if order != nil {
		c.order = order
	}
	c.record(nil, err)
	return nil
}

func (c *checkoutTestContext) theOperationSucceeds() error {
	if c.err != nil {
		return fmt.Errorf("expected success, got %v", c.err)
	}
	return nil
}

func (c *checkoutTestContext) theOperationFailsWith(code string) error {
	err := c.err
	c.err = nil
	if err == nil {
		return fmt.Errorf("expected %s, got success", code)
	}
	de, ok := domain.AsError(err)
	if !ok || de.Code != code {
		return fmt.Errorf("expected %s, got %v", code, err)
	}
	return nil
}

func (c *checkoutTestContext) pricedAmount(field string, got func(*domain.PricedCart) int64) func(int64) error {
	return func(want int64) error {
		if c.priced == nil {
			return fmt.Errorf("the cart has not been priced")
		}
		if v := got(c.priced); v != want {
			return fmt.Errorf("%s: want %d, got %d", field, want, v)
		}
		return nil
	}
}

func (c *checkoutTestContext) theCartHasLines(want int) error {
	priced, err := c.f.cart.Snapshot(context.Background(), c.owner)
	if err != nil {
		return err
	}
	if len(priced.Items) != want {
		return fmt.Errorf("want %d lines, got %d", want, len(priced.Items))
	}
	return nil
}

func (c *checkoutTestContext) theOrderIs(status string, finalAmount int64) error {
	if c.order == nil {
		return fmt.Errorf("no order has been placed")
	}
	if string(c.order.Status) != status || c.order.FinalAmount != finalAmount {
		return fmt.Errorf("want %s/%d, got %s/%d", status, finalAmount, c.order.Status, c.order.FinalAmount)
	}
	return nil
}

func (c *checkoutTestContext) hasStock(title string, want int) error {
	id, err := c.productID(title)
	if err != nil {
		return err
	}
	if got := c.f.stock(c.t, id); got != want {
		return fmt.Errorf("%s stock: want %d, got %d", title, want, got)
	}
	return nil
}

func (c *checkoutTestContext) hasNoOrders(owner string) error {
	orders, err := c.f.order.ListByOwner(context.Background(), owner)
	if err != nil {
		return err
	}
	if len(orders) != 0 {
		return fmt.Errorf("want no orders, got %d", len(orders))
	}
	return nil
}

func initializeCheckoutScenario(t *testing.T) func(*godog.ScenarioContext) {
	return func(ctx *godog.ScenarioContext) {
		tc := &checkoutTestContext{t: t}

		ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
			tc.reset()
			return ctx, nil
		})

		// Given steps
		ctx.Step(`^a product "([^"]*)" in category "([^"]*)" priced (\d+) with stock (\d+)$`, tc.aProduct)
		ctx.Step(`^a (PERCENT|FLAT) offer "([^"]*)" of (\d+) for "([^"]*)" with minimum (\d+)$`, tc.anOffer)
		ctx.Step(`^the offer "([^"]*)" has expired$`, tc.theOfferHasExpired)

		// When steps
		ctx.Step(`^"([^"]*)" adds (\d+) of "([^"]*)"$`, tc.adds)
		ctx.Step(`^"([^"]*)" applies offer "([^"]*)" to "([^"]*)"$`, tc.appliesOffer)
		ctx.Step(`^"([^"]*)" sets the quantity of "([^"]*)" to (-?\d+)$`, tc.setsQuantity)
		ctx.Step(`^"([^"]*)" removes "([^"]*)"$`, tc.removes)
		ctx.Step(`^"([^"]*)" views the cart$`, tc.viewsTheCart)
		ctx.Step(`^"([^"]*)" places an order$`, tc.placesAnOrder)
		ctx.Step(`^the offer "([^"]*)" is deleted$`, tc.theOfferIsDeleted)
		ctx.Step(`^the stock of "([^"]*)" drops to (\d+)$`, tc.theStockDropsTo)
		ctx.Step(`^the order is moved to "([^"]*)"$`, tc.theOrderIsMovedTo)

		// Then steps
		ctx.Step(`^the operation succeeds$`, tc.theOperationSucceeds)
		ctx.Step(`^the operation fails with "([^"]*)"$`, tc.theOperationFailsWith)
		ctx.Step(`^the cart total is (\d+)$`, tc.pricedAmount("cart total", func(p *domain.PricedCart) int64 { return p.CartTotal }))
		ctx.Step(`^the total discount is (\d+)$`, tc.pricedAmount("total discount", func(p *domain.PricedCart) int64 { return p.TotalDiscount }))
		ctx.Step(`^the payable amount is (\d+)$`, tc.pricedAmount("payable amount", func(p *domain.PricedCart) int64 { return p.PayableAmount }))
		ctx.Step(`^the cart has (\d+) lines?$`, tc.theCartHasLines)
		ctx.Step(`^the order is "([^"]*)" with final amount (\d+)$`, tc.theOrderIs)
		ctx.Step(`^"([^"]*)" has stock (\d+)$`, tc.hasStock)
		ctx.Step(`^"([^"]*)" has no orders$`, tc.hasNoOrders)
	}
}

func TestCheckoutFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeCheckoutScenario(t),
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
