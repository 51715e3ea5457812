package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	for _, raw := range []string{"pending", " CONFIRMED ", "Delivered", "cancelled"} {
		_, err := ParseOrderStatus(raw)
		assert.NoError(t, err, raw)
	}

	_, err := ParseOrderStatus("SHIPPED")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestTransitionGraph(t *testing.T) {
	allowed := map[[2]OrderStatus]bool{
		{OrderPending, OrderConfirmed}:   true,
		{OrderPending, OrderCancelled}:   true,
		{OrderConfirmed, OrderDelivered}: true,
		{OrderConfirmed, OrderCancelled}: true,
	}

	for _, from := range OrderStatuses() {
		for _, to := range OrderStatuses() {
			assert.Equal(t, allowed[[2]OrderStatus{from, to}], from.CanTransition(to), "%s -> %s", from, to)
		}
	}

	assert.True(t, OrderDelivered.IsTerminal())
	assert.True(t, OrderCancelled.IsTerminal())
	assert.False(t, OrderPending.IsTerminal())
}

// Feature: cart-pricing, Property 9: Terminal orders never change status
func TestProperty_TerminalStatusesAbsorb(t *testing.T) {
	properties := gopter.NewProperties(nil)

	statuses := OrderStatuses()
	properties.Property("no legal transition leaves a terminal status or returns to pending", prop.ForAll(
		func(steps []int) bool {
			current := OrderPending
			for _, s := range steps {
				next := statuses[s%len(statuses)]
				if !current.CanTransition(next) {
					continue
				}
				if current.IsTerminal() || next == OrderPending {
					return false
				}
				current = next
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 3)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestNewOrderFromPricedCart(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	offerID := uuid.New()
	stale := uuid.New()
	priced := &PricedCart{
		Owner: "alice",
		Items: []PricedLine{
			{ProductID: uuid.New(), Title: "Phone", Quantity: 2, UnitPrice: 1000, LineSubtotal: 2000,
				AppliedOfferID: &offerID, OfferEligible: true, DiscountAmount: 200, FinalPrice: 1800},
			{ProductID: uuid.New(), Title: "Novel", Quantity: 1, UnitPrice: 300, LineSubtotal: 300,
				AppliedOfferID: &stale, FinalPrice: 300},
		},
		CartTotal:     2300,
		TotalDiscount: 200,
		PayableAmount: 2100,
	}

	order := NewOrderFromPricedCart(priced, now)

	assert.Equal(t, OrderPending, order.Status)
	assert.Equal(t, "alice", order.Owner)
	assert.Equal(t, int64(2100), order.FinalAmount)
	assert.Equal(t, now, order.CreatedAt)
	require.Len(t, order.Items, 2)
	require.NotNil(t, order.Items[0].OfferID)
	assert.Equal(t, offerID, *order.Items[0].OfferID)
	assert.Nil(t, order.Items[1].OfferID, "offers that gave no discount are not recorded")

	offerID = uuid.New()
	assert.NotEqual(t, offerID, *order.Items[0].OfferID, "the snapshot does not alias the cart")
}
