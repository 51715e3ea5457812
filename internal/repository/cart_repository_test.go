package repository

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartRepository_SaveGetClear(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	carts := NewCartRepository(db)

	empty, err := carts.Get(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty(), "unknown owners get an empty cart")

	offerID := uuid.New()
	first, second := uuid.New(), uuid.New()
	cart := domain.NewCart("alice")
	cart.UpdatedAt = time.Now().UTC()
	cart.Items = []domain.CartItem{
		{ProductID: first, Quantity: 2, AppliedOfferID: &offerID},
		{ProductID: second, Quantity: 1},
	}
	require.NoError(t, carts.Save(ctx, cart))

	loaded, err := carts.Get(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, loaded.Items, 2)
	assert.Equal(t, first, loaded.Items[0].ProductID, "line order is preserved")
	assert.Equal(t, 2, loaded.Items[0].Quantity)
	require.NotNil(t, loaded.Items[0].AppliedOfferID)
	assert.Equal(t, offerID, *loaded.Items[0].AppliedOfferID)
	assert.Nil(t, loaded.Items[1].AppliedOfferID)

	// saving replaces the whole line set
	loaded.Remove(first)
	require.NoError(t, carts.Save(ctx, loaded))
	reloaded, err := carts.Get(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, second, reloaded.Items[0].ProductID)

	require.NoError(t, carts.Clear(ctx, "alice"))
	cleared, err := carts.Get(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, cleared.IsEmpty())

	other, err := carts.Get(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, other.IsEmpty())
}

func TestCartRepository_ClearIsAllOrNothing(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	carts := NewCartRepository(db)

	cart := domain.NewCart("mallory")
	cart.Items = []domain.CartItem{{ProductID: uuid.New(), Quantity: 3}}
	require.NoError(t, carts.Save(ctx, cart))

	// make the cart timestamp update fail after the lines are deleted
	_, err := db.ExecContext(ctx, `
		CREATE OR REPLACE FUNCTION reject_cart_touch() RETURNS trigger AS $$
		BEGIN
			RAISE EXCEPTION 'cart touch rejected';
		END;
		$$ LANGUAGE plpgsql`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		CREATE TRIGGER reject_cart_touch BEFORE UPDATE ON carts
		FOR EACH ROW WHEN (OLD.owner = 'mallory') EXECUTE FUNCTION reject_cart_touch()`)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.Exec(`DROP TRIGGER IF EXISTS reject_cart_touch ON carts`)
		_, _ = db.Exec(`DROP FUNCTION IF EXISTS reject_cart_touch()`)
	})

	assert.Error(t, carts.Clear(ctx, "mallory"))

	kept, err := carts.Get(ctx, "mallory")
	require.NoError(t, err)
	require.Len(t, kept.Items, 1, "a failed clear leaves the lines in place")
	assert.Equal(t, 3, kept.Items[0].Quantity)
}
