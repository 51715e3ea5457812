package repository

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOffer(t *testing.T, repo OfferRepository, start, end time.Time, categories ...string) *domain.Offer {
	t.Helper()
	o := &domain.Offer{
		ID:            uuid.New(),
		Title:         "Summer sale",
		DiscountType:  domain.DiscountPercent,
		DiscountValue: decimal.RequireFromString("12.5"),
		MinCartValue:  1500,
		Categories:    categories,
		StartDate:     start.UTC().Truncate(time.Microsecond),
		EndDate:       end.UTC().Truncate(time.Microsecond),
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Create(context.Background(), o))
	return o
}

func TestOfferRepository_CreateAndFind(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	categories := NewCategoryRepository(db)
	offers := NewOfferRepository(db)

	seedCategory(t, categories, "books")
	seedCategory(t, categories, "toys")

	now := time.Now()
	created := seedOffer(t, offers, now.Add(-time.Hour), now.Add(time.Hour), "books", "toys")

	found, err := offers.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, found.Title)
	assert.Equal(t, domain.DiscountPercent, found.DiscountType)
	assert.True(t, created.DiscountValue.Equal(found.DiscountValue))
	assert.Equal(t, int64(1500), found.MinCartValue)
	assert.ElementsMatch(t, []string{"books", "toys"}, found.Categories)
	assert.True(t, created.StartDate.Equal(found.StartDate))

	_, err = offers.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrOfferNotFound)
}

func TestOfferRepository_ListUnexpired(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	categories := NewCategoryRepository(db)
	offers := NewOfferRepository(db)
	seedCategory(t, categories, "books")

	now := time.Now()
	active := seedOffer(t, offers, now.Add(-time.Hour), now.Add(time.Hour), "books")
	upcoming := seedOffer(t, offers, now.Add(time.Hour), now.Add(2*time.Hour), "books")
	seedOffer(t, offers, now.Add(-2*time.Hour), now.Add(-time.Hour), "books")

	list, err := offers.ListUnexpired(ctx, now)
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(list))
	for _, o := range list {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []uuid.UUID{active.ID, upcoming.ID}, ids)
}

func TestOfferRepository_Delete(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	categories := NewCategoryRepository(db)
	offers := NewOfferRepository(db)
	seedCategory(t, categories, "books")

	now := time.Now()
	o := seedOffer(t, offers, now.Add(-time.Hour), now.Add(time.Hour), "books")

	require.NoError(t, offers.Delete(ctx, o.ID))
	assert.ErrorIs(t, offers.Delete(ctx, o.ID), ErrOfferNotFound)

	var remaining int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM offer_categories WHERE offer_id = $1`, o.ID).Scan(&remaining))
	assert.Zero(t, remaining, "category links cascade with the offer")
}
