package cache

import (
	"context"
	"time"

	"storefront/internal/domain"
)

// OfferCache holds the registry's list of unexpired offers between admin changes.
//
// Every Invalidate advances a generation counter. A reader takes the generation
// before it loads the store and passes it to Set, which drops the write if an
// invalidation happened in between.
type OfferCache interface {
	Get(ctx context.Context) ([]*domain.Offer, bool, error)
	Generation(ctx context.Context) (int64, error)
	Set(ctx context.Context, generation int64, offers []*domain.Offer, ttl time.Duration) (bool, error)
	Invalidate(ctx context.Context) error
}

type NoopOfferCache struct{}

func (NoopOfferCache) Get(_ context.Context) ([]*domain.Offer, bool, error) {
	return nil, false, nil
}

func (NoopOfferCache) Generation(_ context.Context) (int64, error) {
	return 0, nil
}

func (NoopOfferCache) Set(_ context.Context, _ int64, _ []*domain.Offer, _ time.Duration) (bool, error) {
	return false, nil
}

func (NoopOfferCache) Invalidate(_ context.Context) error {
	return nil
}
