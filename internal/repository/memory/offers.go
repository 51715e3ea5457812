package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

type OfferStore struct {
	mu     sync.RWMutex
	offers map[uuid.UUID]domain.Offer
}

func NewOfferStore(offers ...*domain.Offer) *OfferStore {
	s := &OfferStore{offers: make(map[uuid.UUID]domain.Offer, len(offers))}
	for _, o := range offers {
		s.offers[o.ID] = copyOffer(o)
	}
	return s
}

func (s *OfferStore) Create(_ context.Context, offer *domain.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers[offer.ID] = copyOffer(offer)
	return nil
}

func (s *OfferStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.offers[id]; !ok {
		return repository.ErrOfferNotFound
	}
	delete(s.offers, id)
	return nil
}

func (s *OfferStore) FindByID(_ context.Context, id uuid.UUID) (*domain.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.offers[id]
	if !ok {
		return nil, repository.ErrOfferNotFound
	}
	out := copyOffer(&o)
	return &out, nil
}

func (s *OfferStore) ListUnexpired(_ context.Context, now time.Time) ([]*domain.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Offer{}
	for _, o := range s.offers {
		if !o.EndDate.Before(now) {
			c := copyOffer(&o)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EndDate.Equal(out[j].EndDate) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].EndDate.Before(out[j].EndDate)
	})
	return out, nil
}

func copyOffer(o *domain.Offer) domain.Offer {
	c := *o
	c.Categories = append([]string(nil), o.Categories...)
	return c
}

var _ repository.OfferRepository = (*OfferStore)(nil)
