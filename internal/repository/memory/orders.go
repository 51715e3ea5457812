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

type OrderStore struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*domain.Order
}

func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[uuid.UUID]*domain.Order)}
}

func (s *OrderStore) Create(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = copyOrder(order)
	return nil
}

func (s *OrderStore) FindByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (s *OrderStore) ListByOwner(_ context.Context, owner string) ([]*domain.Order, error) {
	return s.filter(func(o *domain.Order) bool { return o.Owner == owner }), nil
}

func (s *OrderStore) List(_ context.Context, status *domain.OrderStatus) ([]*domain.Order, error) {
	return s.filter(func(o *domain.Order) bool { return status == nil || o.Status == *status }), nil
}

func (s *OrderStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.OrderStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if o.Status != from {
		return repository.ErrStatusConflict
	}
	o.Status = to
	o.UpdatedAt = at
	return nil
}

func (s *OrderStore) filter(keep func(*domain.Order) bool) []*domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Order{}
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func copyOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = append([]domain.OrderItem(nil), o.Items...)
	return &c
}

var _ repository.OrderRepository = (*OrderStore)(nil)
