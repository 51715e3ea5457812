package memory

import (
	"context"
	"sync"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// CartStore keeps carts keyed by owner. A cart comes into existence on its first Save.
type CartStore struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
}

func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string]*domain.Cart)}
}

func (s *CartStore) Get(_ context.Context, owner string) (*domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cart, ok := s.carts[owner]
	if !ok {
		return domain.NewCart(owner), nil
	}
	return cart.Clone(), nil
}

func (s *CartStore) Save(_ context.Context, cart *domain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := cart.Clone()
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now().UTC()
	}
	s.carts[cart.Owner] = stored
	return nil
}

func (s *CartStore) Clear(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cart, ok := s.carts[owner]; ok {
		cart.Items = []domain.CartItem{}
		cart.UpdatedAt = time.Now().UTC()
	}
	return nil
}

var _ repository.CartRepository = (*CartStore)(nil)
