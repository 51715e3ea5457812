// Package memory holds map-backed implementations of the repository interfaces.
// They are used when no database is configured and as fakes in service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

type ProductStore struct {
	mu       sync.RWMutex
	products map[uuid.UUID]domain.Product
}

func NewProductStore(products ...*domain.Product) *ProductStore {
	s := &ProductStore{products: make(map[uuid.UUID]domain.Product, len(products))}
	for _, p := range products {
		s.products[p.ID] = *p
	}
	return s
}

func (s *ProductStore) Create(_ context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[product.ID] = *product
	return nil
}

// Delete removes a product. Orders keep their snapshot; carts referencing it fail to place.
func (s *ProductStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *ProductStore) FindByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

func (s *ProductStore) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]*domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = &p
		}
	}
	return out, nil
}

func (s *ProductStore) ListByCategories(_ context.Context, categories []string) ([]*domain.Product, error) {
	want := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		want[c] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Product{}
	for _, p := range s.products {
		if _, ok := want[p.Category]; ok {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// DecrementStock validates every adjustment before applying any of them.
func (s *ProductStore) DecrementStock(_ context.Context, adjustments []domain.StockAdjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	needed := make(map[uuid.UUID]int, len(adjustments))
	for _, adj := range adjustments {
		needed[adj.ProductID] += adj.Quantity
	}
	for id, qty := range needed {
		p, ok := s.products[id]
		if !ok {
			return fmt.Errorf("%w: %s", repository.ErrProductNotFound, id)
		}
		if p.Stock < qty {
			return fmt.Errorf("%w: %s", repository.ErrInsufficientStock, id)
		}
	}

	now := time.Now().UTC()
	for id, qty := range needed {
		p := s.products[id]
		p.Stock -= qty
		p.UpdatedAt = now
		s.products[id] = p
	}
	return nil
}

func (s *ProductStore) RestoreStock(_ context.Context, adjustments []domain.StockAdjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, adj := range adjustments {
		p, ok := s.products[adj.ProductID]
		if !ok {
			continue
		}
		p.Stock += adj.Quantity
		s.products[adj.ProductID] = p
	}
	return nil
}

type CategoryStore struct {
	mu         sync.RWMutex
	categories map[string]domain.Category
}

func NewCategoryStore(names ...string) *CategoryStore {
	s := &CategoryStore{categories: make(map[string]domain.Category, len(names))}
	now := time.Now().UTC()
	for _, n := range names {
		s.categories[n] = domain.Category{Name: n, CreatedAt: now}
	}
	return s
}

func (s *CategoryStore) Create(_ context.Context, category *domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[category.Name]; ok {
		return repository.ErrCategoryAlreadyExists
	}
	s.categories[category.Name] = *category
	return nil
}

func (s *CategoryStore) List(_ context.Context) ([]*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *CategoryStore) Exists(_ context.Context, names ...string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range names {
		if _, ok := s.categories[n]; !ok {
			return false, nil
		}
	}
	return true, nil
}

var (
	_ repository.ProductRepository  = (*ProductStore)(nil)
	_ repository.CategoryRepository = (*CategoryStore)(nil)
)
