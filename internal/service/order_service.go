package service

import (
	"context"
	"time"

	"storefront/internal/domain"
	"storefront/internal/lock"
	"storefront/internal/repository"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService defines the order lifecycle: placement from a cart, reads and
// administrative status changes.
type OrderService interface {
	Place(ctx context.Context, owner string) (*domain.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetForOwner(ctx context.Context, owner string, id uuid.UUID) (*domain.Order, error)
	ListByOwner(ctx context.Context, owner string) ([]*domain.Order, error)
	ListAll(ctx context.Context, status *domain.OrderStatus) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
}

type orderService struct {
	orders   repository.OrderRepository
	carts    repository.CartRepository
	products repository.ProductRepository
	pricer   Pricer
	locker   lock.Locker
	now      func() time.Time
	logger   *zap.Logger
}

// NewOrderService creates a new instance of OrderService. It shares the cart
// lock with CartService so placement never races a cart mutation.
func NewOrderService(
	orders repository.OrderRepository,
	carts repository.CartRepository,
	products repository.ProductRepository,
	pricer Pricer,
	locker lock.Locker,
	now func() time.Time,
	logger *zap.Logger,
) OrderService {
	if now == nil {
		now = time.Now
	}
	return &orderService{
		orders:   orders,
		carts:    carts,
		products: products,
		pricer:   pricer,
		locker:   locker,
		now:      now,
		logger:   logger.Named("orders"),
	}
}

// Place turns the owner's cart into a pending order. Either the stock is
// decremented, the cart cleared and the order stored, or none of it persists.
func (s *orderService) Place(ctx context.Context, owner string) (*domain.Order, error) {
	release, err := acquireOwner(ctx, s.locker, owner)
	if err != nil {
		return nil, err
	}
	defer release()

	cart, err := s.carts.Get(ctx, owner)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}

	priced, err := s.pricer.Price(ctx, cart)
	if err != nil {
		return nil, err
	}

	adjustments := make([]domain.StockAdjustment, 0, len(priced.Items))
	for _, line := range priced.Items {
		if !line.Available {
			return nil, domain.Wrap(domain.ErrProductUnavailable, "%s no longer exists", line.ProductID)
		}
		adjustments = append(adjustments, domain.StockAdjustment{ProductID: line.ProductID, Quantity: line.Quantity})
	}

	if err := s.products.DecrementStock(ctx, adjustments); err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientStock), errors.Is(err, repository.ErrProductNotFound):
			s.logger.Info("Order rejected", zap.String("owner", owner), zap.Error(err))
			return nil, domain.WrapCause(domain.ErrProductUnavailable, err)
		default:
			return nil, errors.Wrap(err, "reserve stock")
		}
	}

	order := domain.NewOrderFromPricedCart(priced, s.now().UTC())

	if err := s.carts.Clear(ctx, owner); err != nil {
		s.restoreStock(ctx, owner, adjustments)
		return nil, errors.Wrap(err, "clear cart")
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.restoreStock(ctx, owner, adjustments)
		if saveErr := s.carts.Save(ctx, cart); saveErr != nil {
			s.logger.Error("Failed to restore cart after order failure",
				zap.String("owner", owner),
				zap.Error(saveErr),
			)
		}
		return nil, errors.Wrap(err, "create order")
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("owner", owner),
		zap.Int("items", len(order.Items)),
		zap.Int64("final_amount", order.FinalAmount),
	)
	return order, nil
}

func (s *orderService) restoreStock(ctx context.Context, owner string, adjustments []domain.StockAdjustment) {
	if err := s.products.RestoreStock(ctx, adjustments); err != nil {
		s.logger.Error("Failed to restore stock after order failure",
			zap.String("owner", owner),
			zap.Error(err),
		)
	}
}

// Get returns any order by id
func (s *orderService) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, domain.Wrap(domain.ErrOrderNotFound, "%s", id)
		}
		return nil, errors.Wrap(err, "find order")
	}
	return order, nil
}

// GetForOwner returns an order only if owner placed it; other owners see OrderNotFound
func (s *orderService) GetForOwner(ctx context.Context, owner string, id uuid.UUID) (*domain.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Owner != owner {
		return nil, domain.Wrap(domain.ErrOrderNotFound, "%s", id)
	}
	return order, nil
}

// ListByOwner returns the owner's orders, newest first
func (s *orderService) ListByOwner(ctx context.Context, owner string) ([]*domain.Order, error) {
	orders, err := s.orders.ListByOwner(ctx, owner)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// ListAll returns every order, optionally narrowed to one status
func (s *orderService) ListAll(ctx context.Context, status *domain.OrderStatus) ([]*domain.Order, error) {
	orders, err := s.orders.List(ctx, status)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// UpdateStatus moves an order along the lifecycle graph
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransition(status) {
		return nil, domain.Wrap(domain.ErrInvalidTransition, "%s -> %s", order.Status, status)
	}

	at := s.now().UTC()
	if err := s.orders.UpdateStatus(ctx, id, order.Status, status, at); err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			return nil, domain.WrapCause(domain.ErrLockContention, err)
		case errors.Is(err, repository.ErrOrderNotFound):
			return nil, domain.Wrap(domain.ErrOrderNotFound, "%s", id)
		default:
			return nil, errors.Wrap(err, "update order status")
		}
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", id.String()),
		zap.String("from", string(order.Status)),
		zap.String("to", string(status)),
	)

	order.Status = status
	order.UpdatedAt = at
	return order, nil
}
