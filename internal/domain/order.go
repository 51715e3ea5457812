package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderDelivered, OrderCancelled},
	OrderDelivered: nil,
	OrderCancelled: nil,
}

// ParseOrderStatus parses a status name, case-insensitively.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := orderTransitions[status]; !ok {
		return "", Wrap(ErrInvalidStatus, "%q", s)
	}
	return status, nil
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// CanTransition reports whether the lifecycle graph has an edge from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderStatuses lists every status in lifecycle order.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{OrderPending, OrderConfirmed, OrderDelivered, OrderCancelled}
}

// OrderItem is the immutable pricing snapshot of one purchased line.
type OrderItem struct {
	ProductID      uuid.UUID  `json:"product_id" db:"product_id"`
	Title          string     `json:"title" db:"title"`
	Quantity       int        `json:"quantity" db:"quantity"`
	UnitPrice      int64      `json:"unit_price" db:"unit_price"`
	OfferID        *uuid.UUID `json:"offer_id,omitempty" db:"offer_id"`
	DiscountAmount int64      `json:"discount_amount" db:"discount_amount"`
	FinalPrice     int64      `json:"final_price" db:"final_price"`
}

// Order is a placed cart. Only Status and UpdatedAt change after creation.
type Order struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	Owner         string      `json:"owner" db:"owner"`
	Items         []OrderItem `json:"items"`
	CartTotal     int64       `json:"cart_total" db:"cart_total"`
	TotalDiscount int64       `json:"total_discount" db:"total_discount"`
	FinalAmount   int64       `json:"final_amount" db:"final_amount"`
	Status        OrderStatus `json:"status" db:"status"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// NewOrderFromPricedCart snapshots a priced cart into a pending order.
func NewOrderFromPricedCart(priced *PricedCart, now time.Time) *Order {
	order := &Order{
		ID:            uuid.New(),
		Owner:         priced.Owner,
		Items:         make([]OrderItem, 0, len(priced.Items)),
		CartTotal:     priced.CartTotal,
		TotalDiscount: priced.TotalDiscount,
		FinalAmount:   priced.PayableAmount,
		Status:        OrderPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, line := range priced.Items {
		item := OrderItem{
			ProductID:      line.ProductID,
			Title:          line.Title,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice,
			DiscountAmount: line.DiscountAmount,
			FinalPrice:     line.FinalPrice,
		}
		if line.AppliedOfferID != nil && line.DiscountAmount > 0 {
			id := *line.AppliedOfferID
			item.OfferID = &id
		}
		order.Items = append(order.Items, item)
	}
	return order
}
