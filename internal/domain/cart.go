package domain

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one line of a cart. The discount is never stored on the line;
// it is derived from AppliedOfferID on every pricing pass.
type CartItem struct {
	ProductID      uuid.UUID  `json:"product_id" db:"product_id"`
	Quantity       int        `json:"quantity" db:"quantity"`
	AppliedOfferID *uuid.UUID `json:"applied_offer_id,omitempty" db:"applied_offer_id"`
}

// Cart holds the lines of a single owner, at most one per product.
type Cart struct {
	Owner     string     `json:"owner" db:"owner"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// NewCart returns an empty cart for owner.
func NewCart(owner string) *Cart {
	return &Cart{Owner: owner, Items: []CartItem{}}
}

// Find returns the index of the line holding productID, or -1.
func (c *Cart) Find(productID uuid.UUID) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Remove drops the line for productID and reports whether one existed.
func (c *Cart) Remove(productID uuid.UUID) bool {
	i := c.Find(productID)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return true
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone returns a deep copy so stores never share line slices with callers.
func (c *Cart) Clone() *Cart {
	out := &Cart{Owner: c.Owner, UpdatedAt: c.UpdatedAt, Items: make([]CartItem, len(c.Items))}
	for i, item := range c.Items {
		out.Items[i] = item
		if item.AppliedOfferID != nil {
			id := *item.AppliedOfferID
			out.Items[i].AppliedOfferID = &id
		}
	}
	return out
}

// PricedLine is a cart line with its pricing applied.
type PricedLine struct {
	ProductID      uuid.UUID  `json:"product_id"`
	Title          string     `json:"title"`
	Category       string     `json:"category"`
	Thumbnail      string     `json:"thumbnail,omitempty"`
	Available      bool       `json:"available"`
	UnitPrice      int64      `json:"unit_price"`
	Quantity       int        `json:"quantity"`
	LineSubtotal   int64      `json:"line_subtotal"`
	AppliedOfferID *uuid.UUID `json:"applied_offer_id,omitempty"`
	OfferEligible  bool       `json:"offer_eligible"`
	DiscountAmount int64      `json:"discount_amount"`
	FinalPrice     int64      `json:"final_price"`
}

// PricedCart is the result of pricing a cart at a point in time.
type PricedCart struct {
	Owner         string       `json:"owner"`
	Items         []PricedLine `json:"items"`
	CartTotal     int64        `json:"cart_total"`
	TotalDiscount int64        `json:"total_discount"`
	PayableAmount int64        `json:"payable_amount"`
	PricedAt      time.Time    `json:"priced_at"`
}

// Line returns the priced line for productID, if present.
func (p *PricedCart) Line(productID uuid.UUID) (PricedLine, bool) {
	for _, l := range p.Items {
		if l.ProductID == productID {
			return l, true
		}
	}
	return PricedLine{}, false
}
