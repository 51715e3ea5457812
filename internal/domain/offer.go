package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType selects the discount formula of an offer.
type DiscountType int

const (
	DiscountPercent DiscountType = iota + 1
	DiscountFlat
)

func (t DiscountType) String() string {
	switch t {
	case DiscountPercent:
		return "PERCENT"
	case DiscountFlat:
		return "FLAT"
	default:
		return "UNKNOWN"
	}
}

// ParseDiscountType parses the wire name of a discount type.
func ParseDiscountType(s string) (DiscountType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PERCENT":
		return DiscountPercent, nil
	case "FLAT":
		return DiscountFlat, nil
	default:
		return 0, Wrap(ErrInvalidOffer, "unknown discount type %q", s)
	}
}

func (t DiscountType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *DiscountType) UnmarshalText(b []byte) error {
	parsed, err := ParseDiscountType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

var hundred = decimal.NewFromInt(100)

// Offer is a category-scoped promotional discount with a validity window.
type Offer struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Title         string          `json:"title" db:"title"`
	DiscountType  DiscountType    `json:"discount_type" db:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value" db:"discount_value"`
	MinCartValue  int64           `json:"min_cart_value" db:"min_cart_value"`
	Categories    []string        `json:"categories" db:"-"`
	StartDate     time.Time       `json:"start_date" db:"start_date"`
	EndDate       time.Time       `json:"end_date" db:"end_date"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// IsActive reports whether now falls inside [StartDate, EndDate].
func (o *Offer) IsActive(now time.Time) bool {
	return !now.Before(o.StartDate) && !now.After(o.EndDate)
}

// AppliesTo reports whether category is one of the offer's categories.
func (o *Offer) AppliesTo(category string) bool {
	for _, c := range o.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Eligible reports whether the offer can discount a line of the given category
// when the cart holds categorySubtotal worth of that category.
func (o *Offer) Eligible(category string, categorySubtotal int64, now time.Time) bool {
	return o.IsActive(now) && o.AppliesTo(category) && o.MinCartValue <= categorySubtotal
}

// Validate checks the invariants an offer must satisfy before it is registered.
func (o *Offer) Validate() error {
	if strings.TrimSpace(o.Title) == "" {
		return Wrap(ErrInvalidOffer, "title is required")
	}
	switch o.DiscountType {
	case DiscountPercent:
		if !o.DiscountValue.IsPositive() || o.DiscountValue.GreaterThan(hundred) {
			return Wrap(ErrInvalidOffer, "percent discount must be in (0, 100]")
		}
	case DiscountFlat:
		if !o.DiscountValue.IsPositive() {
			return Wrap(ErrInvalidOffer, "flat discount must be positive")
		}
		if !o.DiscountValue.IsInteger() {
			return Wrap(ErrInvalidOffer, "flat discount must be a whole number of minor units")
		}
	default:
		return Wrap(ErrInvalidOffer, "unknown discount type")
	}
	if o.MinCartValue < 0 {
		return Wrap(ErrInvalidOffer, "minimum cart value cannot be negative")
	}
	if len(o.Categories) == 0 {
		return Wrap(ErrInvalidOffer, "at least one category is required")
	}
	if !o.StartDate.Before(o.EndDate) {
		return Wrap(ErrInvalidOffer, "start date must be before end date")
	}
	return nil
}
