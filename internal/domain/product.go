package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a product in the catalog. Prices are in minor currency units.
type Product struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Category  string    `json:"category" db:"category"`
	Price     int64     `json:"price" db:"price"`
	Stock     int       `json:"stock" db:"stock"`
	Thumbnail string    `json:"thumbnail" db:"thumbnail"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Category represents a registered category tag
type Category struct {
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// StockAdjustment is a quantity removed from (or returned to) a product's stock
type StockAdjustment struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}
