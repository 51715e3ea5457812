package server

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Stores groups the repositories the services are built on
type Stores struct {
	Products   repository.ProductRepository
	Categories repository.CategoryRepository
	Offers     repository.OfferRepository
	Carts      repository.CartRepository
	Orders     repository.OrderRepository
}

func NewPostgresStores(db *sql.DB) Stores {
	return Stores{
		Products:   repository.NewProductRepository(db),
		Categories: repository.NewCategoryRepository(db),
		Offers:     repository.NewOfferRepository(db),
		Carts:      repository.NewCartRepository(db),
		Orders:     repository.NewOrderRepository(db),
	}
}

// NewMemoryStores builds map-backed stores holding products and the
// categories they reference
func NewMemoryStores(products ...*domain.Product) Stores {
	seen := map[string]bool{}
	var categories []string
	for _, p := range products {
		if !seen[p.Category] {
			seen[p.Category] = true
			categories = append(categories, p.Category)
		}
	}
	return Stores{
		Products:   memory.NewProductStore(products...),
		Categories: memory.NewCategoryStore(categories...),
		Offers:     memory.NewOfferStore(),
		Carts:      memory.NewCartStore(),
		Orders:     memory.NewOrderStore(),
	}
}

// DemoCatalog is the catalog served when no database is configured
func DemoCatalog() []*domain.Product {
	now := time.Now().UTC()
	product := func(id, title, category string, price int64, stock int) *domain.Product {
		return &domain.Product{
			ID:        uuid.MustParse(id),
			Title:     title,
			Category:  category,
			Price:     price,
			Stock:     stock,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return []*domain.Product{
		product("3f0c2a4e-8a51-4c1e-9a0b-1d6c2f4b7e01", "Wireless Headphones", "electronics", 12999, 25),
		product("3f0c2a4e-8a51-4c1e-9a0b-1d6c2f4b7e02", "USB-C Charger", "electronics", 2499, 100),
		product("3f0c2a4e-8a51-4c1e-9a0b-1d6c2f4b7e03", "The Go Programming Language", "books", 3999, 40),
		product("3f0c2a4e-8a51-4c1e-9a0b-1d6c2f4b7e04", "Espresso Beans 1kg", "grocery", 1899, 60),
	}
}

// ConnectRedis opens a client and verifies it with a ping
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}
