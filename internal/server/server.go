package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/lock"
	custommiddleware "storefront/internal/middleware"
	"storefront/internal/offer"
	"storefront/internal/pricing"
	"storefront/internal/service"
	"storefront/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
}

// NewServer wires stores, the offer registry, pricing and the cart and order
// services behind the HTTP router. db and redisClient may be nil; without
// Redis the cart lock is process-local, offers are not cached and requests
// are not rate limited.
func NewServer(cfg *config.Config, logger *zap.Logger, stores Stores, db database.Service, redisClient *redis.Client) *Server {
	s := &Server{
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	var (
		offerCache cache.OfferCache = cache.NoopOfferCache{}
		locker     lock.Locker      = lock.NewLocal(cfg.Cart.LockWait)
		limiter                     = passthrough
	)
	if redisClient != nil {
		offerCache = cache.NewRedisOfferCache(redisClient)
		locker = lock.NewRedis(redisClient, lock.RedisConfig{
			TTL:  cfg.Cart.LockTTL,
			Wait: cfg.Cart.LockWait,
		}, logger.Named("lock"))
		limiter = custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
		}, logger)
	}

	registry := offer.NewRegistry(stores.Offers, stores.Categories, stores.Products, offerCache, cfg.Offers.CacheTTL, time.Now, logger)
	engine := pricing.NewEngine(stores.Products, registry, time.Now)

	cartService := service.NewCartService(stores.Carts, stores.Products, registry, engine, locker, time.Now, logger)
	orderService := service.NewOrderService(stores.Orders, stores.Carts, stores.Products, engine, locker, time.Now, logger)

	cartHandler := transport.NewCartHandler(cartService, logger)
	orderHandler := transport.NewOrderHandler(orderService, logger)
	offerHandler := transport.NewOfferHandler(registry, logger)

	router := chi.NewRouter()

	router.Use(custommiddleware.DefaultMiddlewareStack(logger)...)
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.IsDevelopment()))

	router.Get("/health", s.health)

	// the limiter runs after authentication so it can key on the cart owner
	authenticate := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	authMiddleware := func(next http.Handler) http.Handler {
		return authenticate(limiter(next))
	}
	adminMiddleware := custommiddleware.RequireAdmin(logger)

	cartHandler.RegisterRoutes(router, authMiddleware)
	orderHandler.RegisterRoutes(router, authMiddleware, adminMiddleware)
	offerHandler.RegisterRoutes(router, limiter, authMiddleware, adminMiddleware)

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

func passthrough(next http.Handler) http.Handler {
	return next
}

// health reports the database pool and Redis; either being down is a 503
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]interface{}{"status": "ok"}

	if s.db != nil {
		dbHealth := s.db.Health(r.Context())
		body["database"] = dbHealth
		if dbHealth["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
	}

	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			body["redis"] = "down"
			status = http.StatusServiceUnavailable
		} else {
			body["redis"] = "up"
		}
	}

	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	custommiddleware.RespondWithJSON(w, status, body)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
