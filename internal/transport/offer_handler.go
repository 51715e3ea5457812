package transport

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/offer"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OfferRegistry is the offer surface exposed over HTTP
type OfferRegistry interface {
	ListActiveForCategory(ctx context.Context, category string) ([]*domain.Offer, error)
	EligibleFor(ctx context.Context, category string, categorySubtotal int64) ([]*domain.Offer, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Offer, error)
	Products(ctx context.Context, id uuid.UUID) ([]*domain.Product, error)
	Categories(ctx context.Context) ([]*domain.Category, error)
	CountActive(ctx context.Context) (int, error)
	Create(ctx context.Context, in offer.CreateInput) (*domain.Offer, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateOfferRequest represents the admin create-offer payload
type CreateOfferRequest struct {
	Title         string              `json:"title" validate:"required,max=200"`
	DiscountType  domain.DiscountType `json:"discount_type" validate:"required"`
	DiscountValue decimal.Decimal     `json:"discount_value"`
	MinCartValue  int64               `json:"min_cart_value" validate:"gte=0"`
	Categories    []string            `json:"categories" validate:"required,min=1,dive,required"`
	StartDate     time.Time           `json:"start_date" validate:"required"`
	EndDate       time.Time           `json:"end_date" validate:"required,gtfield=StartDate"`
}

// CountResponse carries the number of active offers
type CountResponse struct {
	ActiveOffers int `json:"active_offers"`
}

// OfferHandler handles HTTP requests for offers and categories
type OfferHandler struct {
	registry OfferRegistry
	logger   *zap.Logger
}

// NewOfferHandler creates a new OfferHandler
func NewOfferHandler(registry OfferRegistry, logger *zap.Logger) *OfferHandler {
	return &OfferHandler{
		registry: registry,
		logger:   logger,
	}
}

// RegisterRoutes registers public offer reads and the admin offer routes
func (h *OfferHandler) RegisterRoutes(r chi.Router, publicMiddleware, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(publicMiddleware)

		r.Get("/api/categories", h.ListCategories)
		r.Get("/api/offers/active", h.ListActive)
		r.Get("/api/offers/{offerID}", h.GetOffer)
		r.Get("/api/offers/{offerID}/products", h.ListProducts)
	})

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(adminMiddleware)

		r.Post("/api/admin/offers", h.CreateOffer)
		r.Delete("/api/admin/offers/{offerID}", h.DeleteOffer)
		r.Get("/api/admin/offers/count", h.CountActive)
	})
}

// ListActive returns active offers, narrowed by ?category= and, with
// ?subtotal=, to offers whose minimum that category subtotal meets
func (h *OfferHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	var (
		offers []*domain.Offer
		err    error
	)
	if raw := r.URL.Query().Get("subtotal"); raw != "" {
		subtotal, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil || subtotal < 0 || category == "" {
			middleware.RespondWithError(w, http.StatusBadRequest, "subtotal must be a non-negative integer and needs a category")
			return
		}
		offers, err = h.registry.EligibleFor(r.Context(), category, subtotal)
	} else {
		offers, err = h.registry.ListActiveForCategory(r.Context(), category)
	}
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, offers)
}

// GetOffer returns one offer
func (h *OfferHandler) GetOffer(w http.ResponseWriter, r *http.Request) {
	offerID, ok := uuidParam(w, r, "offerID")
	if !ok {
		return
	}

	o, err := h.registry.Get(r.Context(), offerID)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, o)
}

// ListProducts returns the catalog products an offer can discount
func (h *OfferHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	offerID, ok := uuidParam(w, r, "offerID")
	if !ok {
		return
	}

	products, err := h.registry.Products(r.Context(), offerID)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// ListCategories returns the registered categories
func (h *OfferHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.registry.Categories(r.Context())
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

// CountActive returns the number of offers active right now
func (h *OfferHandler) CountActive(w http.ResponseWriter, r *http.Request) {
	n, err := h.registry.CountActive(r.Context())
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, CountResponse{ActiveOffers: n})
}

// CreateOffer registers a new offer
func (h *OfferHandler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var req CreateOfferRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Create offer validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	o, err := h.registry.Create(r.Context(), offer.CreateInput{
		Title:         req.Title,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		MinCartValue:  req.MinCartValue,
		Categories:    req.Categories,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
	})
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, o)
}

// DeleteOffer removes an offer
func (h *OfferHandler) DeleteOffer(w http.ResponseWriter, r *http.Request) {
	offerID, ok := uuidParam(w, r, "offerID")
	if !ok {
		return
	}

	if err := h.registry.Delete(r.Context(), offerID); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
