package transport

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddItemRequest represents the add-to-cart payload
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// UpdateQuantityRequest sets a line quantity; 0 or less removes the line
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// ApplyOfferRequest represents the apply-offer payload
type ApplyOfferRequest struct {
	OfferID string `json:"offer_id" validate:"required,uuid"`
}

// CartHandler handles HTTP requests for the caller's cart
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers all cart routes
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/", h.GetCart)
		r.Post("/items", h.AddItem)
		r.Put("/items/{productID}", h.UpdateQuantity)
		r.Delete("/items/{productID}", h.RemoveItem)
		r.Post("/items/{productID}/offer", h.ApplyOffer)
		r.Delete("/items/{productID}/offer", h.RemoveOffer)
	})
}

// GetCart returns the caller's cart priced as of now
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}

	priced, err := h.cartService.Snapshot(r.Context(), owner)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, priced)
}

// AddItem handles adding a product to the cart
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Add item validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	priced, err := h.cartService.AddItem(r.Context(), owner, uuid.MustParse(req.ProductID), req.Quantity)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, priced)
}

// UpdateQuantity handles changing a line quantity
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}

	var req UpdateQuantityRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	priced, err := h.cartService.UpdateQuantity(r.Context(), owner, productID, *req.Quantity)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, priced)
}

// RemoveItem handles dropping a line from the cart
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}

	priced, err := h.cartService.RemoveItem(r.Context(), owner, productID)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, priced)
}

// ApplyOffer handles attaching an offer to a cart line
func (h *CartHandler) ApplyOffer(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}

	var req ApplyOfferRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	priced, err := h.cartService.ApplyOffer(r.Context(), owner, productID, uuid.MustParse(req.OfferID))
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, priced)
}

// RemoveOffer handles detaching the offer of a cart line
func (h *CartHandler) RemoveOffer(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}

	priced, err := h.cartService.RemoveOffer(r.Context(), owner, productID)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, priced)
}
