package transport

import (
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UpdateStatusRequest represents the admin status change payload
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderHandler handles HTTP requests for orders
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers customer order routes and the admin order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Post("/", h.PlaceOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{orderID}", h.GetOrder)
	})

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(adminMiddleware)

		r.Get("/api/admin/orders", h.ListAllOrders)
		r.Put("/api/admin/orders/{orderID}/status", h.UpdateStatus)
	})
}

// PlaceOrder converts the caller's cart into an order
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}

	order, err := h.orderService.Place(r.Context(), owner)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// ListOrders returns the caller's orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}

	orders, err := h.orderService.ListByOwner(r.Context(), owner)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// GetOrder returns one of the caller's orders
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	orderID, ok := uuidParam(w, r, "orderID")
	if !ok {
		return
	}

	order, err := h.orderService.GetForOwner(r.Context(), owner, orderID)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// ListAllOrders returns every order, optionally filtered by ?status=
func (h *OrderHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	var filter *domain.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := domain.ParseOrderStatus(raw)
		if err != nil {
			middleware.RespondWithDomainError(w, h.logger, err)
			return
		}
		filter = &status
	}

	orders, err := h.orderService.ListAll(r.Context(), filter)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// UpdateStatus moves an order to a new lifecycle status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "orderID")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), orderID, status)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}
