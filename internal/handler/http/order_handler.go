package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/realtime"
)

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required"`
}

type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
}

func NewOrderHandler(service order.Service) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Get("/orders", h.handleListMine)
	router.Get("/orders/{id}", h.handleGetOrder)
	router.Get("/ws/orders", h.handleStreamOrders)
}

func (h *OrderHandler) RegisterAdminRoutes(router chi.Router) {
	router.Get("/orders", h.handleListAll)
	router.Get("/orders/{id}", h.handleGetOrder)
	router.Put("/orders/{id}/status", h.handleUpdateStatus)
	router.Put("/orders/{id}/payment-status", h.handleUpdatePaymentStatus)
}

func (h *OrderHandler) handleListMine(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListForUser(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to list orders")
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListAll(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to list orders")
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	o, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get order")
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	status, err := order.ParseStatus(req.Status)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update order status")
		return
	}

	if err := h.service.UpdateStatus(r.Context(), id, status); err != nil {
		respondWithServiceError(w, err, "Failed to update order status")
		return
	}
	h.handleGetOrder(w, r)
}

func (h *OrderHandler) handleUpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req UpdatePaymentStatusRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	status, err := order.ParsePaymentStatus(req.PaymentStatus)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update payment status")
		return
	}

	if err := h.service.UpdatePaymentStatus(r.Context(), id, status); err != nil {
		respondWithServiceError(w, err, "Failed to update payment status")
		return
	}
	h.handleGetOrder(w, r)
}

// handleStreamOrders streams the caller's own orders, or every order for
// the admin.
func (h *OrderHandler) handleStreamOrders(w http.ResponseWriter, r *http.Request) {
	serveStream(w, r, func(ctx context.Context, push func(any), fail func(error)) (realtime.Unsubscribe, error) {
		return h.service.Subscribe(ctx, func(orders []order.Order) {
			push(orders)
		}, fail)
	})
}
