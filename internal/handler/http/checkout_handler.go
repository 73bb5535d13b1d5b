package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/storefront/internal/checkout"
	"github.com/vasiliy-maslov/storefront/internal/order"
)

// Field presence is checked by the wizard so that a rejected step still
// records what was entered.
type AddressRequest struct {
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Zone    string `json:"zone"`
}

type PaymentRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
	BkashNumber   string `json:"bkash_number"`
	BkashTrxID    string `json:"bkash_trx_id"`
}

type CheckoutHandler struct {
	service  checkout.Service
	validate *validator.Validate
}

func NewCheckoutHandler(service checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *CheckoutHandler) RegisterRoutes(router chi.Router) {
	router.Route("/checkout", func(r chi.Router) {
		r.Get("/", h.handleStart)
		r.Delete("/", h.handleCancel)
		r.Post("/address", h.handleAddress)
		r.Post("/payment", h.handlePayment)
		r.Post("/back", h.handleBack)
		r.Get("/review", h.handleReview)
		r.Post("/confirm", h.handleConfirm)
	})
}

func (h *CheckoutHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	draft, err := h.service.Start(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to start checkout")
		return
	}
	respondWithJSON(w, http.StatusOK, draft)
}

func (h *CheckoutHandler) handleAddress(w http.ResponseWriter, r *http.Request) {
	var req AddressRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	draft, err := h.service.SubmitAddress(r.Context(), req.Phone, req.Address, req.Zone)
	if err != nil {
		respondWithServiceError(w, err, "Failed to save delivery address")
		return
	}
	respondWithJSON(w, http.StatusOK, draft)
}

func (h *CheckoutHandler) handlePayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	draft, err := h.service.SubmitPayment(r.Context(), order.PaymentMethod(req.PaymentMethod), req.BkashNumber, req.BkashTrxID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to save payment details")
		return
	}
	respondWithJSON(w, http.StatusOK, draft)
}

func (h *CheckoutHandler) handleBack(w http.ResponseWriter, r *http.Request) {
	draft, err := h.service.Back(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to go back")
		return
	}
	respondWithJSON(w, http.StatusOK, draft)
}

func (h *CheckoutHandler) handleReview(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Review(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to build order summary")
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

func (h *CheckoutHandler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Confirm(r.Context())
	if err != nil {
		if result != nil {
			respondWithJSON(w, mapErrorToStatusCode(err), result)
			return
		}
		respondWithServiceError(w, err, "Failed to place order")
		return
	}
	respondWithJSON(w, http.StatusCreated, result)
}

func (h *CheckoutHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Cancel(r.Context()); err != nil {
		respondWithServiceError(w, err, "Failed to cancel checkout")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
