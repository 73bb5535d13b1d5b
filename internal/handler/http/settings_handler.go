package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/realtime"
	"github.com/vasiliy-maslov/storefront/internal/settings"
)

type DeliveryChargeResponse struct {
	Zone   string          `json:"zone"`
	Charge decimal.Decimal `json:"charge"`
}

type SettingsHandler struct {
	service  settings.Service
	validate *validator.Validate
}

func NewSettingsHandler(service settings.Service) *SettingsHandler {
	return &SettingsHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *SettingsHandler) RegisterRoutes(router chi.Router) {
	router.Get("/settings", h.handleGetSettings)
	router.Get("/settings/delivery-charge", h.handleDeliveryCharge)
	router.Get("/ws/settings", h.handleStreamSettings)
}

func (h *SettingsHandler) RegisterAdminRoutes(router chi.Router) {
	router.Put("/settings/payment-methods", h.handlePaymentMethods)
	router.Put("/settings/delivery-charges", h.handleDeliveryCharges)
	router.Put("/settings/branding", h.handleBranding)
	router.Put("/settings/contact", h.handleContact)
	router.Put("/settings/payment-info", h.handlePaymentInfo)
}

func (h *SettingsHandler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Get(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to load settings")
		return
	}
	respondWithJSON(w, http.StatusOK, s)
}

func (h *SettingsHandler) handleDeliveryCharge(w http.ResponseWriter, r *http.Request) {
	zone := r.URL.Query().Get("zone")
	if zone == "" {
		zone = settings.ZoneDefault
	}

	charge, err := h.service.DeliveryCharge(r.Context(), zone)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load delivery charge")
		return
	}
	respondWithJSON(w, http.StatusOK, DeliveryChargeResponse{Zone: zone, Charge: charge})
}

func (h *SettingsHandler) handleStreamSettings(w http.ResponseWriter, r *http.Request) {
	serveStream(w, r, func(ctx context.Context, push func(any), fail func(error)) (realtime.Unsubscribe, error) {
		return h.service.Subscribe(ctx, func(s *settings.Settings) {
			push(s)
		}, fail), nil
	})
}

func (h *SettingsHandler) handlePaymentMethods(w http.ResponseWriter, r *http.Request) {
	var req settings.PaymentMethodsPatch
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	h.respondUpdated(w, r, func(ctx context.Context) (*settings.Settings, error) {
		return h.service.UpdatePaymentMethods(ctx, req)
	})
}

func (h *SettingsHandler) handleDeliveryCharges(w http.ResponseWriter, r *http.Request) {
	var req map[string]decimal.Decimal
	if !decodeJSON(w, r, &req) {
		return
	}
	h.respondUpdated(w, r, func(ctx context.Context) (*settings.Settings, error) {
		return h.service.UpdateDeliveryCharges(ctx, req)
	})
}

func (h *SettingsHandler) handleBranding(w http.ResponseWriter, r *http.Request) {
	var req settings.BrandingPatch
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	h.respondUpdated(w, r, func(ctx context.Context) (*settings.Settings, error) {
		return h.service.UpdateBranding(ctx, req)
	})
}

func (h *SettingsHandler) handleContact(w http.ResponseWriter, r *http.Request) {
	var req settings.ContactPatch
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	h.respondUpdated(w, r, func(ctx context.Context) (*settings.Settings, error) {
		return h.service.UpdateContactInfo(ctx, req)
	})
}

func (h *SettingsHandler) handlePaymentInfo(w http.ResponseWriter, r *http.Request) {
	var req settings.PaymentInfoPatch
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	h.respondUpdated(w, r, func(ctx context.Context) (*settings.Settings, error) {
		return h.service.UpdatePaymentInfo(ctx, req)
	})
}

func (h *SettingsHandler) respondUpdated(w http.ResponseWriter, r *http.Request, update func(context.Context) (*settings.Settings, error)) {
	s, err := update(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to update settings")
		return
	}
	respondWithJSON(w, http.StatusOK, s)
}
