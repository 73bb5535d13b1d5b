package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/storefront/internal/banner"
	"github.com/vasiliy-maslov/storefront/internal/realtime"
)

type CreateBannerRequest struct {
	ImageURL  string `json:"image_url" validate:"required"`
	TargetURL string `json:"target_url"`
	Active    *bool  `json:"active"`
}

type UpdateBannerRequest struct {
	ImageURL  *string `json:"image_url,omitempty" validate:"omitempty,min=1"`
	TargetURL *string `json:"target_url,omitempty"`
	Active    *bool   `json:"active,omitempty"`
}

type BannerHandler struct {
	service  banner.Service
	validate *validator.Validate
}

func NewBannerHandler(service banner.Service) *BannerHandler {
	return &BannerHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *BannerHandler) RegisterRoutes(router chi.Router) {
	router.Get("/banners", h.handleListActive)
	router.Get("/ws/banners", h.handleStreamActive)
}

func (h *BannerHandler) RegisterAdminRoutes(router chi.Router) {
	router.Get("/banners", h.handleListAll)
	router.Post("/banners", h.handleCreate)
	router.Put("/banners/{id}", h.handleUpdate)
	router.Delete("/banners/{id}", h.handleDelete)
}

func (h *BannerHandler) handleListActive(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *BannerHandler) handleListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

func (h *BannerHandler) list(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	banners, err := h.service.List(r.Context(), activeOnly)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list banners")
		return
	}
	respondWithJSON(w, http.StatusOK, banners)
}

func (h *BannerHandler) handleStreamActive(w http.ResponseWriter, r *http.Request) {
	serveStream(w, r, func(ctx context.Context, push func(any), fail func(error)) (realtime.Unsubscribe, error) {
		return h.service.Subscribe(ctx, true, func(banners []banner.Banner) {
			push(banners)
		}, fail), nil
	})
}

func (h *BannerHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateBannerRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	b, err := h.service.Create(r.Context(), banner.Input{
		ImageURL:  req.ImageURL,
		TargetURL: req.TargetURL,
		Active:    req.Active,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to create banner")
		return
	}
	respondWithJSON(w, http.StatusCreated, b)
}

func (h *BannerHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateBannerRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	b, err := h.service.Update(r.Context(), id, banner.Patch{
		ImageURL:  req.ImageURL,
		TargetURL: req.TargetURL,
		Active:    req.Active,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to update banner")
		return
	}
	respondWithJSON(w, http.StatusOK, b)
}

func (h *BannerHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete banner")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
