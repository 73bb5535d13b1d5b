package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/storefront/internal/dashboard"
	"github.com/vasiliy-maslov/storefront/internal/user"
)

type UpdateProfileRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

type UserHandler struct {
	service   user.Service
	dashboard dashboard.Service
	validate  *validator.Validate
}

func NewUserHandler(service user.Service, dashboard dashboard.Service) *UserHandler {
	return &UserHandler{
		service:   service,
		dashboard: dashboard,
		validate:  validator.New(),
	}
}

func (h *UserHandler) RegisterRoutes(router chi.Router) {
	router.Get("/me", h.handleGetProfile)
	router.Put("/me", h.handleUpdateProfile)
}

func (h *UserHandler) RegisterAdminRoutes(router chi.Router) {
	router.Get("/users", h.handleListCustomers)
	router.Get("/users/{id}", h.handleGetUser)
	router.Get("/dashboard", h.handleDashboard)
}

func (h *UserHandler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.GetProfile(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to get profile")
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), user.ProfilePatch{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to update profile")
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListCustomers(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to list customers")
		return
	}
	respondWithJSON(w, http.StatusOK, users)
}

func (h *UserHandler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	u, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get user")
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Stats(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to load dashboard")
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}
