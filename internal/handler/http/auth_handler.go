package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/storefront/internal/auth"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthHandler struct {
	service  auth.Service
	validate *validator.Validate
}

func NewAuthHandler(service auth.Service) *AuthHandler {
	return &AuthHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	router.Post("/auth/register", h.handleRegister)
	router.Post("/auth/login", h.handleLogin)
	router.Post("/auth/admin/register", h.handleRegisterAdmin)
	router.Post("/auth/admin/login", h.handleLoginAdmin)
	router.Post("/auth/logout", h.handleLogout)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	result, err := h.service.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondWithServiceError(w, err, "Failed to register")
		return
	}
	respondWithJSON(w, http.StatusCreated, result)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, err, "Failed to log in")
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) handleRegisterAdmin(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	result, err := h.service.RegisterAdmin(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondWithServiceError(w, err, "Failed to register admin")
		return
	}
	respondWithJSON(w, http.StatusCreated, result)
}

func (h *AuthHandler) handleLoginAdmin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	result, err := h.service.LoginAdmin(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, err, "Failed to log in as admin")
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		respondWithServiceError(w, err, "Failed to log out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
