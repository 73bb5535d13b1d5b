package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/realtime"
)

type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	CategoryID  *uuid.UUID      `json:"category_id"`
	Images      []string        `json:"images"`
	Description string          `json:"description"`
}

// UpdateProductRequest changes only the fields present in the body.
type UpdateProductRequest struct {
	Name          *string          `json:"name,omitempty" validate:"omitempty,min=1"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	Stock         *int             `json:"stock,omitempty" validate:"omitempty,gte=0"`
	CategoryID    *uuid.UUID       `json:"category_id,omitempty"`
	ClearCategory bool             `json:"clear_category,omitempty"`
	Images        []string         `json:"images,omitempty"`
	Description   *string          `json:"description,omitempty"`
}

type CategoryRequest struct {
	Name string `json:"name" validate:"required"`
}

type CatalogHandler struct {
	service  catalog.Service
	validate *validator.Validate
}

func NewCatalogHandler(service catalog.Service) *CatalogHandler {
	return &CatalogHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *CatalogHandler) RegisterRoutes(router chi.Router) {
	router.Get("/products", h.handleListProducts)
	router.Get("/products/{id}", h.handleGetProduct)
	router.Get("/categories", h.handleListCategories)
	router.Get("/ws/products", h.handleStreamProducts)
}

func (h *CatalogHandler) RegisterAdminRoutes(router chi.Router) {
	router.Post("/products", h.handleCreateProduct)
	router.Get("/products/export", h.handleExportProducts)
	router.Get("/products/low-stock", h.handleLowStock)
	router.Put("/products/{id}", h.handleUpdateProduct)
	router.Delete("/products/{id}", h.handleDeleteProduct)

	router.Post("/categories", h.handleCreateCategory)
	router.Put("/categories/{id}", h.handleRenameCategory)
	router.Delete("/categories/{id}", h.handleDeleteCategory)
}

func parseFilter(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()
	filter := catalog.Filter{Search: q.Get("search")}
	if raw := q.Get("category"); raw != "" {
		id, err := uuid.FromString(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid category parameter: %w", err)
		}
		filter.CategoryID = uuid.NullUUID{UUID: id, Valid: true}
	}
	return filter, nil
}

func (h *CatalogHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	products, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get product")
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to list categories")
		return
	}
	respondWithJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) handleStreamProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	serveStream(w, r, func(ctx context.Context, push func(any), fail func(error)) (realtime.Unsubscribe, error) {
		return h.service.Subscribe(ctx, filter, func(products []catalog.ProductView) {
			push(products)
		}, fail), nil
	})
}

func (h *CatalogHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	in := catalog.ProductInput{
		Name:        req.Name,
		Price:       req.Price,
		Stock:       req.Stock,
		Images:      req.Images,
		Description: req.Description,
	}
	if req.CategoryID != nil {
		in.CategoryID = uuid.NullUUID{UUID: *req.CategoryID, Valid: true}
	}

	product, err := h.service.CreateProduct(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create product")
		return
	}
	respondWithJSON(w, http.StatusCreated, product)
}

func (h *CatalogHandler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateProductRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	patch := catalog.ProductPatch{
		Name:        req.Name,
		Price:       req.Price,
		Stock:       req.Stock,
		Images:      req.Images,
		Description: req.Description,
	}
	switch {
	case req.ClearCategory:
		patch.CategoryID = &uuid.NullUUID{}
	case req.CategoryID != nil:
		patch.CategoryID = &uuid.NullUUID{UUID: *req.CategoryID, Valid: true}
	}

	product, err := h.service.UpdateProduct(r.Context(), id, patch)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update product")
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) handleExportProducts(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := catalog.ExportProducts(r.Context(), h.service, &buf); err != nil {
		respondWithServiceError(w, err, "Failed to export products")
		return
	}

	filename := fmt.Sprintf("products-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Error().Err(err).Msg("Failed to write product export")
	}
}

func (h *CatalogHandler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	threshold := catalog.LowStockThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid threshold parameter")
			return
		}
		threshold = n
	}

	products, err := h.service.LowStock(r.Context(), threshold)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list low stock products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	category, err := h.service.CreateCategory(r.Context(), req.Name)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create category")
		return
	}
	respondWithJSON(w, http.StatusCreated, category)
}

func (h *CatalogHandler) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req CategoryRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	if err := h.service.RenameCategory(r.Context(), id, req.Name); err != nil {
		respondWithServiceError(w, err, "Failed to rename category")
		return
	}
	respondWithJSON(w, http.StatusOK, catalog.Category{ID: id, Name: req.Name})
}

func (h *CatalogHandler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
