package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/cart"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/realtime"
)

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"omitempty,gt=0"`
}

// SetCartItemRequest allows zero, which removes the line.
type SetCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// ProductLookup is the part of the catalog the cart routes need for the
// stock check.
type ProductLookup interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*catalog.ProductView, error)
}

type CartHandler struct {
	service  cart.Service
	products ProductLookup
	validate *validator.Validate
}

func NewCartHandler(service cart.Service, products ProductLookup) *CartHandler {
	return &CartHandler{
		service:  service,
		products: products,
		validate: validator.New(),
	}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Get("/cart", h.handleGetCart)
	router.Delete("/cart", h.handleClearCart)
	router.Post("/cart/items", h.handleAddItem)
	router.Put("/cart/items/{productId}", h.handleSetQuantity)
	router.Delete("/cart/items/{productId}", h.handleRemoveItem)
	router.Get("/ws/cart", h.handleStreamCart)
}

// checkStock rejects a cart line that would exceed the product's stock.
// The cart itself does not enforce stock.
func (h *CartHandler) checkStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	product, err := h.products.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if product.Stock <= 0 {
		return apperr.Invalid("product_id", "%s is out of stock", product.Name)
	}
	if quantity > product.Stock {
		return apperr.Invalid("quantity", "only %d of %s left in stock", product.Stock, product.Name)
	}
	return nil
}

func (h *CartHandler) respondWithView(w http.ResponseWriter, r *http.Request, code int) {
	view, err := h.service.View(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to load cart")
		return
	}
	respondWithJSON(w, code, view)
}

func (h *CartHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	h.respondWithView(w, r, http.StatusOK)
}

func (h *CartHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req AddCartItemRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	current, err := h.service.Get(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to load cart")
		return
	}
	inCart := 0
	for _, item := range current.Items {
		if item.ProductID == req.ProductID {
			inCart = item.Quantity
		}
	}
	if err := h.checkStock(r.Context(), req.ProductID, inCart+req.Quantity); err != nil {
		respondWithServiceError(w, err, "Failed to add item to cart")
		return
	}

	if _, err := h.service.Add(r.Context(), req.ProductID, req.Quantity); err != nil {
		respondWithServiceError(w, err, "Failed to add item to cart")
		return
	}
	h.respondWithView(w, r, http.StatusOK)
}

func (h *CartHandler) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseID(w, r, "productId")
	if !ok {
		return
	}

	var req SetCartItemRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	if req.Quantity > 0 {
		if err := h.checkStock(r.Context(), productID, req.Quantity); err != nil {
			respondWithServiceError(w, err, "Failed to update cart item")
			return
		}
	}

	if _, err := h.service.SetQuantity(r.Context(), productID, req.Quantity); err != nil {
		respondWithServiceError(w, err, "Failed to update cart item")
		return
	}
	h.respondWithView(w, r, http.StatusOK)
}

func (h *CartHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseID(w, r, "productId")
	if !ok {
		return
	}

	if _, err := h.service.Remove(r.Context(), productID); err != nil {
		respondWithServiceError(w, err, "Failed to remove cart item")
		return
	}
	h.respondWithView(w, r, http.StatusOK)
}

func (h *CartHandler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context()); err != nil {
		respondWithServiceError(w, err, "Failed to clear cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) handleStreamCart(w http.ResponseWriter, r *http.Request) {
	serveStream(w, r, func(ctx context.Context, push func(any), fail func(error)) (realtime.Unsubscribe, error) {
		return h.service.Subscribe(ctx, func(view *cart.View) {
			push(view)
		}, fail)
	})
}
