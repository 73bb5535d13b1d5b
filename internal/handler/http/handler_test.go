package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/auth"
	"github.com/vasiliy-maslov/storefront/internal/banner"
	"github.com/vasiliy-maslov/storefront/internal/cart"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/checkout"
	storefronthttp "github.com/vasiliy-maslov/storefront/internal/handler/http"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

const (
	userToken  = "user-token"
	adminToken = "admin-token"
)

type testServer struct {
	router   chi.Router
	auth     *MockAuthenticator
	carts    *MockCartService
	products *MockProductLookup
	checkout *MockCheckoutService
	orders   *MockOrderService
	banners  *MockBannerService
	userID   uuid.UUID
}

func newTestServer(t *testing.T, checks map[string]storefronthttp.HealthCheck) *testServer {
	t.Helper()
	s := &testServer{
		auth:     new(MockAuthenticator),
		carts:    new(MockCartService),
		products: new(MockProductLookup),
		checkout: new(MockCheckoutService),
		orders:   new(MockOrderService),
		banners:  new(MockBannerService),
		userID:   uuid.Must(uuid.NewV4()),
	}

	s.auth.On("Authenticate", mock.Anything, userToken).
		Return(&session.Session{UserID: s.userID, Role: session.RoleUser}, nil).Maybe()
	s.auth.On("Authenticate", mock.Anything, adminToken).
		Return(&session.Session{UserID: uuid.Must(uuid.NewV4()), Role: session.RoleAdmin}, nil).Maybe()
	s.auth.On("Authenticate", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: %v", apperr.ErrNotAuthenticated, auth.ErrInvalidToken)).Maybe()

	reg := prometheus.NewRegistry()
	s.router = storefronthttp.NewRouter(storefronthttp.RouterConfig{
		Auth:          storefronthttp.NewAuthHandler(nil),
		Catalog:       storefronthttp.NewCatalogHandler(nil),
		Banners:       storefronthttp.NewBannerHandler(s.banners),
		Cart:          storefronthttp.NewCartHandler(s.carts, s.products),
		Checkout:      storefronthttp.NewCheckoutHandler(s.checkout),
		Orders:        storefronthttp.NewOrderHandler(s.orders),
		Settings:      storefronthttp.NewSettingsHandler(nil),
		Users:         storefronthttp.NewUserHandler(nil, nil),
		Authenticator: s.auth,
		Metrics:       storefronthttp.NewMetrics(reg),
		Gatherer:      reg,
		HealthChecks:  checks,
	})
	return s
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func TestCart_RequiresSession(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.do(http.MethodGet, "/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	s.carts.AssertNotCalled(t, "View", mock.Anything)
}

func TestCart_InvalidTokenRejected(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.do(http.MethodGet, "/cart", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCart_AddItem(t *testing.T) {
	s := newTestServer(t, nil)
	productID := uuid.Must(uuid.NewV4())
	product := &catalog.ProductView{Product: catalog.Product{ID: productID, Name: "Mug", Price: decimal.NewFromInt(500), Stock: 5}}

	s.carts.On("Get", mock.Anything).Return(&cart.Cart{UserID: s.userID}, nil).Once()
	s.products.On("GetProduct", mock.Anything, productID).Return(product, nil).Once()
	s.carts.On("Add", mock.Anything, productID, 1).Return(&cart.Cart{UserID: s.userID}, nil).Once()
	s.carts.On("View", mock.Anything).Return(&cart.View{
		UserID:      s.userID,
		Lines:       []cart.Line{{Product: product.Product, Quantity: 1, Subtotal: product.Price}},
		TotalItems:  1,
		TotalAmount: product.Price,
	}, nil).Once()

	rr := s.do(http.MethodPost, "/cart/items", userToken, map[string]any{"product_id": productID})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var view cart.View
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&view))
	assert.Equal(t, 1, view.TotalItems)
	assert.True(t, decimal.NewFromInt(500).Equal(view.TotalAmount))
	s.carts.AssertExpectations(t)
}

func TestCart_AddItemBeyondStock(t *testing.T) {
	s := newTestServer(t, nil)
	productID := uuid.Must(uuid.NewV4())

	s.carts.On("Get", mock.Anything).Return(&cart.Cart{
		UserID: s.userID,
		Items:  []cart.Item{{ProductID: productID, Quantity: 2}},
	}, nil).Once()
	s.products.On("GetProduct", mock.Anything, productID).Return(&catalog.ProductView{
		Product: catalog.Product{ID: productID, Name: "Mug", Price: decimal.NewFromInt(500), Stock: 3},
	}, nil).Once()

	rr := s.do(http.MethodPost, "/cart/items", userToken, map[string]any{"product_id": productID, "quantity": 2})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "only 3 of Mug left in stock")
	s.carts.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckout_ConfirmFailureReportsState(t *testing.T) {
	s := newTestServer(t, nil)
	cause := apperr.Remote("repository: failed to insert order", errors.New("connection reset"))

	s.checkout.On("Confirm", mock.Anything).
		Return(&checkout.Result{State: checkout.StepFailed, Error: cause.Error()}, cause).Once()

	rr := s.do(http.MethodPost, "/checkout/confirm", userToken, nil)
	require.Equal(t, http.StatusBadGateway, rr.Code)

	var res checkout.Result
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Equal(t, checkout.StepFailed, res.State)
	assert.Contains(t, res.Error, "connection reset")
}

func TestCheckout_ConfirmPlaced(t *testing.T) {
	s := newTestServer(t, nil)
	orderID := uuid.Must(uuid.NewV4())

	s.checkout.On("Confirm", mock.Anything).
		Return(&checkout.Result{State: checkout.StepPlaced, OrderID: orderID}, nil).Once()

	rr := s.do(http.MethodPost, "/checkout/confirm", userToken, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	var res checkout.Result
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Equal(t, orderID, res.OrderID)
}

func TestCheckout_EmptyCart(t *testing.T) {
	s := newTestServer(t, nil)
	s.checkout.On("Start", mock.Anything).Return(nil, checkout.ErrCartEmpty).Once()

	rr := s.do(http.MethodGet, "/checkout", userToken, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, `{"error":"cart is empty"}`, rr.Body.String())
}

func TestAdminOrders_Guard(t *testing.T) {
	s := newTestServer(t, nil)
	id := uuid.Must(uuid.NewV4())

	rr := s.do(http.MethodPut, "/admin/orders/"+id.String()+"/status", userToken, map[string]string{"status": "shipped"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(http.MethodPut, "/admin/orders/"+id.String()+"/status", "", map[string]string{"status": "shipped"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	s.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminOrders_UpdateStatus(t *testing.T) {
	s := newTestServer(t, nil)
	id := uuid.Must(uuid.NewV4())

	s.orders.On("UpdateStatus", mock.Anything, id, order.StatusShipped).Return(nil).Once()
	s.orders.On("GetByID", mock.Anything, id).
		Return(&order.Order{ID: id, Status: order.StatusShipped, PaymentStatus: order.PaymentPending}, nil).Once()

	rr := s.do(http.MethodPut, "/admin/orders/"+id.String()+"/status", adminToken, map[string]string{"status": "Shipped"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var got order.Order
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, order.StatusShipped, got.Status)
	s.orders.AssertExpectations(t)
}

func TestAdminOrders_InvalidTransition(t *testing.T) {
	s := newTestServer(t, nil)
	id := uuid.Must(uuid.NewV4())

	s.orders.On("UpdateStatus", mock.Anything, id, order.StatusPending).
		Return(fmt.Errorf("service: %w: delivered -> pending", order.ErrInvalidStatusTransition)).Once()

	rr := s.do(http.MethodPut, "/admin/orders/"+id.String()+"/status", adminToken, map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	s.orders.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestAdminOrders_UnknownStatus(t *testing.T) {
	s := newTestServer(t, nil)
	id := uuid.Must(uuid.NewV4())

	rr := s.do(http.MethodPut, "/admin/orders/"+id.String()+"/status", adminToken, map[string]string{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "unknown order status")
}

func TestBanners_PublicListIsActiveOnly(t *testing.T) {
	s := newTestServer(t, nil)

	s.banners.On("List", mock.Anything, true).
		Return([]banner.Banner{{ID: uuid.Must(uuid.NewV4()), ImageURL: "https://img.example/a.png", Active: true}}, nil).Once()

	rr := s.do(http.MethodGet, "/banners", "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var got []banner.Banner
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Len(t, got, 1)
	s.banners.AssertExpectations(t)
}

func TestAdminBanners_CreateRequiresAdmin(t *testing.T) {
	s := newTestServer(t, nil)
	body := map[string]any{"image_url": "https://img.example/a.png"}

	rr := s.do(http.MethodPost, "/admin/banners", userToken, body)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	s.banners.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	created := &banner.Banner{ID: uuid.Must(uuid.NewV4()), ImageURL: "https://img.example/a.png", Active: true}
	s.banners.On("Create", mock.Anything, banner.Input{ImageURL: "https://img.example/a.png"}).Return(created, nil).Once()

	rr = s.do(http.MethodPost, "/admin/banners", adminToken, body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	s.banners.AssertExpectations(t)
}

func TestAdminBanners_DeleteMissing(t *testing.T) {
	s := newTestServer(t, nil)
	id := uuid.Must(uuid.NewV4())

	s.banners.On("Delete", mock.Anything, id).Return(banner.ErrBannerNotFound).Once()

	rr := s.do(http.MethodDelete, "/admin/banners/"+id.String(), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestOrders_NotFoundForStranger(t *testing.T) {
	s := newTestServer(t, nil)
	id := uuid.Must(uuid.NewV4())
	s.orders.On("GetByID", mock.Anything, id).Return(nil, order.ErrOrderNotFound).Once()

	rr := s.do(http.MethodGet, "/orders/"+id.String(), userToken, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, map[string]storefronthttp.HealthCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("dial tcp: connection refused") },
	})

	rr := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp storefronthttp.HealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "ok", resp.Checks["postgres"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	s.do(http.MethodGet, "/cart", "", nil)
	rr := s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), `http_requests_total{endpoint="/cart",method="GET",status="401"} 1`), rr.Body.String())
}
