package http_test

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/vasiliy-maslov/storefront/internal/banner"
	"github.com/vasiliy-maslov/storefront/internal/cart"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/checkout"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/realtime"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, token string) (*session.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

type MockProductLookup struct {
	mock.Mock
}

func (m *MockProductLookup) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.ProductView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.ProductView), args.Error(1)
}

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) Add(ctx context.Context, productID uuid.UUID, quantity int) (*cart.Cart, error) {
	args := m.Called(ctx, productID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) SetQuantity(ctx context.Context, productID uuid.UUID, quantity int) (*cart.Cart, error) {
	args := m.Called(ctx, productID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) Remove(ctx context.Context, productID uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockCartService) Get(ctx context.Context) (*cart.Cart, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) View(ctx context.Context) (*cart.View, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.View), args.Error(1)
}

func (m *MockCartService) Subscribe(ctx context.Context, onUpdate func(*cart.View), onError func(error)) (realtime.Unsubscribe, error) {
	args := m.Called(ctx, onUpdate, onError)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(realtime.Unsubscribe), args.Error(1)
}

type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) draft(args mock.Arguments) (*checkout.Draft, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Draft), args.Error(1)
}

func (m *MockCheckoutService) Start(ctx context.Context) (*checkout.Draft, error) {
	return m.draft(m.Called(ctx))
}

func (m *MockCheckoutService) SubmitAddress(ctx context.Context, phone, address, zone string) (*checkout.Draft, error) {
	return m.draft(m.Called(ctx, phone, address, zone))
}

func (m *MockCheckoutService) SubmitPayment(ctx context.Context, method order.PaymentMethod, bkashNumber, bkashTrxID string) (*checkout.Draft, error) {
	return m.draft(m.Called(ctx, method, bkashNumber, bkashTrxID))
}

func (m *MockCheckoutService) Back(ctx context.Context) (*checkout.Draft, error) {
	return m.draft(m.Called(ctx))
}

func (m *MockCheckoutService) Review(ctx context.Context) (*checkout.Summary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Summary), args.Error(1)
}

func (m *MockCheckoutService) Confirm(ctx context.Context) (*checkout.Result, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Result), args.Error(1)
}

func (m *MockCheckoutService) Cancel(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Create(ctx context.Context, in order.NewOrder) (*order.Order, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ListForUser(ctx context.Context) ([]order.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) ListAll(ctx context.Context) ([]order.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status order.Status) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockOrderService) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status order.PaymentStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockOrderService) Subscribe(ctx context.Context, onUpdate func([]order.Order), onError func(error)) (realtime.Unsubscribe, error) {
	args := m.Called(ctx, onUpdate, onError)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(realtime.Unsubscribe), args.Error(1)
}

type MockBannerService struct {
	mock.Mock
}

func (m *MockBannerService) List(ctx context.Context, activeOnly bool) ([]banner.Banner, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]banner.Banner), args.Error(1)
}

func (m *MockBannerService) Create(ctx context.Context, in banner.Input) (*banner.Banner, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*banner.Banner), args.Error(1)
}

func (m *MockBannerService) Update(ctx context.Context, id uuid.UUID, patch banner.Patch) (*banner.Banner, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*banner.Banner), args.Error(1)
}

func (m *MockBannerService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBannerService) Subscribe(ctx context.Context, activeOnly bool, onUpdate func([]banner.Banner), onError func(error)) realtime.Unsubscribe {
	args := m.Called(ctx, activeOnly, onUpdate, onError)
	return args.Get(0).(realtime.Unsubscribe)
}
