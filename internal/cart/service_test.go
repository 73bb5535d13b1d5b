package cart_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/cart"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/realtime"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

type memoryRepository struct {
	mu      sync.Mutex
	carts   map[uuid.UUID][]cart.Item
	saves   int
	saveErr error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{carts: make(map[uuid.UUID][]cart.Item)}
}

func (m *memoryRepository) Get(_ context.Context, userID uuid.UUID) (*cart.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := append([]cart.Item{}, m.carts[userID]...)
	return &cart.Cart{UserID: userID, Items: items}, nil
}

func (m *memoryRepository) Save(_ context.Context, c *cart.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.carts[c.UserID] = append([]cart.Item{}, c.Items...)
	return nil
}

type stubProducts struct {
	mu       sync.Mutex
	products map[uuid.UUID]catalog.Product
}

func (s *stubProducts) ProductsByID(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]catalog.Product)
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *stubProducts) setPrice(id uuid.UUID, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[id]
	p.Price = price
	s.products[id] = p
}

type fixture struct {
	repo     *memoryRepository
	products *stubProducts
	hub      *realtime.Hub
	svc      cart.Service
	ctx      context.Context
	userID   uuid.UUID
	mug      catalog.Product
}

func newFixture() *fixture {
	mug := catalog.Product{ID: uuid.Must(uuid.NewV4()), Name: "Mug", Price: decimal.NewFromInt(500), Stock: 10}
	f := &fixture{
		repo:     newMemoryRepository(),
		products: &stubProducts{products: map[uuid.UUID]catalog.Product{mug.ID: mug}},
		hub:      realtime.NewHub(),
		userID:   uuid.Must(uuid.NewV4()),
		mug:      mug,
	}
	f.svc = cart.NewService(f.repo, f.products, f.hub, f.hub)
	f.ctx = session.NewContext(context.Background(), &session.Session{
		ID:     uuid.Must(uuid.NewV4()),
		UserID: f.userID,
		Role:   session.RoleUser,
	})
	return f
}

func TestCartService_RequiresSession(t *testing.T) {
	f := newFixture()
	anon := context.Background()

	_, err := f.svc.Add(anon, f.mug.ID, 1)
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)
	_, err = f.svc.SetQuantity(anon, f.mug.ID, 2)
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)
	_, err = f.svc.Remove(anon, f.mug.ID)
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)
	assert.ErrorIs(t, f.svc.Clear(anon), apperr.ErrNotAuthenticated)
	_, err = f.svc.Subscribe(anon, func(*cart.View) {}, nil)
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)

	assert.Equal(t, 0, f.repo.saves)
}

func TestCartService_AddRejectsNonPositiveQuantity(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Add(f.ctx, f.mug.ID, 0)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 0, f.repo.saves)
}

func TestCartService_AddThenView(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Add(f.ctx, f.mug.ID, 1)
	require.NoError(t, err)
	c, err := f.svc.Add(f.ctx, f.mug.ID, 1)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)

	view, err := f.svc.View(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, view.TotalItems)
	assert.True(t, decimal.NewFromInt(1000).Equal(view.TotalAmount))
	assert.Equal(t, 2, f.repo.saves)
}

func TestCartService_TotalFollowsLivePrice(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Add(f.ctx, f.mug.ID, 2)
	require.NoError(t, err)

	f.products.setPrice(f.mug.ID, decimal.NewFromInt(450))

	view, err := f.svc.View(f.ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(900).Equal(view.TotalAmount))
}

func TestCartService_SaveFailure(t *testing.T) {
	f := newFixture()
	f.repo.saveErr = apperr.Remote("repository: failed to save cart", errors.New("connection refused"))

	_, err := f.svc.Add(f.ctx, f.mug.ID, 1)
	require.Error(t, err)
	assert.True(t, apperr.IsRemote(err))
}

func TestCartService_ClearThenSubscribeYieldsEmpty(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Add(f.ctx, f.mug.ID, 3)
	require.NoError(t, err)
	require.NoError(t, f.svc.Clear(f.ctx))

	views := make(chan *cart.View, 1)
	unsubscribe, err := f.svc.Subscribe(f.ctx, func(v *cart.View) { views <- v }, nil)
	require.NoError(t, err)
	defer unsubscribe()

	select {
	case v := <-views:
		assert.Empty(t, v.Lines)
		assert.Equal(t, 0, v.TotalItems)
		assert.True(t, v.TotalAmount.IsZero())
	case <-time.After(time.Second):
		t.Fatal("initial snapshot not delivered")
	}
}

func TestCartService_SubscribePushesOnMutation(t *testing.T) {
	f := newFixture()

	views := make(chan *cart.View, 8)
	unsubscribe, err := f.svc.Subscribe(f.ctx, func(v *cart.View) { views <- v }, nil)
	require.NoError(t, err)
	defer unsubscribe()

	select {
	case <-views:
	case <-time.After(time.Second):
		t.Fatal("initial snapshot not delivered")
	}

	_, err = f.svc.Add(f.ctx, f.mug.ID, 2)
	require.NoError(t, err)

	deadline := time.After(time.Second)
	for {
		select {
		case v := <-views:
			if v.TotalItems == 2 {
				return
			}
		case <-deadline:
			t.Fatal("cart change not pushed")
		}
	}
}
