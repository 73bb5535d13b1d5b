package banner_test

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/banner"
	"github.com/vasiliy-maslov/storefront/internal/realtime"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, b *banner.Banner) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockRepository) Update(ctx context.Context, b *banner.Banner) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) Get(ctx context.Context, id uuid.UUID) (*banner.Banner, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*banner.Banner), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, activeOnly bool) ([]banner.Banner, error) {
	args := m.Called(ctx, activeOnly)
	return args.Get(0).([]banner.Banner), args.Error(1)
}

func adminCtx() context.Context {
	return session.NewContext(context.Background(), &session.Session{
		UserID: uuid.Must(uuid.NewV4()),
		Role:   session.RoleAdmin,
	})
}

func userCtx() context.Context {
	return session.NewContext(context.Background(), &session.Session{
		UserID: uuid.Must(uuid.NewV4()),
		Role:   session.RoleUser,
	})
}

func TestBannerService_Create(t *testing.T) {
	tests := []struct {
		name    string
		ctx     context.Context
		in      banner.Input
		wantErr error
		active  bool
	}{
		{
			name:   "defaults_to_active",
			ctx:    adminCtx(),
			in:     banner.Input{ImageURL: " https://img.example/a.png ", TargetURL: "/products"},
			active: true,
		},
		{
			name:   "explicitly_inactive",
			ctx:    adminCtx(),
			in:     banner.Input{ImageURL: "https://img.example/a.png", Active: new(bool)},
			active: false,
		},
		{
			name:    "missing_image",
			ctx:     adminCtx(),
			in:      banner.Input{ImageURL: "  "},
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "bad_target",
			ctx:     adminCtx(),
			in:      banner.Input{ImageURL: "https://img.example/a.png", TargetURL: "javascript:alert(1)"},
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "not_admin",
			ctx:     userCtx(),
			in:      banner.Input{ImageURL: "https://img.example/a.png"},
			wantErr: apperr.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			hub := realtime.NewHub()
			svc := banner.NewService(repo, hub, hub)
			if tt.wantErr == nil {
				repo.On("Create", mock.Anything, mock.AnythingOfType("*banner.Banner")).Return(nil).Once()
			}

			b, err := svc.Create(tt.ctx, tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "https://img.example/a.png", b.ImageURL)
			assert.Equal(t, tt.active, b.Active)
			repo.AssertExpectations(t)
		})
	}
}

func TestBannerService_UpdateTogglesActive(t *testing.T) {
	repo := new(MockRepository)
	hub := realtime.NewHub()
	svc := banner.NewService(repo, hub, hub)

	id := uuid.Must(uuid.NewV4())
	repo.On("Get", mock.Anything, id).
		Return(&banner.Banner{ID: id, ImageURL: "https://img.example/a.png", TargetURL: "/sale", Active: true}, nil).Once()
	repo.On("Update", mock.Anything, mock.MatchedBy(func(b *banner.Banner) bool {
		return b.ID == id && !b.Active && b.TargetURL == "/sale"
	})).Return(nil).Once()

	inactive := false
	b, err := svc.Update(adminCtx(), id, banner.Patch{Active: &inactive})
	require.NoError(t, err)
	assert.False(t, b.Active)
	repo.AssertExpectations(t)
}

func TestBannerService_UpdateNotFound(t *testing.T) {
	repo := new(MockRepository)
	hub := realtime.NewHub()
	svc := banner.NewService(repo, hub, hub)

	id := uuid.Must(uuid.NewV4())
	repo.On("Get", mock.Anything, id).Return(nil, banner.ErrBannerNotFound).Once()

	_, err := svc.Update(adminCtx(), id, banner.Patch{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBannerService_ListAllRequiresAdmin(t *testing.T) {
	repo := new(MockRepository)
	hub := realtime.NewHub()
	svc := banner.NewService(repo, hub, hub)

	repo.On("List", mock.Anything, true).Return([]banner.Banner{{ImageURL: "https://img.example/a.png", Active: true}}, nil)

	active, err := svc.List(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	_, err = svc.List(userCtx(), false)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	repo.AssertNotCalled(t, "List", mock.Anything, false)
}

func TestBannerService_DeleteAnnouncesChange(t *testing.T) {
	repo := new(MockRepository)
	hub := realtime.NewHub()
	svc := banner.NewService(repo, hub, hub)

	fired := make(chan struct{}, 1)
	unsubscribe := hub.Subscribe(realtime.TopicBanners, func(realtime.Event) {
		select {
		case fired <- struct{}{}:
		default:
		}
	}, nil)
	defer unsubscribe()

	id := uuid.Must(uuid.NewV4())
	repo.On("Delete", mock.Anything, id).Return(nil).Once()

	require.NoError(t, svc.Delete(adminCtx(), id))
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("banner change not announced")
	}
}

func TestBannerService_SubscribeReloadsOnChange(t *testing.T) {
	repo := new(MockRepository)
	hub := realtime.NewHub()
	svc := banner.NewService(repo, hub, hub)

	repo.On("List", mock.Anything, true).Return([]banner.Banner{}, nil)

	snapshots := make(chan []banner.Banner, 4)
	unsubscribe := svc.Subscribe(context.Background(), true, func(b []banner.Banner) { snapshots <- b }, nil)
	defer unsubscribe()

	for i := 0; i < 2; i++ {
		select {
		case <-snapshots:
		case <-time.After(time.Second):
			t.Fatalf("snapshot %d not delivered", i)
		}
		if i == 0 {
			require.NoError(t, hub.Notify(context.Background(), realtime.TopicBanners))
		}
	}
}
