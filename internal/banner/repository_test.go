package banner_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/banner"
	"github.com/vasiliy-maslov/storefront/internal/db/dbtest"
)

func TestPostgresRepository_BannerLifecycle(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := banner.NewRepository(pool)
	ctx := context.Background()

	live := &banner.Banner{ImageURL: "https://img.example/sale.png", TargetURL: "/products?category=sale", Active: true}
	hidden := &banner.Banner{ImageURL: "https://img.example/old.png", Active: false}
	require.NoError(t, repo.Create(ctx, live))
	require.NoError(t, repo.Create(ctx, hidden))
	require.NotEqual(t, uuid.Nil, live.ID)

	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, live.ID, active[0].ID)

	hidden.Active = true
	require.NoError(t, repo.Update(ctx, hidden))
	got, err := repo.Get(ctx, hidden.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)

	require.NoError(t, repo.Delete(ctx, live.ID))
	_, err = repo.Get(ctx, live.ID)
	assert.ErrorIs(t, err, banner.ErrBannerNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, live.ID), banner.ErrBannerNotFound)
	assert.ErrorIs(t, repo.Update(ctx, live), banner.ErrBannerNotFound)
}
