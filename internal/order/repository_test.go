package order_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/db/dbtest"
	"github.com/vasiliy-maslov/storefront/internal/order"
)

func TestPostgresRepository_CreateAndRead(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := order.NewRepository(pool)
	ctx := context.Background()

	userID := uuid.Must(uuid.NewV4())
	o := &order.Order{
		UserID: userID,
		Items: []order.Item{
			{ProductID: uuid.Must(uuid.NewV4()), Name: "P1", Price: decimal.NewFromInt(500), Quantity: 2, Image: "p1.png"},
			{ProductID: uuid.Must(uuid.NewV4()), Name: "P2", Price: decimal.RequireFromString("99.50"), Quantity: 1},
		},
		TotalAmount:      decimal.RequireFromString("1159.50"),
		PaymentMethod:    order.MethodBkash,
		PaymentStatus:    order.PaymentPending,
		PaymentReference: "01700000000 - TRX1",
		DeliveryAddress:  "House 1, Dhaka",
		DeliveryCharge:   decimal.NewFromInt(60),
		Status:           order.StatusPending,
	}
	require.NoError(t, repo.Create(ctx, o))

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "P1", got.Items[0].Name)
	assert.Equal(t, "P2", got.Items[1].Name)
	assert.True(t, o.TotalAmount.Equal(got.TotalAmount))
	assert.Equal(t, "01700000000 - TRX1", got.PaymentReference)

	require.NoError(t, repo.UpdateStatus(ctx, o.ID, order.StatusConfirmed))
	require.NoError(t, repo.UpdatePaymentStatus(ctx, o.ID, order.PaymentPaid))

	mine, err := repo.ListForUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, order.StatusConfirmed, mine[0].Status)
	assert.Equal(t, order.PaymentPaid, mine[0].PaymentStatus)
	assert.Len(t, mine[0].Items, 2)

	require.ErrorIs(t, repo.UpdateStatus(ctx, uuid.Must(uuid.NewV4()), order.StatusShipped), order.ErrOrderNotFound)
}
