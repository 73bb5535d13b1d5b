// Package dashboard computes the admin overview figures.
package dashboard

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

type Stats struct {
	TotalOrders     int             `db:"total_orders" json:"total_orders"`
	Revenue         decimal.Decimal `db:"revenue" json:"revenue"`
	PendingPayments int             `db:"pending_payments" json:"pending_payments"`
	PendingOrders   int             `db:"pending_orders" json:"pending_orders"`
	TotalProducts   int             `db:"total_products" json:"total_products"`
	TotalCustomers  int             `db:"total_customers" json:"total_customers"`
	LowStock        int             `db:"low_stock" json:"low_stock"`
}

type Repository interface {
	Stats(ctx context.Context, lowStock int) (*Stats, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const statsQuery = `
	SELECT
		(SELECT count(*) FROM orders) AS total_orders,
		(SELECT COALESCE(sum(total_amount), 0) FROM orders WHERE payment_status = 'paid') AS revenue,
		(SELECT count(*) FROM orders WHERE payment_status = 'pending') AS pending_payments,
		(SELECT count(*) FROM orders WHERE status = 'pending') AS pending_orders,
		(SELECT count(*) FROM products) AS total_products,
		(SELECT count(*) FROM users WHERE role = 'user') AS total_customers,
		(SELECT count(*) FROM products WHERE stock < $1) AS low_stock`

func (r *postgresRepository) Stats(ctx context.Context, lowStock int) (*Stats, error) {
	var s Stats
	if err := r.db.GetContext(ctx, &s, statsQuery, lowStock); err != nil {
		return nil, apperr.Remote("repository: failed to compute dashboard stats", err)
	}
	return &s, nil
}

type Service interface {
	Stats(ctx context.Context) (*Stats, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	if _, err := session.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	stats, err := s.repo.Stats(ctx, catalog.LowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load dashboard: %w", err)
	}
	return stats, nil
}
