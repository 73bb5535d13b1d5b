package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/db"
)

var ErrOrderNotFound = fmt.Errorf("order %w", apperr.ErrNotFound)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error
}

type postgresRepository struct {
	db db.Querier
}

func NewRepository(db db.Querier) Repository {
	return &postgresRepository{db: db}
}

const orderColumns = `id, user_id, status, payment_method, payment_status, payment_reference,
	delivery_address, delivery_charge, total_amount, created_at, updated_at`

func scanOrder(row pgx.Row, o *Order) error {
	return row.Scan(
		&o.ID,
		&o.UserID,
		&o.Status,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.PaymentReference,
		&o.DeliveryAddress,
		&o.DeliveryCharge,
		&o.TotalAmount,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
}

// Create writes the order row and its item snapshot in one transaction.
func (r *postgresRepository) Create(ctx context.Context, o *Order) (err error) {
	if o.ID == uuid.Nil {
		id, genErr := uuid.NewV4()
		if genErr != nil {
			return fmt.Errorf("repository: failed to generate order ID: %w", genErr)
		}
		o.ID = id
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperr.Remote("repository: failed to begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Stringer("order_id", o.ID).Msg("repository: panic during order creation, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", o.ID).Msg("repository: failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			log.Warn().Err(err).Stringer("order_id", o.ID).Msg("repository: order creation failed, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", o.ID).Msg("repository: failed to rollback transaction")
			}
		} else if commitErr := tx.Commit(ctx); commitErr != nil {
			err = apperr.Remote("repository: failed to commit order", commitErr)
		}
	}()

	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now

	queryOrder := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.Exec(ctx, queryOrder,
		o.ID,
		o.UserID,
		o.Status,
		o.PaymentMethod,
		o.PaymentStatus,
		o.PaymentReference,
		o.DeliveryAddress,
		o.DeliveryCharge,
		o.TotalAmount,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return apperr.Remote("repository: failed to insert order", err)
	}

	queryItem := `
		INSERT INTO order_items (order_id, position, product_id, name, price, quantity, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i, it := range o.Items {
		_, err = tx.Exec(ctx, queryItem, o.ID, i, it.ProductID, it.Name, it.Price, it.Quantity, it.Image)
		if err != nil {
			return apperr.Remote(fmt.Sprintf("repository: failed to insert item %d of order %s", i, o.ID), err)
		}
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var o Order
	err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id), &o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, apperr.Remote(fmt.Sprintf("repository: failed to select order %s", id), err)
	}

	orders := []Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *postgresRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *postgresRepository) ListAll(ctx context.Context) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (r *postgresRepository) list(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Remote("repository: failed to query orders", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, apperr.Remote("repository: failed to scan order", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Remote("repository: failed iterating orders", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the items of every order with a single query.
func (r *postgresRepository) attachItems(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}

	index := make(map[uuid.UUID]int, len(orders))
	ids := make([]string, len(orders))
	for i := range orders {
		orders[i].Items = make([]Item, 0)
		index[orders[i].ID] = i
		ids[i] = orders[i].ID.String()
	}

	query := `
		SELECT order_id, product_id, name, price, quantity, image
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position
	`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return apperr.Remote("repository: failed to query order items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID uuid.UUID
			it      Item
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Price, &it.Quantity, &it.Image); err != nil {
			return apperr.Remote("repository: failed to scan order item", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return apperr.Remote("repository: failed iterating order items", err)
	}
	return nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	return r.updateColumn(ctx, "status", id, string(status))
}

func (r *postgresRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error {
	return r.updateColumn(ctx, "payment_status", id, string(status))
}

func (r *postgresRepository) updateColumn(ctx context.Context, column string, id uuid.UUID, value string) error {
	query := `UPDATE orders SET ` + column + ` = $2, updated_at = $3 WHERE id = $1`
	cmdTag, err := r.db.Exec(ctx, query, id, value, time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Stringer("order_id", id).Str(column, value).Msg("repository: failed to update order")
		return apperr.Remote(fmt.Sprintf("repository: failed to update %s of order %s", column, id), err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}
