package banner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/db"
)

var ErrBannerNotFound = fmt.Errorf("banner %w", apperr.ErrNotFound)

type Repository interface {
	Create(ctx context.Context, b *Banner) error
	Update(ctx context.Context, b *Banner) error
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*Banner, error)
	List(ctx context.Context, activeOnly bool) ([]Banner, error)
}

type postgresRepository struct {
	db db.Querier
}

func NewRepository(db db.Querier) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, b *Banner) error {
	if b.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate banner ID: %w", err)
		}
		b.ID = id
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now

	query := `INSERT INTO banners (id, image_url, target_url, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.Exec(ctx, query, b.ID, b.ImageURL, b.TargetURL, b.Active, b.CreatedAt, b.UpdatedAt); err != nil {
		return apperr.Remote("repository: failed to insert banner", err)
	}
	return nil
}

func (r *postgresRepository) Update(ctx context.Context, b *Banner) error {
	b.UpdatedAt = time.Now().UTC()
	query := `UPDATE banners SET image_url = $2, target_url = $3, active = $4, updated_at = $5 WHERE id = $1`
	cmdTag, err := r.db.Exec(ctx, query, b.ID, b.ImageURL, b.TargetURL, b.Active, b.UpdatedAt)
	if err != nil {
		return apperr.Remote(fmt.Sprintf("repository: failed to update banner %s", b.ID), err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrBannerNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM banners WHERE id = $1`, id)
	if err != nil {
		return apperr.Remote(fmt.Sprintf("repository: failed to delete banner %s", id), err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrBannerNotFound
	}
	return nil
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (*Banner, error) {
	var b Banner
	err := r.db.QueryRow(ctx, `SELECT id, image_url, target_url, active, created_at, updated_at
		FROM banners WHERE id = $1`, id).
		Scan(&b.ID, &b.ImageURL, &b.TargetURL, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBannerNotFound
		}
		return nil, apperr.Remote(fmt.Sprintf("repository: failed to get banner %s", id), err)
	}
	return &b, nil
}

func (r *postgresRepository) List(ctx context.Context, activeOnly bool) ([]Banner, error) {
	query := `SELECT id, image_url, target_url, active, created_at, updated_at FROM banners`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperr.Remote("repository: failed to query banners", err)
	}
	defer rows.Close()

	banners := make([]Banner, 0)
	for rows.Next() {
		var b Banner
		if err := rows.Scan(&b.ID, &b.ImageURL, &b.TargetURL, &b.Active, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, apperr.Remote("repository: failed to scan banner", err)
		}
		banners = append(banners, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Remote("repository: failed iterating banners", err)
	}
	return banners, nil
}
