package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/db"
)

const documentID = "main"

type Repository interface {
	// Load returns the raw document, or found=false when it was never written.
	Load(ctx context.Context) (data []byte, updatedAt time.Time, found bool, err error)
	InitIfAbsent(ctx context.Context, data []byte) error
	// Merge applies patch onto the document. An empty key merges at the top
	// level; otherwise patch is merged into the object under key.
	Merge(ctx context.Context, key string, patch []byte) error
}

type postgresRepository struct {
	db db.Querier
}

func NewRepository(db db.Querier) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Load(ctx context.Context) ([]byte, time.Time, bool, error) {
	var (
		data      []byte
		updatedAt time.Time
	)
	err := r.db.QueryRow(ctx, `SELECT data, updated_at FROM settings WHERE id = $1`, documentID).Scan(&data, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, time.Time{}, false, nil
		}
		return nil, time.Time{}, false, apperr.Remote("repository: failed to select settings", err)
	}
	return data, updatedAt, true, nil
}

func (r *postgresRepository) InitIfAbsent(ctx context.Context, data []byte) error {
	query := `INSERT INTO settings (id, data, updated_at) VALUES ($1, $2, now()) ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.Exec(ctx, query, documentID, data); err != nil {
		return apperr.Remote("repository: failed to initialise settings", err)
	}
	return nil
}

func (r *postgresRepository) Merge(ctx context.Context, key string, patch []byte) error {
	var (
		query string
		args  []any
	)
	if key == "" {
		query = `UPDATE settings SET data = data || $2::jsonb, updated_at = now() WHERE id = $1`
		args = []any{documentID, patch}
	} else {
		query = `
			UPDATE settings
			SET data = jsonb_set(data, ARRAY[$2::text], COALESCE(data -> $2::text, '{}'::jsonb) || $3::jsonb),
			    updated_at = now()
			WHERE id = $1
		`
		args = []any{documentID, key, patch}
	}

	cmdTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return apperr.Remote(fmt.Sprintf("repository: failed to merge settings %q", key), err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("repository: settings document %w", apperr.ErrNotFound)
	}
	return nil
}
