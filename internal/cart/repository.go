package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/db"
)

type Repository interface {
	Get(ctx context.Context, userID uuid.UUID) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
}

type postgresRepository struct {
	db db.Querier
}

func NewRepository(db db.Querier) Repository {
	return &postgresRepository{db: db}
}

// Get returns an empty cart when the user has never written one.
func (r *postgresRepository) Get(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	c := &Cart{UserID: userID, Items: []Item{}}

	var raw []byte
	err := r.db.QueryRow(ctx, `SELECT items, updated_at FROM carts WHERE user_id = $1`, userID).Scan(&raw, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c, nil
		}
		return nil, apperr.Remote(fmt.Sprintf("repository: failed to select cart for user %s", userID), err)
	}

	if err := json.Unmarshal(raw, &c.Items); err != nil {
		return nil, fmt.Errorf("repository: failed to decode cart items: %w", err)
	}
	return c, nil
}

// Save writes the entire item list in one statement. Concurrent writers
// resolve as last writer wins.
func (r *postgresRepository) Save(ctx context.Context, c *Cart) error {
	if c.Items == nil {
		c.Items = []Item{}
	}
	raw, err := json.Marshal(c.Items)
	if err != nil {
		return fmt.Errorf("repository: failed to encode cart items: %w", err)
	}
	c.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO carts (user_id, items, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET items = EXCLUDED.items, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.Exec(ctx, query, c.UserID, raw, c.UpdatedAt); err != nil {
		return apperr.Remote(fmt.Sprintf("repository: failed to save cart for user %s", c.UserID), err)
	}
	return nil
}
