package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/db"
)

var (
	ErrProductNotFound  = fmt.Errorf("product %w", apperr.ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", apperr.ErrNotFound)
)

type Repository interface {
	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	GetProducts(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	ListProducts(ctx context.Context, filter Filter) ([]Product, error)
	LowStock(ctx context.Context, threshold int) ([]Product, error)

	CreateCategory(ctx context.Context, c *Category) error
	RenameCategory(ctx context.Context, id uuid.UUID, name string) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context) ([]Category, error)
}

type postgresRepository struct {
	db db.Querier
}

func NewRepository(db db.Querier) Repository {
	return &postgresRepository{db: db}
}

const productColumns = `id, name, price, stock, category_id, images, description, created_at, updated_at`

func scanProduct(row pgx.Row, p *Product) error {
	return row.Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&p.Stock,
		&p.CategoryID,
		&p.Images,
		&p.Description,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func (r *postgresRepository) CreateProduct(ctx context.Context, p *Product) error {
	if p.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate product ID: %w", err)
		}
		p.ID = id
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Images == nil {
		p.Images = []string{}
	}

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		p.ID, p.Name, p.Price, p.Stock, p.CategoryID, p.Images, p.Description, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return apperr.Remote("repository: failed to insert product", err)
	}
	return nil
}

func (r *postgresRepository) UpdateProduct(ctx context.Context, p *Product) error {
	p.UpdatedAt = time.Now().UTC()
	if p.Images == nil {
		p.Images = []string{}
	}

	query := `
		UPDATE products
		SET name = $2, price = $3, stock = $4, category_id = $5, images = $6, description = $7, updated_at = $8
		WHERE id = $1
	`
	cmdTag, err := r.db.Exec(ctx, query,
		p.ID, p.Name, p.Price, p.Stock, p.CategoryID, p.Images, p.Description, p.UpdatedAt)
	if err != nil {
		return apperr.Remote(fmt.Sprintf("repository: failed to update product %s", p.ID), err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return apperr.Remote(fmt.Sprintf("repository: failed to delete product %s", id), err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepository) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	var p Product
	err := scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, apperr.Remote(fmt.Sprintf("repository: failed to select product %s", id), err)
	}
	return &p, nil
}

func (r *postgresRepository) GetProducts(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	if len(ids) == 0 {
		return []Product{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	return r.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1::uuid[])`, keys)
}

func (r *postgresRepository) ListProducts(ctx context.Context, filter Filter) ([]Product, error) {
	var (
		conds []string
		args  []any
	)
	if filter.CategoryID.Valid {
		args = append(args, filter.CategoryID.UUID)
		conds = append(conds, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	return r.queryProducts(ctx, query, args...)
}

func (r *postgresRepository) LowStock(ctx context.Context, threshold int) ([]Product, error) {
	return r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products WHERE stock < $1 ORDER BY stock ASC, name ASC`, threshold)
}

func (r *postgresRepository) queryProducts(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Remote("repository: failed to query products", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		var p Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, apperr.Remote("repository: failed to scan product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Remote("repository: failed iterating products", err)
	}
	return products, nil
}

func (r *postgresRepository) CreateCategory(ctx context.Context, c *Category) error {
	if c.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate category ID: %w", err)
		}
		c.ID = id
	}
	if _, err := r.db.Exec(ctx, `INSERT INTO categories (id, name) VALUES ($1, $2)`, c.ID, c.Name); err != nil {
		return apperr.Remote("repository: failed to insert category", err)
	}
	return nil
}

func (r *postgresRepository) RenameCategory(ctx context.Context, id uuid.UUID, name string) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE categories SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return apperr.Remote(fmt.Sprintf("repository: failed to rename category %s", id), err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// DeleteCategory removes only the category row; products keep their
// now-dangling reference.
func (r *postgresRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return apperr.Remote(fmt.Sprintf("repository: failed to delete category %s", id), err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *postgresRepository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, apperr.Remote("repository: failed to query categories", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, apperr.Remote("repository: failed to scan category", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Remote("repository: failed iterating categories", err)
	}
	return categories, nil
}
