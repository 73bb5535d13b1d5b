package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/db"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

var (
	ErrUserNotFound = fmt.Errorf("user %w", apperr.ErrNotFound)
	ErrEmailExists  = errors.New("email already exists")
)

const (
	constraintEmail       = "users_email_key"
	constraintSingleAdmin = "users_single_admin"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, patch ProfilePatch) (*User, error)
	ListByRole(ctx context.Context, role session.Role) ([]User, error)
	AdminExists(ctx context.Context) (bool, error)
}

type postgresRepository struct {
	db db.Querier
}

func NewRepository(db db.Querier) Repository {
	return &postgresRepository{db: db}
}

const userColumns = `id, name, email, password_hash, phone, address, role, created_at, updated_at`

func scanUser(row pgx.Row, u *User) error {
	return row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Phone,
		&u.Address,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
}

// Create inserts u. A second admin row is rejected by the users_single_admin
// index and reported as apperr.ErrAdminExists.
func (r *postgresRepository) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate user ID: %w", err)
		}
		u.ID = id
	}
	if u.Role == "" {
		u.Role = session.RoleUser
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Phone, u.Address, u.Role, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			switch pgErr.ConstraintName {
			case constraintSingleAdmin:
				return apperr.ErrAdminExists
			case constraintEmail:
				return ErrEmailExists
			}
		}
		return apperr.Remote("repository: failed to insert user", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
}

func (r *postgresRepository) getOne(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	if err := scanUser(r.db.QueryRow(ctx, query, arg), &u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Remote("repository: failed to select user", err)
	}
	return &u, nil
}

func (r *postgresRepository) UpdateProfile(ctx context.Context, id uuid.UUID, patch ProfilePatch) (*User, error) {
	query := `
		UPDATE users
		SET name = COALESCE($2, name),
		    phone = COALESCE($3, phone),
		    address = COALESCE($4, address),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	var u User
	if err := scanUser(r.db.QueryRow(ctx, query, id, patch.Name, patch.Phone, patch.Address), &u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Remote(fmt.Sprintf("repository: failed to update user %s", id), err)
	}
	return &u, nil
}

func (r *postgresRepository) ListByRole(ctx context.Context, role session.Role) ([]User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY created_at DESC`, role)
	if err != nil {
		return nil, apperr.Remote("repository: failed to query users", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var u User
		if err := scanUser(rows, &u); err != nil {
			return nil, apperr.Remote("repository: failed to scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Remote("repository: failed iterating users", err)
	}
	return users, nil
}

func (r *postgresRepository) AdminExists(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE role = $1)`, session.RoleAdmin).Scan(&exists)
	if err != nil {
		return false, apperr.Remote("repository: failed to check for admin", err)
	}
	return exists, nil
}
