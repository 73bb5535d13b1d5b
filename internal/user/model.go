package user

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

type User struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	Phone        string       `json:"phone"`
	Address      string       `json:"address"`
	Role         session.Role `json:"role"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// ProfilePatch changes only the non-nil fields.
type ProfilePatch struct {
	Name    *string
	Phone   *string
	Address *string
}
