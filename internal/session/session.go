// Package session carries the authenticated principal through a request.
package session

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Session is established once at sign-in. The admin capability is resolved
// at that point and never re-read from the user record.
type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

type ctxKey struct{}

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}

// Require returns the session in ctx or ErrNotAuthenticated.
func Require(ctx context.Context) (*Session, error) {
	s, ok := FromContext(ctx)
	if !ok {
		return nil, apperr.ErrNotAuthenticated
	}
	return s, nil
}

// RequireAdmin returns the session in ctx when it holds the admin capability.
func RequireAdmin(ctx context.Context) (*Session, error) {
	s, err := Require(ctx)
	if err != nil {
		return nil, err
	}
	if !s.IsAdmin() {
		return nil, apperr.ErrForbidden
	}
	return s, nil
}
