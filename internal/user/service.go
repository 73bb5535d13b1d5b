package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

type Service interface {
	GetProfile(ctx context.Context) (*User, error)
	UpdateProfile(ctx context.Context, patch ProfilePatch) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	ListCustomers(ctx context.Context) ([]User, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetProfile(ctx context.Context) (*User, error) {
	sess, err := session.Require(ctx)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, sess.UserID)
}

// UpdateProfile merges the given fields onto the caller's own record.
func (s *service) UpdateProfile(ctx context.Context, patch ProfilePatch) (*User, error) {
	sess, err := session.Require(ctx)
	if err != nil {
		return nil, err
	}

	trim := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		return &t
	}
	patch = ProfilePatch{Name: trim(patch.Name), Phone: trim(patch.Phone), Address: trim(patch.Address)}

	u, err := s.repo.UpdateProfile(ctx, sess.UserID, patch)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		log.Error().Err(err).Stringer("user_id", sess.UserID).Msg("service: failed to update profile")
		return nil, fmt.Errorf("service: failed to update profile: %w", err)
	}

	log.Info().Stringer("user_id", sess.UserID).Msg("service: profile updated")
	return u, nil
}

// GetUser is available to the user themself and to the admin.
func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	sess, err := session.Require(ctx)
	if err != nil {
		return nil, err
	}
	if sess.UserID != id {
		if _, err := session.RequireAdmin(ctx); err != nil {
			return nil, err
		}
	}
	return s.get(ctx, id)
}

func (s *service) ListCustomers(ctx context.Context) ([]User, error) {
	if _, err := session.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	users, err := s.repo.ListByRole(ctx, session.RoleUser)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list customers")
		return nil, fmt.Errorf("service: failed to list customers: %w", err)
	}
	return users, nil
}

func (s *service) get(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Warn().Stringer("user_id", id).Msg("service: user not found")
			return nil, err
		}
		return nil, fmt.Errorf("service: failed to get user %s: %w", id, err)
	}
	return u, nil
}
