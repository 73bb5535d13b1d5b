// Package banner manages the promotional banners shown on the storefront.
package banner

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/realtime"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

type Service interface {
	// List returns active banners to anyone; the full list is admin only.
	List(ctx context.Context, activeOnly bool) ([]Banner, error)
	Create(ctx context.Context, in Input) (*Banner, error)
	Update(ctx context.Context, id uuid.UUID, patch Patch) (*Banner, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Subscribe(ctx context.Context, activeOnly bool, onUpdate func([]Banner), onError func(error)) realtime.Unsubscribe
}

type service struct {
	repo     Repository
	notifier realtime.Notifier
	feed     realtime.Feed
}

func NewService(repo Repository, notifier realtime.Notifier, feed realtime.Feed) Service {
	return &service{repo: repo, notifier: notifier, feed: feed}
}

func validate(b *Banner) error {
	b.ImageURL = strings.TrimSpace(b.ImageURL)
	b.TargetURL = strings.TrimSpace(b.TargetURL)
	if b.ImageURL == "" {
		return apperr.Invalid("image_url", "is required")
	}
	if err := checkURL(b.ImageURL); err != nil {
		return apperr.Invalid("image_url", "%v", err)
	}
	if b.TargetURL != "" {
		if err := checkURL(b.TargetURL); err != nil {
			return apperr.Invalid("target_url", "%v", err)
		}
	}
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("is not a valid URL")
	}
	// relative links stay on the storefront
	if u.Scheme == "" && strings.HasPrefix(raw, "/") {
		return nil
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an http(s) URL or an absolute path, got %q", raw)
	}
	return nil
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]Banner, error) {
	if !activeOnly {
		if _, err := session.RequireAdmin(ctx); err != nil {
			return nil, err
		}
	}
	banners, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list banners: %w", err)
	}
	return banners, nil
}

func (s *service) Create(ctx context.Context, in Input) (*Banner, error) {
	if _, err := session.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	b := &Banner{ImageURL: in.ImageURL, TargetURL: in.TargetURL, Active: true}
	if in.Active != nil {
		b.Active = *in.Active
	}
	if err := validate(b); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("service: failed to create banner: %w", err)
	}
	log.Info().Stringer("banner_id", b.ID).Bool("active", b.Active).Msg("service: banner created")
	s.notify(ctx)
	return b, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, patch Patch) (*Banner, error) {
	if _, err := session.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.ImageURL != nil {
		b.ImageURL = *patch.ImageURL
	}
	if patch.TargetURL != nil {
		b.TargetURL = *patch.TargetURL
	}
	if patch.Active != nil {
		b.Active = *patch.Active
	}
	if err := validate(b); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("service: failed to update banner: %w", err)
	}
	s.notify(ctx)
	return b, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := session.RequireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Stringer("banner_id", id).Msg("service: banner deleted")
	s.notify(ctx)
	return nil
}

func (s *service) Subscribe(ctx context.Context, activeOnly bool, onUpdate func([]Banner), onError func(error)) realtime.Unsubscribe {
	return realtime.Watch(s.feed, []string{realtime.TopicBanners}, func() {
		banners, err := s.List(ctx, activeOnly)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onUpdate(banners)
	}, onError)
}

func (s *service) notify(ctx context.Context) {
	if err := s.notifier.Notify(ctx, realtime.TopicBanners); err != nil {
		log.Warn().Err(err).Msg("service: failed to announce banner change")
	}
}
