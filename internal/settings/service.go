package settings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/realtime"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

type Service interface {
	Get(ctx context.Context) (*Settings, error)
	DeliveryCharge(ctx context.Context, zone string) (decimal.Decimal, error)
	UpdatePaymentMethods(ctx context.Context, patch PaymentMethodsPatch) (*Settings, error)
	UpdateDeliveryCharges(ctx context.Context, charges map[string]decimal.Decimal) (*Settings, error)
	UpdateBranding(ctx context.Context, patch BrandingPatch) (*Settings, error)
	UpdateContactInfo(ctx context.Context, patch ContactPatch) (*Settings, error)
	UpdatePaymentInfo(ctx context.Context, patch PaymentInfoPatch) (*Settings, error)
	Subscribe(ctx context.Context, onUpdate func(*Settings), onError func(error)) realtime.Unsubscribe
}

type service struct {
	repo     Repository
	notifier realtime.Notifier
	feed     realtime.Feed
}

func NewService(repo Repository, notifier realtime.Notifier, feed realtime.Feed) Service {
	return &service{repo: repo, notifier: notifier, feed: feed}
}

// Get reads the document, writing the defaults first if it does not exist.
// Keys missing from a stored document read as their defaults.
func (s *service) Get(ctx context.Context) (*Settings, error) {
	data, updatedAt, found, err := s.repo.Load(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to load settings")
		return nil, fmt.Errorf("service: failed to load settings: %w", err)
	}

	if !found {
		defaults := Defaults()
		raw, err := json.Marshal(defaults)
		if err != nil {
			return nil, fmt.Errorf("service: failed to encode default settings: %w", err)
		}
		if err := s.repo.InitIfAbsent(ctx, raw); err != nil {
			log.Error().Err(err).Msg("service: failed to initialise settings")
			return nil, fmt.Errorf("service: failed to initialise settings: %w", err)
		}
		log.Info().Msg("service: settings initialised with defaults")
		return defaults, nil
	}

	st := Defaults()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("service: failed to decode settings: %w", err)
	}
	st.UpdatedAt = updatedAt
	return st, nil
}

func (s *service) DeliveryCharge(ctx context.Context, zone string) (decimal.Decimal, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return st.DeliveryCharge(zone), nil
}

func (s *service) UpdatePaymentMethods(ctx context.Context, patch PaymentMethodsPatch) (*Settings, error) {
	return s.merge(ctx, "payment_methods", patch)
}

// UpdateDeliveryCharges merges charges into the existing table, so zones not
// named in charges (including the default) keep their value. Negative values
// are stored as given.
func (s *service) UpdateDeliveryCharges(ctx context.Context, charges map[string]decimal.Decimal) (*Settings, error) {
	return s.merge(ctx, "delivery_charges", charges)
}

func (s *service) UpdateBranding(ctx context.Context, patch BrandingPatch) (*Settings, error) {
	return s.merge(ctx, "", patch)
}

func (s *service) UpdateContactInfo(ctx context.Context, patch ContactPatch) (*Settings, error) {
	return s.merge(ctx, "", patch)
}

func (s *service) UpdatePaymentInfo(ctx context.Context, patch PaymentInfoPatch) (*Settings, error) {
	return s.merge(ctx, "", patch)
}

func (s *service) merge(ctx context.Context, key string, patch any) (*Settings, error) {
	if _, err := session.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("service: failed to encode settings patch: %w", err)
	}

	// The merge needs an existing document to apply to.
	if _, err := s.Get(ctx); err != nil {
		return nil, err
	}

	if err := s.repo.Merge(ctx, key, raw); err != nil {
		log.Error().Err(err).Str("group", key).Msg("service: failed to merge settings")
		return nil, fmt.Errorf("service: failed to update settings: %w", err)
	}

	if err := s.notifier.Notify(ctx, realtime.TopicSettings); err != nil {
		log.Warn().Err(err).Msg("service: failed to announce settings change")
	}
	return s.Get(ctx)
}

func (s *service) Subscribe(ctx context.Context, onUpdate func(*Settings), onError func(error)) realtime.Unsubscribe {
	return realtime.Watch(s.feed, []string{realtime.TopicSettings}, func() {
		st, err := s.Get(ctx)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onUpdate(st)
	}, onError)
}
