package cart

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/realtime"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

// ProductSource resolves live products for pricing.
type ProductSource interface {
	ProductsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.Product, error)
}

type Service interface {
	Add(ctx context.Context, productID uuid.UUID, quantity int) (*Cart, error)
	SetQuantity(ctx context.Context, productID uuid.UUID, quantity int) (*Cart, error)
	Remove(ctx context.Context, productID uuid.UUID) (*Cart, error)
	Clear(ctx context.Context) error
	Get(ctx context.Context) (*Cart, error)
	View(ctx context.Context) (*View, error)
	Subscribe(ctx context.Context, onUpdate func(*View), onError func(error)) (realtime.Unsubscribe, error)
}

type service struct {
	repo     Repository
	products ProductSource
	notifier realtime.Notifier
	feed     realtime.Feed
}

func NewService(repo Repository, products ProductSource, notifier realtime.Notifier, feed realtime.Feed) Service {
	return &service{repo: repo, products: products, notifier: notifier, feed: feed}
}

func (s *service) Add(ctx context.Context, productID uuid.UUID, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, apperr.Invalid("quantity", "must be at least 1, got %d", quantity)
	}
	return s.mutate(ctx, "add", func(c *Cart) { c.Add(productID, quantity) })
}

func (s *service) SetQuantity(ctx context.Context, productID uuid.UUID, quantity int) (*Cart, error) {
	return s.mutate(ctx, "set quantity", func(c *Cart) { c.SetQuantity(productID, quantity) })
}

func (s *service) Remove(ctx context.Context, productID uuid.UUID) (*Cart, error) {
	return s.mutate(ctx, "remove", func(c *Cart) { c.Remove(productID) })
}

func (s *service) Clear(ctx context.Context) error {
	_, err := s.mutate(ctx, "clear", func(c *Cart) { c.Clear() })
	return err
}

func (s *service) mutate(ctx context.Context, op string, apply func(*Cart)) (*Cart, error) {
	sess, err := session.Require(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.repo.Get(ctx, sess.UserID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", sess.UserID).Str("op", op).Msg("service: failed to load cart")
		return nil, fmt.Errorf("service: failed to load cart: %w", err)
	}

	apply(c)

	if err := s.repo.Save(ctx, c); err != nil {
		log.Error().Err(err).Stringer("user_id", sess.UserID).Str("op", op).Msg("service: failed to save cart")
		return nil, fmt.Errorf("service: failed to save cart: %w", err)
	}

	if err := s.notifier.Notify(ctx, realtime.CartTopic(sess.UserID)); err != nil {
		log.Warn().Err(err).Stringer("user_id", sess.UserID).Msg("service: failed to announce cart change")
	}
	return c, nil
}

func (s *service) Get(ctx context.Context) (*Cart, error) {
	sess, err := session.Require(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, sess.UserID)
}

func (s *service) View(ctx context.Context) (*View, error) {
	c, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return s.join(ctx, c)
}

func (s *service) join(ctx context.Context, c *Cart) (*View, error) {
	products, err := s.products.ProductsByID(ctx, c.ProductIDs())
	if err != nil {
		return nil, fmt.Errorf("service: failed to price cart: %w", err)
	}
	return Join(c, products), nil
}

// Subscribe pushes a fresh view whenever the cart or any product changes.
func (s *service) Subscribe(ctx context.Context, onUpdate func(*View), onError func(error)) (realtime.Unsubscribe, error) {
	sess, err := session.Require(ctx)
	if err != nil {
		return nil, err
	}

	topics := []string{realtime.CartTopic(sess.UserID), realtime.TopicProducts}
	return realtime.Watch(s.feed, topics, func() {
		view, err := s.View(ctx)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onUpdate(view)
	}, onError), nil
}
