package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/realtime"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusConfirmed: true,
		StatusCanceled:  true,
		StatusReturned:  true,
		StatusRefunded:  true,
	},
	StatusConfirmed: {
		StatusShipped:  true,
		StatusCanceled: true,
		StatusReturned: true,
		StatusRefunded: true,
	},
	StatusShipped: {
		StatusDelivered: true,
		StatusCanceled:  true,
		StatusReturned:  true,
		StatusRefunded:  true,
	},
	StatusDelivered: {
		StatusReturned: true,
		StatusRefunded: true,
	},
	StatusReturned: {
		StatusRefunded: true,
	},
	StatusCanceled: {},
	StatusRefunded: {},
}

var allowedPaymentTransitions = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentPending: {
		PaymentPaid:   true,
		PaymentFailed: true,
	},
	PaymentPaid: {
		PaymentRefunded: true,
	},
	PaymentFailed:   {},
	PaymentRefunded: {},
}

var (
	ErrInvalidStatusTransition  = fmt.Errorf("invalid order status transition: %w", apperr.ErrValidation)
	ErrInvalidPaymentTransition = fmt.Errorf("invalid payment status transition: %w", apperr.ErrValidation)
)

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to Status) bool {
	return allowedTransitions[from][to]
}

func CanTransitionPayment(from, to PaymentStatus) bool {
	return allowedPaymentTransitions[from][to]
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := allowedTransitions[st]; !ok {
		return "", apperr.Invalid("status", "unknown order status %q", s)
	}
	return st, nil
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	st := PaymentStatus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := allowedPaymentTransitions[st]; !ok {
		return "", apperr.Invalid("payment_status", "unknown payment status %q", s)
	}
	return st, nil
}

type Service interface {
	Create(ctx context.Context, in NewOrder) (*Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListForUser(ctx context.Context) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error
	Subscribe(ctx context.Context, onUpdate func([]Order), onError func(error)) (realtime.Unsubscribe, error)
}

type service struct {
	repo      Repository
	publisher Publisher
	notifier  realtime.Notifier
	feed      realtime.Feed
}

func NewService(repo Repository, publisher Publisher, notifier realtime.Notifier, feed realtime.Feed) Service {
	return &service{repo: repo, publisher: publisher, notifier: notifier, feed: feed}
}

func validateNewOrder(in NewOrder) error {
	if len(in.Items) == 0 {
		return apperr.Invalid("items", "order must contain at least one item")
	}
	for _, it := range in.Items {
		if it.ProductID == uuid.Nil {
			return apperr.Invalid("items", "product id cannot be empty")
		}
		if it.Quantity <= 0 {
			return apperr.Invalid("items", "quantity for product %s must be greater than zero", it.ProductID)
		}
		if !it.Price.IsPositive() {
			return apperr.Invalid("items", "price for product %s must be greater than zero", it.ProductID)
		}
	}
	if !in.PaymentMethod.Valid() {
		return apperr.Invalid("payment_method", "unsupported payment method %q", in.PaymentMethod)
	}
	if strings.TrimSpace(in.DeliveryAddress) == "" {
		return apperr.Invalid("delivery_address", "is required")
	}
	return nil
}

// Create places an order for the caller. The total is computed here once
// and never recomputed.
func (s *service) Create(ctx context.Context, in NewOrder) (*Order, error) {
	sess, err := session.Require(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateNewOrder(in); err != nil {
		log.Warn().Err(err).Stringer("user_id", sess.UserID).Msg("service: rejected order input")
		return nil, err
	}

	items := make([]Item, len(in.Items))
	copy(items, in.Items)

	o := &Order{
		UserID:           sess.UserID,
		Items:            items,
		TotalAmount:      Subtotal(items).Add(in.DeliveryCharge),
		PaymentMethod:    in.PaymentMethod,
		PaymentStatus:    PaymentPending,
		PaymentReference: strings.TrimSpace(in.PaymentReference),
		DeliveryAddress:  strings.TrimSpace(in.DeliveryAddress),
		DeliveryCharge:   in.DeliveryCharge,
		Status:           StatusPending,
	}

	if err := s.repo.Create(ctx, o); err != nil {
		log.Error().Err(err).Stringer("user_id", sess.UserID).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().
		Stringer("order_id", o.ID).
		Stringer("user_id", o.UserID).
		Str("total_amount", o.TotalAmount.String()).
		Msg("service: order created")

	s.announce(ctx, EventOrderCreated, o)
	return o, nil
}

// GetByID returns the order to its owner or the admin. Anyone else sees
// ErrOrderNotFound.
func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	sess, err := session.Require(ctx)
	if err != nil {
		return nil, err
	}

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", id).Msg("service: order not found by id")
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to fetch order by id in repository")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}

	if o.UserID != sess.UserID && !sess.IsAdmin() {
		log.Warn().Stringer("order_id", id).Stringer("user_id", sess.UserID).Msg("service: order requested by non-owner")
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *service) ListForUser(ctx context.Context) ([]Order, error) {
	sess, err := session.Require(ctx)
	if err != nil {
		return nil, err
	}

	orders, err := s.repo.ListForUser(ctx, sess.UserID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", sess.UserID).Msg("service: failed to fetch user orders in repository")
		return nil, fmt.Errorf("service: failed to fetch user orders: %w", err)
	}
	return orders, nil
}

func (s *service) ListAll(ctx context.Context) ([]Order, error) {
	if _, err := session.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	orders, err := s.repo.ListAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to fetch orders in repository")
		return nil, fmt.Errorf("service: failed to fetch orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus moves an order along the status table. Writing the current
// status again is a no-op.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	if _, err := session.RequireAdmin(ctx); err != nil {
		return err
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if current.Status == status {
		log.Info().Stringer("order_id", id).Stringer("status", status).Msg("service: order status is already the same, no update needed")
		return nil
	}

	if !CanTransition(current.Status, status) {
		log.Warn().
			Stringer("order_id", id).
			Stringer("current_status", current.Status).
			Stringer("new_status", status).
			Msg("service: invalid status transition attempt")
		return fmt.Errorf("%w: from %s to %s", ErrInvalidStatusTransition, current.Status, status)
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Stringer("new_status", status).Msg("service: failed to update order status in repository")
		return fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Stringer("order_id", id).Stringer("old_status", current.Status).Stringer("new_status", status).Msg("service: order status updated")
	current.Status = status
	s.announce(ctx, EventOrderStatusChanged, current)
	return nil
}

func (s *service) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error {
	if _, err := session.RequireAdmin(ctx); err != nil {
		return err
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if current.PaymentStatus == status {
		return nil
	}

	if !CanTransitionPayment(current.PaymentStatus, status) {
		log.Warn().
			Stringer("order_id", id).
			Stringer("current_payment_status", current.PaymentStatus).
			Stringer("new_payment_status", status).
			Msg("service: invalid payment status transition attempt")
		return fmt.Errorf("%w: from %s to %s", ErrInvalidPaymentTransition, current.PaymentStatus, status)
	}

	if err := s.repo.UpdatePaymentStatus(ctx, id, status); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Stringer("new_payment_status", status).Msg("service: failed to update payment status in repository")
		return fmt.Errorf("service: failed to update payment status: %w", err)
	}

	log.Info().Stringer("order_id", id).Stringer("old_payment_status", current.PaymentStatus).Stringer("new_payment_status", status).Msg("service: payment status updated")
	current.PaymentStatus = status
	s.announce(ctx, EventPaymentStatusChanged, current)
	return nil
}

// Subscribe streams the admin's view of all orders, or the caller's own.
func (s *service) Subscribe(ctx context.Context, onUpdate func([]Order), onError func(error)) (realtime.Unsubscribe, error) {
	sess, err := session.Require(ctx)
	if err != nil {
		return nil, err
	}

	topic := realtime.UserOrdersTopic(sess.UserID)
	load := s.ListForUser
	if sess.IsAdmin() {
		topic = realtime.TopicOrders
		load = s.ListAll
	}

	return realtime.Watch(s.feed, []string{topic}, func() {
		orders, err := load(ctx)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onUpdate(orders)
	}, onError), nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", id).Msg("service: order not found, cannot update")
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to get order for update: %w", err)
	}
	return o, nil
}

// announce pushes the change to subscribers and other systems. Neither
// failure undoes the write.
func (s *service) announce(ctx context.Context, eventType string, o *Order) {
	if err := s.notifier.Notify(ctx, realtime.TopicOrders, realtime.UserOrdersTopic(o.UserID)); err != nil {
		log.Warn().Err(err).Stringer("order_id", o.ID).Msg("service: failed to announce order change")
	}
	if err := s.publisher.Publish(ctx, newEvent(eventType, o)); err != nil {
		log.Warn().Err(err).Stringer("order_id", o.ID).Str("event_type", eventType).Msg("service: failed to publish order event")
	}
}
