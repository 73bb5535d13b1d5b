// Package checkout drives the address, payment and review wizard that turns
// a cart into an order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/cart"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/session"
	"github.com/vasiliy-maslov/storefront/internal/settings"
	"github.com/vasiliy-maslov/storefront/internal/user"
)

var (
	// ErrCartEmpty aborts the wizard; the client goes back to the cart.
	ErrCartEmpty         = errors.New("cart is empty")
	ErrWrongStep         = fmt.Errorf("checkout is not at this step: %w", apperr.ErrValidation)
	ErrConfirmInProgress = errors.New("order submission already in progress")
)

type CartSource interface {
	View(ctx context.Context) (*cart.View, error)
	Clear(ctx context.Context) error
}

type SettingsSource interface {
	Get(ctx context.Context) (*settings.Settings, error)
}

type Profiles interface {
	GetProfile(ctx context.Context) (*user.User, error)
	UpdateProfile(ctx context.Context, patch user.ProfilePatch) (*user.User, error)
}

type OrderPlacer interface {
	Create(ctx context.Context, in order.NewOrder) (*order.Order, error)
}

type Service interface {
	Start(ctx context.Context) (*Draft, error)
	SubmitAddress(ctx context.Context, phone, address, zone string) (*Draft, error)
	SubmitPayment(ctx context.Context, method order.PaymentMethod, bkashNumber, bkashTrxID string) (*Draft, error)
	Back(ctx context.Context) (*Draft, error)
	Review(ctx context.Context) (*Summary, error)
	Confirm(ctx context.Context) (*Result, error)
	Cancel(ctx context.Context) error
}

type service struct {
	drafts   DraftStore
	carts    CartSource
	settings SettingsSource
	profiles Profiles
	orders   OrderPlacer
}

func NewService(drafts DraftStore, carts CartSource, settings SettingsSource, profiles Profiles, orders OrderPlacer) Service {
	return &service{
		drafts:   drafts,
		carts:    carts,
		settings: settings,
		profiles: profiles,
		orders:   orders,
	}
}

// Start resumes the caller's draft or opens a new one prefilled from the
// profile.
func (s *service) Start(ctx context.Context) (*Draft, error) {
	sess, err := session.Require(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireItems(ctx, sess.UserID); err != nil {
		return nil, err
	}

	d, err := s.drafts.Get(ctx, sess.UserID)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, ErrDraftNotFound) {
		return nil, fmt.Errorf("service: failed to load checkout draft: %w", err)
	}

	d = &Draft{
		UserID:        sess.UserID,
		Step:          StepAddress,
		Zone:          settings.ZoneDhaka,
		PaymentMethod: order.MethodCOD,
	}
	if profile, err := s.profiles.GetProfile(ctx); err != nil {
		log.Warn().Err(err).Stringer("user_id", sess.UserID).Msg("service: could not prefill checkout from profile")
	} else {
		d.Phone = profile.Phone
		d.Address = profile.Address
	}

	if err := s.drafts.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("service: failed to save checkout draft: %w", err)
	}
	log.Info().Stringer("user_id", sess.UserID).Msg("service: checkout started")
	return d, nil
}

func (s *service) SubmitAddress(ctx context.Context, phone, address, zone string) (*Draft, error) {
	d, err := s.active(ctx, StepAddress)
	if err != nil {
		return nil, err
	}

	phone, address = strings.TrimSpace(phone), strings.TrimSpace(address)
	zone = strings.ToLower(strings.TrimSpace(zone))

	// The entered values stay on the draft even when rejected.
	d.Phone, d.Address = phone, address
	if zone != "" {
		d.Zone = zone
	}

	var verr error
	switch {
	case address == "":
		verr = apperr.Invalid("address", "delivery address is required")
	case phone == "":
		verr = apperr.Invalid("phone", "phone number is required")
	}
	if verr == nil {
		d.Step = StepPayment
	}

	if err := s.drafts.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("service: failed to save checkout draft: %w", err)
	}
	if verr != nil {
		return d, verr
	}
	return d, nil
}

func (s *service) SubmitPayment(ctx context.Context, method order.PaymentMethod, bkashNumber, bkashTrxID string) (*Draft, error) {
	d, err := s.active(ctx, StepPayment)
	if err != nil {
		return nil, err
	}

	st, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load settings: %w", err)
	}

	d.PaymentMethod = method
	d.BkashNumber, d.BkashTrxID = "", ""
	if method == order.MethodBkash {
		d.BkashNumber, d.BkashTrxID = strings.TrimSpace(bkashNumber), strings.TrimSpace(bkashTrxID)
	}

	var verr error
	switch {
	case !method.Valid():
		verr = apperr.Invalid("payment_method", "unsupported payment method %q", method)
	case !st.MethodEnabled(string(method)):
		verr = apperr.Invalid("payment_method", "payment method %q is currently disabled", method)
	case method == order.MethodBkash && d.BkashNumber == "":
		verr = apperr.Invalid("bkash_number", "bKash number is required")
	case method == order.MethodBkash && d.BkashTrxID == "":
		verr = apperr.Invalid("bkash_trx_id", "bKash transaction ID is required")
	}
	if verr == nil {
		d.Step = StepReview
	}

	if err := s.drafts.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("service: failed to save checkout draft: %w", err)
	}
	if verr != nil {
		return d, verr
	}
	return d, nil
}

// Back moves one step toward the address form. A draft left in submitting
// or failed returns to review.
func (s *service) Back(ctx context.Context) (*Draft, error) {
	sess, err := session.Require(ctx)
	if err != nil {
		return nil, err
	}
	d, err := s.load(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	switch d.Step {
	case StepPayment:
		d.Step = StepAddress
	case StepReview:
		d.Step = StepPayment
	case StepSubmitting, StepFailed:
		d.Step = StepReview
	}
	d.LastError = ""

	if err := s.drafts.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("service: failed to save checkout draft: %w", err)
	}
	return d, nil
}

func (s *service) Review(ctx context.Context) (*Summary, error) {
	d, err := s.active(ctx, StepReview)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, d)
}

func (s *service) summarize(ctx context.Context, d *Draft) (*Summary, error) {
	view, err := s.requireItems(ctx, d.UserID)
	if err != nil {
		return nil, err
	}
	st, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load settings: %w", err)
	}

	items := make([]order.Item, 0, len(view.Lines))
	for _, line := range view.Lines {
		items = append(items, order.Item{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Price:     line.Product.Price,
			Quantity:  line.Quantity,
			Image:     line.Product.Image(),
		})
	}

	subtotal := order.Subtotal(items)
	charge := st.DeliveryCharge(d.Zone)
	return &Summary{
		Draft:          *d,
		Items:          items,
		Subtotal:       subtotal,
		DeliveryCharge: charge,
		Total:          subtotal.Add(charge),
	}, nil
}

// Confirm saves the contact details to the profile, places the order and
// clears the cart, in that order. If either of the first two steps fails
// the draft goes back to review with the error recorded. A failure to clear
// the cart is logged and does not affect the placed order.
func (s *service) Confirm(ctx context.Context) (*Result, error) {
	sess, err := session.Require(ctx)
	if err != nil {
		return nil, err
	}
	d, err := s.load(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	switch d.Step {
	case StepReview:
	case StepSubmitting:
		return nil, ErrConfirmInProgress
	default:
		return nil, fmt.Errorf("%w: at %s, want %s", ErrWrongStep, d.Step, StepReview)
	}

	summary, err := s.summarize(ctx, d)
	if err != nil {
		return nil, err
	}

	claimed, err := s.drafts.Claim(ctx, sess.UserID, StepReview, StepSubmitting)
	if err != nil {
		if errors.Is(err, ErrDraftNotFound) {
			return nil, ErrConfirmInProgress
		}
		return nil, fmt.Errorf("service: failed to claim checkout draft: %w", err)
	}
	if !claimed {
		return nil, ErrConfirmInProgress
	}
	d.Step, d.LastError = StepSubmitting, ""

	phone, address := d.Phone, d.Address
	if _, err := s.profiles.UpdateProfile(ctx, user.ProfilePatch{Phone: &phone, Address: &address}); err != nil {
		return s.fail(ctx, d, fmt.Errorf("service: failed to save contact details: %w", err))
	}

	placed, err := s.orders.Create(ctx, order.NewOrder{
		Items:            summary.Items,
		PaymentMethod:    d.PaymentMethod,
		PaymentReference: d.PaymentReference(),
		DeliveryAddress:  d.Address,
		DeliveryCharge:   summary.DeliveryCharge,
	})
	if err != nil {
		return s.fail(ctx, d, fmt.Errorf("service: failed to place order: %w", err))
	}

	if err := s.carts.Clear(ctx); err != nil {
		log.Error().Err(err).Stringer("order_id", placed.ID).Stringer("user_id", sess.UserID).Msg("service: order placed but cart could not be cleared")
	}
	if err := s.drafts.Delete(ctx, sess.UserID); err != nil {
		log.Warn().Err(err).Stringer("user_id", sess.UserID).Msg("service: failed to discard checkout draft")
	}

	log.Info().Stringer("order_id", placed.ID).Stringer("user_id", sess.UserID).Msg("service: checkout completed")
	return &Result{State: StepPlaced, OrderID: placed.ID, Order: placed}, nil
}

func (s *service) fail(ctx context.Context, d *Draft, cause error) (*Result, error) {
	log.Error().Err(cause).Stringer("user_id", d.UserID).Msg("service: checkout confirmation failed")

	d.Step, d.LastError = StepReview, cause.Error()
	if err := s.drafts.Save(ctx, d); err != nil {
		log.Error().Err(err).Stringer("user_id", d.UserID).Msg("service: failed to restore checkout draft to review")
	}
	return &Result{State: StepFailed, Error: cause.Error()}, cause
}

// Cancel discards the draft.
func (s *service) Cancel(ctx context.Context) error {
	sess, err := session.Require(ctx)
	if err != nil {
		return err
	}
	if err := s.drafts.Delete(ctx, sess.UserID); err != nil {
		return fmt.Errorf("service: failed to discard checkout draft: %w", err)
	}
	return nil
}

// active loads the caller's draft, checks the cart still has items and that
// the draft sits at want.
func (s *service) active(ctx context.Context, want Step) (*Draft, error) {
	sess, err := session.Require(ctx)
	if err != nil {
		return nil, err
	}
	d, err := s.load(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireItems(ctx, sess.UserID); err != nil {
		return nil, err
	}
	if d.Step != want {
		return nil, fmt.Errorf("%w: at %s, want %s", ErrWrongStep, d.Step, want)
	}
	return d, nil
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (*Draft, error) {
	d, err := s.drafts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrDraftNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service: failed to load checkout draft: %w", err)
	}
	return d, nil
}

// requireItems aborts the draft when the cart has nothing purchasable left.
func (s *service) requireItems(ctx context.Context, userID uuid.UUID) (*cart.View, error) {
	view, err := s.carts.View(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load cart: %w", err)
	}
	if len(view.Lines) > 0 {
		return view, nil
	}

	if err := s.drafts.Delete(ctx, userID); err != nil {
		log.Warn().Err(err).Stringer("user_id", userID).Msg("service: failed to discard checkout draft")
	}
	log.Info().Stringer("user_id", userID).Msg("service: checkout aborted, cart is empty")
	return nil, ErrCartEmpty
}
