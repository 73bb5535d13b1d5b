package checkout

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/order"
)

type Step string

const (
	StepAddress    Step = "address"
	StepPayment    Step = "payment"
	StepReview     Step = "review"
	StepSubmitting Step = "submitting"
	StepPlaced     Step = "placed"
	StepFailed     Step = "failed"
)

// Draft is the resumable wizard state of one user.
type Draft struct {
	UserID        uuid.UUID           `json:"user_id"`
	Step          Step                `json:"step"`
	Phone         string              `json:"phone"`
	Address       string              `json:"address"`
	Zone          string              `json:"zone"`
	PaymentMethod order.PaymentMethod `json:"payment_method,omitempty"`
	BkashNumber   string              `json:"bkash_number,omitempty"`
	BkashTrxID    string              `json:"bkash_trx_id,omitempty"`
	LastError     string              `json:"last_error,omitempty"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// PaymentReference correlates a bKash payment with the order.
func (d *Draft) PaymentReference() string {
	if d.PaymentMethod != order.MethodBkash {
		return ""
	}
	return d.BkashNumber + " - " + d.BkashTrxID
}

// Summary is the read-only review page.
type Summary struct {
	Draft          Draft           `json:"draft"`
	Items          []order.Item    `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	Total          decimal.Decimal `json:"total"`
}

// Result reports the outcome of Confirm.
type Result struct {
	State   Step         `json:"state"`
	OrderID uuid.UUID    `json:"order_id,omitempty"`
	Order   *order.Order `json:"order,omitempty"`
	Error   string       `json:"error,omitempty"`
}
