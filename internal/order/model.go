package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCanceled  Status = "canceled"
	StatusReturned  Status = "returned"
	StatusRefunded  Status = "refunded"
)

func (s Status) String() string {
	return string(s)
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) String() string {
	return string(s)
}

type PaymentMethod string

const (
	MethodCOD   PaymentMethod = "cod"
	MethodBkash PaymentMethod = "bkash"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodCOD || m == MethodBkash
}

// Item is a snapshot of the product taken when the order was placed.
type Item struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image"`
}

// Order items and total are written once; only Status and PaymentStatus
// change afterwards.
type Order struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"user_id"`
	Items            []Item          `json:"items"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	DeliveryAddress  string          `json:"delivery_address"`
	DeliveryCharge   decimal.Decimal `json:"delivery_charge"`
	Status           Status          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Subtotal sums price times quantity over the items.
func Subtotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// NewOrder is what checkout hands over to place an order.
type NewOrder struct {
	Items            []Item
	PaymentMethod    PaymentMethod
	PaymentReference string
	DeliveryAddress  string
	DeliveryCharge   decimal.Decimal
}
