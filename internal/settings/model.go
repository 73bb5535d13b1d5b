package settings

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ZoneDefault      = "default"
	ZoneDhaka        = "dhaka"
	ZoneOutsideDhaka = "outside_dhaka"
)

type PaymentMethods struct {
	COD   bool `json:"cod"`
	Bkash bool `json:"bkash"`
}

// Settings is the storefront-wide singleton document.
type Settings struct {
	PaymentMethods  PaymentMethods             `json:"payment_methods"`
	DeliveryCharges map[string]decimal.Decimal `json:"delivery_charges"`
	AppName         string                     `json:"app_name"`
	AppLogo         string                     `json:"app_logo"`
	Phone           string                     `json:"phone"`
	Whatsapp        string                     `json:"whatsapp"`
	Email           string                     `json:"email"`
	BkashNumber     string                     `json:"bkash_number"`
	Location        string                     `json:"location"`
	UpdatedAt       time.Time                  `json:"updated_at"`
}

// Defaults returns the document written on first read.
func Defaults() *Settings {
	return &Settings{
		PaymentMethods: PaymentMethods{COD: true, Bkash: true},
		DeliveryCharges: map[string]decimal.Decimal{
			ZoneDefault:      decimal.NewFromInt(60),
			ZoneDhaka:        decimal.NewFromInt(60),
			ZoneOutsideDhaka: decimal.NewFromInt(120),
		},
		AppName: "ShopHub",
	}
}

// DeliveryCharge looks zone up in the charge table, falling back to the
// default entry when the key is absent.
func (s *Settings) DeliveryCharge(zone string) decimal.Decimal {
	if charge, ok := s.DeliveryCharges[zone]; ok {
		return charge
	}
	return s.DeliveryCharges[ZoneDefault]
}

func (s *Settings) MethodEnabled(method string) bool {
	switch method {
	case "cod":
		return s.PaymentMethods.COD
	case "bkash":
		return s.PaymentMethods.Bkash
	default:
		return false
	}
}

// Patch groups. Nil fields are left untouched by the merge.

type PaymentMethodsPatch struct {
	COD   *bool `json:"cod,omitempty"`
	Bkash *bool `json:"bkash,omitempty"`
}

type BrandingPatch struct {
	AppName *string `json:"app_name,omitempty"`
	AppLogo *string `json:"app_logo,omitempty"`
}

type ContactPatch struct {
	Phone    *string `json:"phone,omitempty"`
	Whatsapp *string `json:"whatsapp,omitempty"`
	Email    *string `json:"email,omitempty"`
	Location *string `json:"location,omitempty"`
}

type PaymentInfoPatch struct {
	BkashNumber *string `json:"bkash_number,omitempty"`
}
