package catalog

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// UncategorizedName is shown for products whose category does not resolve.
const UncategorizedName = "Uncategorized"

// LowStockThreshold is the stock level under which the dashboard flags a product.
const LowStockThreshold = 10

type Product struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CategoryID  uuid.NullUUID   `json:"category_id"`
	Images      []string        `json:"images"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Image returns the first image or "".
func (p *Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// ProductView is a product with its category resolved.
type ProductView struct {
	Product
	CategoryName string `json:"category_name"`
}

type Category struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type ProductInput struct {
	Name        string
	Price       decimal.Decimal
	Stock       int
	CategoryID  uuid.NullUUID
	Images      []string
	Description string
}

// ProductPatch changes only the fields that are non-nil.
type ProductPatch struct {
	Name        *string
	Price       *decimal.Decimal
	Stock       *int
	CategoryID  *uuid.NullUUID
	Images      []string
	Description *string
}

type Filter struct {
	CategoryID uuid.NullUUID
	Search     string
}
