package cart

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
)

type Item struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// Cart is replaced as a whole on every write.
type Cart struct {
	UserID    uuid.UUID `json:"user_id"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Cart) TotalItems() int {
	total := 0
	for _, it := range c.Items {
		total += it.Quantity
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Add merges quantity into an existing entry or appends a new one.
func (c *Cart) Add(productID uuid.UUID, quantity int) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += quantity
			return
		}
	}
	c.Items = append(c.Items, Item{ProductID: productID, Quantity: quantity})
}

// SetQuantity overwrites the entry's quantity; quantity <= 0 removes it.
func (c *Cart) SetQuantity(productID uuid.UUID, quantity int) {
	if quantity <= 0 {
		c.Remove(productID)
		return
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			return
		}
	}
}

func (c *Cart) Remove(productID uuid.UUID) {
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	c.Items = kept
}

func (c *Cart) Clear() {
	c.Items = []Item{}
}

func (c *Cart) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	return ids
}

// Line is a cart entry joined with its live product.
type Line struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type View struct {
	UserID      uuid.UUID       `json:"user_id"`
	Lines       []Line          `json:"items"`
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// Join prices the cart against products. Entries whose product is gone are
// left out of Lines and TotalAmount but still count in TotalItems.
func Join(c *Cart, products map[uuid.UUID]catalog.Product) *View {
	view := &View{
		UserID:      c.UserID,
		Lines:       make([]Line, 0, len(c.Items)),
		TotalItems:  c.TotalItems(),
		TotalAmount: decimal.Zero,
	}
	for _, it := range c.Items {
		p, ok := products[it.ProductID]
		if !ok {
			continue
		}
		subtotal := p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		view.Lines = append(view.Lines, Line{Product: p, Quantity: it.Quantity, Subtotal: subtotal})
		view.TotalAmount = view.TotalAmount.Add(subtotal)
	}
	return view
}
