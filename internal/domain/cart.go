package domain

import (
	"errors"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

var ErrCurrencyMismatch = errors.New("cart already holds items priced in another currency")

// CartItem is what gets added to a cart: the display fields of a product
// and the unit price it was added at.
type CartItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Currency  string          `json:"currency"`
	VolumeMl  int             `json:"volume_ml"`
	ImageRef  string          `json:"image"`
}

type CartLine struct {
	CartItem
	Quantity int `json:"quantity"`
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart keeps at most one line per product, in the order products were
// first added. Totals are never stored.
type Cart struct {
	Key       string     `json:"key"`
	Region    Region     `json:"region,omitempty"`
	Lines     []CartLine `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func NewCart(key string) *Cart {
	return &Cart{Key: key, Lines: []CartLine{}}
}

func (c *Cart) index(productID string) int {
	return slices.IndexFunc(c.Lines, func(l CartLine) bool { return l.ProductID == productID })
}

// AddItem merges into an existing line (quantity+1) or appends a new line
// with quantity 1.
func (c *Cart) AddItem(item CartItem) error {
	if cur := c.Currency(); cur != "" && item.Currency != cur {
		return ErrCurrencyMismatch
	}
	if i := c.index(item.ProductID); i >= 0 {
		c.Lines[i].Quantity++
		return nil
	}
	c.Lines = append(c.Lines, CartLine{CartItem: item, Quantity: 1})
	return nil
}

// UpdateQuantity sets the quantity exactly; zero or less removes the line.
func (c *Cart) UpdateQuantity(productID string, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(productID)
		return
	}
	if i := c.index(productID); i >= 0 {
		c.Lines[i].Quantity = quantity
	}
}

func (c *Cart) RemoveItem(productID string) {
	if i := c.index(productID); i >= 0 {
		c.Lines = slices.Delete(c.Lines, i, i+1)
	}
}

func (c *Cart) Clear() {
	c.Lines = []CartLine{}
}

func (c *Cart) Line(productID string) (CartLine, bool) {
	if i := c.index(productID); i >= 0 {
		return c.Lines[i], true
	}
	return CartLine{}, false
}

func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

func (c *Cart) TotalItems() int {
	total := 0
	for _, l := range c.Lines {
		total += l.Quantity
	}
	return total
}

func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// Currency is the currency of the cart's lines, empty for an empty cart.
func (c *Cart) Currency() string {
	if len(c.Lines) == 0 {
		return ""
	}
	return c.Lines[0].Currency
}

// Snapshot returns a copy of the lines that later cart mutations cannot reach.
func (c *Cart) Snapshot() []CartLine {
	return slices.Clone(c.Lines)
}

// Normalize drops lines a persisted document may carry that violate the
// cart invariants: non-positive quantities and duplicate product ids
// (merged into the first occurrence).
func (c *Cart) Normalize() {
	out := make([]CartLine, 0, len(c.Lines))
	seen := make(map[string]int, len(c.Lines))
	for _, l := range c.Lines {
		if l.Quantity <= 0 {
			continue
		}
		if i, ok := seen[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		seen[l.ProductID] = len(out)
		out = append(out, l)
	}
	c.Lines = out
}
