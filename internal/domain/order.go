package domain

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCreditCard     PaymentMethod = "credit_card"
	PaymentPayPal         PaymentMethod = "paypal"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCreditCard, PaymentPayPal, PaymentCashOnDelivery:
		return true
	}
	return false
}

var (
	ErrInvalidAddress       = errors.New("shipping address requires street, city and country")
	ErrInvalidPaymentMethod = errors.New("unknown payment method")
)

type ShippingAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
	Country string `json:"country"`
}

func (a ShippingAddress) Validate() error {
	if strings.TrimSpace(a.Street) == "" || strings.TrimSpace(a.City) == "" || strings.TrimSpace(a.Country) == "" {
		return ErrInvalidAddress
	}
	return nil
}

// OrderLine is a cart line frozen at checkout time.
type OrderLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	VolumeMl  int             `json:"volume_ml"`
	ImageRef  string          `json:"image"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

func NewOrderLine(l CartLine) OrderLine {
	return OrderLine{
		ProductID: l.ProductID,
		Name:      l.Name,
		UnitPrice: l.UnitPrice,
		VolumeMl:  l.VolumeMl,
		ImageRef:  l.ImageRef,
		Quantity:  l.Quantity,
		LineTotal: l.LineTotal(),
	}
}

// Order is immutable after creation except for Status and UpdatedAt.
type Order struct {
	ID                  string          `json:"id"`
	UserID              string          `json:"user_id"`
	Lines               []OrderLine     `json:"items"`
	Currency            string          `json:"currency"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	TaxAmount           decimal.Decimal `json:"tax_amount"`
	ShippingCost        decimal.Decimal `json:"shipping_cost"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	Status              OrderStatus     `json:"status"`
	ShippingAddress     ShippingAddress `json:"shipping_address"`
	PaymentMethod       PaymentMethod   `json:"payment_method"`
	IdempotencyKey      string          `json:"-"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	EstimatedDeliveryAt *time.Time      `json:"estimated_delivery_at,omitempty"`
	TrackingNumber      string          `json:"tracking_number,omitempty"`
}

// Clone returns a deep copy so callers cannot reach a stored order.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Lines = slices.Clone(o.Lines)
	if o.EstimatedDeliveryAt != nil {
		t := *o.EstimatedDeliveryAt
		c.EstimatedDeliveryAt = &t
	}
	return &c
}

// TotalsConsistent reports whether TotalAmount equals the sum of its parts.
func (o *Order) TotalsConsistent() bool {
	return o.TotalAmount.Equal(o.Subtotal.Add(o.TaxAmount).Add(o.ShippingCost))
}
