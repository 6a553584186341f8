package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/pricing"
)

// regionFromRequest picks the pricing region from ?lang=, then from the
// first Accept-Language entry.
func regionFromRequest(r *http.Request) domain.Region {
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = r.Header.Get("Accept-Language")
		lang, _, _ = strings.Cut(lang, ",")
		lang, _, _ = strings.Cut(lang, ";")
	}
	return pricing.DetectRegion(strings.TrimSpace(lang))
}

type ProductDTO struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	Description           string          `json:"description"`
	Category              domain.Category `json:"category"`
	VolumeMl              int             `json:"volume_ml"`
	Image                 string          `json:"image"`
	InStock               bool            `json:"in_stock"`
	Region                domain.Region   `json:"region"`
	Currency              string          `json:"currency"`
	CurrencySymbol        string          `json:"currency_symbol"`
	BasePrice             decimal.Decimal `json:"base_price"`
	DiscountRate          decimal.Decimal `json:"discount_rate"`
	TaxRate               decimal.Decimal `json:"tax_rate"`
	DiscountedPrice       decimal.Decimal `json:"discounted_price"`
	PriceWithTax          decimal.Decimal `json:"price_with_tax"`
	Savings               decimal.Decimal `json:"savings"`
	FormattedPrice        string          `json:"formatted_price"`
	FormattedPriceWithTax string          `json:"formatted_price_with_tax"`
}

func toProductDTO(p *domain.Product, q *pricing.Quote) ProductDTO {
	final := pricing.FinalPrice(q)
	lang := pricing.LanguageOf(q.Region)
	return ProductDTO{
		ID:                    p.ID,
		Name:                  p.Name.In(lang),
		Description:           p.Description.In(lang),
		Category:              p.Category,
		VolumeMl:              p.VolumeMl,
		Image:                 p.ImageRef,
		InStock:               p.InStock,
		Region:                q.Region,
		Currency:              q.Currency,
		CurrencySymbol:        q.CurrencySymbol,
		BasePrice:             q.BasePrice,
		DiscountRate:          q.DiscountRate,
		TaxRate:               q.TaxRate,
		DiscountedPrice:       final.DiscountedPrice,
		PriceWithTax:          final.PriceWithTax,
		Savings:               final.Savings,
		FormattedPrice:        pricing.FormatPrice(final.DiscountedPrice, q.Region),
		FormattedPriceWithTax: pricing.FormatPrice(final.PriceWithTax, q.Region),
	}
}

type PriceStatsDTO struct {
	pricing.Stats
	FormattedRange string `json:"formatted_range,omitempty"`
}

type ProductListDTO struct {
	Region   domain.Region `json:"region"`
	Products []ProductDTO  `json:"products"`
	Stats    PriceStatsDTO `json:"stats"`
}

type CartItemDTO struct {
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Currency       string          `json:"currency"`
	VolumeMl       int             `json:"volume_ml"`
	Image          string          `json:"image"`
	Quantity       int             `json:"quantity"`
	LineTotal      decimal.Decimal `json:"line_total"`
	FormattedTotal string          `json:"formatted_total"`
}

type CartResponseDTO struct {
	CartID         string          `json:"cart_id"`
	Region         domain.Region   `json:"region"`
	Items          []CartItemDTO   `json:"items"`
	Currency       string          `json:"currency,omitempty"`
	TotalItems     int             `json:"total_items"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	FormattedTotal string          `json:"formatted_total"`
}

// toCartDTO recomputes the aggregates on every call; nothing is read from
// stored totals.
func toCartDTO(c *domain.Cart, fallback domain.Region) CartResponseDTO {
	region := c.Region
	if region == "" {
		region = fallback
	}

	items := make([]CartItemDTO, 0, len(c.Lines))
	for _, l := range c.Lines {
		total := l.LineTotal()
		items = append(items, CartItemDTO{
			ProductID:      l.ProductID,
			Name:           l.Name,
			UnitPrice:      l.UnitPrice,
			Currency:       l.Currency,
			VolumeMl:       l.VolumeMl,
			Image:          l.ImageRef,
			Quantity:       l.Quantity,
			LineTotal:      total,
			FormattedTotal: pricing.FormatPrice(total, region),
		})
	}

	total := c.TotalPrice()
	return CartResponseDTO{
		CartID:         c.Key,
		Region:         region,
		Items:          items,
		Currency:       c.Currency(),
		TotalItems:     c.TotalItems(),
		TotalPrice:     total,
		FormattedTotal: pricing.FormatPrice(total, region),
	}
}

type OrderItemDTO struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	Image     string          `json:"image,omitempty"`
}

type OrderResponseDTO struct {
	ID                  string                 `json:"id"`
	UserID              string                 `json:"user_id"`
	Status              domain.OrderStatus     `json:"status"`
	Items               []OrderItemDTO         `json:"items"`
	Currency            string                 `json:"currency"`
	Subtotal            decimal.Decimal        `json:"subtotal"`
	TaxAmount           decimal.Decimal        `json:"tax_amount"`
	ShippingCost        decimal.Decimal        `json:"shipping_cost"`
	TotalAmount         decimal.Decimal        `json:"total_amount"`
	ShippingAddress     domain.ShippingAddress `json:"shipping_address"`
	PaymentMethod       domain.PaymentMethod   `json:"payment_method"`
	TrackingNumber      string                 `json:"tracking_number,omitempty"`
	EstimatedDeliveryAt *time.Time             `json:"estimated_delivery_at,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

func toOrderDTO(o *domain.Order) OrderResponseDTO {
	items := make([]OrderItemDTO, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, OrderItemDTO{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			LineTotal: l.LineTotal,
			Image:     l.ImageRef,
		})
	}
	return OrderResponseDTO{
		ID:                  o.ID,
		UserID:              o.UserID,
		Status:              o.Status,
		Items:               items,
		Currency:            o.Currency,
		Subtotal:            o.Subtotal,
		TaxAmount:           o.TaxAmount,
		ShippingCost:        o.ShippingCost,
		TotalAmount:         o.TotalAmount,
		ShippingAddress:     o.ShippingAddress,
		PaymentMethod:       o.PaymentMethod,
		TrackingNumber:      o.TrackingNumber,
		EstimatedDeliveryAt: o.EstimatedDeliveryAt,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}
