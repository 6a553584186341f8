package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/fjod/storefront/internal/domain"
)

var one = decimal.NewFromInt(1)

// Quote is the price of a catalog entry in one region.
type Quote struct {
	BasePrice      decimal.Decimal `json:"base_price"`
	Currency       string          `json:"currency"`
	CurrencySymbol string          `json:"currency_symbol"`
	Region         domain.Region   `json:"region"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	DiscountRate   decimal.Decimal `json:"discount_rate"`
}

func (q *Quote) DiscountedPrice() decimal.Decimal {
	return q.BasePrice.Mul(one.Sub(q.DiscountRate))
}

func (q *Quote) PriceWithTax() decimal.Decimal {
	return q.DiscountedPrice().Mul(one.Add(q.TaxRate))
}

// QuoteFor returns the product's quote in region r, or nil when the product
// has no price there or is flagged unavailable there.
func QuoteFor(p *domain.Product, r domain.Region) *Quote {
	if p == nil {
		return nil
	}
	rp, ok := p.Pricing[r]
	if !ok || !p.AvailableIn(r) {
		return nil
	}

	info := regions[r]
	q := &Quote{
		BasePrice:      rp.Price,
		Currency:       rp.Currency,
		CurrencySymbol: rp.CurrencySymbol,
		Region:         r,
		TaxRate:        info.TaxRate,
		DiscountRate:   rp.Discount,
	}
	if rp.TaxRate != nil {
		q.TaxRate = *rp.TaxRate
	}
	if q.Currency == "" {
		q.Currency = info.Currency
	}
	if q.CurrencySymbol == "" {
		q.CurrencySymbol = info.CurrencySymbol
	}
	return q
}

// Final is the breakdown of a quote after discount and tax. Nothing is
// rounded here.
type Final struct {
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	PriceWithTax    decimal.Decimal `json:"price_with_tax"`
	Savings         decimal.Decimal `json:"savings"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
}

func FinalPrice(q *Quote) Final {
	discounted := q.DiscountedPrice()
	return Final{
		DiscountedPrice: discounted,
		PriceWithTax:    q.PriceWithTax(),
		Savings:         q.BasePrice.Sub(discounted),
		TaxAmount:       discounted.Mul(q.TaxRate),
	}
}

func IsAvailableInRegion(p *domain.Product, r domain.Region) bool {
	return p != nil && p.AvailableIn(r)
}
