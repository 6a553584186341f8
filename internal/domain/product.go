package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryVodka    Category = "vodka"
	CategoryCocktail Category = "cocktail"
	CategoryWhiskey  Category = "whiskey"
	CategoryRum      Category = "rum"
	CategoryGin      Category = "gin"
	CategoryTequila  Category = "tequila"
	CategoryWine     Category = "wine"
	CategoryBeer     Category = "beer"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryVodka, CategoryCocktail, CategoryWhiskey, CategoryRum,
		CategoryGin, CategoryTequila, CategoryWine, CategoryBeer:
		return true
	}
	return false
}

// LocalizedText holds the storefront's translations of a catalog string.
type LocalizedText struct {
	EN string `json:"en"`
	HY string `json:"hy,omitempty"`
	RU string `json:"ru,omitempty"`
}

// In returns the text for lang, falling back to English.
func (t LocalizedText) In(lang string) string {
	switch lang {
	case "hy":
		if t.HY != "" {
			return t.HY
		}
	case "ru":
		if t.RU != "" {
			return t.RU
		}
	}
	return t.EN
}

// RegionPrice is the price configuration of one product in one region.
// TaxRate overrides the region's default tax rate when set.
type RegionPrice struct {
	Price          decimal.Decimal  `json:"price"`
	Currency       string           `json:"currency"`
	CurrencySymbol string           `json:"currency_symbol"`
	Discount       decimal.Decimal  `json:"discount"`
	TaxRate        *decimal.Decimal `json:"tax_rate,omitempty"`
}

var (
	ErrInvalidRate  = errors.New("rate must be in [0, 1)")
	ErrInvalidPrice = errors.New("price must not be negative")
)

var one = decimal.NewFromInt(1)

func validRate(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThan(one)
}

func (p RegionPrice) Validate() error {
	if p.Price.IsNegative() {
		return ErrInvalidPrice
	}
	if !validRate(p.Discount) {
		return fmt.Errorf("discount %s: %w", p.Discount, ErrInvalidRate)
	}
	if p.TaxRate != nil && !validRate(*p.TaxRate) {
		return fmt.Errorf("tax rate %s: %w", p.TaxRate, ErrInvalidRate)
	}
	return nil
}

type Product struct {
	ID           string                 `json:"id"`
	Name         LocalizedText          `json:"name"`
	Description  LocalizedText          `json:"description"`
	Price        decimal.Decimal        `json:"price"`
	VolumeMl     int                    `json:"volume_ml"`
	Category     Category               `json:"category"`
	ImageRef     string                 `json:"image"`
	InStock      bool                   `json:"in_stock"`
	Pricing      map[Region]RegionPrice `json:"pricing,omitempty"`
	Availability map[Region]bool        `json:"availability,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

func (p *Product) Validate() error {
	if p.ID == "" {
		return errors.New("product id is required")
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("product %s: %w", p.ID, ErrInvalidPrice)
	}
	for region, rp := range p.Pricing {
		if err := rp.Validate(); err != nil {
			return fmt.Errorf("product %s region %s: %w", p.ID, region, err)
		}
	}
	return nil
}

// AvailableIn reports the product's availability flag for r.
func (p *Product) AvailableIn(r Region) bool {
	return p.Availability[r]
}
