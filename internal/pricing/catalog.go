package pricing

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/fjod/storefront/internal/domain"
)

type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

func ParseSortOrder(s string) SortOrder {
	if s == string(Descending) {
		return Descending
	}
	return Ascending
}

// FilterByRegionalAvailability keeps the entries flagged available in r.
func FilterByRegionalAvailability(entries []*domain.Product, r domain.Region) []*domain.Product {
	out := make([]*domain.Product, 0, len(entries))
	for _, p := range entries {
		if IsAvailableInRegion(p, r) {
			out = append(out, p)
		}
	}
	return out
}

func regionalPrice(p *domain.Product, r domain.Region) decimal.Decimal {
	if rp, ok := p.Pricing[r]; ok {
		return rp.Price
	}
	return decimal.Zero
}

// SortByRegionalPrice returns a sorted copy. Entries without a price in r
// sort as zero; equal prices are ordered by id in the same direction.
func SortByRegionalPrice(entries []*domain.Product, r domain.Region, order SortOrder) []*domain.Product {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b *domain.Product) int {
		c := regionalPrice(a, r).Cmp(regionalPrice(b, r))
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if order == Descending {
			return -c
		}
		return c
	})
	return out
}

type Stats struct {
	Min     decimal.Decimal `json:"min_price"`
	Max     decimal.Decimal `json:"max_price"`
	Average decimal.Decimal `json:"average_price"`
	Count   int             `json:"total_items"`
}

// RegionalPriceStats summarizes the base prices configured for r.
// Entries without a price there are ignored.
func RegionalPriceStats(entries []*domain.Product, r domain.Region) Stats {
	var s Stats
	sum := decimal.Zero
	for _, p := range entries {
		rp, ok := p.Pricing[r]
		if !ok {
			continue
		}
		if s.Count == 0 || rp.Price.LessThan(s.Min) {
			s.Min = rp.Price
		}
		if s.Count == 0 || rp.Price.GreaterThan(s.Max) {
			s.Max = rp.Price
		}
		sum = sum.Add(rp.Price)
		s.Count++
	}
	if s.Count > 0 {
		s.Average = sum.Div(decimal.NewFromInt(int64(s.Count)))
	}
	return s
}
