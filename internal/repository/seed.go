package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fjod/storefront/internal/domain"
)

type seedPrice struct {
	price     string
	discount  string
	available bool
}

var regionCurrency = map[domain.Region][2]string{
	domain.RegionAM: {"AMD", "֏"},
	domain.RegionRU: {"RUB", "₽"},
	domain.RegionUS: {"USD", "$"},
	domain.RegionEU: {"EUR", "€"},
}

func seedProduct(p domain.Product, prices map[domain.Region]seedPrice) *domain.Product {
	p.Pricing = make(map[domain.Region]domain.RegionPrice, len(prices))
	p.Availability = make(map[domain.Region]bool, len(prices))
	for r, sp := range prices {
		cur := regionCurrency[r]
		discount := decimal.Zero
		if sp.discount != "" {
			discount = decimal.RequireFromString(sp.discount)
		}
		p.Pricing[r] = domain.RegionPrice{
			Price:          decimal.RequireFromString(sp.price),
			Currency:       cur[0],
			CurrencySymbol: cur[1],
			Discount:       discount,
		}
		p.Availability[r] = sp.available
	}
	p.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return &p
}

// SeedProducts returns the storefront's starter catalog.
func SeedProducts() []*domain.Product {
	return []*domain.Product{
		seedProduct(domain.Product{
			ID: "1",
			Name: domain.LocalizedText{
				EN: "Premium Vodka",
				HY: "Պրեմիում Օղի",
				RU: "Премиум Водка",
			},
			Description: domain.LocalizedText{
				EN: "Smooth and clean premium vodka with a crisp finish. Perfect for cocktails or sipping neat.",
				HY: "Հարթ և մաքուր պրեմիում օղի կտրուկ ավարտով:",
				RU: "Гладкая и чистая премиум водка с хрустящим финишем.",
			},
			Price:    decimal.RequireFromString("45.99"),
			VolumeMl: 750,
			Category: domain.CategoryVodka,
			ImageRef: "/img/png/drink1.png",
			InStock:  true,
		}, map[domain.Region]seedPrice{
			domain.RegionAM: {price: "18000", available: true},
			domain.RegionRU: {price: "4200", available: true},
			domain.RegionUS: {price: "45.99", available: true},
			domain.RegionEU: {price: "42.50", available: true},
		}),
		seedProduct(domain.Product{
			ID: "2",
			Name: domain.LocalizedText{
				EN: "Classic Martini",
				HY: "Դասական Մարտինի",
				RU: "Классический Мартини",
			},
			Description: domain.LocalizedText{
				EN: "A sophisticated blend of gin and vermouth, garnished with an olive or lemon twist.",
				HY: "Դժինի և վերմուտի նրբագույն խառնուրդ:",
				RU: "Изысканная смесь джина и вермута.",
			},
			Price:    decimal.RequireFromString("12.99"),
			VolumeMl: 200,
			Category: domain.CategoryCocktail,
			ImageRef: "/img/png/drink2.png",
			InStock:  true,
		}, map[domain.Region]seedPrice{
			domain.RegionAM: {price: "5000", discount: "0.10", available: true},
			domain.RegionRU: {price: "1200", available: true},
			domain.RegionUS: {price: "12.99", available: true},
			domain.RegionEU: {price: "11.99", discount: "0.15", available: true},
		}),
		seedProduct(domain.Product{
			ID: "3",
			Name: domain.LocalizedText{
				EN: "Single Malt Whiskey",
				HY: "Միակ Մալտ Ուիսկի",
				RU: "Односолодовый Виски",
			},
			Description: domain.LocalizedText{
				EN: "Aged for 12 years in oak barrels, offering rich flavors of vanilla, oak, and spice.",
				HY: "12 տարի հասած կաղնու տակառներում:",
				RU: "Выдержанный 12 лет в дубовых бочках.",
			},
			Price:    decimal.RequireFromString("89.99"),
			VolumeMl: 750,
			Category: domain.CategoryWhiskey,
			ImageRef: "/img/png/drink3.png",
			InStock:  true,
		}, map[domain.Region]seedPrice{
			domain.RegionAM: {price: "35000", available: true},
			domain.RegionRU: {price: "8200", available: false},
			domain.RegionUS: {price: "89.99", available: true},
			domain.RegionEU: {price: "84.00", available: true},
		}),
		seedProduct(domain.Product{
			ID: "4",
			Name: domain.LocalizedText{
				EN: "Aged Rum",
				HY: "Հասած Ռոմ",
				RU: "Выдержанный Ром",
			},
			Description: domain.LocalizedText{
				EN: "Smooth Caribbean rum aged for 8 years, with notes of caramel and tropical fruits.",
				HY: "Հարթ կարիբյան ռոմ 8 տարի հասած:",
				RU: "Гладкий карибский ром, выдержанный 8 лет.",
			},
			Price:    decimal.RequireFromString("65.99"),
			VolumeMl: 750,
			Category: domain.CategoryRum,
			ImageRef: "/img/png/drink4.png",
			InStock:  true,
		}, map[domain.Region]seedPrice{
			domain.RegionAM: {price: "26000", available: true},
			domain.RegionRU: {price: "6000", available: true},
			domain.RegionUS: {price: "65.99", available: true},
		}),
		seedProduct(domain.Product{
			ID: "5",
			Name: domain.LocalizedText{
				EN: "London Dry Gin",
				HY: "Լոնդոնյան Չոր Ջին",
				RU: "Лондонский Сухой Джин",
			},
			Description: domain.LocalizedText{
				EN: "Juniper-forward gin with citrus peel and coriander.",
			},
			Price:    decimal.RequireFromString("38.50"),
			VolumeMl: 700,
			Category: domain.CategoryGin,
			ImageRef: "/img/png/drink5.png",
			InStock:  false,
		}, map[domain.Region]seedPrice{
			domain.RegionAM: {price: "15000", available: true},
			domain.RegionUS: {price: "38.50", available: true},
			domain.RegionEU: {price: "35.00", available: true},
		}),
	}
}
