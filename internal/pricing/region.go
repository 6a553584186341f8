package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/fjod/storefront/internal/domain"
)

// Info describes a market region.
type Info struct {
	Name           string
	Currency       string
	CurrencySymbol string
	Locale         language.Tag
	TaxRate        decimal.Decimal
	Language       string
}

var regions = map[domain.Region]Info{
	domain.RegionAM: {
		Name:           "Armenia",
		Currency:       "AMD",
		CurrencySymbol: "֏",
		Locale:         language.MustParse("hy-AM"),
		TaxRate:        decimal.RequireFromString("0.20"),
		Language:       "hy",
	},
	domain.RegionRU: {
		Name:           "Russia",
		Currency:       "RUB",
		CurrencySymbol: "₽",
		Locale:         language.MustParse("ru-RU"),
		TaxRate:        decimal.RequireFromString("0.18"),
		Language:       "ru",
	},
	domain.RegionUS: {
		Name:           "United States",
		Currency:       "USD",
		CurrencySymbol: "$",
		Locale:         language.AmericanEnglish,
		TaxRate:        decimal.RequireFromString("0.08"),
		Language:       "en",
	},
	domain.RegionEU: {
		Name:           "European Union",
		Currency:       "EUR",
		CurrencySymbol: "€",
		Locale:         language.English,
		TaxRate:        decimal.RequireFromString("0.21"),
		Language:       "en",
	},
}

func RegionInfo(r domain.Region) (Info, bool) {
	info, ok := regions[r]
	return info, ok
}

// DetectRegion maps a UI language tag to a region. The base language is
// the only signal; anything unrecognized falls back to DefaultRegion.
func DetectRegion(tag string) domain.Region {
	tag = strings.ReplaceAll(strings.TrimSpace(tag), "_", "-")
	if tag == "" {
		return domain.DefaultRegion
	}
	t, err := language.Parse(tag)
	if err != nil {
		return domain.DefaultRegion
	}
	base, _ := t.Base()
	switch base.String() {
	case "hy":
		return domain.RegionAM
	case "ru":
		return domain.RegionRU
	case "en":
		return domain.RegionUS
	}
	return domain.DefaultRegion
}

// LanguageOf returns the UI language used for a region's catalog texts.
func LanguageOf(r domain.Region) string {
	if info, ok := regions[r]; ok {
		return info.Language
	}
	return "en"
}

func CurrencySymbol(r domain.Region) string {
	if info, ok := regions[r]; ok {
		return info.CurrencySymbol
	}
	return "$"
}

func TaxRate(r domain.Region) decimal.Decimal {
	if info, ok := regions[r]; ok {
		return info.TaxRate
	}
	return decimal.Zero
}

// MinorUnits is the number of fraction digits a currency is charged in.
// AMD and RUB are treated as zero-decimal currencies.
func MinorUnits(currency string) int32 {
	switch strings.ToUpper(currency) {
	case "AMD", "RUB":
		return 0
	}
	return 2
}
