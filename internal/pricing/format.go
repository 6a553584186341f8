package pricing

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/fjod/storefront/internal/domain"
)

// FormatPrice renders amount with the region's grouping and symbol
// placement. This is the only place prices are rounded.
func FormatPrice(amount decimal.Decimal, r domain.Region) string {
	info, ok := regions[r]
	if !ok {
		return fmt.Sprintf("%s %s", amount, r)
	}

	digits := MinorUnits(info.Currency)
	formatted := formatDecimal(amount.Round(digits), digits, marksFor(info.Locale))

	if r == domain.RegionUS {
		return info.CurrencySymbol + formatted
	}
	return formatted + " " + info.CurrencySymbol
}

func FormatPriceRange(lo, hi decimal.Decimal, r domain.Region) string {
	if lo.Equal(hi) {
		return FormatPrice(lo, r)
	}
	return FormatPrice(lo, r) + " - " + FormatPrice(hi, r)
}

type numberMarks struct {
	group string
	point string
}

var localeMarks sync.Map // language.Tag -> numberMarks

// marksFor reads the locale's group and decimal separators off a sample
// the printer renders exactly.
func marksFor(tag language.Tag) numberMarks {
	if m, ok := localeMarks.Load(tag); ok {
		return m.(numberMarks)
	}

	sample := message.NewPrinter(tag).Sprintf("%v", number.Decimal(1234567.5, number.Scale(1)))
	var seps []string
	var cur strings.Builder
	for _, c := range sample {
		if unicode.IsDigit(c) {
			if cur.Len() > 0 {
				seps = append(seps, cur.String())
				cur.Reset()
			}
			continue
		}
		cur.WriteRune(c)
	}

	m := numberMarks{group: ",", point: "."}
	switch {
	case len(seps) >= 2:
		m.group, m.point = seps[0], seps[len(seps)-1]
	case len(seps) == 1:
		m.group, m.point = "", seps[0]
	}
	localeMarks.Store(tag, m)
	return m
}

// formatDecimal groups the integer part by thousands and keeps exactly
// digits fraction digits, without leaving decimal arithmetic.
func formatDecimal(d decimal.Decimal, digits int32, m numberMarks) string {
	s := d.StringFixed(digits)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(m.group)
		}
		b.WriteRune(c)
	}
	if frac != "" {
		b.WriteString(m.point)
		b.WriteString(frac)
	}
	return b.String()
}
