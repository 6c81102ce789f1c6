package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/quotation-engine/pkg/enums"
)

// FormatAmount renders an amount for display: whole units for JMD, cents for USD,
// with thousands grouped, e.g. "JMD 140,500" or "USD 906.45".
func FormatAmount(value float64, currency enums.Currency) string {
	fixed := decimal.NewFromFloat(value).StringFixed(currency.DisplayPlaces())

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	whole, frac, hasFrac := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := currency.String() + " " + sign + b.String()
	if hasFrac {
		out += "." + frac
	}
	return out
}
