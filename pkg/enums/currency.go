package enums

import "fmt"

// Currency represents the denominations a quote is displayed in.
type Currency string

const (
	CurrencyJMD Currency = "JMD"
	CurrencyUSD Currency = "USD"
)

var validCurrencies = []Currency{
	CurrencyJMD,
	CurrencyUSD,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// DisplayPlaces is the number of decimal places shown for the currency.
func (c Currency) DisplayPlaces() int32 {
	if c == CurrencyUSD {
		return 2
	}
	return 0
}

// ParseCurrency converts a raw string into a Currency.
func ParseCurrency(value string) (Currency, error) {
	for _, candidate := range validCurrencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
