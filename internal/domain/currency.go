package domain

import "fmt"

// Currency is an ISO 4217 code accepted for detail prices.
type Currency string

const (
	KRW Currency = "KRW"
	USD Currency = "USD"
	EUR Currency = "EUR"
	JPY Currency = "JPY"
)

// CanonicalCurrency is the currency plan totals are stored in.
const CanonicalCurrency = KRW

// SupportedCurrencies lists every currency a detail may be priced in.
var SupportedCurrencies = []Currency{KRW, USD, EUR, JPY}

// ParseCurrency accepts an exact, upper-case supported code.
func ParseCurrency(s string) (Currency, error) {
	for _, c := range SupportedCurrencies {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported currency %q", ErrValidation, s)
}
