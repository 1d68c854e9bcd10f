// Package currency converts detail prices between the supported currencies
// using an exchange-rate table injected at construction.
package currency

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/pkordes/plan-itinerary/internal/domain"
)

// Rates maps a currency to the number of its units per 1 USD.
type Rates map[domain.Currency]decimal.Decimal

// DefaultRates is the stock table used when no override is configured.
func DefaultRates() Rates {
	return Rates{
		domain.USD: decimal.NewFromInt(1),
		domain.KRW: decimal.NewFromInt(1450),
		domain.EUR: decimal.RequireFromString("0.92"),
		domain.JPY: decimal.NewFromInt(145),
	}
}

// ParseRates reads a table in the form "USD=1,KRW=1450,EUR=0.92,JPY=145".
// Every code must be a supported currency and every rate must be positive.
func ParseRates(s string) (Rates, error) {
	rates := Rates{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		code, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("currency.ParseRates: %q is not CODE=RATE", pair)
		}
		c, err := domain.ParseCurrency(strings.TrimSpace(code))
		if err != nil {
			return nil, fmt.Errorf("currency.ParseRates: %w", err)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("currency.ParseRates: rate for %s: %w", c, err)
		}
		rates[c] = rate
	}
	if err := rates.validate(); err != nil {
		return nil, fmt.Errorf("currency.ParseRates: %w", err)
	}
	return rates, nil
}

// String renders the table in the form ParseRates accepts, codes sorted.
func (r Rates) String() string {
	parts := make([]string, 0, len(r))
	for c, rate := range r {
		parts = append(parts, string(c)+"="+rate.String())
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (r Rates) validate() error {
	for _, c := range domain.SupportedCurrencies {
		rate, ok := r[c]
		if !ok {
			return fmt.Errorf("missing rate for %s", c)
		}
		if !rate.IsPositive() {
			return fmt.Errorf("rate for %s must be positive, got %s", c, rate)
		}
		if money.GetCurrency(string(c)) == nil {
			return fmt.Errorf("%s is not an ISO 4217 currency", c)
		}
	}
	return nil
}

// Converter is safe for concurrent use; it never mutates its table.
type Converter struct {
	rates Rates
}

// NewConverter copies rates so later changes by the caller have no effect.
func NewConverter(rates Rates) (*Converter, error) {
	if err := rates.validate(); err != nil {
		return nil, fmt.Errorf("currency.NewConverter: %w", err)
	}
	cp := make(Rates, len(rates))
	for c, r := range rates {
		cp[c] = r
	}
	return &Converter{rates: cp}, nil
}

// Convert returns amount * rate[to] / rate[from] rounded half-up to 2
// decimal places. Currencies are checked at the boundary, so an unknown code
// here is a programming error and panics.
func (c *Converter) Convert(amount decimal.Decimal, from, to domain.Currency) decimal.Decimal {
	rf, ok := c.rates[from]
	if !ok {
		panic(fmt.Sprintf("currency: no rate for %q", from))
	}
	rt, ok := c.rates[to]
	if !ok {
		panic(fmt.Sprintf("currency: no rate for %q", to))
	}
	if from == to {
		return amount.Round(2)
	}
	return amount.Mul(rt).Div(rf).Round(2)
}

// Format renders amount for display using the currency's symbol, grouping and
// minor-unit precision, e.g. "₩725,000" or "$0.69".
func Format(amount decimal.Decimal, c domain.Currency) string {
	cur := money.GetCurrency(string(c))
	if cur == nil {
		return amount.StringFixed(2) + " " + string(c)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}
