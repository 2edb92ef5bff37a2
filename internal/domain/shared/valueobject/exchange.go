package valueobject

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRateMissing is returned when a conversion needs a rate the table lacks.
var ErrRateMissing = errors.New("exchange rate missing")

// ExchangeRates is an immutable snapshot of conversion rates. Each rate
// states how many units of Base one unit of the currency is worth, so with
// Base RUB a USD rate of 90 means 1 USD = 90 RUB.
type ExchangeRates struct {
	base  Currency
	rates map[Currency]decimal.Decimal
	asOf  time.Time
}

// NewExchangeRates builds a snapshot. Non-positive rates are rejected.
func NewExchangeRates(base Currency, rates map[Currency]decimal.Decimal, asOf time.Time) (ExchangeRates, error) {
	if base == "" {
		return ExchangeRates{}, errors.New("base currency cannot be empty")
	}
	copied := make(map[Currency]decimal.Decimal, len(rates)+1)
	for c, r := range rates {
		if !r.IsPositive() {
			return ExchangeRates{}, fmt.Errorf("rate for %s must be positive, got %s", c, r)
		}
		copied[c] = r
	}
	copied[base] = decimal.NewFromInt(1)
	return ExchangeRates{base: base, rates: copied, asOf: asOf}, nil
}

// Base returns the currency every rate is quoted against
func (x ExchangeRates) Base() Currency {
	return x.base
}

// AsOf returns when the snapshot was taken
func (x ExchangeRates) AsOf() time.Time {
	return x.asOf
}

// Rate returns the rate of c against the base currency
func (x ExchangeRates) Rate(c Currency) (decimal.Decimal, bool) {
	r, ok := x.rates[c]
	return r, ok
}

// Convert converts amount from one currency to another through the base
// currency. Same-currency conversion is the identity and needs no rate.
func (x ExchangeRates) Convert(amount decimal.Decimal, from, to Currency) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	fromRate, ok := x.rates[from]
	if !ok {
		return amount, fmt.Errorf("%w: %s", ErrRateMissing, from)
	}
	toRate, ok := x.rates[to]
	if !ok {
		return amount, fmt.Errorf("%w: %s", ErrRateMissing, to)
	}
	return amount.Mul(fromRate).Div(toRate), nil
}
