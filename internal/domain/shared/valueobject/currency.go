package valueobject

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
)

// Currency is an ISO 4217 alphabetic code
type Currency string

const (
	RUB Currency = "RUB"
	USD Currency = "USD"
	EUR Currency = "EUR"
	CNY Currency = "CNY"
	KZT Currency = "KZT"
	BYN Currency = "BYN"
)

// DefaultCurrency is the reference currency of a tenant that configures none
const DefaultCurrency = RUB

// ParseCurrency trims code and resolves it against the ISO 4217 table.
// Unknown codes and the no-currency and testing codes are rejected.
func ParseCurrency(code string) (Currency, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil || unit == currency.XXX || unit == currency.XTS {
		return "", fmt.Errorf("invalid currency code %q", code)
	}
	return Currency(unit.String()), nil
}

func (c Currency) String() string { return string(c) }
