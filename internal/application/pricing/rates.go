package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/domain/shared/valueobject"
)

// RateProvider supplies the exchange-rate snapshot for one calculation pass
type RateProvider interface {
	Rates(ctx context.Context) (valueobject.ExchangeRates, error)
}

// StaticRates serves a fixed rate table, as loaded from configuration
type StaticRates struct {
	rates valueobject.ExchangeRates
}

// NewStaticRates builds a provider. Keys are currency codes, values are
// units of base per unit of the keyed currency.
func NewStaticRates(base string, table map[string]decimal.Decimal) (*StaticRates, error) {
	baseCur, err := valueobject.ParseCurrency(base)
	if err != nil {
		return nil, shared.NewConfigurationError("pricing reference currency: %v", err)
	}
	parsed := make(map[valueobject.Currency]decimal.Decimal, len(table))
	for code, rate := range table {
		c, err := valueobject.ParseCurrency(code)
		if err != nil {
			return nil, shared.NewConfigurationError("pricing rate %s: %v", code, err)
		}
		parsed[c] = rate
	}
	rates, err := valueobject.NewExchangeRates(baseCur, parsed, time.Now())
	if err != nil {
		return nil, shared.NewConfigurationError("pricing rates: %v", err)
	}
	return &StaticRates{rates: rates}, nil
}

// Rates returns the configured snapshot
func (s *StaticRates) Rates(context.Context) (valueobject.ExchangeRates, error) {
	return s.rates, nil
}
