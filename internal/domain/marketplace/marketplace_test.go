package marketplace

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/domain/shared/valueobject"
)

func validRules() PricingRules {
	r := DefaultPricingRules(valueobject.RUB)
	r.MarkupValue = decimal.NewFromInt(20)
	r.CommissionPercentage = decimal.NewFromInt(10)
	r.RoundingRule = valueobject.RoundingNearest10
	return r
}

func TestPricingRules_Validate(t *testing.T) {
	ptr := func(v int64) *decimal.Decimal {
		d := decimal.NewFromInt(v)
		return &d
	}
	tests := []struct {
		name    string
		mutate  func(*PricingRules)
		wantErr string
	}{
		{"valid", func(*PricingRules) {}, ""},
		{"unknown markup type", func(r *PricingRules) { r.MarkupType = "ratio" }, "markup_type"},
		{"negative markup", func(r *PricingRules) { r.MarkupValue = decimal.NewFromInt(-1) }, "markup_value"},
		{"commission of 100 percent", func(r *PricingRules) { r.CommissionPercentage = decimal.NewFromInt(100) }, "commission_percentage"},
		{"unknown rounding", func(r *PricingRules) { r.RoundingRule = "nearest_7" }, "rounding_rule"},
		{"min above max", func(r *PricingRules) { r.MinPrice, r.MaxPrice = ptr(500), ptr(100) }, "min_price"},
		{"missing reference currency", func(r *PricingRules) { r.ReferenceCurrency = "" }, "reference_currency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRules()
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrInvalidInput))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSalesChannel_UpdatePricingRules(t *testing.T) {
	ch, err := NewSalesChannel(uuid.New(), "ozon-main", "Ozon", "ozon", validRules())
	require.NoError(t, err)
	assert.Equal(t, "OZON-MAIN", ch.Code)
	assert.Equal(t, 1, ch.RulesVersion)

	rules := validRules()
	rules.RoundingRule = valueobject.Rounding99Ending
	require.NoError(t, ch.UpdatePricingRules(rules))
	assert.Equal(t, 2, ch.RulesVersion)
	assert.Equal(t, valueobject.Rounding99Ending, ch.Rules().RoundingRule)
	require.Len(t, ch.GetDomainEvents(), 1)

	rules.MarkupType = "bogus"
	assert.Error(t, ch.UpdatePricingRules(rules))
	assert.Equal(t, 2, ch.RulesVersion, "rejected rules are not stored")
}

func TestSalesChannel_SetProcurementSchedule(t *testing.T) {
	ch, err := NewSalesChannel(uuid.New(), "WB", "Wildberries", "wildberries", validRules())
	require.NoError(t, err)

	require.NoError(t, ch.SetProcurementSchedule("*/15 * * * *", true))
	assert.True(t, ch.AutoConfirm)
	assert.Error(t, ch.SetProcurementSchedule("every minute", false))
}

func TestPriceLink_ApplyCalculation(t *testing.T) {
	link := NewPriceLink(uuid.New(), uuid.New(), uuid.New())
	now := time.Now()

	assert.True(t, link.ApplyCalculation(decimal.NewFromInt(130), valueobject.RUB, nil, []string{"base 100"}, 1, now))
	assert.False(t, link.ApplyCalculation(decimal.RequireFromString("130.00"), valueobject.RUB, nil, []string{"base 100"}, 2, now))
	assert.Equal(t, 2, link.RulesVersion)

	events := link.GetDomainEvents()
	require.Len(t, events, 1)
	changed := events[0].(*PriceChangedEvent)
	assert.Nil(t, changed.OldPrice)
	assert.Equal(t, "130", changed.NewPrice.String())
}
