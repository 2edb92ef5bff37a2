package marketplace

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/domain/shared/valueobject"
)

// MarkupType selects how markup_value is applied
type MarkupType string

const (
	MarkupTypePercentage MarkupType = "percentage"
	MarkupTypeFixed      MarkupType = "fixed"
)

// PricingRules is the typed price policy of a sales channel. It is
// validated whenever it is written.
type PricingRules struct {
	MarkupType           MarkupType               `json:"markup_type" validate:"required,oneof=percentage fixed"`
	MarkupValue          decimal.Decimal          `json:"markup_value" validate:"gte=0"`
	AdditionalExpenses   decimal.Decimal          `json:"additional_expenses" validate:"gte=0"`
	CommissionPercentage decimal.Decimal          `json:"commission_percentage" validate:"gte=0,lt=100"`
	RoundingRule         valueobject.RoundingRule `json:"rounding_rule" validate:"rounding_rule"`
	MinPrice             *decimal.Decimal         `json:"min_price,omitempty" validate:"omitempty,gte=0"`
	MaxPrice             *decimal.Decimal         `json:"max_price,omitempty" validate:"omitempty,gt=0"`
	// ReferenceCurrency is what costs are converted to before markup
	ReferenceCurrency valueobject.Currency `json:"reference_currency" validate:"required,len=3"`
	// DisplayCurrency is the currency of the published price; empty means the reference currency
	DisplayCurrency valueobject.Currency `json:"display_currency,omitempty" validate:"omitempty,len=3"`
}

func init() {
	v := shared.Validator()
	_ = v.RegisterValidation("rounding_rule", func(fl validator.FieldLevel) bool {
		return valueobject.RoundingRule(fl.Field().String()).IsValid()
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		r := sl.Current().Interface().(PricingRules)
		if r.MinPrice != nil && r.MaxPrice != nil && r.MinPrice.GreaterThan(*r.MaxPrice) {
			sl.ReportError(r.MinPrice, "min_price", "MinPrice", "ltefield", "max_price")
		}
	}, PricingRules{})
}

// DefaultPricingRules returns a neutral policy in the given currency
func DefaultPricingRules(reference valueobject.Currency) PricingRules {
	return PricingRules{
		MarkupType:           MarkupTypePercentage,
		MarkupValue:          decimal.Zero,
		AdditionalExpenses:   decimal.Zero,
		CommissionPercentage: decimal.Zero,
		RoundingRule:         valueobject.RoundingNone,
		ReferenceCurrency:    reference,
	}
}

// Validate checks the rules
func (r PricingRules) Validate() error {
	return shared.ValidateStruct(r)
}

// Display returns the effective display currency
func (r PricingRules) Display() valueobject.Currency {
	if r.DisplayCurrency == "" {
		return r.ReferenceCurrency
	}
	return r.DisplayCurrency
}
