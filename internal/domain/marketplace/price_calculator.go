package marketplace

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vde76ru/module-sub000/internal/domain/shared/valueobject"
)

// CostQuote is one qualifying supplier offer as pricing sees it
type CostQuote struct {
	OfferID    uuid.UUID
	SupplierID uuid.UUID
	Cost       decimal.Decimal
	Currency   valueobject.Currency
	MRC        *decimal.Decimal
	EnforceMRC bool
}

// Calculation is the outcome of one price calculation
type Calculation struct {
	// Kept is true when no price could be derived and the old one stands
	Kept     bool
	Price    decimal.Decimal
	Currency valueobject.Currency
	// Offer is the cheapest quote the price is based on
	Offer *CostQuote
	Trail []string
	// Warnings lists missing rates and MRC overrides for logging
	Warnings []string
}

var hundred = decimal.NewFromInt(100)

// CalculatePrice derives a sell price from the supplier quotes under the
// channel rules. The result only depends on its inputs; equal costs are
// broken by offer ID.
func CalculatePrice(quotes []CostQuote, rules PricingRules, rates valueobject.ExchangeRates) Calculation {
	calc := Calculation{Currency: rules.Display()}
	trail := func(format string, args ...any) {
		calc.Trail = append(calc.Trail, fmt.Sprintf(format, args...))
	}
	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		calc.Warnings = append(calc.Warnings, msg)
		calc.Trail = append(calc.Trail, "warning: "+msg)
	}

	if len(quotes) == 0 {
		calc.Kept = true
		trail("no available offers, price kept")
		return calc
	}

	ref := rules.ReferenceCurrency
	convert := func(amount decimal.Decimal, from valueobject.Currency) decimal.Decimal {
		out, err := rates.Convert(amount, from, ref)
		if err != nil {
			warn("no %s rate, %s %s used unconverted", from, amount.StringFixed(2), from)
			return amount
		}
		return out
	}

	var (
		base   decimal.Decimal
		chosen *CostQuote
		mrc    *decimal.Decimal
	)
	for i := range quotes {
		q := &quotes[i]
		cost := convert(q.Cost, q.Currency)
		if chosen == nil || cost.LessThan(base) ||
			(cost.Equal(base) && strings.Compare(q.OfferID.String(), chosen.OfferID.String()) < 0) {
			base, chosen = cost, q
		}
		if q.EnforceMRC && q.MRC != nil {
			m := convert(*q.MRC, q.Currency)
			if mrc == nil || m.GreaterThan(*mrc) {
				mrc = &m
			}
		}
	}
	picked := *chosen
	calc.Offer = &picked
	if chosen.Currency != ref {
		trail("base %s %s from %s %s (cheapest of %d offers)", base.StringFixed(2), ref, chosen.Cost.StringFixed(2), chosen.Currency, len(quotes))
	} else {
		trail("base %s %s (cheapest of %d offers)", base.StringFixed(2), ref, len(quotes))
	}

	price := base
	step := func(label string, next decimal.Decimal) {
		if !next.Equal(price) {
			trail("%s: %s -> %s", label, price.StringFixed(2), next.StringFixed(2))
			price = next
		}
	}

	switch rules.MarkupType {
	case MarkupTypeFixed:
		step(fmt.Sprintf("markup +%s", rules.MarkupValue.String()), price.Add(rules.MarkupValue))
	default:
		step(fmt.Sprintf("markup %s%%", rules.MarkupValue.String()),
			price.Mul(decimal.NewFromInt(1).Add(rules.MarkupValue.Div(hundred))))
	}
	step(fmt.Sprintf("expenses +%s", rules.AdditionalExpenses.String()), price.Add(rules.AdditionalExpenses))
	if rules.CommissionPercentage.IsPositive() {
		keep := decimal.NewFromInt(1).Sub(rules.CommissionPercentage.Div(hundred))
		step(fmt.Sprintf("commission %s%%", rules.CommissionPercentage.String()), price.DivRound(keep, 8))
	}
	if rules.RoundingRule != "" && rules.RoundingRule != valueobject.RoundingNone {
		step(fmt.Sprintf("rounding %s", rules.RoundingRule), rules.RoundingRule.Apply(price))
	}
	if mrc != nil && price.LessThan(*mrc) {
		warn("price %s below enforced MRC %s, raised to MRC", price.StringFixed(2), mrc.StringFixed(2))
		step("mrc", *mrc)
	}
	if rules.MinPrice != nil && price.LessThan(*rules.MinPrice) {
		step("min price", *rules.MinPrice)
	}
	if rules.MaxPrice != nil && price.GreaterThan(*rules.MaxPrice) {
		step("max price", *rules.MaxPrice)
	}

	calc.Currency = ref
	if display := rules.Display(); display != ref {
		out, err := rates.Convert(price, ref, display)
		if err != nil {
			warn("no %s rate, price stays in %s", display, ref)
		} else {
			trail("display %s %s -> %s %s", price.StringFixed(2), ref, out.StringFixed(2), display)
			price = out
			calc.Currency = display
		}
	}

	calc.Price = valueobject.RoundPrice(price)
	trail("final %s %s", calc.Price.StringFixed(2), calc.Currency)
	return calc
}
