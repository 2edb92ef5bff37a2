package valueobject

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Weights are stored in kilograms and volumes in cubic metres.
var (
	weightFactors = map[string]decimal.Decimal{
		"kg":  decimal.NewFromInt(1),
		"кг":  decimal.NewFromInt(1),
		"g":   decimal.RequireFromString("0.001"),
		"г":   decimal.RequireFromString("0.001"),
		"gr":  decimal.RequireFromString("0.001"),
		"mg":  decimal.RequireFromString("0.000001"),
		"t":   decimal.NewFromInt(1000),
		"т":   decimal.NewFromInt(1000),
		"lb":  decimal.RequireFromString("0.45359237"),
		"lbs": decimal.RequireFromString("0.45359237"),
		"oz":  decimal.RequireFromString("0.028349523125"),
	}
	volumeFactors = map[string]decimal.Decimal{
		"m3":  decimal.NewFromInt(1),
		"м3":  decimal.NewFromInt(1),
		"l":   decimal.RequireFromString("0.001"),
		"л":   decimal.RequireFromString("0.001"),
		"ml":  decimal.RequireFromString("0.000001"),
		"мл":  decimal.RequireFromString("0.000001"),
		"cm3": decimal.RequireFromString("0.000001"),
		"см3": decimal.RequireFromString("0.000001"),
		"dm3": decimal.RequireFromString("0.001"),
	}
)

// ToKilograms converts a weight in unit to kilograms. An empty unit is
// taken as kilograms.
func ToKilograms(value decimal.Decimal, unit string) (decimal.Decimal, error) {
	return convertMeasure(value, unit, "kg", weightFactors)
}

// ToCubicMetres converts a volume in unit to cubic metres. An empty unit is
// taken as cubic metres.
func ToCubicMetres(value decimal.Decimal, unit string) (decimal.Decimal, error) {
	return convertMeasure(value, unit, "m3", volumeFactors)
}

func convertMeasure(value decimal.Decimal, unit, base string, factors map[string]decimal.Decimal) (decimal.Decimal, error) {
	u := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(unit, ".")))
	if u == "" {
		u = base
	}
	f, ok := factors[u]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown unit %q", unit)
	}
	return value.Mul(f), nil
}
