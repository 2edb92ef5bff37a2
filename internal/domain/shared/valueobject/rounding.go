package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RoundingRule is a price rounding policy applied after commission gross-up.
type RoundingRule string

const (
	RoundingNone       RoundingRule = "none"
	RoundingUp10       RoundingRule = "up_10"
	RoundingUp50       RoundingRule = "up_50"
	RoundingUp100      RoundingRule = "up_100"
	RoundingDown10     RoundingRule = "down_10"
	RoundingDown50     RoundingRule = "down_50"
	RoundingDown100    RoundingRule = "down_100"
	RoundingNearest10  RoundingRule = "nearest_10"
	RoundingNearest50  RoundingRule = "nearest_50"
	RoundingNearest100 RoundingRule = "nearest_100"
	Rounding99Ending   RoundingRule = "99_ending"
	Rounding90Ending   RoundingRule = "90_ending"
)

type roundingMode int

const (
	modeNone roundingMode = iota
	modeUp
	modeDown
	modeNearest
	modeEnding
)

type roundingSpec struct {
	mode roundingMode
	step int64
}

var roundingRules = map[RoundingRule]roundingSpec{
	RoundingNone:       {modeNone, 0},
	RoundingUp10:       {modeUp, 10},
	RoundingUp50:       {modeUp, 50},
	RoundingUp100:      {modeUp, 100},
	RoundingDown10:     {modeDown, 10},
	RoundingDown50:     {modeDown, 50},
	RoundingDown100:    {modeDown, 100},
	RoundingNearest10:  {modeNearest, 10},
	RoundingNearest50:  {modeNearest, 50},
	RoundingNearest100: {modeNearest, 100},
	Rounding99Ending:   {modeEnding, 99},
	Rounding90Ending:   {modeEnding, 90},
}

var hundred = decimal.NewFromInt(100)

// ParseRoundingRule validates a rule name. The empty string means none.
func ParseRoundingRule(s string) (RoundingRule, error) {
	if s == "" {
		return RoundingNone, nil
	}
	r := RoundingRule(s)
	if _, ok := roundingRules[r]; !ok {
		return "", fmt.Errorf("unknown rounding rule %q", s)
	}
	return r, nil
}

// IsValid reports whether r is a known rule
func (r RoundingRule) IsValid() bool {
	_, ok := roundingRules[r]
	return ok || r == ""
}

// Apply rounds value according to the rule. Ending rules floor to the
// hundred and then add the ending, so 133 becomes 199 under 99_ending.
func (r RoundingRule) Apply(value decimal.Decimal) decimal.Decimal {
	spec, ok := roundingRules[r]
	if !ok {
		return value
	}
	step := decimal.NewFromInt(spec.step)
	switch spec.mode {
	case modeUp:
		return value.Div(step).Ceil().Mul(step)
	case modeDown:
		return value.Div(step).Floor().Mul(step)
	case modeNearest:
		return value.Div(step).Round(0).Mul(step)
	case modeEnding:
		return value.Div(hundred).Floor().Mul(hundred).Add(step)
	default:
		return value
	}
}

// RoundPrice rounds a final price to two decimals
func RoundPrice(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}
