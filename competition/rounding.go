/*
rounding.go - Adjustment and rounding utilities for target calculation

PURPOSE:
  Pure numeric helpers used by the automatic target calculation path:
  apply a percentage adjustment to a base value, then round the result to
  N decimal places under a selectable policy.

ROUNDING POLICIES:
  nearest  round half away from zero at the requested precision
  up       ceiling at the requested precision
  down     floor at the requested precision

  ApplyRounding(2.345, up, 2)      = 2.35
  ApplyRounding(2.345, down, 2)    = 2.34
  ApplyRounding(2.345, nearest, 2) = 2.35 (half away from zero)

All arithmetic stays in decimal space; floats never enter the pipeline.
*/
package competition

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// ROUNDING METHOD
// =============================================================================

type RoundingMethod string

const (
	RoundNearest RoundingMethod = "nearest"
	RoundUp      RoundingMethod = "up"
	RoundDown    RoundingMethod = "down"
)

// ParseRoundingMethod validates a caller-supplied rounding method selector.
func ParseRoundingMethod(s string) (RoundingMethod, error) {
	switch RoundingMethod(s) {
	case RoundNearest, RoundUp, RoundDown:
		return RoundingMethod(s), nil
	default:
		return "", NewValidationf("roundingMethod", "método de arredondamento inválido: %q", s)
	}
}

// =============================================================================
// ADJUSTMENT + ROUNDING
// =============================================================================

var oneHundred = decimal.NewFromInt(100)

// ApplyAdjustment returns base x (1 + pct/100). A pct of 10 raises the base
// by ten percent; negative percentages lower it.
func ApplyAdjustment(base decimal.Decimal, pct decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(pct.Div(oneHundred))
	return base.Mul(factor)
}

// ApplyRounding rounds v to places decimal places under the given policy.
func ApplyRounding(v decimal.Decimal, method RoundingMethod, places int32) decimal.Decimal {
	switch method {
	case RoundUp:
		return v.RoundCeil(places)
	case RoundDown:
		return v.RoundFloor(places)
	default:
		// Round is half-away-from-zero, deterministic for the .5 case.
		return v.Round(places)
	}
}
