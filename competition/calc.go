/*
calc.go - Calculation method resolver for automatic targets

PURPOSE:
  Produces a single base value from the historical realized measurements of
  one (criterion, sector) pair. The parameter service then applies the
  adjustment percentage and rounding policy on top of this base.

METHODS:
  media3   arithmetic mean of the 3 most recent closed measurements
  media6   arithmetic mean of the 6 most recent closed measurements
  ultimo   the single most recent closed measurement
  melhor3  best of the 3 most recent closed measurements; "best" follows the
           criterion's better direction (max when MAIOR, min when MENOR)

Every method answers over closed measurements only, newest first. Zero
qualifying points means no base value can be produced; the caller surfaces
that as an "insufficient historical data" validation failure.

SEE ALSO:
  - parameter/service.go: CalculateAutomatic, the only caller
*/
package competition

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CALCULATION METHOD
// =============================================================================

type CalcMethod string

const (
	CalcMedia3  CalcMethod = "media3"
	CalcMedia6  CalcMethod = "media6"
	CalcUltimo  CalcMethod = "ultimo"
	CalcMelhor3 CalcMethod = "melhor3"
)

// ParseCalcMethod validates a caller-supplied method selector.
func ParseCalcMethod(s string) (CalcMethod, error) {
	switch CalcMethod(s) {
	case CalcMedia3, CalcMedia6, CalcUltimo, CalcMelhor3:
		return CalcMethod(s), nil
	default:
		return "", NewValidationf("calculationMethod", "método de cálculo inválido: %q", s)
	}
}

func (m CalcMethod) window() int {
	switch m {
	case CalcMedia6:
		return 6
	case CalcUltimo:
		return 1
	default:
		return 3
	}
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver computes base values from closed measurement history.
type Resolver struct {
	Measurements MeasurementProvider
}

func NewResolver(measurements MeasurementProvider) *Resolver {
	return &Resolver{Measurements: measurements}
}

// BaseValue resolves the base value for the pair under the given method.
// Returns (nil, nil) when zero measurements qualify; the caller decides how
// to report insufficient history.
func (r *Resolver) BaseValue(ctx context.Context, method CalcMethod, criterion *Criterion, sectorID SectorID) (*decimal.Decimal, error) {
	records, err := r.Measurements.ListClosedMeasurements(ctx, criterion.ID, sectorID, method.window())
	if err != nil {
		return nil, err
	}

	values := qualifying(records, method.window())
	if len(values) == 0 {
		return nil, nil
	}

	var base decimal.Decimal
	switch method {
	case CalcUltimo:
		base = values[0]
	case CalcMelhor3:
		base = bestOf(values, criterion.SentidoMelhor)
	default:
		base = mean(values)
	}
	return &base, nil
}

// qualifying keeps the first n closed values, defending against providers
// that return more rows than asked or rows in other states.
func qualifying(records []MeasurementRecord, n int) []decimal.Decimal {
	var values []decimal.Decimal
	for _, rec := range records {
		if rec.Status != MeasurementClosed {
			continue
		}
		values = append(values, rec.Valor)
		if len(values) == n {
			break
		}
	}
	return values
}

func mean(values []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values))))
}

func bestOf(values []decimal.Decimal, direction Direction) decimal.Decimal {
	best := values[0]
	for _, v := range values[1:] {
		if direction == DirectionMenor {
			if v.LessThan(best) {
				best = v
			}
		} else if v.GreaterThan(best) {
			best = v
		}
	}
	return best
}
