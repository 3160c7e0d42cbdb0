/*
Package parameter owns effective-dated target versions.

PURPOSE:
  A parameter (meta) is a target value for one (criterion, sector, period)
  tuple, valid over an effective-date window. Targets are never edited in
  place: every change creates a successor version and closes the
  predecessor's window, so past outcomes stay reconstructible.

KEY CONCEPTS IN THIS FILE (types.go):
  - Version: One time-bounded target value with audit fields
  - Tuple: The (criterion, sector-or-nil, period) identity shared by all
    versions of one target
  - Metadata: Discriminated manual/auto provenance of the value

INVARIANTS:
  1. At most one version per tuple is effective at any instant
  2. Values keep their original decimal precision (no float round-trips)
  3. Versions of non-PLANEJAMENTO periods are immutable
  4. Deletion is soft, requires a justification, and never touches history

SEE ALSO:
  - service.go: The operations enforcing these invariants
  - store.go: Persistence interface
*/
package parameter

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Felipe2077/premiacaovpio-sub002/competition"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type VersionID string

// Tuple is the identity shared by every version of one target. A nil
// SectorID means the target applies to all sectors ("meta geral").
type Tuple struct {
	CriterionID competition.CriterionID
	SectorID    *competition.SectorID
	PeriodID    competition.PeriodID
}

func (t Tuple) SameAs(other Tuple) bool {
	if t.CriterionID != other.CriterionID || t.PeriodID != other.PeriodID {
		return false
	}
	if (t.SectorID == nil) != (other.SectorID == nil) {
		return false
	}
	return t.SectorID == nil || *t.SectorID == *other.SectorID
}

// =============================================================================
// METADATA - Provenance of the target value
// =============================================================================

type Source string

const (
	SourceManual Source = "manual"
	SourceAuto   Source = "auto"
)

// Metadata records where a version's value came from. The calculation
// fields are meaningful only when Source is SourceAuto.
type Metadata struct {
	Source            Source
	Method            competition.CalcMethod
	AdjustmentPercent decimal.Decimal
	BaseValue         decimal.Decimal
	RoundingMethod    competition.RoundingMethod
	DecimalPlaces     int32
}

func ManualMetadata() Metadata {
	return Metadata{Source: SourceManual}
}

func AutoMetadata(method competition.CalcMethod, adjustmentPct, baseValue decimal.Decimal, rounding competition.RoundingMethod, places int32) Metadata {
	return Metadata{
		Source:            SourceAuto,
		Method:            method,
		AdjustmentPercent: adjustmentPct,
		BaseValue:         baseValue,
		RoundingMethod:    rounding,
		DecimalPlaces:     places,
	}
}

// =============================================================================
// VERSION - One time-bounded target value
// =============================================================================

type Version struct {
	ID    VersionID
	Tuple Tuple

	Valor decimal.Decimal

	// Effective window. EffectiveTo nil means open-ended; when set it is the
	// last day the version applies (supersession closes the predecessor one
	// day before the successor starts).
	EffectiveFrom competition.Date
	EffectiveTo   *competition.Date

	Justification string
	CreatedBy     string
	CreatedAt     time.Time
	Metadata      Metadata

	// Soft delete
	DeletedAt     *time.Time
	DeletedBy     string
	DeleteReason  string
}

// IsDeleted reports whether the version was soft-deleted.
func (v *Version) IsDeleted() bool { return v.DeletedAt != nil }

// IsOpen reports whether the version is still effective or open-ended as of
// the given day: its window has not been closed in the past.
func (v *Version) IsOpen(asOf competition.Date) bool {
	if v.IsDeleted() {
		return false
	}
	return v.EffectiveTo == nil || v.EffectiveTo.AfterOrEqual(asOf)
}

// IsPurelyHistorical reports whether the version's window has both started
// and ended before the given day.
func (v *Version) IsPurelyHistorical(asOf competition.Date) bool {
	return v.EffectiveTo != nil && v.EffectiveFrom.Before(asOf) && v.EffectiveTo.Before(asOf)
}
