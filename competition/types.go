/*
Package competition provides the shared domain core for the sector
performance competition engine.

PURPOSE:
  This package contains the types and pure algorithms shared by the three
  subsystems built on top of it: parameter (target) versioning, expurgo
  approvals, and history reconstruction. It has no persistence of its own;
  collaborators are expressed as interfaces implemented in store/.

KEY CONCEPTS IN THIS FILE (types.go):
  - CriterionID/SectorID/PeriodID: Type-safe numeric identifiers
  - Criterion: Scoring criterion metadata, including its "better direction"
  - Sector: A competing organizational unit (garage/branch)
  - Period: A competition cycle with a lifecycle status gating mutability
  - MeasurementRecord: One realized measurement row, as written by the ETL

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point drift
  2. Type Safety: Strong typing for IDs prevents mixing criterion/sector IDs
  3. Thin interfaces: Providers expose exactly what the subsystems read

SEE ALSO:
  - errors.go: Tagged error kinds shared by every subsystem
  - rounding.go: Adjustment and rounding utilities
  - calc.go: Calculation method resolver for automatic targets
*/
package competition

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CriterionID int64
type SectorID int64
type PeriodID int64

// =============================================================================
// CRITERION - What sectors are scored on
// =============================================================================

// Direction is the criterion's "better direction": whether a larger or a
// smaller realized value is the better outcome.
type Direction string

const (
	DirectionMaior Direction = "MAIOR" // higher is better
	DirectionMenor Direction = "MENOR" // lower is better
)

type Criterion struct {
	ID           CriterionID
	Nome         string
	UnidadeMedida string
	SentidoMelhor Direction
	Ativo        bool
}

// =============================================================================
// SECTOR - A competing unit
// =============================================================================

type Sector struct {
	ID    SectorID
	Nome  string
	Ativo bool
}

// =============================================================================
// PERIOD - One competition cycle
// =============================================================================

// PeriodStatus is the lifecycle state of a competition period. Only
// PLANEJAMENTO periods accept target mutations; ATIVA periods additionally
// accept expurgo requests. PRE_FECHADA and FECHADA are read-only.
type PeriodStatus string

const (
	PeriodPlanejamento PeriodStatus = "PLANEJAMENTO"
	PeriodAtiva        PeriodStatus = "ATIVA"
	PeriodPreFechada   PeriodStatus = "PRE_FECHADA"
	PeriodFechada      PeriodStatus = "FECHADA"
)

type Period struct {
	ID      PeriodID
	Mes     string // "2025-06"
	Status  PeriodStatus
	Inicio  Date
	Fim     Date
}

// AcceptsTargetChanges reports whether target versions for this period may
// still be created, superseded or soft-deleted.
func (p Period) AcceptsTargetChanges() bool {
	return p.Status == PeriodPlanejamento
}

// AcceptsExpurgoRequests reports whether new exclusion requests may be filed
// against this period.
func (p Period) AcceptsExpurgoRequests() bool {
	return p.Status == PeriodPlanejamento || p.Status == PeriodAtiva
}

// =============================================================================
// MEASUREMENT - Realized values written by the external ETL
// =============================================================================

// MeasurementStatus mirrors the lifecycle of the period the measurement
// belongs to at the time it was loaded. Only closed measurements feed the
// calculation method resolver.
type MeasurementStatus string

const (
	MeasurementOpen   MeasurementStatus = "ABERTA"
	MeasurementClosed MeasurementStatus = "FECHADA"
)

// MeasurementRecord is one realized measurement for a (criterion, sector)
// pair in a period. A period may hold several records for the same pair
// (one per collection run); consumers average them.
type MeasurementRecord struct {
	PeriodID    PeriodID
	CriterionID CriterionID
	SectorID    SectorID
	Valor       decimal.Decimal
	Status      MeasurementStatus
}

// =============================================================================
// PROVIDERS - Read-only external collaborators
// =============================================================================

// CriterionProvider resolves criterion metadata.
type CriterionProvider interface {
	GetCriterion(ctx context.Context, id CriterionID) (*Criterion, error)
}

// SectorProvider resolves sector metadata.
type SectorProvider interface {
	GetSector(ctx context.Context, id SectorID) (*Sector, error)
}

// PeriodProvider resolves competition periods and their lifecycle status.
type PeriodProvider interface {
	GetPeriod(ctx context.Context, id PeriodID) (*Period, error)
}

// MeasurementProvider reads realized measurements loaded by the ETL.
type MeasurementProvider interface {
	// ListClosedMeasurements returns closed measurements for the pair,
	// newest period first. Used by the calculation method resolver.
	ListClosedMeasurements(ctx context.Context, criterionID CriterionID, sectorID SectorID, limit int) ([]MeasurementRecord, error)

	// ListMeasurements returns all measurements for the pair restricted to
	// the given periods, in no particular order. Used by the history
	// reconstructor, which groups them by period itself.
	ListMeasurements(ctx context.Context, criterionID CriterionID, sectorID SectorID, periodIDs []PeriodID) ([]MeasurementRecord, error)
}

// RefData bundles the three reference providers; every subsystem that
// validates incoming identifiers takes one.
type RefData interface {
	CriterionProvider
	SectorProvider
	PeriodProvider
}
