/*
Package expurgo implements the measurement-exclusion approval workflow.

PURPOSE:
  An expurgo is a request to exclude or reduce a recorded measurement from
  scoring for one event date, subject to approval. The package owns the
  request lifecycle:

      PENDENTE ──▶ APROVADO
               ──▶ APROVADO_PARCIAL   (approved below the requested amount)
               ──▶ REJEITADO

  Transitions are one-way; terminal states are final. The approved value is
  the adjustment downstream scoring applies to the realized measurement.

VALIDATION CONTRACT:
  - Event description: at least 10 characters
  - Request justification: at least 20 characters
  - Decision justification: at least 10 characters
  - Requested/approved values: non-zero, |approved| <= |requested|
  - Only one PENDENTE request per (period, sector, criterion, event date)
  - Only the fixed eligible criteria accept exclusion requests

SEE ALSO:
  - service.go: The state machine and its guards
  - store.go: Persistence interface
*/
package expurgo

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Felipe2077/premiacaovpio-sub002/competition"
)

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPendente        Status = "PENDENTE"
	StatusAprovado        Status = "APROVADO"
	StatusAprovadoParcial Status = "APROVADO_PARCIAL"
	StatusRejeitado       Status = "REJEITADO"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool { return s != StatusPendente }

// =============================================================================
// EXPURGO - One exclusion request
// =============================================================================

type ExpurgoID string

type Expurgo struct {
	ID ExpurgoID

	PeriodID    competition.PeriodID
	SectorID    competition.SectorID
	CriterionID competition.CriterionID
	DataEvento  competition.Date

	DescricaoEvento          string
	JustificativaSolicitacao string
	ValorSolicitado          decimal.Decimal
	ValorAprovado            *decimal.Decimal // nil until decided

	Status Status

	RegistradoPor string
	RegistradoEm  time.Time

	AprovadoPor            string
	DecididoEm             *time.Time
	JustificativaAprovacao string
	JustificativaRejeicao  string
	Observacoes            string

	// References to externally stored attachments, zero or more.
	Anexos []string
}

// EffectiveAdjustment is the value downstream scoring subtracts from the
// realized measurement: the approved value for approved requests, zero
// otherwise.
func (e *Expurgo) EffectiveAdjustment() decimal.Decimal {
	if e.ValorAprovado == nil {
		return decimal.Zero
	}
	switch e.Status {
	case StatusAprovado, StatusAprovadoParcial:
		return *e.ValorAprovado
	default:
		return decimal.Zero
	}
}
