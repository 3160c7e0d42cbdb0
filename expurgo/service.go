/*
service.go - Exclusion request state machine

PURPOSE:
  Implements request, approve and reject with every guard the workflow
  demands: field minima, the eligible-criteria allow-list, duplicate
  PENDENTE detection, one-way transitions, approval authority, and the
  partial-approval rule.

PARTIAL APPROVAL:
  APROVADO_PARCIAL is never chosen by the approver. It is derived: when the
  approved value's magnitude is strictly below the requested magnitude the
  request is partially approved; equal magnitude is a full approval.
*/
package expurgo

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Felipe2077/premiacaovpio-sub002/competition"
)

// =============================================================================
// ELIGIBLE CRITERIA - Fixed allow-list, matched case-insensitively by name
// =============================================================================

var eligibleCriteria = map[string]struct{}{
	"QUEBRA":     {},
	"DEFEITO":    {},
	"KM OCIOSA":  {},
	"FALTA FUNC": {},
	"ATRASO":     {},
	"PEÇAS":      {},
	"PNEUS":      {},
}

// CriterionEligible reports whether a criterion name accepts exclusion
// requests.
func CriterionEligible(nome string) bool {
	_, ok := eligibleCriteria[strings.ToUpper(strings.TrimSpace(nome))]
	return ok
}

// Validation minima, part of the external contract.
const (
	minDescricao          = 10
	minJustSolicitacao    = 20
	minJustDecisao        = 10
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	store    Store
	ref      competition.RefData
	audit    competition.AuditSink
	notifier Notifier

	// Serializes request creation so the duplicate-PENDENTE check cannot
	// race with a concurrent insert for the same key.
	mu sync.Mutex

	now func() time.Time
}

func NewService(store Store, ref competition.RefData, audit competition.AuditSink, notifier Notifier) *Service {
	if audit == nil {
		audit = competition.NopSink{}
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{store: store, ref: ref, audit: audit, notifier: notifier, now: time.Now}
}

// =============================================================================
// REQUEST
// =============================================================================

type RequestInput struct {
	PeriodID    competition.PeriodID
	SectorID    competition.SectorID
	CriterionID competition.CriterionID
	DataEvento  string // YYYY-MM-DD

	DescricaoEvento          string
	JustificativaSolicitacao string
	ValorSolicitado          string
	Anexos                   []string
}

// Request files a new exclusion request in PENDENTE against an open period.
func (s *Service) Request(ctx context.Context, in RequestInput, requester competition.Actor) (*Expurgo, error) {
	if !requester.Authenticated() {
		return nil, competition.NewAuthorization("solicitante não autenticado")
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.DescricaoEvento)) < minDescricao {
		return nil, competition.NewValidationf("descricaoEvento", "descrição do evento deve ter pelo menos %d caracteres", minDescricao)
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.JustificativaSolicitacao)) < minJustSolicitacao {
		return nil, competition.NewValidationf("justificativaSolicitacao", "justificativa deve ter pelo menos %d caracteres", minJustSolicitacao)
	}
	valor, err := parseNonZeroValor("valorSolicitado", in.ValorSolicitado)
	if err != nil {
		return nil, err
	}
	dataEvento, err := competition.ParseDate(in.DataEvento)
	if err != nil {
		return nil, competition.NewValidation("dataEvento", "data do evento inválida, formato esperado YYYY-MM-DD")
	}

	period, err := s.ref.GetPeriod(ctx, in.PeriodID)
	if err != nil {
		return nil, err
	}
	if period == nil || !period.AcceptsExpurgoRequests() {
		return nil, competition.NewNotFoundf("período %d não existe ou não está aberto para solicitações", in.PeriodID)
	}
	sector, err := s.ref.GetSector(ctx, in.SectorID)
	if err != nil {
		return nil, err
	}
	if sector == nil {
		return nil, competition.NewNotFoundf("setor %d não encontrado", in.SectorID)
	}
	criterion, err := s.ref.GetCriterion(ctx, in.CriterionID)
	if err != nil {
		return nil, err
	}
	if criterion == nil {
		return nil, competition.NewNotFoundf("critério %d não encontrado", in.CriterionID)
	}
	if !CriterionEligible(criterion.Nome) {
		return nil, competition.NewValidationf("criterionId", "critério %q não é elegível para expurgo", criterion.Nome)
	}

	e := &Expurgo{
		ID:                       ExpurgoID(uuid.NewString()),
		PeriodID:                 in.PeriodID,
		SectorID:                 in.SectorID,
		CriterionID:              in.CriterionID,
		DataEvento:               dataEvento,
		DescricaoEvento:          strings.TrimSpace(in.DescricaoEvento),
		JustificativaSolicitacao: strings.TrimSpace(in.JustificativaSolicitacao),
		ValorSolicitado:          valor,
		Status:                   StatusPendente,
		RegistradoPor:            requester.ID,
		RegistradoEm:             s.now(),
		Anexos:                   in.Anexos,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.store.WithTx(ctx, func(tx Store) error {
		pending, err := tx.FindPending(ctx, in.PeriodID, in.SectorID, in.CriterionID, dataEvento)
		if err != nil {
			return err
		}
		if pending != nil {
			return competition.NewConflictf("já existe um expurgo pendente para este critério/setor em %s", dataEvento)
		}
		return tx.Insert(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, competition.AuditExpurgoRequested, requester.ID, e, map[string]any{
		"valor_solicitado": valor.String(),
	})
	s.notifier.NotifyApprovers(ctx, e)
	return e, nil
}

// =============================================================================
// APPROVE
// =============================================================================

type DecisionInput struct {
	ValorAprovado          string
	JustificativaAprovacao string
	JustificativaRejeicao  string
	Observacoes            string
}

// Approve decides a PENDENTE request. The resulting status is APROVADO, or
// APROVADO_PARCIAL when the approved magnitude is strictly below the
// requested magnitude.
func (s *Service) Approve(ctx context.Context, id ExpurgoID, in DecisionInput, approver competition.Actor) (*Expurgo, error) {
	if !approver.CanApprove() {
		return nil, competition.NewAuthorization("usuário não possui permissão para aprovar expurgos")
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.JustificativaAprovacao)) < minJustDecisao {
		return nil, competition.NewValidationf("justificativaAprovacao", "justificativa de aprovação deve ter pelo menos %d caracteres", minJustDecisao)
	}
	valorAprovado, err := parseNonZeroValor("valorAprovado", in.ValorAprovado)
	if err != nil {
		return nil, err
	}

	var approved *Expurgo
	err = s.store.WithTx(ctx, func(tx Store) error {
		e, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if e == nil {
			return competition.NewNotFoundf("expurgo %s não encontrado", id)
		}
		if e.Status != StatusPendente {
			return competition.NewConflictf("Status atual %s não pode ser aprovado", e.Status)
		}
		if valorAprovado.Abs().GreaterThan(e.ValorSolicitado.Abs()) {
			return competition.NewValidationf("valorAprovado", "valor aprovado %s excede o valor solicitado %s", valorAprovado, e.ValorSolicitado)
		}

		e.Status = StatusAprovado
		if valorAprovado.Abs().LessThan(e.ValorSolicitado.Abs()) {
			e.Status = StatusAprovadoParcial
		}
		now := s.now()
		e.ValorAprovado = &valorAprovado
		e.AprovadoPor = approver.ID
		e.DecididoEm = &now
		e.JustificativaAprovacao = strings.TrimSpace(in.JustificativaAprovacao)
		e.Observacoes = strings.TrimSpace(in.Observacoes)

		if err := tx.Update(ctx, e); err != nil {
			return err
		}
		approved = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, competition.AuditExpurgoApproved, approver.ID, approved, map[string]any{
		"valor_aprovado": valorAprovado.String(),
		"status":         string(approved.Status),
	})
	return approved, nil
}

// =============================================================================
// REJECT
// =============================================================================

// Reject decides a PENDENTE request with no numeric effect on scoring.
func (s *Service) Reject(ctx context.Context, id ExpurgoID, in DecisionInput, approver competition.Actor) (*Expurgo, error) {
	if !approver.CanApprove() {
		return nil, competition.NewAuthorization("usuário não possui permissão para rejeitar expurgos")
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.JustificativaRejeicao)) < minJustDecisao {
		return nil, competition.NewValidationf("justificativaRejeicao", "justificativa de rejeição deve ter pelo menos %d caracteres", minJustDecisao)
	}

	var rejected *Expurgo
	err := s.store.WithTx(ctx, func(tx Store) error {
		e, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if e == nil {
			return competition.NewNotFoundf("expurgo %s não encontrado", id)
		}
		if e.Status != StatusPendente {
			return competition.NewConflictf("Status atual %s não pode ser rejeitado", e.Status)
		}

		now := s.now()
		e.Status = StatusRejeitado
		e.AprovadoPor = approver.ID
		e.DecididoEm = &now
		e.JustificativaRejeicao = strings.TrimSpace(in.JustificativaRejeicao)
		e.Observacoes = strings.TrimSpace(in.Observacoes)

		if err := tx.Update(ctx, e); err != nil {
			return err
		}
		rejected = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, competition.AuditExpurgoRejected, approver.ID, rejected, nil)
	return rejected, nil
}

// =============================================================================
// READ PATHS
// =============================================================================

func (s *Service) GetByID(ctx context.Context, id ExpurgoID) (*Expurgo, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, competition.NewNotFoundf("expurgo %s não encontrado", id)
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Expurgo, error) {
	return s.store.List(ctx, filter)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseNonZeroValor(field, raw string) (decimal.Decimal, error) {
	valor, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, competition.NewValidationf(field, "valor %q não é um número válido", raw)
	}
	if valor.IsZero() {
		return decimal.Zero, competition.NewValidationf(field, "valor deve ser diferente de zero")
	}
	return valor, nil
}

func (s *Service) recordAudit(ctx context.Context, action competition.AuditAction, actor string, e *Expurgo, extra map[string]any) {
	payload := map[string]any{
		"expurgo_id":   string(e.ID),
		"period_id":    int64(e.PeriodID),
		"sector_id":    int64(e.SectorID),
		"criterion_id": int64(e.CriterionID),
		"data_evento":  e.DataEvento.String(),
	}
	for k, v := range extra {
		payload[k] = v
	}
	s.audit.Record(ctx, competition.AuditEvent{
		Timestamp: s.now(),
		ActorID:   actor,
		Action:    action,
		Payload:   payload,
	})
}
