/*
service.go - Target version operations

PURPOSE:
  Implements the four mutations on target versions (create, supersede,
  soft-delete, automatic calculation) and the read paths. All lifecycle and
  uniqueness invariants are enforced here; the store only persists.

SUPERSESSION:
  "Updating" a target never mutates the existing version. The current
  version's window is closed (by default one day before the successor
  starts) and a successor is inserted, both inside one store transaction.
  A coarse mutex serializes concurrent supersessions in-process so the
  open-version check cannot race; the losing writer gets a conflict.

SEE ALSO:
  - competition/calc.go: Base value resolution for CalculateAutomatic
  - competition/rounding.go: Adjustment and rounding applied on top
*/
package parameter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Felipe2077/premiacaovpio-sub002/competition"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	store    Store
	ref      competition.RefData
	resolver *competition.Resolver
	audit    competition.AuditSink

	// Serializes mutations so the open-version check is race-free. Coarse,
	// but target mutations happen only during planning windows.
	mu sync.Mutex

	now func() time.Time
}

func NewService(store Store, ref competition.RefData, resolver *competition.Resolver, audit competition.AuditSink) *Service {
	if audit == nil {
		audit = competition.NopSink{}
	}
	return &Service{
		store:    store,
		ref:      ref,
		resolver: resolver,
		audit:    audit,
		now:      time.Now,
	}
}

// =============================================================================
// CREATE
// =============================================================================

type CreateInput struct {
	CriterionID   competition.CriterionID
	SectorID      *competition.SectorID
	PeriodID      competition.PeriodID
	Valor         string // parsed as decimal; original precision is kept
	EffectiveFrom competition.Date
	Justification string
	Actor         string
}

// Create stores the first version of a target. Fails when a version for the
// tuple is already open; supersession goes through CreateNewVersion.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Version, error) {
	valor, err := parseValor(in.Valor)
	if err != nil {
		return nil, err
	}
	if err := requireJustification(in.Justification); err != nil {
		return nil, err
	}
	if _, err := s.requireCriterion(ctx, in.CriterionID); err != nil {
		return nil, err
	}
	if err := s.requireSector(ctx, in.SectorID); err != nil {
		return nil, err
	}
	if err := s.requirePlanningPeriod(ctx, in.PeriodID); err != nil {
		return nil, err
	}
	if in.EffectiveFrom.IsZero() {
		return nil, competition.NewValidation("effectiveFrom", "data de início de vigência é obrigatória")
	}

	tuple := Tuple{CriterionID: in.CriterionID, SectorID: in.SectorID, PeriodID: in.PeriodID}
	version := s.newVersion(tuple, valor, in.EffectiveFrom, in.Justification, in.Actor, ManualMetadata())

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.FindOpen(ctx, tuple, competition.DateOf(s.now()))
		if err != nil {
			return err
		}
		if existing != nil {
			return competition.NewConflictf("já existe uma meta vigente para este critério/setor no período (versão %s)", existing.ID)
		}
		return tx.Insert(ctx, version)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, competition.AuditParameterCreated, in.Actor, version, nil)
	return version, nil
}

// =============================================================================
// CREATE NEW VERSION (supersession)
// =============================================================================

type NewVersionInput struct {
	ParameterID VersionID
	NewValor    string
	Justification string
	// EffectiveFrom of the successor; today when zero.
	EffectiveFrom competition.Date
	// EffectiveToOfPrevious overrides the default close date (one day
	// before the successor starts).
	EffectiveToOfPrevious *competition.Date
	Actor                 string
}

// CreateNewVersion closes the current version's window and inserts a
// successor with the same tuple identity, atomically.
func (s *Service) CreateNewVersion(ctx context.Context, in NewVersionInput) (*Version, error) {
	valor, err := parseValor(in.NewValor)
	if err != nil {
		return nil, err
	}
	if err := requireJustification(in.Justification); err != nil {
		return nil, err
	}

	current, err := s.store.GetByID(ctx, in.ParameterID)
	if err != nil {
		return nil, err
	}
	if current == nil || current.IsDeleted() {
		return nil, competition.NewNotFoundf("meta %s não encontrada", in.ParameterID)
	}

	period, err := s.ref.GetPeriod(ctx, current.Tuple.PeriodID)
	if err != nil {
		return nil, err
	}
	if period == nil || !period.AcceptsTargetChanges() {
		return nil, competition.NewConflictf("período %d não está mais em planejamento; a meta é imutável", current.Tuple.PeriodID)
	}

	effectiveFrom := in.EffectiveFrom
	if effectiveFrom.IsZero() {
		effectiveFrom = competition.DateOf(s.now())
	}
	if effectiveFrom.Before(current.EffectiveFrom) {
		return nil, competition.NewConflictf("nova vigência %s precede a vigência atual %s", effectiveFrom, current.EffectiveFrom)
	}

	closeAt := effectiveFrom.AddDays(-1)
	if in.EffectiveToOfPrevious != nil {
		closeAt = *in.EffectiveToOfPrevious
	}
	if !closeAt.Before(effectiveFrom) {
		return nil, competition.NewValidation("effectiveToOfPrevious", "o fim da vigência anterior deve ser anterior ao início da nova")
	}

	successor := s.newVersion(current.Tuple, valor, effectiveFrom, in.Justification, in.Actor, ManualMetadata())

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.store.WithTx(ctx, func(tx Store) error {
		// Re-read inside the transaction: a concurrent supersession must
		// lose with a conflict, not silently fork the timeline.
		fresh, err := tx.GetByID(ctx, current.ID)
		if err != nil {
			return err
		}
		if fresh == nil || fresh.IsDeleted() {
			return competition.NewNotFoundf("meta %s não encontrada", current.ID)
		}
		if fresh.EffectiveTo != nil {
			return competition.NewConflictf("meta %s já foi substituída por uma versão mais recente", current.ID)
		}
		if err := tx.CloseWindow(ctx, current.ID, closeAt); err != nil {
			return err
		}
		return tx.Insert(ctx, successor)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, competition.AuditParameterVersioned, in.Actor, successor, map[string]any{
		"supersedes":  string(current.ID),
		"closed_at":   closeAt.String(),
	})
	return successor, nil
}

// =============================================================================
// DELETE (soft)
// =============================================================================

// Delete soft-deletes a version. Purely historical versions and versions of
// non-editable periods are immutable.
func (s *Service) Delete(ctx context.Context, id VersionID, justification, actor string) error {
	if err := requireJustification(justification); err != nil {
		return err
	}

	version, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if version == nil || version.IsDeleted() {
		return competition.NewNotFoundf("meta %s não encontrada", id)
	}

	period, err := s.ref.GetPeriod(ctx, version.Tuple.PeriodID)
	if err != nil {
		return err
	}
	if period == nil || !period.AcceptsTargetChanges() {
		return competition.NewConflictf("período %d não aceita mais alterações de meta", version.Tuple.PeriodID)
	}
	if version.IsPurelyHistorical(competition.DateOf(s.now())) {
		return competition.NewConflictf("meta %s é puramente histórica e não pode ser excluída", id)
	}

	if err := s.store.SoftDelete(ctx, id, actor, justification, s.now()); err != nil {
		return err
	}

	s.recordAudit(ctx, competition.AuditParameterDeleted, actor, version, map[string]any{
		"justification": justification,
	})
	return nil
}

// =============================================================================
// AUTOMATIC CALCULATION
// =============================================================================

type CalculateInput struct {
	CriterionID       competition.CriterionID
	SectorID          *competition.SectorID
	PeriodID          competition.PeriodID
	Method            competition.CalcMethod
	AdjustmentPercent decimal.Decimal
	RoundingMethod    competition.RoundingMethod
	DecimalPlaces     int32
	EffectiveFrom     competition.Date
	Justification     string // generated when empty
	Actor             string
}

// CalculateAutomatic resolves a base value from closed history, applies the
// adjustment percentage and rounding policy, and stores the result as a new
// version (superseding the open one, if any). The calculation provenance is
// recorded in the version metadata.
func (s *Service) CalculateAutomatic(ctx context.Context, in CalculateInput) (*Version, error) {
	criterion, err := s.requireCriterion(ctx, in.CriterionID)
	if err != nil {
		return nil, err
	}
	if in.SectorID == nil {
		return nil, competition.NewValidation("sectorId", "cálculo automático requer um setor específico")
	}
	if err := s.requireSector(ctx, in.SectorID); err != nil {
		return nil, err
	}
	if err := s.requirePlanningPeriod(ctx, in.PeriodID); err != nil {
		return nil, err
	}
	if in.DecimalPlaces < 0 {
		return nil, competition.NewValidation("decimalPlaces", "casas decimais devem ser não-negativas")
	}

	base, err := s.resolver.BaseValue(ctx, in.Method, criterion, *in.SectorID)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return nil, competition.NewValidation("calculationMethod", "dados históricos insuficientes para o cálculo automático")
	}

	valor := competition.ApplyRounding(
		competition.ApplyAdjustment(*base, in.AdjustmentPercent),
		in.RoundingMethod,
		in.DecimalPlaces,
	)

	justification := strings.TrimSpace(in.Justification)
	if justification == "" {
		justification = fmt.Sprintf("Cálculo automático: %s, ajuste %s%%, base %s", in.Method, in.AdjustmentPercent, base)
	}

	effectiveFrom := in.EffectiveFrom
	if effectiveFrom.IsZero() {
		effectiveFrom = competition.DateOf(s.now())
	}

	tuple := Tuple{CriterionID: in.CriterionID, SectorID: in.SectorID, PeriodID: in.PeriodID}
	metadata := AutoMetadata(in.Method, in.AdjustmentPercent, *base, in.RoundingMethod, in.DecimalPlaces)
	version := s.newVersion(tuple, valor, effectiveFrom, justification, in.Actor, metadata)

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.FindOpen(ctx, tuple, competition.DateOf(s.now()))
		if err != nil {
			return err
		}
		if existing != nil {
			if effectiveFrom.Before(existing.EffectiveFrom) {
				return competition.NewConflictf("nova vigência %s precede a vigência atual %s", effectiveFrom, existing.EffectiveFrom)
			}
			if err := tx.CloseWindow(ctx, existing.ID, effectiveFrom.AddDays(-1)); err != nil {
				return err
			}
		}
		return tx.Insert(ctx, version)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, competition.AuditParameterCalculated, in.Actor, version, map[string]any{
		"method":     string(in.Method),
		"adjustment": in.AdjustmentPercent.String(),
		"base_value": base.String(),
	})
	return version, nil
}

// =============================================================================
// READ PATHS
// =============================================================================

func (s *Service) GetByID(ctx context.Context, id VersionID) (*Version, error) {
	version, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, competition.NewNotFoundf("meta %s não encontrada", id)
	}
	return version, nil
}

func (s *Service) ListByPeriod(ctx context.Context, periodID competition.PeriodID, filter ListFilter) ([]*Version, error) {
	period, err := s.ref.GetPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, competition.NewNotFoundf("período %d não encontrado", periodID)
	}
	return s.store.ListByPeriod(ctx, periodID, filter)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) newVersion(tuple Tuple, valor decimal.Decimal, from competition.Date, justification, actor string, metadata Metadata) *Version {
	return &Version{
		ID:            VersionID(uuid.NewString()),
		Tuple:         tuple,
		Valor:         valor,
		EffectiveFrom: from,
		Justification: strings.TrimSpace(justification),
		CreatedBy:     actor,
		CreatedAt:     s.now(),
		Metadata:      metadata,
	}
}

func parseValor(raw string) (decimal.Decimal, error) {
	valor, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, competition.NewValidationf("value", "valor %q não é um número válido", raw)
	}
	return valor, nil
}

func requireJustification(j string) error {
	if strings.TrimSpace(j) == "" {
		return competition.NewValidation("justification", "justificativa é obrigatória")
	}
	return nil
}

func (s *Service) requireCriterion(ctx context.Context, id competition.CriterionID) (*competition.Criterion, error) {
	criterion, err := s.ref.GetCriterion(ctx, id)
	if err != nil {
		return nil, err
	}
	if criterion == nil {
		return nil, competition.NewValidationf("criterionId", "critério %d não existe", id)
	}
	return criterion, nil
}

func (s *Service) requireSector(ctx context.Context, id *competition.SectorID) error {
	if id == nil {
		return nil // nil sector means a general target
	}
	sector, err := s.ref.GetSector(ctx, *id)
	if err != nil {
		return err
	}
	if sector == nil {
		return competition.NewValidationf("sectorId", "setor %d não existe", *id)
	}
	return nil
}

func (s *Service) requirePlanningPeriod(ctx context.Context, id competition.PeriodID) error {
	period, err := s.ref.GetPeriod(ctx, id)
	if err != nil {
		return err
	}
	if period == nil {
		return competition.NewValidationf("periodId", "período %d não existe", id)
	}
	if !period.AcceptsTargetChanges() {
		return competition.NewValidationf("periodId", "período %d não está em planejamento (status %s)", id, period.Status)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action competition.AuditAction, actor string, v *Version, extra map[string]any) {
	payload := map[string]any{
		"parameter_id": string(v.ID),
		"criterion_id": int64(v.Tuple.CriterionID),
		"period_id":    int64(v.Tuple.PeriodID),
		"valor":        v.Valor.String(),
	}
	if v.Tuple.SectorID != nil {
		payload["sector_id"] = int64(*v.Tuple.SectorID)
	}
	for k, val := range extra {
		payload[k] = val
	}
	s.audit.Record(ctx, competition.AuditEvent{
		Timestamp: s.now(),
		ActorID:   actor,
		Action:    action,
		Payload:   payload,
	})
}
