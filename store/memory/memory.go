/*
Package memory provides in-memory Store implementations (for testing/dev).

PURPOSE:
  Every persistence interface of the engine backed by maps and mutexes:
  parameter versions, exclusion requests, reference data, measurements,
  and an audit recorder tests can assert against.

  WithTx here is not a real transaction: each method is individually
  atomic, and the services serialize their check-then-write sequences with
  their own mutex. The SQLite store provides real transactions.
*/
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Felipe2077/premiacaovpio-sub002/competition"
	"github.com/Felipe2077/premiacaovpio-sub002/expurgo"
	"github.com/Felipe2077/premiacaovpio-sub002/parameter"
)

// =============================================================================
// PARAMETER STORE
// =============================================================================

type ParameterStore struct {
	mu       sync.RWMutex
	versions map[parameter.VersionID]*parameter.Version
	order    []parameter.VersionID
}

func NewParameterStore() *ParameterStore {
	return &ParameterStore{versions: make(map[parameter.VersionID]*parameter.Version)}
}

var _ parameter.Store = (*ParameterStore)(nil)

func (s *ParameterStore) Insert(_ context.Context, v *parameter.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.versions[v.ID] = &cp
	s.order = append(s.order, v.ID)
	return nil
}

func (s *ParameterStore) GetByID(_ context.Context, id parameter.VersionID) (*parameter.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.versions[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (s *ParameterStore) FindOpen(_ context.Context, tuple parameter.Tuple, asOf competition.Date) (*parameter.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		v := s.versions[id]
		if v.Tuple.SameAs(tuple) && v.IsOpen(asOf) {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *ParameterStore) CloseWindow(_ context.Context, id parameter.VersionID, effectiveTo competition.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.versions[id]
	if !ok {
		return competition.NewNotFoundf("meta %s não encontrada", id)
	}
	v.EffectiveTo = &effectiveTo
	return nil
}

func (s *ParameterStore) SoftDelete(_ context.Context, id parameter.VersionID, actor, justification string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.versions[id]
	if !ok {
		return competition.NewNotFoundf("meta %s não encontrada", id)
	}
	v.DeletedAt = &at
	v.DeletedBy = actor
	v.DeleteReason = justification
	return nil
}

func (s *ParameterStore) ListByPeriod(_ context.Context, periodID competition.PeriodID, filter parameter.ListFilter) ([]*parameter.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	today := competition.Today()
	var result []*parameter.Version
	for _, id := range s.order {
		v := s.versions[id]
		if v.Tuple.PeriodID != periodID || v.IsDeleted() {
			continue
		}
		if filter.CriterionID != nil && v.Tuple.CriterionID != *filter.CriterionID {
			continue
		}
		if filter.SectorID != nil && (v.Tuple.SectorID == nil || *v.Tuple.SectorID != *filter.SectorID) {
			continue
		}
		if filter.OnlyActive && !v.IsOpen(today) {
			continue
		}
		cp := *v
		result = append(result, &cp)
	}
	sortVersions(result)
	return result, nil
}

func (s *ParameterStore) ListTimeline(_ context.Context, criterionID competition.CriterionID, sectorID competition.SectorID, limit int) ([]*parameter.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*parameter.Version
	for _, id := range s.order {
		v := s.versions[id]
		if v.IsDeleted() || v.Tuple.CriterionID != criterionID {
			continue
		}
		if v.Tuple.SectorID == nil || *v.Tuple.SectorID != sectorID {
			continue
		}
		cp := *v
		result = append(result, &cp)
	}
	sortVersions(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *ParameterStore) WithTx(ctx context.Context, fn func(parameter.Store) error) error {
	return fn(s)
}

// sortVersions orders newest EffectiveFrom first, ties by newest CreatedAt.
func sortVersions(versions []*parameter.Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		if !versions[i].EffectiveFrom.Equal(versions[j].EffectiveFrom) {
			return versions[j].EffectiveFrom.Before(versions[i].EffectiveFrom)
		}
		return versions[j].CreatedAt.Before(versions[i].CreatedAt)
	})
}

// =============================================================================
// EXPURGO STORE
// =============================================================================

type ExpurgoStore struct {
	mu       sync.RWMutex
	requests map[expurgo.ExpurgoID]*expurgo.Expurgo
	order    []expurgo.ExpurgoID
}

func NewExpurgoStore() *ExpurgoStore {
	return &ExpurgoStore{requests: make(map[expurgo.ExpurgoID]*expurgo.Expurgo)}
}

var _ expurgo.Store = (*ExpurgoStore)(nil)

func (s *ExpurgoStore) Insert(_ context.Context, e *expurgo.Expurgo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.requests[e.ID] = &cp
	s.order = append(s.order, e.ID)
	return nil
}

func (s *ExpurgoStore) GetByID(_ context.Context, id expurgo.ExpurgoID) (*expurgo.Expurgo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *ExpurgoStore) FindPending(_ context.Context, periodID competition.PeriodID, sectorID competition.SectorID, criterionID competition.CriterionID, dataEvento competition.Date) (*expurgo.Expurgo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		e := s.requests[id]
		if e.Status == expurgo.StatusPendente &&
			e.PeriodID == periodID && e.SectorID == sectorID &&
			e.CriterionID == criterionID && e.DataEvento.Equal(dataEvento) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *ExpurgoStore) Update(_ context.Context, e *expurgo.Expurgo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[e.ID]; !ok {
		return competition.NewNotFoundf("expurgo %s não encontrado", e.ID)
	}
	cp := *e
	s.requests[e.ID] = &cp
	return nil
}

func (s *ExpurgoStore) List(_ context.Context, filter expurgo.ListFilter) ([]*expurgo.Expurgo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*expurgo.Expurgo
	for _, id := range s.order {
		e := s.requests[id]
		if !matchesFilter(e, filter) {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[j].RegistradoEm.Before(result[i].RegistradoEm)
	})
	return result, nil
}

func (s *ExpurgoStore) WithTx(ctx context.Context, fn func(expurgo.Store) error) error {
	return fn(s)
}

func matchesFilter(e *expurgo.Expurgo, f expurgo.ListFilter) bool {
	if f.PeriodID != nil && e.PeriodID != *f.PeriodID {
		return false
	}
	if f.SectorID != nil && e.SectorID != *f.SectorID {
		return false
	}
	if f.CriterionID != nil && e.CriterionID != *f.CriterionID {
		return false
	}
	if f.Status != nil && e.Status != *f.Status {
		return false
	}
	if f.DataInicio != nil && e.DataEvento.Before(*f.DataInicio) {
		return false
	}
	if f.DataFim != nil && e.DataEvento.After(*f.DataFim) {
		return false
	}
	if f.RegistradoPor != nil && e.RegistradoPor != *f.RegistradoPor {
		return false
	}
	if f.AprovadoPor != nil && e.AprovadoPor != *f.AprovadoPor {
		return false
	}
	if f.HasAttachments != nil && (len(e.Anexos) > 0) != *f.HasAttachments {
		return false
	}
	if f.ValorMin != nil && e.ValorSolicitado.Abs().LessThan(f.ValorMin.Abs()) {
		return false
	}
	if f.ValorMax != nil && e.ValorSolicitado.Abs().GreaterThan(f.ValorMax.Abs()) {
		return false
	}
	return true
}

// =============================================================================
// REFERENCE DATA + MEASUREMENTS - Fixture provider
// =============================================================================

type RefData struct {
	mu           sync.RWMutex
	criteria     map[competition.CriterionID]competition.Criterion
	sectors      map[competition.SectorID]competition.Sector
	periods      map[competition.PeriodID]competition.Period
	measurements []competition.MeasurementRecord
}

func NewRefData() *RefData {
	return &RefData{
		criteria: make(map[competition.CriterionID]competition.Criterion),
		sectors:  make(map[competition.SectorID]competition.Sector),
		periods:  make(map[competition.PeriodID]competition.Period),
	}
}

var _ competition.RefData = (*RefData)(nil)
var _ competition.MeasurementProvider = (*RefData)(nil)

func (r *RefData) AddCriterion(c competition.Criterion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.criteria[c.ID] = c
}

func (r *RefData) AddSector(s competition.Sector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sectors[s.ID] = s
}

func (r *RefData) AddPeriod(p competition.Period) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.periods[p.ID] = p
}

// SetPeriodStatus moves an existing period to a new lifecycle state.
func (r *RefData) SetPeriodStatus(id competition.PeriodID, status competition.PeriodStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.periods[id]
	if !ok {
		return
	}
	p.Status = status
	r.periods[id] = p
}

func (r *RefData) AddMeasurement(m competition.MeasurementRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.measurements = append(r.measurements, m)
}

func (r *RefData) ListCriteria(_ context.Context) ([]competition.Criterion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]competition.Criterion, 0, len(r.criteria))
	for _, c := range r.criteria {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *RefData) ListSectors(_ context.Context) ([]competition.Sector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]competition.Sector, 0, len(r.sectors))
	for _, s := range r.sectors {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *RefData) GetCriterion(_ context.Context, id competition.CriterionID) (*competition.Criterion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.criteria[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *RefData) GetSector(_ context.Context, id competition.SectorID) (*competition.Sector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sectors[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *RefData) GetPeriod(_ context.Context, id competition.PeriodID) (*competition.Period, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.periods[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *RefData) ListClosedMeasurements(_ context.Context, criterionID competition.CriterionID, sectorID competition.SectorID, limit int) ([]competition.MeasurementRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []competition.MeasurementRecord
	for _, m := range r.measurements {
		if m.CriterionID == criterionID && m.SectorID == sectorID && m.Status == competition.MeasurementClosed {
			result = append(result, m)
		}
	}
	// Newest period first. Period IDs are assigned chronologically.
	sort.SliceStable(result, func(i, j int) bool { return result[i].PeriodID > result[j].PeriodID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *RefData) ListMeasurements(_ context.Context, criterionID competition.CriterionID, sectorID competition.SectorID, periodIDs []competition.PeriodID) ([]competition.MeasurementRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[competition.PeriodID]struct{}, len(periodIDs))
	for _, id := range periodIDs {
		wanted[id] = struct{}{}
	}

	var result []competition.MeasurementRecord
	for _, m := range r.measurements {
		if m.CriterionID != criterionID || m.SectorID != sectorID {
			continue
		}
		if _, ok := wanted[m.PeriodID]; !ok {
			continue
		}
		result = append(result, m)
	}
	return result, nil
}

// =============================================================================
// AUDIT RECORDER - Captures events for test assertions
// =============================================================================

type AuditRecorder struct {
	mu     sync.Mutex
	Events []competition.AuditEvent
}

var _ competition.AuditSink = (*AuditRecorder)(nil)

func (a *AuditRecorder) Record(_ context.Context, event competition.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Events = append(a.Events, event)
}

func (a *AuditRecorder) Actions() []competition.AuditAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	actions := make([]competition.AuditAction, len(a.Events))
	for i, e := range a.Events {
		actions[i] = e.Action
	}
	return actions
}

// Dec parses a decimal literal for fixtures; panics on bad input.
func Dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
