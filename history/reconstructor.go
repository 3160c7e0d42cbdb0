/*
reconstructor.go - Timeline reconstruction for one (criterion, sector) pair

PURPOSE:
  Rebuilds the chronological sequence of target versions with their
  realized outcomes:

  1. Load up to limit versions, newest effective-from first
  2. Fetch the measurements of the referenced periods, grouped by period
  3. Join each version with its period's mean realized value (net of
     approved exclusions), attainment, simulated rank/points, and a
     1-based version sequence within the period
  4. Derive the trend summary (average attainment, extremes, time span,
     current streak)

  An empty timeline is a valid outcome, answered with the canonical empty
  summary rather than an error.
*/
package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/Felipe2077/premiacaovpio-sub002/competition"
	"github.com/Felipe2077/premiacaovpio-sub002/parameter"
)

// DefaultLimit caps how many versions a history query loads when the caller
// does not say otherwise.
const DefaultLimit = 24

// streakWindow bounds how many comparisons the streak scan makes from the
// most recent row.
const streakWindow = 5

// =============================================================================
// RECONSTRUCTOR
// =============================================================================

type Reconstructor struct {
	params       parameter.Store
	measurements competition.MeasurementProvider
	ref          competition.RefData
	adjustments  AdjustmentProvider // optional; nil means no exclusions applied

	now func() time.Time
}

func NewReconstructor(params parameter.Store, measurements competition.MeasurementProvider, ref competition.RefData, adjustments AdjustmentProvider) *Reconstructor {
	return &Reconstructor{
		params:       params,
		measurements: measurements,
		ref:          ref,
		adjustments:  adjustments,
		now:          time.Now,
	}
}

// CriterionSectorHistory answers the full history query for one pair.
func (r *Reconstructor) CriterionSectorHistory(ctx context.Context, criterionID competition.CriterionID, sectorID competition.SectorID, limit int) (*Result, error) {
	criterion, err := r.ref.GetCriterion(ctx, criterionID)
	if err != nil {
		return nil, err
	}
	if criterion == nil {
		return nil, competition.NewNotFoundf("critério %d não encontrado", criterionID)
	}
	sector, err := r.ref.GetSector(ctx, sectorID)
	if err != nil {
		return nil, err
	}
	if sector == nil {
		return nil, competition.NewNotFoundf("setor %d não encontrado", sectorID)
	}

	if limit <= 0 {
		limit = DefaultLimit
	}
	versions, err := r.params.ListTimeline(ctx, criterionID, sectorID, limit)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return &Result{Criterion: criterion, Sector: sector, Timeline: []Entry{}, Summary: EmptySummary()}, nil
	}

	periodIDs := distinctPeriods(versions)
	labels, err := r.periodLabels(ctx, periodIDs)
	if err != nil {
		return nil, err
	}
	realized, err := r.realizedByPeriod(ctx, criterionID, sectorID, periodIDs)
	if err != nil {
		return nil, err
	}

	today := competition.DateOf(r.now())
	entries := make([]Entry, 0, len(versions))
	for _, v := range versions {
		entries = append(entries, r.buildEntry(v, versions, labels, realized, today))
	}

	// Defensive re-sort: the store contract already orders this way.
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].EffectiveFrom.Equal(entries[j].EffectiveFrom) {
			return entries[j].EffectiveFrom.Before(entries[i].EffectiveFrom)
		}
		return entries[i].Versao > entries[j].Versao
	})

	return &Result{
		Criterion: criterion,
		Sector:    sector,
		Timeline:  entries,
		Summary:   summarize(entries),
	}, nil
}

// =============================================================================
// ROW ASSEMBLY
// =============================================================================

func (r *Reconstructor) buildEntry(v *parameter.Version, all []*parameter.Version, labels map[competition.PeriodID]string, realized map[competition.PeriodID]*decimal.Decimal, today competition.Date) Entry {
	entry := Entry{
		VersionID:     v.ID,
		PeriodID:      v.Tuple.PeriodID,
		Periodo:       labels[v.Tuple.PeriodID],
		EffectiveFrom: v.EffectiveFrom,
		EffectiveTo:   v.EffectiveTo,
		Status:        entryStatus(v, today),
		ValorMeta:     v.Valor,
		Versao:        versionSequence(v, all),
		CreatedBy:     v.CreatedBy,
		Justification: v.Justification,
	}

	entry.ValorRealizado = realized[v.Tuple.PeriodID]
	if entry.ValorRealizado != nil && !v.Valor.IsZero() && !entry.ValorRealizado.IsZero() {
		attainment, _ := entry.ValorRealizado.Div(v.Valor).Float64()
		rank := simulatedRank(attainment)
		points := simulatedPoints(rank)
		entry.PercentualAtingimento = &attainment
		entry.Rank = &rank
		entry.Pontos = &points
	}
	return entry
}

func entryStatus(v *parameter.Version, today competition.Date) EntryStatus {
	switch {
	case v.EffectiveFrom.After(today):
		return EntryFutura
	case v.EffectiveTo == nil || v.EffectiveTo.After(today):
		return EntryAtiva
	default:
		return EntryExpirada
	}
}

// versionSequence is the 1-based position of v among the loaded versions of
// the same period, ordered by creation time.
func versionSequence(v *parameter.Version, all []*parameter.Version) int {
	seq := 0
	for _, other := range all {
		if other.Tuple.PeriodID == v.Tuple.PeriodID && !other.CreatedAt.After(v.CreatedAt) {
			seq++
		}
	}
	return seq
}

// realizedByPeriod computes the mean measurement value per period, net of
// approved exclusion adjustments, rounded to 2 decimals. Periods with no
// measurements map to nil.
func (r *Reconstructor) realizedByPeriod(ctx context.Context, criterionID competition.CriterionID, sectorID competition.SectorID, periodIDs []competition.PeriodID) (map[competition.PeriodID]*decimal.Decimal, error) {
	records, err := r.measurements.ListMeasurements(ctx, criterionID, sectorID, periodIDs)
	if err != nil {
		return nil, err
	}

	sums := make(map[competition.PeriodID]decimal.Decimal)
	counts := make(map[competition.PeriodID]int64)
	for _, rec := range records {
		sums[rec.PeriodID] = sums[rec.PeriodID].Add(rec.Valor)
		counts[rec.PeriodID]++
	}

	var adjustments map[competition.PeriodID]decimal.Decimal
	if r.adjustments != nil {
		adjustments, err = r.adjustments.ApprovedAdjustments(ctx, criterionID, sectorID, periodIDs)
		if err != nil {
			return nil, err
		}
	}

	realized := make(map[competition.PeriodID]*decimal.Decimal, len(sums))
	for periodID, count := range counts {
		mean := sums[periodID].Div(decimal.NewFromInt(count))
		mean = mean.Sub(adjustments[periodID])
		rounded := mean.Round(2)
		realized[periodID] = &rounded
	}
	return realized, nil
}

func distinctPeriods(versions []*parameter.Version) []competition.PeriodID {
	seen := make(map[competition.PeriodID]struct{})
	var ids []competition.PeriodID
	for _, v := range versions {
		if _, ok := seen[v.Tuple.PeriodID]; ok {
			continue
		}
		seen[v.Tuple.PeriodID] = struct{}{}
		ids = append(ids, v.Tuple.PeriodID)
	}
	return ids
}

func (r *Reconstructor) periodLabels(ctx context.Context, periodIDs []competition.PeriodID) (map[competition.PeriodID]string, error) {
	labels := make(map[competition.PeriodID]string, len(periodIDs))
	for _, id := range periodIDs {
		period, err := r.ref.GetPeriod(ctx, id)
		if err != nil {
			return nil, err
		}
		if period == nil {
			labels[id] = fmt.Sprintf("período %d", id)
			continue
		}
		labels[id] = period.Mes
	}
	return labels, nil
}

// =============================================================================
// SUMMARY
// =============================================================================

func summarize(entries []Entry) Summary {
	type scored struct {
		attainment float64
		period     string
	}
	var withAttainment []scored
	for _, e := range entries {
		if e.PercentualAtingimento != nil {
			withAttainment = append(withAttainment, scored{*e.PercentualAtingimento, e.Periodo})
		}
	}

	if len(withAttainment) == 0 {
		summary := EmptySummary()
		summary.TotalVersions = len(entries)
		return summary
	}

	values := make([]float64, len(withAttainment))
	for i, s := range withAttainment {
		values[i] = s.attainment
	}

	// Extremes: ties resolved by first occurrence after a stable sort by
	// attainment descending.
	byAttainment := make([]scored, len(withAttainment))
	copy(byAttainment, withAttainment)
	sort.SliceStable(byAttainment, func(i, j int) bool {
		return byAttainment[i].attainment > byAttainment[j].attainment
	})

	return Summary{
		AvgAttainment: stat.Mean(values, nil),
		BestPeriod:    byAttainment[0].period,
		WorstPeriod:   byAttainment[len(byAttainment)-1].period,
		TimeSpan:      timeSpan(entries),
		TotalVersions: len(entries),
		CurrentStreak: detectStreak(entries),
	}
}

// timeSpan formats the range of distinct period labels covered by the rows.
func timeSpan(entries []Entry) string {
	seen := make(map[string]struct{})
	var labels []string
	for _, e := range entries {
		if _, ok := seen[e.Periodo]; ok {
			continue
		}
		seen[e.Periodo] = struct{}{}
		labels = append(labels, e.Periodo)
	}
	sort.Strings(labels)
	if len(labels) == 1 {
		return labels[0]
	}
	return fmt.Sprintf("%s a %s", labels[0], labels[len(labels)-1])
}

// detectStreak scans from the most recent row over at most streakWindow
// comparisons. Attainment strictly rising as time moves forward (each row
// strictly above the next older one) is a positive streak; strictly falling
// is negative. A tie, a direction change, or a row without attainment ends
// the scan. Streaks shorter than 2 comparisons are not reported.
func detectStreak(entries []Entry) *Streak {
	comparisons := len(entries) - 1
	if comparisons > streakWindow {
		comparisons = streakWindow
	}

	var streakType StreakType
	count := 0
	for i := 0; i < comparisons; i++ {
		newer, older := entries[i].PercentualAtingimento, entries[i+1].PercentualAtingimento
		if newer == nil || older == nil || *newer == *older {
			break
		}
		direction := StreakNegative
		if *newer > *older {
			direction = StreakPositive
		}
		if count == 0 {
			streakType = direction
		} else if direction != streakType {
			break
		}
		count++
	}

	if count < 2 {
		return nil
	}
	return &Streak{Type: streakType, Count: count}
}
