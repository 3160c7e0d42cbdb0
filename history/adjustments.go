package history

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Felipe2077/premiacaovpio-sub002/competition"
	"github.com/Felipe2077/premiacaovpio-sub002/expurgo"
)

// =============================================================================
// EXCLUSION ADJUSTMENTS - Approved expurgo values netted off realized means
// =============================================================================

// AdjustmentProvider supplies the total approved exclusion value per period
// for one (criterion, sector) pair.
type AdjustmentProvider interface {
	ApprovedAdjustments(ctx context.Context, criterionID competition.CriterionID, sectorID competition.SectorID, periodIDs []competition.PeriodID) (map[competition.PeriodID]decimal.Decimal, error)
}

// ExpurgoAdjustments answers from the exclusion-request store: the sum of
// approved values (full and partial) per period.
type ExpurgoAdjustments struct {
	Store expurgo.Store
}

func (a ExpurgoAdjustments) ApprovedAdjustments(ctx context.Context, criterionID competition.CriterionID, sectorID competition.SectorID, periodIDs []competition.PeriodID) (map[competition.PeriodID]decimal.Decimal, error) {
	wanted := make(map[competition.PeriodID]struct{}, len(periodIDs))
	for _, id := range periodIDs {
		wanted[id] = struct{}{}
	}

	requests, err := a.Store.List(ctx, expurgo.ListFilter{
		CriterionID: &criterionID,
		SectorID:    &sectorID,
	})
	if err != nil {
		return nil, err
	}

	totals := make(map[competition.PeriodID]decimal.Decimal)
	for _, e := range requests {
		if _, ok := wanted[e.PeriodID]; !ok {
			continue
		}
		adj := e.EffectiveAdjustment()
		if adj.IsZero() {
			continue
		}
		totals[e.PeriodID] = totals[e.PeriodID].Add(adj)
	}
	return totals, nil
}
