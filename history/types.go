/*
Package history reconstructs the version timeline of one (criterion, sector)
pair and derives display analytics from it.

PURPOSE:
  Read-only aggregation: target versions joined with realized measurements
  and approved exclusion adjustments, producing one row per version plus a
  trend summary. Nothing here is persisted; every query recomputes.

  The rank and points in each row are a display-only simulation (see
  rank.go); the official competition ranking is computed elsewhere.
*/
package history

import (
	"github.com/shopspring/decimal"

	"github.com/Felipe2077/premiacaovpio-sub002/competition"
	"github.com/Felipe2077/premiacaovpio-sub002/parameter"
)

// =============================================================================
// ENTRY - One row per target version
// =============================================================================

type EntryStatus string

const (
	EntryAtiva    EntryStatus = "ATIVA"
	EntryExpirada EntryStatus = "EXPIRADA"
	EntryFutura   EntryStatus = "FUTURA"
)

type Entry struct {
	VersionID     parameter.VersionID  `json:"versionId"`
	PeriodID      competition.PeriodID `json:"periodId"`
	Periodo       string               `json:"periodo"` // e.g. "2025-06"
	EffectiveFrom competition.Date     `json:"dataInicioEfetivo"`
	EffectiveTo   *competition.Date    `json:"dataFimEfetivo"`
	Status        EntryStatus          `json:"status"`

	ValorMeta decimal.Decimal `json:"valorMeta"`

	// Mean of the period's measurements minus approved exclusion
	// adjustments, rounded to 2 decimals. Nil when the period has no
	// measurements at all.
	ValorRealizado *decimal.Decimal `json:"valorRealizado"`

	// Realized / target. Nil when either side is absent or the target is
	// zero; never infinity.
	PercentualAtingimento *float64 `json:"percentualAtingimento"`

	// Display-only simulation, see rank.go.
	Rank   *int     `json:"rank"`
	Pontos *float64 `json:"pontos"`

	// 1-based sequence of the version within its period, by creation time.
	Versao int `json:"versao"`

	CreatedBy     string `json:"criadoPor"`
	Justification string `json:"justificativa"`
}

// =============================================================================
// SUMMARY - Aggregate trend statistics
// =============================================================================

type StreakType string

const (
	StreakPositive StreakType = "positive"
	StreakNegative StreakType = "negative"
)

// Streak is a run of strictly monotonic attainment starting at the most
// recent row. Reported only when at least 2 consecutive strict comparisons
// hold in the same direction.
type Streak struct {
	Type  StreakType `json:"type"`
	Count int        `json:"count"`
}

type Summary struct {
	AvgAttainment float64 `json:"avgAttainment"`
	BestPeriod    string  `json:"bestPeriod"`
	WorstPeriod   string  `json:"worstPeriod"`
	TimeSpan      string  `json:"timeSpan"`
	TotalVersions int     `json:"totalVersions"`
	CurrentStreak *Streak `json:"currentStreak"`
}

// NoDataTimeSpan is the canonical placeholder for an empty summary.
const NoDataTimeSpan = "Nenhum dado disponível"

// EmptySummary is the canonical result when no row carries an attainment.
func EmptySummary() Summary {
	return Summary{
		AvgAttainment: 0,
		BestPeriod:    "N/A",
		WorstPeriod:   "N/A",
		TimeSpan:      NoDataTimeSpan,
		TotalVersions: 0,
		CurrentStreak: nil,
	}
}

// =============================================================================
// RESULT - Full answer for one (criterion, sector) query
// =============================================================================

type Result struct {
	Criterion *competition.Criterion `json:"criterion"`
	Sector    *competition.Sector    `json:"sector"`
	Timeline  []Entry                `json:"timeline"`
	Summary   Summary                `json:"summary"`
}
