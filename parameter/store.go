package parameter

import (
	"context"
	"time"

	"github.com/Felipe2077/premiacaovpio-sub002/competition"
)

// =============================================================================
// STORE - Persistence interface for target versions
// =============================================================================

// ListFilter narrows ListByPeriod results. Nil fields are ignored.
type ListFilter struct {
	SectorID    *competition.SectorID
	CriterionID *competition.CriterionID
	OnlyActive  bool // keep only versions open as of today
}

// Store persists target versions. History is append-mostly: the only
// mutations are closing an effective window (supersession) and soft delete.
type Store interface {
	// Insert persists a new version.
	Insert(ctx context.Context, v *Version) error

	// GetByID returns the version or nil when absent.
	GetByID(ctx context.Context, id VersionID) (*Version, error)

	// FindOpen returns the single open (non-deleted, window not yet closed
	// in the past) version for the tuple as of the given day, or nil.
	FindOpen(ctx context.Context, tuple Tuple, asOf competition.Date) (*Version, error)

	// CloseWindow sets the version's EffectiveTo. Used only by supersession.
	CloseWindow(ctx context.Context, id VersionID, effectiveTo competition.Date) error

	// SoftDelete marks the version deleted with actor and justification.
	SoftDelete(ctx context.Context, id VersionID, actor, justification string, at time.Time) error

	// ListByPeriod returns the period's versions, newest EffectiveFrom
	// first, filtered.
	ListByPeriod(ctx context.Context, periodID competition.PeriodID, filter ListFilter) ([]*Version, error)

	// ListTimeline returns up to limit non-deleted versions for the
	// (criterion, sector) pair across all periods, newest EffectiveFrom
	// first, ties broken by newest CreatedAt.
	ListTimeline(ctx context.Context, criterionID competition.CriterionID, sectorID competition.SectorID, limit int) ([]*Version, error)

	// WithTx executes fn atomically. The close-predecessor/create-successor
	// sequence must never be observable half-done.
	WithTx(ctx context.Context, fn func(Store) error) error
}
