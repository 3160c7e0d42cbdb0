package expurgo

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Felipe2077/premiacaovpio-sub002/competition"
)

// =============================================================================
// STORE - Persistence interface for exclusion requests
// =============================================================================

// ListFilter narrows List results. Nil fields are ignored.
type ListFilter struct {
	PeriodID       *competition.PeriodID
	SectorID       *competition.SectorID
	CriterionID    *competition.CriterionID
	Status         *Status
	DataInicio     *competition.Date
	DataFim        *competition.Date
	RegistradoPor  *string
	AprovadoPor    *string
	HasAttachments *bool
	ValorMin       *decimal.Decimal
	ValorMax       *decimal.Decimal
}

// Store persists exclusion requests. Requests are never deleted; a decision
// is the only mutation.
type Store interface {
	// Insert persists a new request.
	Insert(ctx context.Context, e *Expurgo) error

	// GetByID returns the request or nil when absent.
	GetByID(ctx context.Context, id ExpurgoID) (*Expurgo, error)

	// FindPending returns the PENDENTE request for the exact
	// (period, sector, criterion, event date) key, or nil.
	FindPending(ctx context.Context, periodID competition.PeriodID, sectorID competition.SectorID, criterionID competition.CriterionID, dataEvento competition.Date) (*Expurgo, error)

	// Update persists a decision (status, approved value, decision fields).
	Update(ctx context.Context, e *Expurgo) error

	// List returns requests matching the filter, newest RegistradoEm first.
	List(ctx context.Context, filter ListFilter) ([]*Expurgo, error)

	// WithTx executes fn atomically; a reader must never observe a request
	// mid-transition.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// Notifier tells approvers about new requests. Fire-and-forget.
type Notifier interface {
	NotifyApprovers(ctx context.Context, e *Expurgo)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) NotifyApprovers(context.Context, *Expurgo) {}
