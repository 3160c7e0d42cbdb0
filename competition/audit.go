package competition

import (
	"context"
	"log"
	"time"
)

// =============================================================================
// AUDIT SINK - Fire-and-forget event recording
// =============================================================================

type AuditAction string

const (
	AuditParameterCreated    AuditAction = "parameter_created"
	AuditParameterVersioned  AuditAction = "parameter_versioned"
	AuditParameterDeleted    AuditAction = "parameter_deleted"
	AuditParameterCalculated AuditAction = "parameter_calculated"
	AuditExpurgoRequested    AuditAction = "expurgo_requested"
	AuditExpurgoApproved     AuditAction = "expurgo_approved"
	AuditExpurgoRejected     AuditAction = "expurgo_rejected"
)

// AuditEvent records who did what when. Payload holds action-specific data
// (ids, values, justifications) for the audit trail.
type AuditEvent struct {
	Timestamp time.Time
	ActorID   string
	Action    AuditAction
	Payload   map[string]any
}

// AuditSink persists audit events. Calls are fire-and-forget: callers log
// sink failures but never fail the mutation over them.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent)
}

// LogSink writes audit events to the process log. Default sink for tests
// and for deployments without a dedicated audit table.
type LogSink struct{}

func (LogSink) Record(_ context.Context, event AuditEvent) {
	log.Printf("audit: %s actor=%s payload=%v", event.Action, event.ActorID, event.Payload)
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Record(context.Context, AuditEvent) {}
