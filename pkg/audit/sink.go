package audit

import (
	"context"

	"aegis-hq/warden/pkg/policy/engine"
)

// Sink adapts a Recorder to the decision engine's AuditSink contract.
type Sink struct {
	recorder *Recorder
}

// NewSink wraps a recorder for the engine.
func NewSink(recorder *Recorder) *Sink {
	return &Sink{recorder: recorder}
}

// Record converts one engine audit entry to a persisted record.
func (s *Sink) Record(ctx context.Context, entry engine.AuditEntry) error {
	return s.recorder.Record(ctx, &Record{
		DecisionID:  entry.DecisionID,
		Timestamp:   entry.Timestamp,
		RuleID:      entry.RuleID,
		Zone:        string(entry.Zone),
		ZoneVerdict: string(entry.ZoneVerdict),
		Disposition: string(entry.Disposition),
		Subject:     entry.Subject,
		Level:       entry.Level,
		Message:     entry.Message,
		Mandatory:   entry.Mandatory,
	})
}
