package audit

import (
	"context"
	"io"
	"time"
)

// Record is one persisted audit record: a single decision the engine
// made, captured for compliance review. Records are append-only; the
// hash makes after-the-fact edits detectable.
type Record struct {
	// ID is a UUID v4 assigned at recording time.
	ID string `json:"id"`

	// DecisionID correlates the record with the engine decision that
	// produced it.
	DecisionID string `json:"decision_id"`

	// Timestamp is when the decision was made, UTC.
	Timestamp time.Time `json:"timestamp"`

	// RuleID is the winning rule, empty when the default action
	// applied.
	RuleID string `json:"rule_id"`

	// Zone and ZoneVerdict capture the zone layer's outcome.
	Zone        string `json:"zone"`
	ZoneVerdict string `json:"zone_verdict"`

	// Disposition is the final merged outcome (allow, block,
	// escalate), post rate-limit override.
	Disposition string `json:"disposition"`

	// Subject is the acting subject, when resolvable.
	Subject string `json:"subject"`

	// Level and Message come from the log action's config.
	Level   string `json:"level"`
	Message string `json:"message"`

	// Mandatory marks records written for a zone's requires_audit flag
	// rather than an explicit log action.
	Mandatory bool `json:"mandatory"`

	// Hash is the SHA-256 of the record's canonical JSON with this
	// field empty, assigned at recording time.
	Hash string `json:"hash"`
}

// Query filters audit records.
type Query struct {
	// Time range, inclusive on both ends. Nil means unbounded.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Field filters; empty means no constraint.
	RuleID      string `json:"rule_id,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Zone        string `json:"zone,omitempty"`
	Disposition string `json:"disposition,omitempty"`

	// MandatoryOnly restricts to zone-mandated records.
	MandatoryOnly bool `json:"mandatory_only,omitempty"`

	// Pagination.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Storage persists audit records. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store persists one record.
	Store(ctx context.Context, record *Record) error

	// Query returns records matching the filters, newest first.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns how many records match the filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes matching records and returns how many went.
	// Retention pruning runs through this.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases backend resources.
	Close() error
}

// Exporter writes audit records to a stream in some format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
