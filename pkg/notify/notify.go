package notify

import (
	"context"
	"time"
)

// Message is one notification delivered to a channel.
type Message struct {
	// DecisionID correlates the notification with the engine decision.
	DecisionID string `json:"decision_id"`

	// RuleID is the rule whose notify action fired.
	RuleID string `json:"rule_id"`

	// Disposition is the decision's final outcome.
	Disposition string `json:"disposition"`

	// Body is the message text.
	Body string `json:"body"`

	// Timestamp is when the decision was made.
	Timestamp time.Time `json:"timestamp"`
}

// Channel delivers messages to one destination. Implementations must
// be safe for concurrent Send calls; the manager's workers share them.
type Channel interface {
	// Name is the identifier rules reference in their notify config.
	Name() string

	// Send delivers one message. A returned error marks the attempt
	// failed; the manager retries with backoff.
	Send(ctx context.Context, msg Message) error
}
