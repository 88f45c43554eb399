package notify

import "fmt"

// QueueFullError reports a delivery dropped because the bounded queue
// had no free slot at enqueue time.
type QueueFullError struct {
	Channel    string
	DecisionID string
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("notify: queue full, dropped delivery to %q", e.Channel)
}
