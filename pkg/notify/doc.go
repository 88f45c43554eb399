// Package notify fans decision notifications out to named channels.
//
// A rule's notify action names channels; the manager resolves them,
// queues one delivery each, and worker goroutines send with
// exponential-backoff retries. Delivery is best-effort and fully
// decoupled from the decision path: a dead webhook slows nothing down
// and never changes a disposition.
package notify
