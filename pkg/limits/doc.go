// Package limits implements the sliding window rate limiter behind
// rate_limit actions.
//
// Each counter is keyed by (rule ID, subject ID) so the same subject
// consumes independent windows across different rate-limited rules.
// Counter state lives in a storage backend; an unavailable backend
// surfaces as an error, which the decision engine treats as grounds to
// block. Under-blocking is the failure mode a policy engine cannot
// afford.
//
// Only admitted requests consume quota. A rejected request observes
// the window without extending it, so a subject hammering a closed
// window is not locked out forever.
package limits
