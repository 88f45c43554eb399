// Package engine implements the guardrail decision engine: given a
// proposed agent action (a flat request context) and an immutable
// snapshot of operator-authored rules plus the three-zone permission
// matrix, it deterministically resolves a single Decision (allow,
// block, or escalate) and dispatches the winning rule's side effects
// in one pass.
//
// # Two Independent Layers
//
// Every decision composes two authorization layers:
//
// 1. Zone authorization (AuthorizeZone): a stateless check of the
// request's zone against the permission matrix: access level,
// resource allowlist, approval and audit flags. Zone denial is an
// absolute ceiling no rule can override; zone approval downgrades a
// rule's allow to escalate.
//
// 2. Rule matching: the ordered rule list is tried first-match-wins.
// Disabled rules are skipped before any condition work. If no rule
// matches, a virtual rule carrying the set's default action wins. The
// stored priority field is display-only; array order is authoritative.
//
// # Evaluation Is Pure
//
// Evaluate runs over an immutable Snapshot with no shared state, so
// unlimited goroutines may evaluate concurrently. Engine.Decide adds
// identity (a decision ID) and side-effect dispatch on top. Reload
// swaps snapshots atomically; in-flight evaluations keep the snapshot
// they started with.
//
// # Failure Degrades, Never Crashes
//
// Unresolvable fields, coercion mismatches, and regex timeouts
// evaluate conditions to false with diagnostics. Side-effect failures
// are recorded without changing the disposition, except rate_limit,
// which fails closed: an unavailable counter store blocks the request,
// because under-blocking is the worse failure mode for a policy
// engine.
package engine
