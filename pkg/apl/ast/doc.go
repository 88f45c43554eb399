// Package ast defines the parsed representation of an Agent Policy
// Language (APL) bundle.
//
// A bundle pairs an ordered rule set with a three-zone access matrix.
// Rules carry flat condition lists combined with AND or OR logic and an
// ordered action list; the matrix assigns each of the red, yellow and
// green zones an access level, a resource allowlist and approval/audit
// flags. All nodes preserve source location for error reporting.
//
// # Core Types
//
// Bundle: Root node holding rules, zone matrix and embedded tests
//
// Rule: One guardrail rule (conditions + actions, evaluated in order)
//
// Condition: Field/operator/value comparison against a request context
//
// ActionConfig: Tagged union of the eight action types
//
// ZoneMatrix: Fixed red/yellow/green permission map
//
// RequestContext: Flat attribute map a decision is evaluated against
//
// # Zone Safety
//
// ZoneMatrix.EffectivePermission applies the non-negotiable RED rule:
// write or admin access to the red zone always requires approval and
// audit, regardless of the stored flags. Evaluation code must resolve
// permissions through EffectivePermission, never Permission.
//
// # Immutability
//
// Nodes are treated as immutable after parsing. The engine evaluates
// against a snapshot and never mutates a bundle or a request context.
package ast
