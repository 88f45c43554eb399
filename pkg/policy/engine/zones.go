package engine

import (
	"fmt"

	"aegis-hq/warden/pkg/apl/ast"
)

// ZoneDecision is the outcome of the zone authorization layer for one
// request. It is resolved independently of the rule set so the editing
// console can preview a zone's effective permission without running
// rules.
type ZoneDecision struct {
	Verdict ZoneVerdict
	Zone    ast.Zone
	Level   ast.AccessLevel

	// RequiresAudit carries the zone's effective audit flag (post RED
	// override) so the dispatcher can write the mandatory audit record.
	RequiresAudit bool

	// Reason explains a denial in operator terms.
	Reason string
}

// AuthorizeZone resolves the zone layer's verdict for a request.
// Stateless and pure. Resolution is fail-closed throughout: a request
// that cannot prove its zone or resource is denied.
//
//   - unresolvable or unknown request.zone: denied
//   - zone level none: denied
//   - resource absent from the zone allowlist: denied, unless the
//     level is admin, which bypasses the allowlist
//   - missing request.resource with a non-admin level: denied
//   - otherwise permitted, upgraded to requires_approval when the
//     zone's effective approval flag is set
//
// Effective flags come from ZoneMatrix.EffectivePermission, so a RED
// zone at write or admin always requires approval and audit no matter
// what the stored matrix says.
func AuthorizeZone(matrix *ast.ZoneMatrix, rctx ast.RequestContext) ZoneDecision {
	if matrix == nil {
		return ZoneDecision{
			Verdict: VerdictDenied,
			Reason:  "no zone matrix loaded",
		}
	}

	zone, ok := rctx.Zone()
	if !ok {
		return ZoneDecision{
			Verdict: VerdictDenied,
			Reason:  "request.zone missing or not a recognized zone",
		}
	}

	perm, ok := matrix.EffectivePermission(zone)
	if !ok {
		// Unreachable with a validated matrix; fail closed anyway.
		return ZoneDecision{
			Verdict: VerdictDenied,
			Zone:    zone,
			Reason:  fmt.Sprintf("zone %q has no permission entry", zone),
		}
	}

	decision := ZoneDecision{
		Zone:          zone,
		Level:         perm.Level,
		RequiresAudit: perm.RequiresAudit,
	}

	if perm.Level == ast.LevelNone {
		decision.Verdict = VerdictDenied
		decision.Reason = fmt.Sprintf("zone %q is closed to agents (level none)", zone)
		return decision
	}

	if perm.Level != ast.LevelAdmin {
		resource, ok := rctx.Resource()
		if !ok || resource == "" {
			decision.Verdict = VerdictDenied
			decision.Reason = "request.resource missing and zone level is not admin"
			return decision
		}
		if !perm.HasResource(resource) {
			decision.Verdict = VerdictDenied
			decision.Reason = fmt.Sprintf("resource %q not on zone %q allowlist", resource, zone)
			return decision
		}
	}

	if perm.RequiresApproval {
		decision.Verdict = VerdictRequiresApproval
		return decision
	}

	decision.Verdict = VerdictPermitted
	return decision
}
