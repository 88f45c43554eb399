// Aegis Warden is a policy and zone-access evaluation engine for
// autonomous-agent guardrails.
//
// Given a proposed agent action and an operator-authored bundle of
// rules plus a three-zone permission matrix, it produces a single
// deterministic decision (allow, block, or escalate) and dispatches
// the winning rule's side effects.
//
// Usage:
//
//	# Validate a bundle
//	aegis validate --file bundle.yaml
//
//	# Run a bundle's embedded expectation tests
//	aegis test --bundle bundle.yaml
//
//	# Evaluate one ad-hoc request context
//	aegis decide --bundle bundle.yaml --set request.zone=red --set request.verb=write
//
//	# Run the daemon: hot reload plus metrics and health endpoints
//	aegis serve --config /etc/aegis/config.yaml
//
//	# Query the audit trail
//	aegis audit query --zone red --disposition block
package main

func main() {
	Execute()
}
