// Package parser provides YAML parsing and AST construction for APL
// bundles.
//
// The parser reads bundle files (YAML format), validates syntax, and
// constructs the typed AST the validator and engine consume.
//
// # Basic Usage
//
// Parse a bundle file:
//
//	parser := parser.NewParser()
//	bundle, err := parser.Parse("bundles/guardrails.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Loaded bundle:", bundle.Name)
//	fmt.Println("Rules:", len(bundle.Rules))
//
// Parse from memory:
//
//	yamlData := []byte(`
//	apl_version: "1.0"
//	name: "my-guardrails"
//	default_action: "allow"
//	rules:
//	  - id: "escalate-red"
//	    conditions:
//	      - field: "request.zone"
//	        operator: "equals"
//	        value: "red"
//	    actions:
//	      - type: "escalate"
//	zones:
//	  - zone: "red"
//	    level: "read"
//	  - zone: "yellow"
//	    level: "write"
//	  - zone: "green"
//	    level: "admin"
//	`)
//
//	bundle, err := parser.ParseBytes(yamlData, "memory://bundle")
//
// # Parsing Stages
//
// The parser operates in two stages:
//
// 1. YAML Parsing: Decode YAML into intermediate structures that keep
// their yaml.Node, preserving line numbers
//
// 2. AST Building: Transform intermediate structures into typed AST
// nodes with source locations
//
// # Division of Labor
//
// The parser is lenient about enum values: an unknown operator or
// action type survives into the AST. The validator decides which rules
// are excluded, so one operator typo never fails a whole bundle at
// parse time. Only syntax errors, unreadable files and a broken zone
// matrix are parse errors.
package parser
