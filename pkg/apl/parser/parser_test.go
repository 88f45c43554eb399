package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aegis-hq/warden/pkg/apl/ast"
	aplErrors "aegis-hq/warden/pkg/apl/errors"
)

const simpleBundle = `
apl_version: "1.0"
name: "test-guardrails"
version: "1.0.0"
default_action: "allow"
rules:
  - id: "escalate-red"
    name: "Escalate red zone"
    logic: "AND"
    conditions:
      - field: "request.zone"
        operator: "equals"
        value: "red"
    actions:
      - type: "escalate"
zones:
  - zone: "red"
    level: "read"
    resources: ["contracts"]
    requires_audit: true
  - zone: "yellow"
    level: "write"
    resources: ["orders"]
  - zone: "green"
    level: "admin"
`

func TestParser_ParseBytes_Simple(t *testing.T) {
	bundle, err := NewParser().ParseBytes([]byte(simpleBundle), "memory://simple")
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}

	if bundle.Name != "test-guardrails" {
		t.Errorf("Name = %q, want %q", bundle.Name, "test-guardrails")
	}
	if bundle.DefaultAction != ast.ActionAllow {
		t.Errorf("DefaultAction = %q, want %q", bundle.DefaultAction, ast.ActionAllow)
	}
	if len(bundle.Rules) != 1 {
		t.Fatalf("len(Rules) = %d, want 1", len(bundle.Rules))
	}

	rule := bundle.Rules[0]
	if rule.ID != "escalate-red" {
		t.Errorf("Rule.ID = %q, want %q", rule.ID, "escalate-red")
	}
	if !rule.Enabled {
		t.Error("Rule.Enabled = false, want true (default)")
	}
	if rule.Logic != ast.LogicAnd {
		t.Errorf("Rule.Logic = %q, want %q", rule.Logic, ast.LogicAnd)
	}

	if len(rule.Conditions) != 1 {
		t.Fatalf("len(Conditions) = %d, want 1", len(rule.Conditions))
	}
	cond := rule.Conditions[0]
	if cond.Field != "request.zone" {
		t.Errorf("Condition.Field = %q, want %q", cond.Field, "request.zone")
	}
	if cond.Operator != ast.OpEquals {
		t.Errorf("Condition.Operator = %q, want %q", cond.Operator, ast.OpEquals)
	}
	if cond.Value != "red" {
		t.Errorf("Condition.Value = %q, want %q", cond.Value, "red")
	}
	if cond.ValueType != ast.TypeString {
		t.Errorf("Condition.ValueType = %q, want %q (default)", cond.ValueType, ast.TypeString)
	}
	if cond.Location.Line == 0 {
		t.Error("Condition.Location.Line = 0, want a real line number")
	}

	if len(rule.Actions) != 1 || rule.Actions[0].Type != ast.ActionEscalate {
		t.Fatalf("Actions = %+v, want one escalate action", rule.Actions)
	}

	if bundle.Zones == nil {
		t.Fatal("Zones = nil, want a matrix")
	}
	red, ok := bundle.Zones.Permission(ast.ZoneRed)
	if !ok {
		t.Fatal("red zone missing from matrix")
	}
	if red.Level != ast.LevelRead {
		t.Errorf("red.Level = %q, want %q", red.Level, ast.LevelRead)
	}
	if !red.RequiresAudit {
		t.Error("red.RequiresAudit = false, want true")
	}
}

func TestParser_ParseBytes_TypedActionConfigs(t *testing.T) {
	data := []byte(`
apl_version: "1.0"
name: "typed-actions"
default_action: "block"
rules:
  - id: "limited"
    conditions:
      - field: "request.action"
        operator: "equals"
        value: "send_email"
    actions:
      - type: "allow"
      - type: "rate_limit"
        config:
          limit: 5
          window_seconds: 60
          subject_field: "agent.id"
      - type: "notify"
        config:
          channels: ["ops", "security"]
          message: "email volume"
      - type: "transform"
        config:
          field: "output.body"
          op: "redact"
zones:
  - {zone: "red", level: "none"}
  - {zone: "yellow", level: "write"}
  - {zone: "green", level: "admin"}
`)

	bundle, err := NewParser().ParseBytes(data, "memory://typed")
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}

	actions := bundle.Rules[0].Actions
	if len(actions) != 4 {
		t.Fatalf("len(Actions) = %d, want 4", len(actions))
	}

	rl := actions[1].RateLimit
	if rl == nil {
		t.Fatal("rate_limit action has no typed config")
	}
	if rl.Limit != 5 || rl.WindowSeconds != 60 {
		t.Errorf("RateLimit = %+v, want limit=5 window=60", rl)
	}
	if rl.SubjectField != "agent.id" {
		t.Errorf("SubjectField = %q, want %q", rl.SubjectField, "agent.id")
	}

	nc := actions[2].Notify
	if nc == nil {
		t.Fatal("notify action has no typed config")
	}
	if len(nc.Channels) != 2 || nc.Channels[0] != "ops" {
		t.Errorf("Channels = %v, want [ops security]", nc.Channels)
	}

	tc := actions[3].Transform
	if tc == nil {
		t.Fatal("transform action has no typed config")
	}
	if tc.Field != "output.body" || tc.Op != ast.TransformRedact {
		t.Errorf("Transform = %+v, want field=output.body op=redact", tc)
	}
}

func TestParser_ParseBytes_ScalarValueRendering(t *testing.T) {
	data := []byte(`
apl_version: "1.0"
name: "scalars"
default_action: "allow"
rules:
  - id: "numbers"
    conditions:
      - field: "request.cost"
        operator: "greater_than"
        value: 42.5
        value_type: "number"
      - field: "agent.autonomous"
        operator: "equals"
        value: true
        value_type: "boolean"
      - field: "request.action"
        operator: "in"
        value: ["read", "list"]
        value_type: "array"
    actions:
      - type: "block"
zones:
  - {zone: "red", level: "none"}
  - {zone: "yellow", level: "read"}
  - {zone: "green", level: "admin"}
`)

	bundle, err := NewParser().ParseBytes(data, "memory://scalars")
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}

	conds := bundle.Rules[0].Conditions
	wantValues := []string{"42.5", "true", "read,list"}
	for i, want := range wantValues {
		if conds[i].Value != want {
			t.Errorf("Conditions[%d].Value = %q, want %q", i, conds[i].Value, want)
		}
	}
}

func TestParser_ParseBytes_UnknownEnumsSurvive(t *testing.T) {
	// Unknown operators and action types must survive parsing so the
	// validator can exclude single rules instead of failing the bundle.
	data := []byte(`
apl_version: "1.0"
name: "lenient"
default_action: "allow"
rules:
  - id: "typo"
    conditions:
      - field: "request.zone"
        operator: "equls"
        value: "red"
    actions:
      - type: "escalte"
zones:
  - {zone: "red", level: "none"}
  - {zone: "yellow", level: "read"}
  - {zone: "green", level: "admin"}
`)

	bundle, err := NewParser().ParseBytes(data, "memory://lenient")
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}
	if got := bundle.Rules[0].Conditions[0].Operator; got != "equls" {
		t.Errorf("Operator = %q, want the raw %q", got, "equls")
	}
	if got := bundle.Rules[0].Actions[0].Type; got != "escalte" {
		t.Errorf("ActionType = %q, want the raw %q", got, "escalte")
	}
}

func TestParser_ParseBytes_BrokenZoneMatrix(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{
			name: "missing zones section",
			data: `
name: "no-zones"
default_action: "allow"
rules: []
`,
			want: "Missing required 'zones' section",
		},
		{
			name: "missing green entry",
			data: `
name: "two-zones"
default_action: "allow"
rules: []
zones:
  - {zone: "red", level: "none"}
  - {zone: "yellow", level: "read"}
`,
			want: "missing permission entry",
		},
		{
			name: "duplicate zone entry",
			data: `
name: "dup-zones"
default_action: "allow"
rules: []
zones:
  - {zone: "red", level: "none"}
  - {zone: "red", level: "admin"}
  - {zone: "yellow", level: "read"}
  - {zone: "green", level: "admin"}
`,
			want: "duplicate permission entry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().ParseBytes([]byte(tt.data), "memory://zones")
			if err == nil {
				t.Fatal("ParseBytes() succeeded, want zone matrix error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestParser_ParseBytes_InvalidYAML(t *testing.T) {
	_, err := NewParser().ParseBytes([]byte("rules:\n  - id: [unclosed"), "memory://bad")
	if err == nil {
		t.Fatal("ParseBytes() succeeded on invalid YAML")
	}
	aplErr, ok := err.(*aplErrors.Error)
	if !ok {
		t.Fatalf("error type = %T, want *aplErrors.Error", err)
	}
	if aplErr.Type != aplErrors.ErrorTypeSyntax {
		t.Errorf("error type = %q, want %q", aplErr.Type, aplErrors.ErrorTypeSyntax)
	}
}

func TestParser_Parse_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bundle.yaml")
	if err := os.WriteFile(path, []byte(simpleBundle), 0o644); err != nil {
		t.Fatal(err)
	}

	bundle, err := NewParser().Parse(path)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if bundle.SourceFile != path {
		t.Errorf("SourceFile = %q, want %q", bundle.SourceFile, path)
	}
}

func TestParser_Parse_MaxFileSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.yaml")
	if err := os.WriteFile(path, []byte(simpleBundle), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewParser().WithMaxFileSize(8).Parse(path)
	if err == nil {
		t.Fatal("Parse() succeeded, want size limit error")
	}
	if !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("error = %q, want size limit error", err.Error())
	}
}

func TestParser_ParseDir_MergesRules(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "00-base.yaml"), []byte(simpleBundle), 0o644); err != nil {
		t.Fatal(err)
	}
	extra := `
name: "extra"
default_action: "block"
rules:
  - id: "block-billing"
    conditions:
      - field: "request.resource"
        operator: "equals"
        value: "billing"
    actions:
      - type: "block"
zones:
  - {zone: "red", level: "none"}
  - {zone: "yellow", level: "read"}
  - {zone: "green", level: "admin"}
`
	if err := os.WriteFile(filepath.Join(dir, "10-extra.yaml"), []byte(extra), 0o644); err != nil {
		t.Fatal(err)
	}

	bundle, err := NewParser().ParseDir(dir)
	if err != nil {
		t.Fatalf("ParseDir() failed: %v", err)
	}

	// First file's metadata and default action win; rules append in
	// lexical file order.
	if bundle.Name != "test-guardrails" {
		t.Errorf("Name = %q, want %q", bundle.Name, "test-guardrails")
	}
	if bundle.DefaultAction != ast.ActionAllow {
		t.Errorf("DefaultAction = %q, want %q", bundle.DefaultAction, ast.ActionAllow)
	}
	if len(bundle.Rules) != 2 {
		t.Fatalf("len(Rules) = %d, want 2", len(bundle.Rules))
	}
	if bundle.Rules[0].ID != "escalate-red" || bundle.Rules[1].ID != "block-billing" {
		t.Errorf("rule order = [%s %s], want [escalate-red block-billing]",
			bundle.Rules[0].ID, bundle.Rules[1].ID)
	}
}
