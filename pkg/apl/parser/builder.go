package parser

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"aegis-hq/warden/pkg/apl/ast"
	aplErrors "aegis-hq/warden/pkg/apl/errors"
)

// builder constructs AST nodes from intermediate YAML structures. It is
// deliberately lenient about enum values: unknown operators, action
// types and field namespaces survive into the AST so the validator can
// exclude individual rules with warnings instead of failing the bundle.
// Only structurally unbuildable input (a zone matrix that is not three
// distinct zones, unreadable scalars) accumulates errors here.
type builder struct {
	sourcePath string
	errors     *aplErrors.ErrorList
}

// newBuilder creates an AST builder for the given source file.
func newBuilder(sourcePath string) *builder {
	return &builder{
		sourcePath: sourcePath,
		errors:     aplErrors.NewErrorList(),
	}
}

// buildBundle transforms a yamlBundle into an ast.Bundle.
func (b *builder) buildBundle(yb *yamlBundle) (*ast.Bundle, error) {
	bundle := &ast.Bundle{
		Name:          yb.Name,
		Version:       yb.Version,
		Description:   yb.Description,
		DefaultAction: ast.ActionType(yb.DefaultAction),
		Rules:         make([]ast.Rule, 0, len(yb.Rules)),
		SourceFile:    b.sourcePath,
		Location: ast.Location{
			File:   b.sourcePath,
			Line:   1,
			Column: 1,
		},
	}

	for i := range yb.Rules {
		bundle.Rules = append(bundle.Rules, b.buildRule(&yb.Rules[i], i))
	}

	bundle.Zones = b.buildZones(yb.Zones)

	bundle.Tests = make([]ast.BundleTest, 0, len(yb.Tests))
	for i := range yb.Tests {
		bundle.Tests = append(bundle.Tests, b.buildTest(&yb.Tests[i], i))
	}

	if b.errors.HasErrors() {
		return nil, b.errors
	}

	return bundle, nil
}

// buildRule transforms a yamlRule into an ast.Rule. The rule ID defaults
// to "rule-<index>" when the console omitted one so warnings can still
// name the rule.
func (b *builder) buildRule(yr *yamlRule, index int) ast.Rule {
	rule := ast.Rule{
		ID:          yr.ID,
		Name:        yr.Name,
		Description: yr.Description,
		Enabled:     true,
		Priority:    yr.Priority,
		Logic:       ast.Logic(strings.ToUpper(yr.Logic)),
		Conditions:  make([]ast.Condition, 0, len(yr.Conditions)),
		Actions:     make([]ast.ActionConfig, 0, len(yr.Actions)),
		Location:    b.location(yr.node),
	}

	if rule.ID == "" {
		rule.ID = fmt.Sprintf("rule-%d", index)
	}
	if yr.Enabled != nil {
		rule.Enabled = *yr.Enabled
	}
	if yr.Logic == "" {
		rule.Logic = ast.LogicAnd
	}

	for i := range yr.Conditions {
		rule.Conditions = append(rule.Conditions, b.buildCondition(&yr.Conditions[i]))
	}
	for i := range yr.Actions {
		rule.Actions = append(rule.Actions, b.buildAction(&yr.Actions[i]))
	}

	return rule
}

// buildCondition transforms a yamlCondition into an ast.Condition. The
// scalar value is rendered to its literal string form; the value type
// defaults to string when omitted.
func (b *builder) buildCondition(yc *yamlCondition) ast.Condition {
	valueType := ast.ValueType(yc.ValueType)
	if yc.ValueType == "" {
		valueType = ast.TypeString
	}

	return ast.Condition{
		Field:     ast.FieldPath(yc.Field),
		Operator:  ast.Operator(yc.Operator),
		Value:     renderScalar(yc.Value),
		ValueType: valueType,
		Location:  b.location(yc.node),
	}
}

// buildAction transforms a yamlAction into an ast.ActionConfig, decoding
// the loose config map into the typed config for the declared type.
// Missing or ill-typed config keys decode to zero values here; the
// validator decides whether that excludes the rule.
func (b *builder) buildAction(ya *yamlAction) ast.ActionConfig {
	action := ast.ActionConfig{
		Type:     ast.ActionType(ya.Type),
		Location: b.location(ya.node),
	}

	switch action.Type {
	case ast.ActionNotify:
		action.Notify = &ast.NotifyConfig{
			Channels: stringSlice(ya.Config["channels"]),
			Message:  stringValue(ya.Config["message"]),
		}
	case ast.ActionRateLimit:
		action.RateLimit = &ast.RateLimitConfig{
			Limit:         int64Value(ya.Config["limit"]),
			WindowSeconds: intValue(ya.Config["window_seconds"]),
			SubjectField:  ast.FieldPath(stringValue(ya.Config["subject_field"])),
		}
	case ast.ActionLog:
		action.Log = &ast.LogConfig{
			Level:   stringValue(ya.Config["level"]),
			Message: stringValue(ya.Config["message"]),
		}
	case ast.ActionTransform:
		action.Transform = &ast.TransformConfig{
			Field: ast.FieldPath(stringValue(ya.Config["field"])),
			Op:    ast.TransformKind(stringValue(ya.Config["op"])),
			Value: stringValue(ya.Config["value"]),
		}
	default:
		// Terminal and unknown types carry no typed config.
		if len(ya.Config) > 0 {
			action.IgnoredConfig = true
		}
	}

	return action
}

// buildZones assembles the fixed three-zone matrix. A malformed matrix
// is a bundle-level error: rules can degrade one at a time, but the
// engine cannot authorize anything without all three zones.
func (b *builder) buildZones(zones []yamlZone) *ast.ZoneMatrix {
	if len(zones) == 0 {
		b.errors.AddErrorWithSuggestion(
			aplErrors.ErrorTypeStructural,
			"Missing required 'zones' section",
			ast.Location{File: b.sourcePath, Line: 1, Column: 1},
			"Add a 'zones' section with entries for red, yellow and green",
		)
		return nil
	}

	perms := make([]ast.ZonePermission, 0, len(zones))
	for i := range zones {
		yz := &zones[i]
		zone, ok := ast.ParseZone(yz.Zone)
		if !ok {
			valid := []string{string(ast.ZoneRed), string(ast.ZoneYellow), string(ast.ZoneGreen)}
			b.errors.AddErrorWithSuggestion(
				aplErrors.ErrorTypeStructural,
				fmt.Sprintf("Unknown zone %q", yz.Zone),
				b.location(yz.node),
				aplErrors.SuggestClosest(yz.Zone, valid),
			)
			continue
		}
		perms = append(perms, ast.ZonePermission{
			Zone:             zone,
			Level:            ast.AccessLevel(strings.ToLower(yz.Level)),
			Resources:        yz.Resources,
			RequiresApproval: yz.RequiresApproval,
			RequiresAudit:    yz.RequiresAudit,
			Location:         b.location(yz.node),
		})
	}

	matrix, err := ast.NewZoneMatrix(perms...)
	if err != nil {
		b.errors.AddError(
			aplErrors.ErrorTypeStructural,
			fmt.Sprintf("Invalid zone matrix: %v", err),
			ast.Location{File: b.sourcePath, Line: 1, Column: 1},
		)
		return nil
	}

	return matrix
}

// buildTest transforms a yamlTest into an ast.BundleTest.
func (b *builder) buildTest(yt *yamlTest, index int) ast.BundleTest {
	test := ast.BundleTest{
		Name:    yt.Name,
		Context: ast.RequestContext(yt.Context),
		Expect: ast.Expectation{
			Disposition: yt.Expect.Disposition,
			MatchedRule: yt.Expect.MatchedRule,
			ZoneVerdict: yt.Expect.ZoneVerdict,
		},
		Location: b.location(yt.node),
	}

	if test.Name == "" {
		test.Name = fmt.Sprintf("test-%d", index)
	}
	if test.Context == nil {
		test.Context = ast.RequestContext{}
	}

	return test
}

// location extracts the source location from a YAML node.
func (b *builder) location(node *yaml.Node) ast.Location {
	if node == nil {
		return ast.Location{File: b.sourcePath}
	}
	return ast.Location{
		File:   b.sourcePath,
		Line:   node.Line,
		Column: node.Column,
	}
}

// renderScalar renders a decoded YAML scalar to the literal string form
// the condition evaluator coerces from.
func renderScalar(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(s))
		for _, e := range s {
			parts = append(parts, renderScalar(e))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}

// stringValue extracts a string config value, tolerating absence.
func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// stringSlice extracts a string list config value. A single string is
// accepted as a one-element list.
func stringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	case string:
		if s == "" {
			return nil
		}
		return []string{s}
	}
	return nil
}

// int64Value extracts an integer config value, accepting the numeric
// types yaml.v3 produces plus numeric strings.
func int64Value(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	case string:
		if parsed, err := strconv.ParseInt(n, 10, 64); err == nil {
			return parsed
		}
	}
	return 0
}

// intValue extracts an int config value.
func intValue(v any) int {
	return int(int64Value(v))
}
