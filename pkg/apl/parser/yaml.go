package parser

import (
	"os"

	"gopkg.in/yaml.v3"
)

// yamlBundle is the intermediate structure a bundle file decodes into
// before AST construction. Field names match the YAML the operator
// console emits.
type yamlBundle struct {
	APLVersion    string     `yaml:"apl_version"`
	Name          string     `yaml:"name"`
	Version       string     `yaml:"version"`
	Description   string     `yaml:"description"`
	DefaultAction string     `yaml:"default_action"`
	Rules         []yamlRule `yaml:"rules"`
	Zones         []yamlZone `yaml:"zones"`
	Tests         []yamlTest `yaml:"tests"`

	node *yaml.Node // Root node, for document-level locations
}

// yamlRule is an intermediate rule. Enabled is a pointer so an absent
// flag defaults to true instead of false.
type yamlRule struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Enabled     *bool           `yaml:"enabled"`
	Priority    int             `yaml:"priority"`
	Logic       string          `yaml:"logic"`
	Conditions  []yamlCondition `yaml:"conditions"`
	Actions     []yamlAction    `yaml:"actions"`

	node *yaml.Node
}

func (r *yamlRule) UnmarshalYAML(node *yaml.Node) error {
	type plain yamlRule
	if err := node.Decode((*plain)(r)); err != nil {
		return err
	}
	r.node = node
	return nil
}

// yamlCondition is an intermediate condition. Value decodes from any
// YAML scalar and is rendered to its literal string form by the builder.
type yamlCondition struct {
	Field     string `yaml:"field"`
	Operator  string `yaml:"operator"`
	Value     any    `yaml:"value"`
	ValueType string `yaml:"value_type"`

	node *yaml.Node
}

func (c *yamlCondition) UnmarshalYAML(node *yaml.Node) error {
	type plain yamlCondition
	if err := node.Decode((*plain)(c)); err != nil {
		return err
	}
	c.node = node
	return nil
}

// yamlAction is an intermediate action: a type plus the loose config map
// the console emits. The builder turns the map into the typed config for
// the declared action type.
type yamlAction struct {
	Type   string         `yaml:"type"`
	Config map[string]any `yaml:"config"`

	node *yaml.Node
}

func (a *yamlAction) UnmarshalYAML(node *yaml.Node) error {
	type plain yamlAction
	if err := node.Decode((*plain)(a)); err != nil {
		return err
	}
	a.node = node
	return nil
}

// yamlZone is an intermediate zone permission entry.
type yamlZone struct {
	Zone             string   `yaml:"zone"`
	Level            string   `yaml:"level"`
	Resources        []string `yaml:"resources"`
	RequiresApproval bool     `yaml:"requires_approval"`
	RequiresAudit    bool     `yaml:"requires_audit"`

	node *yaml.Node
}

func (z *yamlZone) UnmarshalYAML(node *yaml.Node) error {
	type plain yamlZone
	if err := node.Decode((*plain)(z)); err != nil {
		return err
	}
	z.node = node
	return nil
}

// yamlTest is an intermediate embedded expectation test.
type yamlTest struct {
	Name    string              `yaml:"name"`
	Context map[string]any      `yaml:"context"`
	Expect  yamlTestExpectation `yaml:"expect"`

	node *yaml.Node
}

func (t *yamlTest) UnmarshalYAML(node *yaml.Node) error {
	type plain yamlTest
	if err := node.Decode((*plain)(t)); err != nil {
		return err
	}
	t.node = node
	return nil
}

// yamlTestExpectation is the asserted outcome of a bundle test.
type yamlTestExpectation struct {
	Disposition string `yaml:"disposition"`
	MatchedRule string `yaml:"matched_rule"`
	ZoneVerdict string `yaml:"zone_verdict"`
}

// parseYAMLFile reads and parses a bundle file into the intermediate
// structure, preserving line numbers for error reporting.
func parseYAMLFile(path string) (*yamlBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseYAMLBytes(data)
}

// parseYAMLBytes parses bundle YAML from memory.
func parseYAMLBytes(data []byte) (*yamlBundle, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}

	var bundle yamlBundle
	if err := node.Decode(&bundle); err != nil {
		return nil, err
	}

	bundle.node = &node
	return &bundle, nil
}
