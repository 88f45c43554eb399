package main

import (
	"os"
	"path/filepath"
	"testing"
)

func resetValidateFlags() {
	validateFlags.file = ""
	validateFlags.dir = ""
	validateFlags.strict = false
	validateFlags.format = "text"
}

func TestValidateValidFile(t *testing.T) {
	resetValidateFlags()
	validateFlags.file = "testdata/valid-bundle.yaml"

	if err := validateBundles(nil, nil); err != nil {
		t.Errorf("validateBundles() with valid file returned error: %v", err)
	}
}

func TestValidateInvalidFile(t *testing.T) {
	resetValidateFlags()
	validateFlags.file = "testdata/invalid-bundle.yaml"

	if err := validateBundles(nil, nil); err == nil {
		t.Error("validateBundles() with invalid file should return error")
	}
}

func TestValidateNonexistentFile(t *testing.T) {
	resetValidateFlags()
	validateFlags.file = "testdata/nonexistent.yaml"

	if err := validateBundles(nil, nil); err == nil {
		t.Error("validateBundles() with nonexistent file should return error")
	}
}

func TestValidateNoFileOrDir(t *testing.T) {
	resetValidateFlags()

	if err := validateBundles(nil, nil); err == nil {
		t.Error("validateBundles() without file or dir should return error")
	}
}

func TestValidateJSONFormat(t *testing.T) {
	resetValidateFlags()
	validateFlags.file = "testdata/valid-bundle.yaml"
	validateFlags.format = "json"

	if err := validateBundles(nil, nil); err != nil {
		t.Errorf("validateBundles() with JSON format returned error: %v", err)
	}
}

func TestValidateDirectory(t *testing.T) {
	resetValidateFlags()

	dir := t.TempDir()
	data, err := os.ReadFile("testdata/valid-bundle.yaml")
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), data, 0644); err != nil {
		t.Fatalf("failed to write bundle: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.yml"), data, 0644); err != nil {
		t.Fatalf("failed to write bundle: %v", err)
	}

	validateFlags.dir = dir
	if err := validateBundles(nil, nil); err != nil {
		t.Errorf("validateBundles() over directory returned error: %v", err)
	}
}

func TestValidateEmptyDirectory(t *testing.T) {
	resetValidateFlags()
	validateFlags.dir = t.TempDir()

	if err := validateBundles(nil, nil); err == nil {
		t.Error("validateBundles() over empty directory should return error")
	}
}

func TestValidateStrictTreatsWarningsAsErrors(t *testing.T) {
	resetValidateFlags()

	// An unknown action type is a warning: the rule is excluded but the
	// bundle still loads.
	bundle := `
apl_version: "1.0"
name: "warned-guardrails"
version: "1.0.0"
default_action: "allow"
zones:
  - zone: "red"
    level: "none"
  - zone: "yellow"
    level: "none"
  - zone: "green"
    level: "admin"
rules:
  - id: "bad-action"
    name: "Rule with unknown action"
    logic: "AND"
    conditions:
      - field: "request.zone"
        operator: "equals"
        value: "green"
    actions:
      - type: "quarantine"
`
	path := filepath.Join(t.TempDir(), "warned.yaml")
	if err := os.WriteFile(path, []byte(bundle), 0644); err != nil {
		t.Fatalf("failed to write bundle: %v", err)
	}

	validateFlags.file = path
	if err := validateBundles(nil, nil); err != nil {
		t.Errorf("validateBundles() without strict returned error: %v", err)
	}

	validateFlags.strict = true
	if err := validateBundles(nil, nil); err == nil {
		t.Error("validateBundles() with strict should treat warnings as errors")
	}
}

func TestValidateBundleFileResult(t *testing.T) {
	result := validateBundleFile("testdata/valid-bundle.yaml")

	if !result.Valid {
		t.Errorf("Valid = false, want true; errors: %v", result.Errors)
	}
	if result.RuleCount != 1 {
		t.Errorf("RuleCount = %d, want 1", result.RuleCount)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors = %v, want none", result.Errors)
	}
}

func TestValidateBundleFileInvalidResult(t *testing.T) {
	result := validateBundleFile("testdata/invalid-bundle.yaml")

	if result.Valid {
		t.Error("Valid = true, want false")
	}
	if len(result.Errors) == 0 {
		t.Fatal("expected at least one error")
	}
	if result.Errors[0].Severity != "error" {
		t.Errorf("Severity = %q, want %q", result.Errors[0].Severity, "error")
	}
}
