package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

// testCommand builds a command carrier with a usable context, since the
// RunE functions read cmd.Context().
func testCommand(t *testing.T) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return cmd
}

func TestRunBundleTestsAllPass(t *testing.T) {
	testFlags.bundleFile = "testdata/valid-bundle.yaml"
	testFlags.verbose = false

	if err := runBundleTests(testCommand(t), nil); err != nil {
		t.Errorf("runBundleTests() returned error: %v", err)
	}
}

func TestRunBundleTestsNoTests(t *testing.T) {
	// A valid bundle without a tests block is an error: there is nothing
	// to run.
	bundle := `
apl_version: "1.0"
name: "untested-guardrails"
version: "1.0.0"
default_action: "allow"
zones:
  - zone: "green"
    level: "admin"
rules: []
`
	path := filepath.Join(t.TempDir(), "untested.yaml")
	if err := os.WriteFile(path, []byte(bundle), 0644); err != nil {
		t.Fatalf("failed to write bundle: %v", err)
	}

	testFlags.bundleFile = path
	if err := runBundleTests(testCommand(t), nil); err == nil {
		t.Error("runBundleTests() without tests should return error")
	}
}

func TestRunBundleTestsFailingExpectation(t *testing.T) {
	bundle := `
apl_version: "1.0"
name: "failing-guardrails"
version: "1.0.0"
default_action: "allow"
zones:
  - zone: "green"
    level: "admin"
rules: []
tests:
  - name: "wrong expectation"
    context:
      request.zone: "green"
    expect:
      disposition: "block"
`
	path := filepath.Join(t.TempDir(), "failing.yaml")
	if err := os.WriteFile(path, []byte(bundle), 0644); err != nil {
		t.Fatalf("failed to write bundle: %v", err)
	}

	testFlags.bundleFile = path
	if err := runBundleTests(testCommand(t), nil); err == nil {
		t.Error("runBundleTests() with failing expectation should return error")
	}
}

func TestRunBundleTestsNonexistentBundle(t *testing.T) {
	testFlags.bundleFile = "testdata/nonexistent.yaml"

	if err := runBundleTests(testCommand(t), nil); err == nil {
		t.Error("runBundleTests() with nonexistent bundle should return error")
	}
}
