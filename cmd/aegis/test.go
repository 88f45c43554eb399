package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"aegis-hq/warden/pkg/apl/ast"
	"aegis-hq/warden/pkg/apl/parser"
	"aegis-hq/warden/pkg/cli"
	"aegis-hq/warden/pkg/limits"
	limitsStorage "aegis-hq/warden/pkg/limits/storage"
	"aegis-hq/warden/pkg/policy/engine"
	"aegis-hq/warden/pkg/policy/engine/source"
)

var testFlags struct {
	bundleFile string
	verbose    bool
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run bundle-embedded expectation tests",
	Long: `Execute the expectation tests embedded in a bundle file.

Bundles may carry a tests block. Each case names a request context and
the expected outcome; empty expectation fields are not asserted:

  tests:
    - name: "red write is blocked"
      context:
        request.zone: red
        request.resource: orders-db
        request.action: write
        request.user_id: agent-7
      expect:
        disposition: block
        matched_rule: deny-red-writes
        zone_verdict: denied

Each case runs through the real engine with a fresh in-memory rate
limiter, so rate-limited rules behave deterministically per run.

Examples:
  # Run the tests embedded in a bundle
  aegis test --bundle bundle.yaml

  # Show the outcome of every case, not just failures
  aegis test --bundle bundle.yaml --verbose`,
	RunE: runBundleTests,
}

func init() {
	rootCmd.AddCommand(testCmd)

	testCmd.Flags().StringVarP(&testFlags.bundleFile, "bundle", "b", "", "bundle file to test")
	testCmd.Flags().BoolVar(&testFlags.verbose, "verbose", false, "show expected and actual outcome for every case")

	if err := testCmd.MarkFlagRequired("bundle"); err != nil {
		panic(fmt.Sprintf("failed to mark bundle flag as required: %v", err))
	}
}

// BundleTestResult is the outcome of one embedded expectation case.
type BundleTestResult struct {
	Name     string
	Passed   bool
	Error    string
	Mismatch []string
	Duration time.Duration
}

func runBundleTests(cmd *cobra.Command, args []string) error {
	bundle, err := parser.NewParser().Parse(testFlags.bundleFile)
	if err != nil {
		return cli.NewCommandError("test", fmt.Errorf("failed to load bundle: %w", err))
	}

	if len(bundle.Tests) == 0 {
		return fmt.Errorf("no tests found in %s", testFlags.bundleFile)
	}

	// Engine logs would drown the per-case output.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	limiter := limits.NewLimiter(limitsStorage.NewMemoryBackend(), limits.WithLogger(logger))
	defer limiter.Close()

	eng, err := engine.NewEngine(
		engine.DefaultEngineConfig(),
		source.NewMemorySource(bundle),
		engine.Collaborators{RateLimiter: limiter},
		logger,
	)
	if err != nil {
		return cli.NewCommandError("test", fmt.Errorf("failed to create engine: %w", err))
	}
	defer eng.Close()

	// Rate-limited rules share one counter store across the whole run,
	// so earlier cases can consume quota that later cases expect.
	for i := range bundle.Rules {
		if bundle.Rules[i].HasActionType(ast.ActionRateLimit) {
			fmt.Printf("Note: rule %q carries a rate_limit action; cases run against a shared counter window.\n", bundle.Rules[i].ID)
		}
	}

	fmt.Printf("Running %d test(s) from %s...\n\n", len(bundle.Tests), testFlags.bundleFile)

	results := make([]BundleTestResult, 0, len(bundle.Tests))
	passed := 0
	failed := 0

	for _, testCase := range bundle.Tests {
		result := runBundleTestCase(cmd.Context(), eng, testCase)
		results = append(results, result)

		if result.Passed {
			passed++
			fmt.Printf("✓ %s (%.1fms)\n", result.Name, result.Duration.Seconds()*1000)
			if testFlags.verbose {
				printExpectation(testCase.Expect)
			}
		} else {
			failed++
			fmt.Printf("✗ %s\n", result.Name)
			if result.Error != "" {
				fmt.Printf("  Error: %s\n", result.Error)
			}
			for _, m := range result.Mismatch {
				fmt.Printf("  %s\n", m)
			}
		}
	}

	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  %d tests run, %d passed, %d failed\n", len(results), passed, failed)

	if failed > 0 {
		return cli.NewCommandError("test", fmt.Errorf("test failures"))
	}

	return nil
}

func runBundleTestCase(ctx context.Context, eng *engine.Engine, testCase ast.BundleTest) BundleTestResult {
	start := time.Now()

	result := BundleTestResult{Name: testCase.Name}

	decision, err := eng.Decide(ctx, testCase.Context)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	expect := testCase.Expect

	if expect.Disposition != "" && string(decision.FinalDisposition) != expect.Disposition {
		result.Mismatch = append(result.Mismatch,
			fmt.Sprintf("disposition: expected %q, got %q", expect.Disposition, decision.FinalDisposition))
	}

	if expect.MatchedRule != "" {
		actual := decision.MatchedRuleID
		if decision.DefaultApplied {
			actual = "default"
		}
		if actual != expect.MatchedRule {
			result.Mismatch = append(result.Mismatch,
				fmt.Sprintf("matched_rule: expected %q, got %q", expect.MatchedRule, actual))
		}
	}

	if expect.ZoneVerdict != "" && string(decision.ZoneVerdict) != expect.ZoneVerdict {
		result.Mismatch = append(result.Mismatch,
			fmt.Sprintf("zone_verdict: expected %q, got %q", expect.ZoneVerdict, decision.ZoneVerdict))
	}

	result.Passed = len(result.Mismatch) == 0
	return result
}

func printExpectation(expect ast.Expectation) {
	if expect.Disposition != "" {
		fmt.Printf("    disposition=%s\n", expect.Disposition)
	}
	if expect.MatchedRule != "" {
		fmt.Printf("    matched_rule=%s\n", expect.MatchedRule)
	}
	if expect.ZoneVerdict != "" {
		fmt.Printf("    zone_verdict=%s\n", expect.ZoneVerdict)
	}
}
