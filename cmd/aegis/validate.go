package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	aplErrors "aegis-hq/warden/pkg/apl/errors"
	"aegis-hq/warden/pkg/apl/parser"
	"aegis-hq/warden/pkg/apl/validator"
	"aegis-hq/warden/pkg/cli"
)

var validateFlags struct {
	file   string
	dir    string
	strict bool
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate bundle files",
	Long: `Validate APL bundle files for syntax and structural errors.

The validate command parses bundle files and performs full validation:
  - YAML syntax validation
  - Bundle structure validation (rules, conditions, actions)
  - Enum and typed action config checks
  - Zone matrix completeness
  - Per-rule warnings for excluded rules

Examples:
  # Validate a single bundle
  aegis validate --file bundle.yaml

  # Validate a directory of bundles
  aegis validate --dir policies/

  # Strict mode (warnings as errors)
  aegis validate --file bundle.yaml --strict

  # JSON output for CI/CD
  aegis validate --file bundle.yaml --format json`,
	RunE: validateBundles,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.file, "file", "f", "", "bundle file to validate")
	validateCmd.Flags().StringVarP(&validateFlags.dir, "dir", "d", "", "directory of bundle files")
	validateCmd.Flags().BoolVar(&validateFlags.strict, "strict", false, "treat warnings as errors")
	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

// ValidationResult is the validation outcome for a single bundle file.
type ValidationResult struct {
	File      string            `json:"file"`
	Valid     bool              `json:"valid"`
	RuleCount int               `json:"rule_count"`
	Excluded  []string          `json:"excluded_rules,omitempty"`
	Errors    []ValidationIssue `json:"errors,omitempty"`
	Warnings  []ValidationIssue `json:"warnings,omitempty"`
}

// ValidationIssue is one error or warning found in a bundle file.
type ValidationIssue struct {
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	Rule       string `json:"rule,omitempty"`
	Message    string `json:"message"`
	Severity   string `json:"severity"`
	Type       string `json:"type,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func validateBundles(cmd *cobra.Command, args []string) error {
	if validateFlags.file == "" && validateFlags.dir == "" {
		return cli.NewUsageError("validate", "either --file or --dir must be specified")
	}

	var files []string
	if validateFlags.file != "" {
		files = append(files, validateFlags.file)
	}
	if validateFlags.dir != "" {
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(validateFlags.dir, pattern))
			if err != nil {
				return fmt.Errorf("failed to list bundle files: %w", err)
			}
			files = append(files, matches...)
		}
	}

	if len(files) == 0 {
		return fmt.Errorf("no bundle files found")
	}

	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		results = append(results, validateBundleFile(file))
	}

	if validateFlags.format == "json" {
		return outputValidationJSON(results)
	}
	return outputValidationText(results, validateFlags.strict)
}

func validateBundleFile(path string) ValidationResult {
	result := ValidationResult{
		File:  path,
		Valid: true,
	}

	bundle, err := parser.NewParser().Parse(path)
	if err != nil {
		result.Valid = false
		result.Errors = appendIssues(result.Errors, err)
		return result
	}

	report, err := validator.NewValidator().Validate(bundle)
	if err != nil {
		result.Valid = false
		result.Errors = appendIssues(result.Errors, err)
		return result
	}

	result.RuleCount = len(report.RuleSet.Rules)
	result.Excluded = report.ExcludedRuleIDs
	for _, w := range report.Warnings {
		result.Warnings = append(result.Warnings, ValidationIssue{
			Line:       w.Location.Line,
			Column:     w.Location.Column,
			Rule:       w.RuleID,
			Message:    w.Message,
			Severity:   "warning",
			Suggestion: w.Suggestion,
		})
	}

	return result
}

// appendIssues flattens parser and validator errors into issues,
// keeping source locations when the error carries them.
func appendIssues(issues []ValidationIssue, err error) []ValidationIssue {
	var errList *aplErrors.ErrorList
	var aplErr *aplErrors.Error

	switch {
	case errors.As(err, &errList):
		for _, e := range errList.Errors {
			issues = append(issues, ValidationIssue{
				Line:       e.Location.Line,
				Column:     e.Location.Column,
				Message:    e.Message,
				Severity:   "error",
				Type:       string(e.Type),
				Suggestion: e.Suggestion,
			})
		}
	case errors.As(err, &aplErr):
		issues = append(issues, ValidationIssue{
			Line:       aplErr.Location.Line,
			Column:     aplErr.Location.Column,
			Message:    aplErr.Message,
			Severity:   "error",
			Type:       string(aplErr.Type),
			Suggestion: aplErr.Suggestion,
		})
	default:
		issues = append(issues, ValidationIssue{
			Message:  err.Error(),
			Severity: "error",
		})
	}

	return issues
}

func outputValidationText(results []ValidationResult, strict bool) error {
	totalErrors := 0
	totalWarnings := 0

	for _, result := range results {
		fmt.Printf("Validating %s...\n", result.File)

		if len(result.Errors) == 0 && len(result.Warnings) == 0 {
			fmt.Printf("✓ Bundle valid (%d rules)\n", result.RuleCount)
		}

		for _, issue := range result.Errors {
			fmt.Printf("✗ Error: %s", issue.Message)
			printIssueLocation(issue)
			totalErrors++
		}

		for _, issue := range result.Warnings {
			fmt.Printf("⚠  Warning: ")
			if issue.Rule != "" {
				fmt.Printf("rule %q: ", issue.Rule)
			}
			fmt.Print(issue.Message)
			printIssueLocation(issue)
			totalWarnings++
		}

		if len(result.Excluded) > 0 {
			fmt.Printf("  %d rule(s) excluded from evaluation: %v\n", len(result.Excluded), result.Excluded)
		}

		fmt.Println()
	}

	fmt.Println("Summary:")
	fmt.Printf("  %d error(s), %d warning(s)\n", totalErrors, totalWarnings)

	if strict && totalWarnings > 0 {
		fmt.Println("  Strict mode enabled: treating warnings as errors")
		return cli.NewCommandError("validate", fmt.Errorf("validation failed"))
	}

	if totalErrors > 0 {
		return cli.NewCommandError("validate", fmt.Errorf("validation failed"))
	}

	return nil
}

func printIssueLocation(issue ValidationIssue) {
	if issue.Line > 0 {
		fmt.Printf(" (line %d", issue.Line)
		if issue.Column > 0 {
			fmt.Printf(", col %d", issue.Column)
		}
		fmt.Print(")")
	}
	if issue.Type != "" {
		fmt.Printf(" [%s]", issue.Type)
	}
	fmt.Println()
}

func outputValidationJSON(results []ValidationResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}
