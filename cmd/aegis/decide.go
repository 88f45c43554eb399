package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"aegis-hq/warden/pkg/apl/ast"
	"aegis-hq/warden/pkg/apl/parser"
	"aegis-hq/warden/pkg/cli"
	"aegis-hq/warden/pkg/policy/engine"
	"aegis-hq/warden/pkg/policy/engine/source"
)

var decideFlags struct {
	bundleFile  string
	contextFile string
	set         []string
	format      string
	trace       bool
}

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Evaluate a single request context against a bundle",
	Long: `Make one decision for an ad-hoc request context.

The context is a flat YAML mapping of field names to values, loaded
from a file, built from --set overrides, or both (--set wins):

  request.zone: red
  request.resource: orders-db
  request.action: write
  request.user_id: agent-7

Examples:
  # Decide from a context file
  aegis decide --bundle bundle.yaml --context request.yaml

  # Ad-hoc context from the command line
  aegis decide --bundle bundle.yaml --set request.zone=red --set request.action=write

  # Include the evaluation trace
  aegis decide --bundle bundle.yaml --context request.yaml --trace

  # JSON output
  aegis decide --bundle bundle.yaml --context request.yaml --format json`,
	RunE: runDecide,
}

func init() {
	rootCmd.AddCommand(decideCmd)

	decideCmd.Flags().StringVarP(&decideFlags.bundleFile, "bundle", "b", "", "bundle file to evaluate against")
	decideCmd.Flags().StringVarP(&decideFlags.contextFile, "context", "C", "", "request context YAML file")
	decideCmd.Flags().StringArrayVar(&decideFlags.set, "set", nil, "context field override (key=value, repeatable)")
	decideCmd.Flags().StringVar(&decideFlags.format, "format", "text", "output format: text, json")
	decideCmd.Flags().BoolVar(&decideFlags.trace, "trace", false, "include the evaluation trace")

	if err := decideCmd.MarkFlagRequired("bundle"); err != nil {
		panic(fmt.Sprintf("failed to mark bundle flag as required: %v", err))
	}
}

// decideOutput is the JSON shape of one rendered decision.
type decideOutput struct {
	ID               string             `json:"id"`
	FinalDisposition string             `json:"final_disposition"`
	MatchedRuleID    string             `json:"matched_rule_id,omitempty"`
	MatchedRuleName  string             `json:"matched_rule_name,omitempty"`
	DefaultApplied   bool               `json:"default_applied"`
	ZoneVerdict      string             `json:"zone_verdict"`
	RateLimited      bool               `json:"rate_limited,omitempty"`
	SideEffects      []decideSideEffect `json:"side_effects,omitempty"`
	Diagnostics      []string           `json:"diagnostics,omitempty"`
	EvaluationTime   string             `json:"evaluation_time"`
	Trace            []decideTraceStep  `json:"trace,omitempty"`
}

type decideSideEffect struct {
	Action string `json:"action"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}

type decideTraceStep struct {
	Step    string `json:"step"`
	RuleID  string `json:"rule_id,omitempty"`
	Details string `json:"details,omitempty"`
	Elapsed string `json:"elapsed"`
}

func runDecide(cmd *cobra.Command, args []string) error {
	if decideFlags.contextFile == "" && len(decideFlags.set) == 0 {
		return cli.NewUsageError("decide", "either --context or --set must be specified")
	}

	rctx, err := loadRequestContext(decideFlags.contextFile, decideFlags.set)
	if err != nil {
		return cli.NewCommandError("decide", err)
	}

	bundle, err := parser.NewParser().Parse(decideFlags.bundleFile)
	if err != nil {
		return cli.NewCommandError("decide", fmt.Errorf("failed to load bundle: %w", err))
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// A one-shot decision has no rate-limit state and no sinks; the
	// dispatcher reports those effects as failed or skipped.
	eng, err := engine.NewEngine(
		engine.DefaultEngineConfig().WithTrace(decideFlags.trace),
		source.NewMemorySource(bundle),
		engine.Collaborators{},
		logger,
	)
	if err != nil {
		return cli.NewCommandError("decide", fmt.Errorf("failed to create engine: %w", err))
	}
	defer eng.Close()

	decision, err := eng.Decide(cmd.Context(), rctx)
	if err != nil {
		return cli.NewCommandError("decide", err)
	}

	var ruleName string
	if decision.MatchedRuleID != "" {
		if rule, ok := eng.Snapshot().RuleSet.RuleByID(decision.MatchedRuleID); ok {
			ruleName = rule.Name
		}
	}

	if decideFlags.format == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, renderDecision(decision, ruleName))
	}

	printDecision(decision, ruleName)
	return nil
}

// loadRequestContext builds the request context from an optional YAML
// file plus key=value overrides. Override values are parsed as YAML
// scalars so numbers and booleans keep their types.
func loadRequestContext(path string, overrides []string) (ast.RequestContext, error) {
	rctx := ast.RequestContext{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read context file: %w", err)
		}
		if err := yaml.Unmarshal(data, &rctx); err != nil {
			return nil, fmt.Errorf("failed to parse context file: %w", err)
		}
	}

	for _, kv := range overrides {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: expected key=value", kv)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		rctx[key] = value
	}

	return rctx, nil
}

func renderDecision(d *engine.Decision, ruleName string) decideOutput {
	out := decideOutput{
		ID:               d.ID,
		FinalDisposition: string(d.FinalDisposition),
		MatchedRuleID:    d.MatchedRuleID,
		MatchedRuleName:  ruleName,
		DefaultApplied:   d.DefaultApplied,
		ZoneVerdict:      string(d.ZoneVerdict),
		RateLimited:      d.RateLimited,
		EvaluationTime:   d.EvaluationTime.String(),
	}

	for _, se := range d.SideEffects {
		out.SideEffects = append(out.SideEffects, decideSideEffect{
			Action: string(se.ActionType),
			Status: string(se.Status),
			Detail: se.Detail,
			Error:  se.Err,
		})
	}

	for _, diag := range d.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, diag.Message)
	}

	if d.Trace != nil {
		for _, step := range d.Trace.Steps {
			out.Trace = append(out.Trace, decideTraceStep{
				Step:    step.StepType,
				RuleID:  step.RuleID,
				Details: step.Details,
				Elapsed: step.Elapsed.String(),
			})
		}
	}

	return out
}

func printDecision(d *engine.Decision, ruleName string) {
	fmt.Printf("Decision %s\n", d.ID)
	fmt.Printf("  Disposition: %s\n", d.FinalDisposition)
	if d.DefaultApplied {
		fmt.Println("  Matched rule: (default)")
	} else if d.MatchedRuleID != "" {
		if ruleName != "" {
			fmt.Printf("  Matched rule: %s (%s)\n", d.MatchedRuleID, ruleName)
		} else {
			fmt.Printf("  Matched rule: %s\n", d.MatchedRuleID)
		}
	}
	fmt.Printf("  Zone verdict: %s\n", d.ZoneVerdict)
	if d.RateLimited {
		fmt.Println("  Rate limited: yes")
	}
	fmt.Printf("  Evaluation time: %s\n", formatElapsed(d.EvaluationTime))

	if len(d.SideEffects) > 0 {
		fmt.Println("  Side effects:")
		for _, se := range d.SideEffects {
			fmt.Printf("    %-12s %s", se.ActionType, se.Status)
			if se.Detail != "" {
				fmt.Printf(" (%s)", se.Detail)
			}
			if se.Err != "" {
				fmt.Printf(": %s", se.Err)
			}
			fmt.Println()
		}
	}

	if len(d.Diagnostics) > 0 {
		fmt.Println("  Diagnostics:")
		for _, diag := range d.Diagnostics {
			if diag.RuleID != "" {
				fmt.Printf("    [%s] %s\n", diag.RuleID, diag.Message)
			} else {
				fmt.Printf("    %s\n", diag.Message)
			}
		}
	}

	if d.Trace != nil && len(d.Trace.Steps) > 0 {
		fmt.Println("  Trace:")
		for _, step := range d.Trace.Steps {
			fmt.Printf("    %-12s", step.StepType)
			if step.RuleID != "" {
				fmt.Printf(" %s", step.RuleID)
			}
			if step.Details != "" {
				fmt.Printf(" %s", step.Details)
			}
			fmt.Printf(" (%s)\n", formatElapsed(step.Elapsed))
		}
		fmt.Printf("    total %s\n", formatElapsed(d.Trace.TotalTime))
	}
}

func formatElapsed(d time.Duration) string {
	return d.Round(time.Microsecond).String()
}
