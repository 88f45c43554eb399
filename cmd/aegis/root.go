package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "aegis",
	Short: "Aegis Warden - policy and zone-access evaluation engine",
	Long: `Aegis Warden is the guardrail core for consoles that author
autonomous-agent configuration.

Given a proposed agent action (a flat request context of dotted-path
fields), an operator-authored rule set, and a three-zone permission
matrix, it deterministically produces a single decision: allow, block,
or escalate, with side effects (audit, notify, rate-limit, transform)
dispatched in one pass.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
