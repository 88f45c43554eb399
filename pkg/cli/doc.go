/*
Package cli provides command-line interface utilities for Warden.

The cli package includes output formatters, error types, and signal
handling used by the aegis command.

Output Formatting:

Command results render as text or JSON:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Audit exports use the dedicated exporters in pkg/audit/export instead of
these formatters.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
	// Use ctx for operations that should stop on shutdown
*/
package cli
