package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"aegis-hq/warden/pkg/audit"
	"aegis-hq/warden/pkg/audit/export"
	"aegis-hq/warden/pkg/audit/retention"
	auditStorage "aegis-hq/warden/pkg/audit/storage"
	"aegis-hq/warden/pkg/cli"
	"aegis-hq/warden/pkg/config"
)

var auditFlags struct {
	ruleID        string
	subject       string
	zone          string
	disposition   string
	mandatoryOnly bool
	start         string
	end           string
	limit         int
	offset        int
	format        string
	output        string
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query and manage the audit trail",
	Long: `Query, export, and prune audit records.

The audit trail records every log action and every requires-audit zone
decision. Records are queried from the configured storage backend.

Examples:
  # Show the most recent records
  aegis audit query --limit 20

  # Records for one rule in a time range
  aegis audit query --rule deny-red-writes --start 2026-08-01T00:00:00Z

  # Export everything from the red zone as CSV
  aegis audit export --zone red --format csv --output red.csv

  # Delete records past the retention horizon
  aegis audit prune`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query audit records",
	RunE:  runAuditQuery,
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit records as JSON or CSV",
	RunE:  runAuditExport,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete records past the retention horizon",
	RunE:  runAuditPrune,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd)
	auditCmd.AddCommand(auditExportCmd)
	auditCmd.AddCommand(auditPruneCmd)

	for _, cmd := range []*cobra.Command{auditQueryCmd, auditExportCmd} {
		cmd.Flags().StringVar(&auditFlags.ruleID, "rule", "", "filter by rule ID")
		cmd.Flags().StringVar(&auditFlags.subject, "subject", "", "filter by subject")
		cmd.Flags().StringVar(&auditFlags.zone, "zone", "", "filter by zone")
		cmd.Flags().StringVar(&auditFlags.disposition, "disposition", "", "filter by disposition (allow, block, escalate)")
		cmd.Flags().BoolVar(&auditFlags.mandatoryOnly, "mandatory-only", false, "only zone-mandated records")
		cmd.Flags().StringVar(&auditFlags.start, "start", "", "start of time range (RFC 3339)")
		cmd.Flags().StringVar(&auditFlags.end, "end", "", "end of time range (RFC 3339)")
		cmd.Flags().IntVar(&auditFlags.limit, "limit", 100, "maximum records to return")
		cmd.Flags().IntVar(&auditFlags.offset, "offset", 0, "records to skip")
	}

	auditQueryCmd.Flags().StringVar(&auditFlags.format, "format", "text", "output format: text, json")

	auditExportCmd.Flags().StringVar(&auditFlags.format, "format", "json", "export format: json, csv")
	auditExportCmd.Flags().StringVarP(&auditFlags.output, "output", "o", "", "output file (default stdout)")
}

// openAuditStorage opens the configured audit backend read-write.
func openAuditStorage() (audit.Storage, *config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.GetConfig()

	switch cfg.Audit.Backend {
	case "sqlite":
		store, err := auditStorage.NewSQLiteStorage(cfg.Audit.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open audit store: %w", err)
		}
		return store, cfg, nil
	case "memory", "":
		// A fresh memory store is always empty; only useful for
		// exercising the commands without a database.
		return auditStorage.NewMemoryStorage(), cfg, nil
	default:
		return nil, nil, fmt.Errorf("unsupported audit backend: %s", cfg.Audit.Backend)
	}
}

// buildAuditQuery translates the shared flags into a storage query.
func buildAuditQuery() (*audit.Query, error) {
	query := &audit.Query{
		RuleID:        auditFlags.ruleID,
		Subject:       auditFlags.subject,
		Zone:          auditFlags.zone,
		Disposition:   auditFlags.disposition,
		MandatoryOnly: auditFlags.mandatoryOnly,
		Limit:         auditFlags.limit,
		Offset:        auditFlags.offset,
	}

	if auditFlags.start != "" {
		t, err := time.Parse(time.RFC3339, auditFlags.start)
		if err != nil {
			return nil, fmt.Errorf("invalid --start %q: %w", auditFlags.start, err)
		}
		query.StartTime = &t
	}
	if auditFlags.end != "" {
		t, err := time.Parse(time.RFC3339, auditFlags.end)
		if err != nil {
			return nil, fmt.Errorf("invalid --end %q: %w", auditFlags.end, err)
		}
		query.EndTime = &t
	}

	return query, nil
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	query, err := buildAuditQuery()
	if err != nil {
		return cli.NewUsageError("audit query", err.Error())
	}

	store, _, err := openAuditStorage()
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}
	defer store.Close()

	records, err := store.Query(cmd.Context(), query)
	if err != nil {
		return cli.NewCommandError("audit query", fmt.Errorf("query failed: %w", err))
	}

	if auditFlags.format == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, records)
	}

	if len(records) == 0 {
		fmt.Println("No records found")
		return nil
	}

	for _, record := range records {
		fmt.Printf("%s  %-8s  rule=%s zone=%s subject=%s",
			record.Timestamp.Format(time.RFC3339),
			record.Disposition,
			orDash(record.RuleID),
			orDash(record.Zone),
			orDash(record.Subject),
		)
		if record.Mandatory {
			fmt.Print("  [mandatory]")
		}
		if record.Message != "" {
			fmt.Printf("  %s", record.Message)
		}
		fmt.Println()
	}
	fmt.Printf("\n%d record(s)\n", len(records))

	return nil
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	query, err := buildAuditQuery()
	if err != nil {
		return cli.NewUsageError("audit export", err.Error())
	}

	var exporter audit.Exporter
	switch auditFlags.format {
	case "json":
		exporter = export.NewJSONExporter(true)
	case "csv":
		exporter = export.NewCSVExporter(true)
	default:
		return cli.NewUsageError("audit export", fmt.Sprintf("unsupported format %q", auditFlags.format))
	}

	store, _, err := openAuditStorage()
	if err != nil {
		return cli.NewCommandError("audit export", err)
	}
	defer store.Close()

	records, err := store.Query(cmd.Context(), query)
	if err != nil {
		return cli.NewCommandError("audit export", fmt.Errorf("query failed: %w", err))
	}

	var out io.Writer = os.Stdout
	if auditFlags.output != "" {
		f, err := os.Create(auditFlags.output)
		if err != nil {
			return cli.NewCommandError("audit export", fmt.Errorf("failed to create output file: %w", err))
		}
		defer f.Close()
		out = f
	}

	if err := exporter.Export(cmd.Context(), records, out); err != nil {
		return cli.NewCommandError("audit export", err)
	}

	if auditFlags.output != "" {
		fmt.Printf("Exported %d record(s) to %s\n", len(records), auditFlags.output)
	}

	return nil
}

func runAuditPrune(cmd *cobra.Command, args []string) error {
	store, cfg, err := openAuditStorage()
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}
	defer store.Close()

	if cfg.Audit.RetentionDays <= 0 {
		fmt.Println("Retention is unbounded (retention_days is 0), nothing to prune")
		return nil
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	pruner := retention.NewPruner(store, &retention.Config{
		RetentionDays:       cfg.Audit.RetentionDays,
		ArchiveBeforeDelete: cfg.Audit.ArchiveBeforeDelete,
		ArchivePath:         cfg.Audit.ArchivePath,
	}, logger)

	removed, err := pruner.Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}

	fmt.Printf("Pruned %d record(s) older than %d day(s)\n", removed, cfg.Audit.RetentionDays)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
