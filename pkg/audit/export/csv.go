package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"aegis-hq/warden/pkg/audit"
)

// CSVExporter writes audit records as CSV rows, one per record.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export writes the records to w in CSV format.
func (e *CSVExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
	}

	for _, record := range records {
		if err := writer.Write(recordRow(record)); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return audit.NewExportError("csv", len(records), err)
	}
	return nil
}

func headerRow() []string {
	return []string{
		"id", "decision_id", "timestamp",
		"rule_id", "zone", "zone_verdict", "disposition",
		"subject", "level", "message", "mandatory", "hash",
	}
}

func recordRow(r *audit.Record) []string {
	return []string{
		r.ID,
		r.DecisionID,
		r.Timestamp.UTC().Format(time.RFC3339Nano),
		r.RuleID,
		r.Zone,
		r.ZoneVerdict,
		r.Disposition,
		r.Subject,
		r.Level,
		r.Message,
		strconv.FormatBool(r.Mandatory),
		r.Hash,
	}
}
