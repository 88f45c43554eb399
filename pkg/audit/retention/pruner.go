package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"aegis-hq/warden/pkg/audit"
	"aegis-hq/warden/pkg/audit/export"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is how many days of audit records to keep.
	// 0 means keep records forever.
	RetentionDays int

	// PruneSchedule is a cron expression for scheduled pruning, e.g.
	// "0 3 * * *" for daily at 3 AM. Empty disables the scheduler.
	PruneSchedule string

	// ArchiveBeforeDelete exports records to JSON before deletion.
	ArchiveBeforeDelete bool

	// ArchivePath is the directory archived records are written to.
	ArchivePath string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays:       90,
		PruneSchedule:       "0 3 * * *",
		ArchiveBeforeDelete: false,
		ArchivePath:         "data/archives",
	}
}

// Pruner enforces the retention policy on the audit store.
type Pruner struct {
	storage audit.Storage
	config  *Config
	logger  *slog.Logger
}

// NewPruner creates a retention pruner.
func NewPruner(storage audit.Storage, config *Config, logger *slog.Logger) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		storage: storage,
		config:  config,
		logger:  logger.With("component", "audit.retention"),
	}
}

// Prune deletes records older than the retention horizon, optionally
// archiving them first. Returns how many records were removed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.config.RetentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -p.config.RetentionDays)
	query := &audit.Query{EndTime: &cutoff}

	if p.config.ArchiveBeforeDelete {
		if err := p.archive(ctx, query); err != nil {
			// Never delete what we failed to archive.
			return 0, fmt.Errorf("retention: archive before delete: %w", err)
		}
	}

	deleted, err := p.storage.Delete(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("retention: prune: %w", err)
	}

	if deleted > 0 {
		p.logger.Info("pruned audit records",
			"deleted", deleted,
			"older_than", cutoff,
		)
	}
	return deleted, nil
}

// archive exports the records about to be deleted to a timestamped
// JSON file under the archive path.
func (p *Pruner) archive(ctx context.Context, query *audit.Query) error {
	records, err := p.storage.Query(ctx, query)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	if err := os.MkdirAll(p.config.ArchivePath, 0o755); err != nil {
		return err
	}

	name := fmt.Sprintf("audit-archive-%s.json", time.Now().UTC().Format("20060102T150405"))
	path := filepath.Join(p.config.ArchivePath, name)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := export.NewJSONExporter(true).Export(ctx, records, f); err != nil {
		return err
	}

	p.logger.Info("archived audit records",
		"path", path,
		"records", len(records),
	)
	return nil
}
