package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"aegis-hq/warden/pkg/audit"
)

// SQLiteStorage persists audit records in a SQLite database. The audit
// trail is the part of the system that must survive restarts, so this
// is the default backend for the daemon.
type SQLiteStorage struct {
	db        *sql.DB
	closeOnce sync.Once
}

// NewSQLiteStorage opens (or creates) the audit database at the given
// path.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("audit: db path required")
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}

	// Single writer connection; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	s := &SQLiteStorage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStorage) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS audit_records (
    id           TEXT PRIMARY KEY,
    decision_id  TEXT NOT NULL,
    timestamp    INTEGER NOT NULL,
    rule_id      TEXT NOT NULL DEFAULT '',
    zone         TEXT NOT NULL DEFAULT '',
    zone_verdict TEXT NOT NULL DEFAULT '',
    disposition  TEXT NOT NULL,
    subject      TEXT NOT NULL DEFAULT '',
    level        TEXT NOT NULL DEFAULT 'info',
    message      TEXT NOT NULL DEFAULT '',
    mandatory    INTEGER NOT NULL DEFAULT 0,
    hash         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_records(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_rule ON audit_records(rule_id);
CREATE INDEX IF NOT EXISTS idx_audit_subject ON audit_records(subject);
`
	if _, err := s.db.Exec(schema); err != nil {
		return audit.NewStorageError("sqlite", "migrate", err)
	}
	return nil
}

// Store persists one record.
func (s *SQLiteStorage) Store(ctx context.Context, record *audit.Record) error {
	const query = `
INSERT INTO audit_records
  (id, decision_id, timestamp, rule_id, zone, zone_verdict, disposition, subject, level, message, mandatory, hash)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.DecisionID,
		record.Timestamp.UnixNano(),
		record.RuleID,
		record.Zone,
		record.ZoneVerdict,
		record.Disposition,
		record.Subject,
		record.Level,
		record.Message,
		boolToInt(record.Mandatory),
		record.Hash,
	)
	if err != nil {
		return audit.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query returns matching records, newest first.
func (s *SQLiteStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	where, args := buildWhere(query)

	sqlQuery := `
SELECT id, decision_id, timestamp, rule_id, zone, zone_verdict, disposition, subject, level, message, mandatory, hash
FROM audit_records` + where + ` ORDER BY timestamp DESC`

	if query != nil && query.Limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT %d", query.Limit)
		if query.Offset > 0 {
			sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	var records []*audit.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, audit.NewStorageError("sqlite", "query", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// Count returns how many records match.
func (s *SQLiteStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	where, args := buildWhere(query)

	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_records`+where, args...).Scan(&count)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes matching records.
func (s *SQLiteStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	where, args := buildWhere(query)

	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_records`+where, args...)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}
	return deleted, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
	})
	return err
}

// buildWhere renders the query's filters as a WHERE clause.
func buildWhere(query *audit.Query) (string, []any) {
	if query == nil {
		return "", nil
	}

	var clauses []string
	var args []any

	if query.StartTime != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, query.StartTime.UnixNano())
	}
	if query.EndTime != nil {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, query.EndTime.UnixNano())
	}
	if query.RuleID != "" {
		clauses = append(clauses, "rule_id = ?")
		args = append(args, query.RuleID)
	}
	if query.Subject != "" {
		clauses = append(clauses, "subject = ?")
		args = append(args, query.Subject)
	}
	if query.Zone != "" {
		clauses = append(clauses, "zone = ?")
		args = append(args, query.Zone)
	}
	if query.Disposition != "" {
		clauses = append(clauses, "disposition = ?")
		args = append(args, query.Disposition)
	}
	if query.MandatoryOnly {
		clauses = append(clauses, "mandatory = 1")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// scanRecord reads one row into a record.
func scanRecord(rows *sql.Rows) (*audit.Record, error) {
	var record audit.Record
	var nanos int64
	var mandatory int

	err := rows.Scan(
		&record.ID,
		&record.DecisionID,
		&nanos,
		&record.RuleID,
		&record.Zone,
		&record.ZoneVerdict,
		&record.Disposition,
		&record.Subject,
		&record.Level,
		&record.Message,
		&mandatory,
		&record.Hash,
	)
	if err != nil {
		return nil, err
	}

	record.Timestamp = time.Unix(0, nanos).UTC()
	record.Mandatory = mandatory != 0
	return &record, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
