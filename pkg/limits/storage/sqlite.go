package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteBackend persists counter state in a SQLite database so sliding
// windows survive restarts. Suitable for single-instance deployments;
// WAL mode keeps concurrent readers off the writer's back.
type SQLiteBackend struct {
	db        *sql.DB
	dbPath    string
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	saveStmt    *sql.Stmt
	loadStmt    *sql.Stmt
	deleteStmt  *sql.Stmt
	cleanupStmt *sql.Stmt
	countStmt   *sql.Stmt
}

// SQLiteBackendConfig configures the SQLite backend.
type SQLiteBackendConfig struct {
	// DBPath is the path to the database file.
	DBPath string

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes.
	CheckpointInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

// NewSQLiteBackend creates a SQLite backend with default settings.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	return NewSQLiteBackendWithConfig(SQLiteBackendConfig{DBPath: dbPath})
}

// NewSQLiteBackendWithConfig creates a SQLite backend with custom
// configuration.
func NewSQLiteBackendWithConfig(cfg SQLiteBackendConfig) (*SQLiteBackend, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("storage: db path required")
	}
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		cfg.DBPath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}

	// SQLite serializes writers; a single connection avoids lock
	// contention errors under concurrent saves.
	db.SetMaxOpenConns(1)

	b := &SQLiteBackend{
		db:     db,
		dbPath: cfg.DBPath,
		done:   make(chan struct{}),
	}

	if err := b.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	if err := b.prepare(); err != nil {
		db.Close()
		return nil, err
	}

	b.wg.Add(1)
	go b.checkpointLoop(cfg.CheckpointInterval)

	return b, nil
}

func (b *SQLiteBackend) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS rate_counters (
    key          TEXT PRIMARY KEY,
    window       TEXT NOT NULL,
    last_updated INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rate_counters_updated ON rate_counters(last_updated);
`
	if _, err := b.db.Exec(schema); err != nil {
		return fmt.Errorf("storage: migrate schema: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) prepare() error {
	var err error
	if b.saveStmt, err = b.db.Prepare(
		`INSERT INTO rate_counters (key, window, last_updated) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET window = excluded.window, last_updated = excluded.last_updated`); err != nil {
		return fmt.Errorf("storage: prepare save: %w", err)
	}
	if b.loadStmt, err = b.db.Prepare(
		`SELECT window, last_updated FROM rate_counters WHERE key = ?`); err != nil {
		return fmt.Errorf("storage: prepare load: %w", err)
	}
	if b.deleteStmt, err = b.db.Prepare(
		`DELETE FROM rate_counters WHERE key = ?`); err != nil {
		return fmt.Errorf("storage: prepare delete: %w", err)
	}
	if b.cleanupStmt, err = b.db.Prepare(
		`DELETE FROM rate_counters WHERE last_updated < ?`); err != nil {
		return fmt.Errorf("storage: prepare cleanup: %w", err)
	}
	if b.countStmt, err = b.db.Prepare(
		`SELECT COUNT(*) FROM rate_counters`); err != nil {
		return fmt.Errorf("storage: prepare count: %w", err)
	}
	return nil
}

// Save upserts the state for its key.
func (b *SQLiteBackend) Save(ctx context.Context, state *State) error {
	encoded, err := json.Marshal(state.Window)
	if err != nil {
		return fmt.Errorf("storage: encode window: %w", err)
	}
	if _, err := b.saveStmt.ExecContext(ctx, state.Key, string(encoded), state.LastUpdated.UnixNano()); err != nil {
		return fmt.Errorf("storage: save %q: %w", state.Key, err)
	}
	return nil
}

// Load retrieves the state for a key, or (nil, nil) when absent.
func (b *SQLiteBackend) Load(ctx context.Context, key string) (*State, error) {
	var encoded string
	var updatedNanos int64
	err := b.loadStmt.QueryRowContext(ctx, key).Scan(&encoded, &updatedNanos)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load %q: %w", key, err)
	}

	state := &State{
		Key:         key,
		LastUpdated: time.Unix(0, updatedNanos),
	}
	if err := json.Unmarshal([]byte(encoded), &state.Window); err != nil {
		return nil, fmt.Errorf("storage: decode window for %q: %w", key, err)
	}
	return state, nil
}

// Delete removes a key's state.
func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.deleteStmt.ExecContext(ctx, key); err != nil {
		return fmt.Errorf("storage: delete %q: %w", key, err)
	}
	return nil
}

// Cleanup drops counters not updated since the cutoff.
func (b *SQLiteBackend) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := b.cleanupStmt.ExecContext(ctx, olderThan.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("storage: cleanup: %w", err)
	}
	dropped, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("storage: cleanup rows affected: %w", err)
	}
	return int(dropped), nil
}

// Len reports the number of tracked keys.
func (b *SQLiteBackend) Len(ctx context.Context) (int, error) {
	var count int
	if err := b.countStmt.QueryRowContext(ctx).Scan(&count); err != nil {
		return 0, fmt.Errorf("storage: count: %w", err)
	}
	return count, nil
}

// checkpointLoop periodically forces a WAL checkpoint so the log does
// not grow without bound between restarts.
func (b *SQLiteBackend) checkpointLoop(interval time.Duration) {
	defer b.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			if _, err := b.db.Exec(`PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
				// Checkpointing is advisory; the next tick retries.
				continue
			}
		}
	}
}

// Close stops the checkpoint loop and closes the database.
func (b *SQLiteBackend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		b.wg.Wait()

		for _, stmt := range []*sql.Stmt{b.saveStmt, b.loadStmt, b.deleteStmt, b.cleanupStmt, b.countStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		err = b.db.Close()
	})
	return err
}
