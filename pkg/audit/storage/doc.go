// Package storage holds the audit trail's persistence backends:
// SQLiteStorage for the daemon, MemoryStorage for tests and one-shot
// runs.
package storage
