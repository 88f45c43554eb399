// Package audit persists the decision trail.
//
// Every log action and every requires_audit zone decision produces one
// record. Recording is asynchronous: the recorder seals each record
// with a UUID and a SHA-256 content hash, queues it, and a background
// worker writes it to storage. A full queue drops records and counts
// the drops instead of stalling decisions.
//
// Subpackages: storage holds the memory and SQLite backends, export
// renders records as JSON or CSV, retention prunes old records on a
// cron schedule.
package audit
