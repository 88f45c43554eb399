// Package storage persists sliding window counter state.
//
// Two backends are provided: MemoryBackend for tests and deployments
// that tolerate counter loss on restart, and SQLiteBackend for durable
// single-instance counters. Both are safe for concurrent use; the
// limiter above them serializes read-modify-write cycles per key.
package storage
