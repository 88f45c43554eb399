package storage

import (
	"context"
	"sort"
	"sync"

	"aegis-hq/warden/pkg/audit"
)

// MemoryStorage keeps audit records in memory. Intended for tests and
// the decide command's one-shot runs; records do not survive a
// restart.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []*audit.Record
}

// NewMemoryStorage creates an empty in-memory audit store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store appends one record.
func (m *MemoryStorage) Store(ctx context.Context, record *audit.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *record
	m.records = append(m.records, &clone)
	return nil
}

// Query returns matching records, newest first.
func (m *MemoryStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*audit.Record
	for _, record := range m.records {
		if matches(record, query) {
			matched = append(matched, record)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	return paginate(matched, query), nil
}

// Count returns how many records match.
func (m *MemoryStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, record := range m.records {
		if matches(record, query) {
			count++
		}
	}
	return count, nil
}

// Delete removes matching records.
func (m *MemoryStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	var deleted int64
	for _, record := range m.records {
		if matches(record, query) {
			deleted++
			continue
		}
		kept = append(kept, record)
	}
	m.records = kept
	return deleted, nil
}

// Close is a no-op for the memory store.
func (m *MemoryStorage) Close() error {
	return nil
}

// matches applies every filter of the query.
func matches(record *audit.Record, query *audit.Query) bool {
	if query == nil {
		return true
	}
	if query.StartTime != nil && record.Timestamp.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && record.Timestamp.After(*query.EndTime) {
		return false
	}
	if query.RuleID != "" && record.RuleID != query.RuleID {
		return false
	}
	if query.Subject != "" && record.Subject != query.Subject {
		return false
	}
	if query.Zone != "" && record.Zone != query.Zone {
		return false
	}
	if query.Disposition != "" && record.Disposition != query.Disposition {
		return false
	}
	if query.MandatoryOnly && !record.Mandatory {
		return false
	}
	return true
}

// paginate applies offset and limit.
func paginate(records []*audit.Record, query *audit.Query) []*audit.Record {
	if query == nil {
		return records
	}
	if query.Offset > 0 {
		if query.Offset >= len(records) {
			return nil
		}
		records = records[query.Offset:]
	}
	if query.Limit > 0 && query.Limit < len(records) {
		records = records[:query.Limit]
	}
	return records
}
