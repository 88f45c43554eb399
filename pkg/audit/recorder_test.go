package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// blockingStorage gates Store on a channel so tests can hold the
// worker mid-write.
type blockingStorage struct {
	mu      sync.Mutex
	stored  []*Record
	gate    chan struct{}
	blocked bool
}

func (s *blockingStorage) Store(ctx context.Context, record *Record) error {
	if s.blocked {
		<-s.gate
	}
	s.mu.Lock()
	s.stored = append(s.stored, record)
	s.mu.Unlock()
	return nil
}

func (s *blockingStorage) Query(ctx context.Context, query *Query) ([]*Record, error) {
	return nil, nil
}
func (s *blockingStorage) Count(ctx context.Context, query *Query) (int64, error) { return 0, nil }
func (s *blockingStorage) Delete(ctx context.Context, query *Query) (int64, error) {
	return 0, nil
}
func (s *blockingStorage) Close() error { return nil }

func (s *blockingStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stored)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecorder_SealsAndStores(t *testing.T) {
	store := &blockingStorage{}
	r := NewRecorder(store, nil, testLogger())

	record := &Record{DecisionID: "d1", Disposition: "allow"}
	if err := r.Record(context.Background(), record); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if record.ID == "" {
		t.Error("ID not assigned")
	}
	if record.Timestamp.IsZero() {
		t.Error("Timestamp not assigned")
	}
	if record.Hash == "" {
		t.Error("Hash not assigned")
	}
	if !VerifyRecord(record) {
		t.Error("VerifyRecord = false on a freshly sealed record")
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if store.count() != 1 {
		t.Errorf("stored = %d, want 1 after drain", store.count())
	}
}

func TestRecorder_CloseDrainsQueue(t *testing.T) {
	store := &blockingStorage{}
	r := NewRecorder(store, &RecorderConfig{AsyncBuffer: 100}, testLogger())

	for i := 0; i < 50; i++ {
		if err := r.Record(context.Background(), &Record{DecisionID: "d", Disposition: "allow"}); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if store.count() != 50 {
		t.Errorf("stored = %d, want all 50 drained on close", store.count())
	}
}

func TestRecorder_FullQueueDropsAndCounts(t *testing.T) {
	store := &blockingStorage{gate: make(chan struct{}), blocked: true}
	r := NewRecorder(store, &RecorderConfig{AsyncBuffer: 1, WriteTimeout: time.Second}, testLogger())

	// The worker picks up the first record and blocks in Store; the
	// second fills the buffer; the third has nowhere to go.
	var dropErr error
	for i := 0; i < 3; i++ {
		if err := r.Record(context.Background(), &Record{DecisionID: "d", Disposition: "allow"}); err != nil {
			dropErr = err
		}
	}

	if dropErr == nil {
		t.Error("no drop error from a full queue")
	}
	if r.Dropped() == 0 {
		t.Error("Dropped() = 0, want the drop counted")
	}

	var recErr *RecorderError
	if dropErr != nil && !errors.As(dropErr, &recErr) {
		t.Errorf("drop error = %T, want *RecorderError", dropErr)
	}

	// A closed gate releases the worker for every later write.
	close(store.gate)
	r.Close()
}

func TestVerifyRecord_DetectsTampering(t *testing.T) {
	record := &Record{DecisionID: "d1", Disposition: "allow", Subject: "u-1"}
	record.Hash = hashRecord(record)

	if !VerifyRecord(record) {
		t.Fatal("VerifyRecord = false on untouched record")
	}

	record.Disposition = "block"
	if VerifyRecord(record) {
		t.Error("VerifyRecord = true after mutation")
	}
}
