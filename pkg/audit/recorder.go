package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// RecorderConfig contains configuration for the audit recorder.
type RecorderConfig struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000.
	AsyncBuffer int

	// WriteTimeout is the timeout for writing a record to storage.
	// Default: 5 seconds.
	WriteTimeout time.Duration
}

// DefaultRecorderConfig returns the default recorder configuration.
func DefaultRecorderConfig() *RecorderConfig {
	return &RecorderConfig{
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder writes audit records asynchronously so recording never
// blocks a decision. Records are assigned an ID and a content hash,
// then queued to a background worker; a full queue drops the record
// and counts the drop rather than stalling callers. Close drains the
// queue before returning.
type Recorder struct {
	storage    Storage
	config     *RecorderConfig
	recordChan chan *Record
	dropped    atomic.Int64
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger
}

// NewRecorder creates an audit recorder over the given storage backend
// and starts its write worker.
func NewRecorder(storage Storage, config *RecorderConfig, logger *slog.Logger) *Recorder {
	if config == nil {
		config = DefaultRecorderConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = 1000
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *Record, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     logger.With("component", "audit.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	return r
}

// Record seals and enqueues one audit record. It returns immediately;
// the storage write happens on the worker. A full queue drops the
// record with an error so callers can count the loss.
func (r *Recorder) Record(ctx context.Context, record *Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	record.Hash = hashRecord(record)

	select {
	case r.recordChan <- record:
		return nil
	default:
	}

	// Queue full. Audit is best-effort by design here; blocking the
	// decision path on a slow disk would be worse than a counted drop.
	r.dropped.Add(1)
	r.logger.Error("audit queue full, dropping record",
		"record_id", record.ID,
		"decision_id", record.DecisionID,
		"dropped_total", r.dropped.Load(),
	)
	return NewRecorderError(record.ID, context.DeadlineExceeded)
}

// Dropped reports how many records were dropped on a full queue.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close drains the queue and shuts the worker down.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
	return nil
}

// worker drains the record channel and writes to storage.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.write(record)

		case <-r.done:
			for {
				select {
				case record := <-r.recordChan:
					r.write(record)
				default:
					return
				}
			}
		}
	}
}

// write stores a single record.
func (r *Recorder) write(record *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store audit record",
			"record_id", record.ID,
			"decision_id", record.DecisionID,
			"error", err,
		)
		return
	}

	r.logger.Debug("audit record stored",
		"record_id", record.ID,
		"decision_id", record.DecisionID,
		"disposition", record.Disposition,
	)
}

// hashRecord computes the SHA-256 over the record's canonical JSON
// with the hash field cleared. Verification recomputes it the same
// way, so a mutated record no longer matches its hash.
func hashRecord(record *Record) string {
	clone := *record
	clone.Hash = ""
	encoded, err := json.Marshal(&clone)
	if err != nil {
		// Record is a flat struct of scalars; Marshal cannot fail in
		// practice. Hash the empty string rather than panic.
		encoded = nil
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

// VerifyRecord reports whether a record's hash still matches its
// contents.
func VerifyRecord(record *Record) bool {
	return record.Hash == hashRecord(record)
}
