package ratelimit

import (
	"time"
)

// DefaultBucketCount is the number of buckets a window is divided into
// when no explicit granularity is chosen. More buckets track the
// rolling edge more accurately at the cost of state size.
const DefaultBucketCount = 60

// Bucket is one time-stamped counter slot of a sliding window.
type Bucket struct {
	Timestamp time.Time `json:"ts"`
	Value     int64     `json:"v"`
}

// Window is a sliding window counter over a rolling time period. Old
// buckets outside the window are pruned on every operation, which
// avoids the reset spike of fixed windows.
//
// Window carries no lock; the rate limiter serializes access per
// counter key. The bucket slice is the window's entire state, so it
// round-trips through a storage backend as-is.
type Window struct {
	Length     time.Duration `json:"window"`
	BucketSize time.Duration `json:"bucket_size"`
	Buckets    []Bucket      `json:"buckets"`
}

// NewWindow creates a sliding window over the given period. Bucket
// granularity is length/DefaultBucketCount, floored at one second, so
// a one-minute window uses one-second buckets.
func NewWindow(length time.Duration) *Window {
	bucketSize := length / DefaultBucketCount
	if bucketSize < time.Second {
		bucketSize = time.Second
	}
	if bucketSize > length {
		bucketSize = length
	}
	return &Window{
		Length:     length,
		BucketSize: bucketSize,
	}
}

// Clone returns an independent copy of the window. Mutating the clone
// never touches the original's buckets.
func (w *Window) Clone() *Window {
	c := &Window{
		Length:     w.Length,
		BucketSize: w.BucketSize,
	}
	if len(w.Buckets) > 0 {
		c.Buckets = make([]Bucket, len(w.Buckets))
		copy(c.Buckets, w.Buckets)
	}
	return c
}

// Add increments the counter by value at the given instant.
func (w *Window) Add(now time.Time, value int64) {
	w.Prune(now)

	slot := now.Truncate(w.BucketSize)
	for i := range w.Buckets {
		if w.Buckets[i].Timestamp.Equal(slot) {
			w.Buckets[i].Value += value
			return
		}
	}
	w.Buckets = append(w.Buckets, Bucket{Timestamp: slot, Value: value})
}

// Sum returns the total count across the window as of the given
// instant, pruning expired buckets first.
func (w *Window) Sum(now time.Time) int64 {
	w.Prune(now)

	var sum int64
	for i := range w.Buckets {
		sum += w.Buckets[i].Value
	}
	return sum
}

// Prune drops buckets whose entire span falls outside the window.
func (w *Window) Prune(now time.Time) {
	cutoff := now.Add(-w.Length)
	kept := w.Buckets[:0]
	for i := range w.Buckets {
		if w.Buckets[i].Timestamp.Add(w.BucketSize).After(cutoff) {
			kept = append(kept, w.Buckets[i])
		}
	}
	w.Buckets = kept
}

// Reset returns the instant the oldest surviving bucket leaves the
// window, which is when capacity next frees up. With no buckets the
// window is already clear and Reset returns now.
func (w *Window) Reset(now time.Time) time.Time {
	w.Prune(now)

	if len(w.Buckets) == 0 {
		return now
	}
	oldest := w.Buckets[0].Timestamp
	for i := range w.Buckets {
		if w.Buckets[i].Timestamp.Before(oldest) {
			oldest = w.Buckets[i].Timestamp
		}
	}
	return oldest.Add(w.Length)
}

// Empty reports whether the window holds no live buckets as of now.
func (w *Window) Empty(now time.Time) bool {
	w.Prune(now)
	return len(w.Buckets) == 0
}
