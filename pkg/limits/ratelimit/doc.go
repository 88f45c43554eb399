// Package ratelimit implements the sliding window counter backing
// rate_limit actions.
//
// A window is a bucketed rolling counter: requests land in
// fixed-granularity buckets, buckets older than the window are pruned
// on every operation, and the admission check sums what survives. The
// window's bucket slice is its entire state, so backends persist it
// without any separate serialization layer.
package ratelimit
