// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package quorumfuture

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// LatencyRecorder tracks how long Write took to reach quorum, in
// microseconds, using an HDR histogram so p99/p999 tails stay accurate
// without storing every sample.
type LatencyRecorder struct {
	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

// NewLatencyRecorder returns a recorder covering 1 microsecond to 1
// minute with 3 significant figures of precision.
func NewLatencyRecorder() *LatencyRecorder {
	return &LatencyRecorder{hist: hdrhistogram.New(1, int64(time.Minute/time.Microsecond), 3)}
}

// Record adds one observed quorum-write latency.
func (r *LatencyRecorder) Record(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.hist.RecordValue(int64(d / time.Microsecond))
}

// ValueAtQuantile returns the latency, in microseconds, at the given
// quantile (0-100).
func (r *LatencyRecorder) ValueAtQuantile(q float64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hist.ValueAtQuantile(q)
}

// WriteTimed runs Write and records its wall-clock duration regardless of
// outcome.
func WriteTimed(recorder *LatencyRecorder, write func() error) error {
	start := time.Now()
	err := write()
	if recorder != nil {
		recorder.Record(time.Since(start))
	}
	return err
}
