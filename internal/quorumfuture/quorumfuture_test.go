// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package quorumfuture

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func succeedAfter(d time.Duration) Op {
	return func(ctx context.Context) error {
		select {
		case <-time.After(d):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func failAfter(d time.Duration, err error) Op {
	return func(ctx context.Context) error {
		select {
		case <-time.After(d):
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func TestWriteSucceedsAtStrictMajority(t *testing.T) {
	ops := []Op{
		succeedAfter(0),
		succeedAfter(0),
		failAfter(0, errors.New("replica down")),
	}
	err := Write(context.Background(), time.Second, ops)
	require.NoError(t, err)
}

func TestWriteFailsOnceMajorityImpossible(t *testing.T) {
	ops := []Op{
		failAfter(0, errors.New("replica down")),
		failAfter(0, errors.New("replica down")),
		succeedAfter(time.Hour),
	}
	err := Write(context.Background(), time.Second, ops)
	require.Error(t, err)
}

func TestWriteFailsOnTimeout(t *testing.T) {
	ops := []Op{
		succeedAfter(time.Hour),
		succeedAfter(time.Hour),
		succeedAfter(time.Hour),
	}
	start := time.Now()
	err := Write(context.Background(), 20*time.Millisecond, ops)
	require.Error(t, err)
	require.Less(t, time.Since(start), time.Second)
}

func TestWriteCancelsRemainingOpsOnceQuorumReached(t *testing.T) {
	var cancelled int32
	slow := func(ctx context.Context) error {
		select {
		case <-time.After(time.Hour):
			return nil
		case <-ctx.Done():
			atomic.AddInt32(&cancelled, 1)
			return ctx.Err()
		}
	}
	ops := []Op{succeedAfter(0), succeedAfter(0), slow}
	require.NoError(t, Write(context.Background(), time.Second, ops))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&cancelled) == 1
	}, time.Second, time.Millisecond)
}

func TestWriteRejectsEmptyOpSet(t *testing.T) {
	err := Write(context.Background(), time.Second, nil)
	require.Error(t, err)
}

func TestLatencyRecorderTracksQuantiles(t *testing.T) {
	recorder := NewLatencyRecorder()
	for _, d := range []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond} {
		recorder.Record(d)
	}
	require.Greater(t, recorder.ValueAtQuantile(50), int64(0))
}

func TestWriteTimedRecordsLatencyRegardlessOfOutcome(t *testing.T) {
	recorder := NewLatencyRecorder()
	err := WriteTimed(recorder, func() error { return errors.New("boom") })
	require.Error(t, err)
	require.Equal(t, int64(1), recorder.hist.TotalCount())
}
