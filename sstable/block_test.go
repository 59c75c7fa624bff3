// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package sstable

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/engula-go/storekv/internal/base"
)

type record struct {
	ts    base.Timestamp
	key   string
	value string
}

func buildBlock(t *testing.T, records []record) []byte {
	t.Helper()
	b := NewBlockBuilder()
	for _, r := range records {
		b.Add(r.ts, []byte(r.key), []byte(r.value), base.ValueKindSome)
	}
	return b.Finish()
}

func TestBlockIteratorRoundTripsInOrder(t *testing.T) {
	var records []record
	for i := 0; i < 100; i++ {
		records = append(records, record{ts: 1, key: fmt.Sprintf("key-%03d", i), value: fmt.Sprintf("value-%d", i)})
	}
	block := buildBlock(t, records)

	it, err := NewBlockIterator(block)
	require.NoError(t, err)

	it.First()
	for _, want := range records {
		ts, key, value, ok := it.Current()
		require.True(t, ok)
		require.Equal(t, want.ts, ts)
		require.Equal(t, want.key, string(key))
		require.Equal(t, want.value, string(value))
		it.Next()
	}
	_, _, _, ok := it.Current()
	require.False(t, ok)
	require.NoError(t, it.Error())
}

func TestBlockIteratorSeekAcrossRestartPoints(t *testing.T) {
	var records []record
	for i := 0; i < 50; i++ {
		records = append(records, record{ts: 1, key: fmt.Sprintf("k%03d", i*2), value: fmt.Sprintf("v%d", i)})
	}
	block := buildBlock(t, records)

	it, err := NewBlockIterator(block)
	require.NoError(t, err)

	// Seeking an exact key lands on it.
	it.Seek(1, []byte("k020"))
	ts, key, value, ok := it.Current()
	require.True(t, ok)
	require.Equal(t, base.Timestamp(1), ts)
	require.Equal(t, "k020", string(key))
	require.Equal(t, "v10", string(value))

	// Seeking a key between two records lands on the next one.
	it.Seek(1, []byte("k021"))
	_, key, _, ok = it.Current()
	require.True(t, ok)
	require.Equal(t, "k022", string(key))

	// Seeking past the end yields no current entry.
	it.Seek(1, []byte("zzzz"))
	_, _, _, ok = it.Current()
	require.False(t, ok)
}

func TestBlockIteratorRespectsTimestampOrdering(t *testing.T) {
	records := []record{
		{ts: 5, key: "a", value: "newest"},
		{ts: 3, key: "a", value: "middle"},
		{ts: 1, key: "a", value: "oldest"},
	}
	block := buildBlock(t, records)

	it, err := NewBlockIterator(block)
	require.NoError(t, err)

	it.Seek(4, []byte("a"))
	ts, _, value, ok := it.Current()
	require.True(t, ok)
	require.Equal(t, base.Timestamp(3), ts)
	require.Equal(t, "middle", string(value))
}

func TestBlockBuilderApproximateSizeGrows(t *testing.T) {
	b := NewBlockBuilder()
	require.True(t, b.Empty())
	sizeBefore := b.ApproximateSize()
	b.Add(1, []byte("a"), []byte("value"), base.ValueKindSome)
	require.False(t, b.Empty())
	require.Greater(t, b.ApproximateSize(), sizeBefore)
}
