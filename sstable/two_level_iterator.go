// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package sstable

import (
	"github.com/engula-go/storekv/internal/base"
	"github.com/engula-go/storekv/kverrors"
)

// BlockIterGenerator loads the data block referenced by a BlockHandle and
// returns an Iterator over it. SstReader implements this by reading the
// handle's bytes from the table file and decompressing them.
type BlockIterGenerator interface {
	BlockIter(h BlockHandle) (Iterator, error)
}

// TwoLevelIterator composes an outer iterator over index-block entries
// (key = last key of a data block, value = encoded BlockHandle) with a
// BlockIterGenerator, to iterate an entire table while holding only one
// data block in memory at a time.
type TwoLevelIterator struct {
	index BlockIterGenerator
	outer Iterator
	inner Iterator
	err   error
}

// NewTwoLevelIterator constructs a TwoLevelIterator over the given index
// iterator, using gen to load each data block on demand.
func NewTwoLevelIterator(outer Iterator, gen BlockIterGenerator) *TwoLevelIterator {
	return &TwoLevelIterator{index: gen, outer: outer}
}

// loadInner loads the data block referenced by the outer iterator's current
// index entry and seeks it, or clears inner if the outer is exhausted.
func (t *TwoLevelIterator) loadInner(ts base.Timestamp, key []byte, seek bool) {
	_, _, v, ok := t.outer.Current()
	if !ok {
		t.inner = nil
		return
	}
	if len(v) < BlockHandleSize {
		t.err = kverrors.Corruptf("sstable: index entry value shorter than a block handle (%d bytes)", len(v))
		return
	}
	h := DecodeBlockHandle(v)
	inner, err := t.index.BlockIter(h)
	if err != nil {
		t.err = err
		return
	}
	t.inner = inner
	if seek {
		t.inner.Seek(ts, key)
	} else {
		t.inner.Seek(base.TimestampMax, nil)
	}
}

// Seek positions the outer iterator at the first index entry whose key is
// >= (ts, key), loads that data block, and seeks the inner iterator. If the
// inner iterator comes up empty, it advances through subsequent blocks.
func (t *TwoLevelIterator) Seek(ts base.Timestamp, key []byte) {
	if t.err != nil {
		return
	}
	t.outer.Seek(ts, key)
	if err := t.outer.Error(); err != nil {
		t.err = err
		return
	}
	t.loadInner(ts, key, true)
	t.skipEmptyBlocks()
}

// skipEmptyBlocks advances the outer iterator past any data block whose
// inner iterator is already exhausted at the current seek position,
// restarting each newly loaded block from its first entry.
func (t *TwoLevelIterator) skipEmptyBlocks() {
	for t.err == nil && t.inner != nil {
		if _, _, _, ok := t.inner.Current(); ok {
			return
		}
		if err := t.inner.Error(); err != nil {
			t.err = err
			return
		}
		t.outer.Next()
		if err := t.outer.Error(); err != nil {
			t.err = err
			return
		}
		t.loadInner(0, nil, false)
	}
}

// Current returns the entry at the iterator's current position.
func (t *TwoLevelIterator) Current() (ts base.Timestamp, key []byte, value []byte, ok bool) {
	if t.err != nil || t.inner == nil {
		return 0, nil, nil, false
	}
	return t.inner.Current()
}

// Next advances the inner iterator, crossing into the next data block when
// the current one is exhausted.
func (t *TwoLevelIterator) Next() {
	if t.err != nil || t.inner == nil {
		return
	}
	t.inner.Next()
	if err := t.inner.Error(); err != nil {
		t.err = err
		return
	}
	if _, _, _, ok := t.inner.Current(); ok {
		return
	}
	t.outer.Next()
	if err := t.outer.Error(); err != nil {
		t.err = err
		return
	}
	t.loadInner(0, nil, false)
	t.skipEmptyBlocks()
}

// Error returns the sticky error observed by either level of the iterator.
func (t *TwoLevelIterator) Error() error { return t.err }

var _ Iterator = (*TwoLevelIterator)(nil)
