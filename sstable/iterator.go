// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package sstable

import "github.com/engula-go/storekv/internal/base"

// Iterator is the uniform iteration capability shared by
// BlockIterator and TwoLevelIterator: a lazy, finite sequence of
// (timestamp, key, value) entries in InternalKey order, with a sticky
// error that freezes the sequence once observed.
//
// Iterators are owned by a single caller and are not safe for concurrent
// use; they are not required to be restartable once Error
// returns non-nil.
type Iterator interface {
	// Seek positions the iterator at the first entry whose InternalKey is
	// >= (ts, key) under InternalKey ordering (newer timestamps for the
	// same user key sort first).
	Seek(ts base.Timestamp, key []byte)

	// Current returns the entry at the iterator's current position, or
	// ok=false if the iterator is exhausted or has a sticky error.
	Current() (ts base.Timestamp, key []byte, value []byte, ok bool)

	// Next advances the iterator by one entry.
	Next()

	// Error returns the sticky error observed by any prior operation, if
	// any.
	Error() error
}
