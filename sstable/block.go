// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package sstable

import (
	"encoding/binary"
	"sort"

	"github.com/engula-go/storekv/internal/base"
	"github.com/engula-go/storekv/kverrors"
)

// restartInterval is the number of entries between restart points. Every
// restartInterval'th entry is a restart point and is encoded with a zero
// shared-prefix length, so that seeking can binary search the restart
// point offsets without decoding every intervening entry, while keeping
// the block self-describing enough to seek and scan without external
// state.
const restartInterval = 16

// BlockBuilder packs a sorted sequence of (timestamp, user_key, value)
// records into a byte buffer. Each entry stores the length of the key
// prefix it shares with the previous entry plus the unshared remainder;
// restart-point entries share nothing and store their full key.
type BlockBuilder struct {
	buf      []byte
	restarts []uint32
	nEntries int
	lastKey  []byte // last encoded InternalKey (user_key||ts||kind)
	scratch  [binary.MaxVarintLen64 * 3]byte
}

// NewBlockBuilder returns an empty BlockBuilder.
func NewBlockBuilder() *BlockBuilder {
	return &BlockBuilder{}
}

// Add appends a record. The caller guarantees global InternalKey
// monotonicity; BlockBuilder does not re-validate it since
// that invariant is enforced once by SstBuilder.
func (b *BlockBuilder) Add(ts base.Timestamp, key []byte, value []byte, kind base.ValueKind) {
	ikey := base.AppendInternalKey(nil, base.MakeInternalKey(key, ts, kind))

	shared := 0
	if b.nEntries%restartInterval != 0 {
		shared = sharedPrefixLen(b.lastKey, ikey)
	} else {
		b.restarts = append(b.restarts, uint32(len(b.buf)))
	}
	unshared := ikey[shared:]

	n := binary.PutUvarint(b.scratch[:], uint64(shared))
	n += binary.PutUvarint(b.scratch[n:], uint64(len(unshared)))
	n += binary.PutUvarint(b.scratch[n:], uint64(len(value)))
	b.buf = append(b.buf, b.scratch[:n]...)
	b.buf = append(b.buf, unshared...)
	b.buf = append(b.buf, value...)

	b.lastKey = ikey
	b.nEntries++
}

func sharedPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// ApproximateSize returns the current encoded size estimate, used by
// SstBuilder to decide when to flush a data block.
func (b *BlockBuilder) ApproximateSize() int {
	// Entries so far, plus the restart-point footer we'll append on Finish:
	// (len(restarts)+1) * 4 bytes.
	return len(b.buf) + (len(b.restarts)+1)*4
}

// Empty reports whether any entries have been added since the last Finish.
func (b *BlockBuilder) Empty() bool { return b.nEntries == 0 }

// Finish consumes the builder's state and returns the block bytes:
// entries followed by restart-point offsets and a trailing restart count.
func (b *BlockBuilder) Finish() []byte {
	footer := make([]byte, (len(b.restarts)+1)*4)
	for i, r := range b.restarts {
		binary.LittleEndian.PutUint32(footer[i*4:], r)
	}
	binary.LittleEndian.PutUint32(footer[len(b.restarts)*4:], uint32(len(b.restarts)))
	out := append(b.buf, footer...)
	*b = BlockBuilder{}
	return out
}

// blockEntry is a decoded (offset-anchored) block record.
type blockEntry struct {
	offset     int
	nextOffset int
	key        []byte // decoded InternalKey bytes (user_key||ts||kind)
	value      []byte
}

// BlockIterator iterates the entries of a decompressed data or index block
// produced by BlockBuilder.
type BlockIterator struct {
	data     []byte
	restarts []uint32

	valid bool
	err   error
	cur   blockEntry
}

// NewBlockIterator constructs a BlockIterator over a decompressed block.
func NewBlockIterator(block []byte) (*BlockIterator, error) {
	it := &BlockIterator{}
	if err := it.init(block); err != nil {
		return nil, err
	}
	return it, nil
}

func (i *BlockIterator) init(block []byte) error {
	if len(block) < 4 {
		return kverrors.Corruptf("sstable: block too short to contain restart footer")
	}
	numRestarts := binary.LittleEndian.Uint32(block[len(block)-4:])
	footerStart := len(block) - 4 - int(numRestarts)*4
	if footerStart < 0 {
		return kverrors.Corruptf("sstable: block restart footer overruns block")
	}
	restarts := make([]uint32, numRestarts)
	for k := range restarts {
		restarts[k] = binary.LittleEndian.Uint32(block[footerStart+k*4:])
	}
	*i = BlockIterator{
		data:     block[:footerStart],
		restarts: restarts,
	}
	return nil
}

// decodeEntryAt decodes the entry at offset given the raw bytes of the
// preceding decoded key (nil at a restart point, where shared is always
// zero).
func (i *BlockIterator) decodeEntryAt(offset int, prevKey []byte) (blockEntry, bool) {
	buf := i.data[offset:]
	shared, n1 := binary.Uvarint(buf)
	unsharedLen, n2 := binary.Uvarint(buf[n1:])
	valueLen, n3 := binary.Uvarint(buf[n1+n2:])
	if n1 == 0 || n2 == 0 || n3 == 0 {
		i.err = kverrors.Corruptf("sstable: corrupt block entry at offset %d", offset)
		return blockEntry{}, false
	}
	hdrLen := n1 + n2 + n3
	start := offset + hdrLen
	unshared := i.data[start : start+int(unsharedLen)]
	value := i.data[start+int(unsharedLen) : start+int(unsharedLen)+int(valueLen)]

	key := make([]byte, int(shared)+len(unshared))
	copy(key, prevKey[:shared])
	copy(key[shared:], unshared)

	return blockEntry{
		offset:     offset,
		nextOffset: start + int(unsharedLen) + int(valueLen),
		key:        key,
		value:      value,
	}, true
}

// decodeRestartKey decodes just the key portion of the entry at a restart
// point offset (shared is always zero there), for use during the seek
// binary search.
func (i *BlockIterator) decodeRestartKey(offset int) []byte {
	e, ok := i.decodeEntryAt(offset, nil)
	if !ok {
		return nil
	}
	return e.key
}

// Seek positions the iterator at the first entry whose InternalKey is >=
// (ts, key): binary search the restart points for the candidate block,
// then linear scan within it.
func (i *BlockIterator) Seek(ts base.Timestamp, key []byte) {
	if i.err != nil {
		return
	}
	if len(i.restarts) == 0 {
		i.valid = false
		return
	}
	target := base.InternalKey{UserKey: base.UserKey(key), Timestamp: ts}

	// Find the last restart point whose key is <= target; entries before
	// it cannot contain the target.
	index := sort.Search(len(i.restarts), func(r int) bool {
		rk := i.decodeRestartKey(int(i.restarts[r]))
		if i.err != nil {
			return true
		}
		return base.Compare(base.DecodeInternalKey(rk), target) > 0
	})
	if index > 0 {
		index--
	}

	e, ok := i.decodeEntryAt(int(i.restarts[index]), nil)
	if !ok {
		return
	}
	for {
		if base.Compare(base.DecodeInternalKey(e.key), target) >= 0 {
			i.cur, i.valid = e, true
			return
		}
		if e.nextOffset >= len(i.data) {
			i.valid = false
			return
		}
		next, ok := i.decodeEntryAt(e.nextOffset, e.key)
		if !ok {
			return
		}
		e = next
	}
}

// Current returns the entry at the iterator's current position.
func (i *BlockIterator) Current() (ts base.Timestamp, key []byte, value []byte, ok bool) {
	if i.err != nil || !i.valid {
		return 0, nil, nil, false
	}
	ik := base.DecodeInternalKey(i.cur.key)
	return ik.Timestamp, ik.UserKey, i.cur.value, true
}

// Next advances the iterator by one entry.
func (i *BlockIterator) Next() {
	if i.err != nil || !i.valid {
		return
	}
	if i.cur.nextOffset >= len(i.data) {
		i.valid = false
		return
	}
	next, ok := i.decodeEntryAt(i.cur.nextOffset, i.cur.key)
	if !ok {
		return
	}
	i.cur = next
}

// Error returns the sticky error observed by any prior operation.
func (i *BlockIterator) Error() error { return i.err }

// First positions the iterator at the first entry in the block. It is not
// part of the Iterator interface; the two-level iterator starts each data
// block with Seek instead.
func (i *BlockIterator) First() {
	if i.err != nil || len(i.restarts) == 0 {
		i.valid = false
		return
	}
	e, ok := i.decodeEntryAt(0, nil)
	if !ok {
		return
	}
	i.cur, i.valid = e, true
}

var _ Iterator = (*BlockIterator)(nil)
