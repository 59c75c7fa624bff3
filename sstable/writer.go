// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package sstable

import (
	"github.com/engula-go/storekv/internal/base"
	"github.com/engula-go/storekv/kverrors"
)

// FooterSize is the fixed on-disk size of the table footer: a single
// encoded BlockHandle pointing at the index block.
const FooterSize = BlockHandleSize

// WriterOptions configures an SstBuilder.
type WriterOptions struct {
	// BlockSize is the advisory size, in bytes, at which a data block is
	// flushed. Blocks may exceed it slightly since the boundary check
	// happens after an entry has already been appended.
	BlockSize int
	// Compression selects the codec applied to each data and index block.
	Compression Compression
}

// DefaultWriterOptions returns the options used when none are supplied.
func DefaultWriterOptions() WriterOptions {
	return WriterOptions{BlockSize: 8192, Compression: SnappyCompression}
}

// sstFileWriter tracks the running write offset of the underlying sink, so
// each flushed block can be recorded as a BlockHandle.
type sstFileWriter struct {
	sink   SequentialWriter
	offset uint64
}

func (w *sstFileWriter) writeBlock(block []byte) (BlockHandle, error) {
	h := BlockHandle{Offset: w.offset, Size: uint64(len(block))}
	if err := w.sink.WriteAll(block); err != nil {
		return BlockHandle{}, kverrors.Wrap(kverrors.KindIO, err, "sstable: write block")
	}
	w.offset += uint64(len(block))
	return h, nil
}

// SstBuilder assembles a sorted table file from a stream of (ts, key,
// value) records in increasing InternalKey order.
type SstBuilder struct {
	options WriterOptions
	file    sstFileWriter
	err     error

	haveLast bool
	lastTs   base.Timestamp
	lastKey  []byte

	dataBlock  *BlockBuilder
	indexBlock *BlockBuilder
}

// NewSstBuilder returns a builder that writes through sink.
func NewSstBuilder(sink SequentialWriter, options WriterOptions) *SstBuilder {
	return &SstBuilder{
		options:    options,
		file:       sstFileWriter{sink: sink},
		dataBlock:  NewBlockBuilder(),
		indexBlock: NewBlockBuilder(),
	}
}

// Add appends one record. If a prior write failed, Add is a silent no-op
// (the sticky error is returned from Finish): a first-error-wins
// convention.
func (b *SstBuilder) Add(ts base.Timestamp, key []byte, value []byte) {
	if b.err != nil {
		return
	}
	if b.haveLast {
		this := base.InternalKey{UserKey: base.UserKey(key), Timestamp: ts}
		last := base.InternalKey{UserKey: base.UserKey(b.lastKey), Timestamp: b.lastTs}
		if base.Compare(this, last) <= 0 {
			b.err = kverrors.InvalidArgumentf(
				"sstable: keys added out of order (key=%s not greater than previous)", kverrors.SafeKey(key))
			return
		}
	}
	b.lastTs = ts
	b.lastKey = append(b.lastKey[:0], key...)
	b.haveLast = true

	b.dataBlock.Add(ts, key, value, base.ValueKindSome)
	if b.dataBlock.ApproximateSize() >= b.options.BlockSize {
		b.flushDataBlock()
	}
}

func (b *SstBuilder) flushDataBlock() {
	if b.dataBlock.Empty() {
		return
	}
	raw := b.dataBlock.Finish()
	block, err := compressBlock(raw, b.options.Compression)
	if err != nil {
		b.err = err
		return
	}
	handle, err := b.file.writeBlock(block)
	if err != nil {
		b.err = err
		return
	}
	b.indexBlock.Add(b.lastTs, b.lastKey, handle.EncodeToBytes(), base.ValueKindSome)
}

// Finish flushes any pending data block, writes the index block and
// footer, and returns the total number of bytes written to the sink. If a
// sticky error was recorded by a prior Add or Finish, it is returned and
// no further bytes are written.
func (b *SstBuilder) Finish() (int, error) {
	if b.err != nil {
		return 0, b.err
	}
	if !b.dataBlock.Empty() {
		b.flushDataBlock()
		if b.err != nil {
			return 0, b.err
		}
	}
	if !b.indexBlock.Empty() {
		raw := b.indexBlock.Finish()
		block, err := compressBlock(raw, b.options.Compression)
		if err != nil {
			b.err = err
			return 0, err
		}
		indexHandle, err := b.file.writeBlock(block)
		if err != nil {
			b.err = err
			return 0, err
		}
		footer := indexHandle.EncodeToBytes()
		if _, err := b.file.writeBlock(footer); err != nil {
			b.err = err
			return 0, err
		}
	}
	return int(b.file.offset), nil
}
