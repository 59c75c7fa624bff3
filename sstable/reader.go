// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package sstable

import (
	"bytes"

	"github.com/engula-go/storekv/internal/base"
	"github.com/engula-go/storekv/kverrors"
)

// SstReader is an immutable, concurrently-shareable handle to a table file
// The index block is read once at Open and retained for
// the reader's lifetime; data blocks are fetched on demand.
type SstReader struct {
	file       RandomAccessReader
	size       int64
	indexBlock []byte
	metrics    *Metrics
}

// OpenSstReader validates and opens a table file of the given size over
// file, reading and retaining its index block. metrics may be nil, in
// which case block I/O is not recorded.
func OpenSstReader(file RandomAccessReader, size int64, metrics *Metrics) (*SstReader, error) {
	if size < FooterSize {
		return nil, kverrors.Corruptf("sstable: file size %d smaller than footer size %d", size, FooterSize)
	}
	footer := make([]byte, FooterSize)
	if n, err := file.ReadAt(footer, size-FooterSize); err != nil || n != FooterSize {
		if err == nil {
			err = kverrors.Corruptf("sstable: short footer read (%d of %d bytes)", n, FooterSize)
		}
		return nil, kverrors.Wrap(kverrors.KindIO, err, "sstable: read footer")
	}
	indexHandle := DecodeBlockHandle(footer)

	raw := make([]byte, indexHandle.Size)
	if n, err := file.ReadAt(raw, int64(indexHandle.Offset)); err != nil || uint64(n) != indexHandle.Size {
		if err == nil {
			err = kverrors.Corruptf("sstable: short index block read (%d of %d bytes)", n, indexHandle.Size)
		}
		return nil, kverrors.Wrap(kverrors.KindIO, err, "sstable: read index block")
	}
	index, err := decompressBlock(raw)
	if err != nil {
		return nil, err
	}

	return &SstReader{file: file, size: size, indexBlock: index, metrics: metrics}, nil
}

// Get returns the value stored for the exact (ts, key) pair, or ok=false
// if no such entry exists. Callers implementing MVCC
// read-at-ts semantics should use NewIterator directly instead.
func (r *SstReader) Get(ts base.Timestamp, key []byte) (value []byte, ok bool, err error) {
	it, err := r.NewIterator()
	if err != nil {
		return nil, false, err
	}
	it.Seek(ts, key)
	if err := it.Error(); err != nil {
		return nil, false, err
	}
	curTs, curKey, curValue, ok := it.Current()
	if !ok || curTs != ts || !bytes.Equal(curKey, key) {
		return nil, false, nil
	}
	return curValue, true, nil
}

// NewIterator returns a two-level iterator over the whole table: the outer
// level walks the in-memory index block, the inner level fetches data
// blocks from the file by BlockHandle.
func (r *SstReader) NewIterator() (Iterator, error) {
	indexIter, err := NewBlockIterator(r.indexBlock)
	if err != nil {
		return nil, err
	}
	return NewTwoLevelIterator(indexIter, sstBlockIterGenerator{r.file, r.metrics}), nil
}

// sstBlockIterGenerator implements BlockIterGenerator by reading the
// referenced data block from the table file and decompressing it.
type sstBlockIterGenerator struct {
	file    RandomAccessReader
	metrics *Metrics
}

func (g sstBlockIterGenerator) BlockIter(h BlockHandle) (Iterator, error) {
	raw := make([]byte, h.Size)
	n, err := g.file.ReadAt(raw, int64(h.Offset))
	if g.metrics != nil {
		g.metrics.BlockReads.Inc()
		g.metrics.BlockCacheMiss.Inc()
		g.metrics.BlockReadBytes.Add(float64(n))
	}
	if err != nil || uint64(n) != h.Size {
		if err == nil {
			err = kverrors.Corruptf("sstable: short data block read (%d of %d bytes)", n, h.Size)
		}
		if g.metrics != nil {
			g.metrics.BlockReadErrors.Inc()
		}
		return nil, kverrors.Wrap(kverrors.KindIO, err, "sstable: read data block")
	}
	block, err := decompressBlock(raw)
	if err != nil {
		if g.metrics != nil {
			g.metrics.BlockReadErrors.Inc()
		}
		return nil, err
	}
	return NewBlockIterator(block)
}

var _ BlockIterGenerator = sstBlockIterGenerator{}
