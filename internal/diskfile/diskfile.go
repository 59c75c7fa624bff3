// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package diskfile provides the concrete os.File-backed implementations of
// sstable.SequentialWriter and sstable.RandomAccessReader.
package diskfile

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/engula-go/storekv/kverrors"
)

// Writer is an append-only sstable.SequentialWriter over an *os.File,
// holding an advisory exclusive flock for its lifetime so a second writer
// cannot corrupt the table while it is being built.
type Writer struct {
	f *os.File
}

// CreateWriter creates (or truncates) name and returns a Writer holding an
// exclusive advisory lock on it.
func CreateWriter(name string) (*Writer, error) {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, kverrors.Wrap(kverrors.KindIO, err, "diskfile: create %s", name)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, kverrors.Wrap(kverrors.KindIO, err, "diskfile: lock %s", name)
	}
	// Truncate only once the lock is held, so a writer that loses the lock
	// race leaves the current holder's file untouched.
	if err := f.Truncate(0); err != nil {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		return nil, kverrors.Wrap(kverrors.KindIO, err, "diskfile: truncate %s", name)
	}
	return &Writer{f: f}, nil
}

// WriteAll implements sstable.SequentialWriter.
func (w *Writer) WriteAll(p []byte) error {
	for len(p) > 0 {
		n, err := w.f.Write(p)
		if err != nil {
			return kverrors.Wrap(kverrors.KindIO, err, "diskfile: write")
		}
		p = p[n:]
	}
	return nil
}

// Sync flushes the file's contents to stable storage.
func (w *Writer) Sync() error {
	if err := w.f.Sync(); err != nil {
		return kverrors.Wrap(kverrors.KindIO, err, "diskfile: sync")
	}
	return nil
}

// Close unlocks and closes the underlying file.
func (w *Writer) Close() error {
	_ = unix.Flock(int(w.f.Fd()), unix.LOCK_UN)
	if err := w.f.Close(); err != nil {
		return kverrors.Wrap(kverrors.KindIO, err, "diskfile: close")
	}
	return nil
}

// Reader is an sstable.RandomAccessReader over an *os.File. A single
// Reader may be shared across concurrently-iterating goroutines: os.File's
// ReadAt is safe for concurrent use.
type Reader struct {
	f    *os.File
	size int64
}

// OpenReader opens name for reading and stats its size.
func OpenReader(name string) (*Reader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, kverrors.Wrap(kverrors.KindIO, err, "diskfile: open %s", name)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, kverrors.Wrap(kverrors.KindIO, err, "diskfile: stat %s", name)
	}
	return &Reader{f: f, size: fi.Size()}, nil
}

// Size returns the file size observed at open.
func (r *Reader) Size() int64 { return r.size }

// ReadAt implements sstable.RandomAccessReader.
func (r *Reader) ReadAt(dst []byte, offset int64) (int, error) {
	n, err := r.f.ReadAt(dst, offset)
	if err != nil {
		return n, kverrors.Wrap(kverrors.KindIO, err, "diskfile: read at %d", offset)
	}
	return n, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	if err := r.f.Close(); err != nil {
		return kverrors.Wrap(kverrors.KindIO, err, "diskfile: close")
	}
	return nil
}
