// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package sstable

import "encoding/binary"

// BlockHandleSize is the fixed encoded size of a BlockHandle: two
// big-endian uint64s.
const BlockHandleSize = 16

// BlockHandle is a fixed-size (offset, size) reference into a table file.
type BlockHandle struct {
	Offset uint64
	Size   uint64
}

// Encode writes the 16-byte fixed encoding of h into dst, which must be at
// least BlockHandleSize bytes long, and returns the number of bytes
// written (always BlockHandleSize).
func (h BlockHandle) Encode(dst []byte) int {
	binary.BigEndian.PutUint64(dst[0:8], h.Offset)
	binary.BigEndian.PutUint64(dst[8:16], h.Size)
	return BlockHandleSize
}

// EncodeToBytes returns the 16-byte fixed encoding of h as a new slice.
func (h BlockHandle) EncodeToBytes() []byte {
	buf := make([]byte, BlockHandleSize)
	h.Encode(buf)
	return buf
}

// DecodeBlockHandle decodes a BlockHandle from the first BlockHandleSize
// bytes of src. It assumes src is at least BlockHandleSize bytes long;
// callers must validate lengths before calling.
func DecodeBlockHandle(src []byte) BlockHandle {
	return BlockHandle{
		Offset: binary.BigEndian.Uint64(src[0:8]),
		Size:   binary.BigEndian.Uint64(src[8:16]),
	}
}
