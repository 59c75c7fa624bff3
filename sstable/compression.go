// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package sstable

import (
	"encoding/binary"

	"github.com/DataDog/zstd"
	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"

	"github.com/engula-go/storekv/kverrors"
)

// Compression selects the codec used to compress data and index blocks
// before they are written to the table file. Every on-disk block, whatever
// its codec, is followed by a blockTrailerLen-byte trailer; a NoCompression
// block stores the BlockBuilder output verbatim ahead of that trailer.
type Compression int

const (
	// NoCompression stores block payloads verbatim.
	NoCompression Compression = iota
	// SnappyCompression compresses block payloads with Snappy.
	SnappyCompression
	// ZstdCompression compresses block payloads with Zstd.
	ZstdCompression
)

// blockTrailerLen is the length of the trailer appended after a (possibly
// compressed) block payload: 1 byte of compression type, 4 bytes of
// little-endian xxhash64-derived checksum.
const blockTrailerLen = 5

const (
	noCompressionBlockType     byte = 0
	snappyCompressionBlockType byte = 1
	zstdCompressionBlockType   byte = 2
)

func compressionBlockType(c Compression) byte {
	switch c {
	case SnappyCompression:
		return snappyCompressionBlockType
	case ZstdCompression:
		return zstdCompressionBlockType
	default:
		return noCompressionBlockType
	}
}

// compressBlock compresses payload per c and appends the block trailer,
// returning the full on-disk bytes for the block (payload + trailer).
func compressBlock(payload []byte, c Compression) ([]byte, error) {
	var compressed []byte
	typ := compressionBlockType(c)
	switch c {
	case SnappyCompression:
		compressed = snappy.Encode(nil, payload)
	case ZstdCompression:
		var err error
		compressed, err = zstd.Compress(nil, payload)
		if err != nil {
			return nil, kverrors.Wrap(kverrors.KindIO, err, "sstable: zstd compress")
		}
	default:
		compressed = payload
	}
	out := make([]byte, len(compressed)+blockTrailerLen)
	copy(out, compressed)
	out[len(compressed)] = typ
	checksum := blockChecksum(compressed, typ)
	binary.LittleEndian.PutUint32(out[len(compressed)+1:], checksum)
	return out, nil
}

// decompressBlock validates the trailer checksum and returns the
// decompressed payload of an on-disk block.
func decompressBlock(raw []byte) ([]byte, error) {
	if len(raw) < blockTrailerLen {
		return nil, kverrors.Corruptf("sstable: block shorter than trailer (%d bytes)", len(raw))
	}
	n := len(raw) - blockTrailerLen
	payload, typ := raw[:n], raw[n]
	wantChecksum := binary.LittleEndian.Uint32(raw[n+1:])
	if got := blockChecksum(payload, typ); got != wantChecksum {
		return nil, kverrors.Corruptf("sstable: block checksum mismatch (got %x want %x)", got, wantChecksum)
	}
	switch typ {
	case noCompressionBlockType:
		return payload, nil
	case snappyCompressionBlockType:
		decoded, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, kverrors.Wrap(kverrors.KindCorrupted, err, "sstable: snappy decompress")
		}
		return decoded, nil
	case zstdCompressionBlockType:
		decoded, err := zstd.Decompress(nil, payload)
		if err != nil {
			return nil, kverrors.Wrap(kverrors.KindCorrupted, err, "sstable: zstd decompress")
		}
		return decoded, nil
	default:
		return nil, kverrors.Corruptf("sstable: unknown block compression type %d", typ)
	}
}

func blockChecksum(payload []byte, typ byte) uint32 {
	d := xxhash.New()
	d.Write(payload)
	d.Write([]byte{typ})
	return uint32(d.Sum64())
}
