// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import "encoding/binary"

// InternalKeyTrailerLen is the number of bytes appended to a user key to
// form the on-disk InternalKey encoding: 8 bytes of big-endian timestamp
// plus 1 byte of value kind.
const InternalKeyTrailerLen = 9

// AppendInternalKey appends the on-disk encoding of key
// (user_key || be_u64(timestamp) || u8(value_kind)) to dst and returns the
// extended slice.
func AppendInternalKey(dst []byte, key InternalKey) []byte {
	dst = append(dst, key.UserKey...)
	var trailer [InternalKeyTrailerLen]byte
	binary.BigEndian.PutUint64(trailer[:8], uint64(key.Timestamp))
	trailer[8] = byte(key.Kind)
	return append(dst, trailer[:]...)
}

// DecodeInternalKey decodes the on-disk InternalKey encoding produced by
// AppendInternalKey. It assumes buf is at least InternalKeyTrailerLen bytes
// long; callers must validate lengths before calling (see BlockHandle for
// the same convention).
func DecodeInternalKey(buf []byte) InternalKey {
	n := len(buf) - InternalKeyTrailerLen
	trailer := buf[n:]
	return InternalKey{
		UserKey:   UserKey(buf[:n]),
		Timestamp: Timestamp(binary.BigEndian.Uint64(trailer[:8])),
		Kind:      ValueKind(trailer[8]),
	}
}
