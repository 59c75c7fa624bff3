// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package base defines the primitive ordering types shared by the sstable
// and router layers: timestamps, user keys, internal keys, and the value
// kinds that distinguish a live value from a tombstone.
package base

import "bytes"

// Timestamp is a 64-bit logical clock. Larger values are newer.
type Timestamp uint64

// TimestampMax is reserved as a sentinel meaning "newest possible version".
const TimestampMax Timestamp = ^Timestamp(0)

// ValueKind distinguishes a live value from a tombstone. It does not
// participate in InternalKey ordering.
type ValueKind uint8

const (
	// ValueKindNone marks a tombstone: the key is deleted at this timestamp.
	ValueKindNone ValueKind = 0
	// ValueKindSome marks a live value.
	ValueKindSome ValueKind = 1
	// ValueKindUnknown is used when the kind could not be determined, e.g.
	// when decoding a record whose trailer byte is corrupt but the rest of
	// the record is usable for ordering purposes.
	ValueKindUnknown ValueKind = 255
)

// UserKey is an arbitrary byte sequence compared lexicographically.
type UserKey []byte

// InternalKey is the tuple (UserKey, Timestamp, ValueKind). InternalKeys
// order by UserKey ascending, then by Timestamp descending: newer versions
// of the same user key sort first. ValueKind does not affect ordering.
type InternalKey struct {
	UserKey   UserKey
	Timestamp Timestamp
	Kind      ValueKind
}

// MakeInternalKey is a convenience constructor.
func MakeInternalKey(userKey []byte, ts Timestamp, kind ValueKind) InternalKey {
	return InternalKey{UserKey: userKey, Timestamp: ts, Kind: kind}
}

// Compare orders two InternalKeys per the rule above: ascending user key,
// then descending timestamp.
func Compare(a, b InternalKey) int {
	if c := bytes.Compare(a.UserKey, b.UserKey); c != 0 {
		return c
	}
	switch {
	case a.Timestamp > b.Timestamp:
		return -1
	case a.Timestamp < b.Timestamp:
		return 1
	default:
		return 0
	}
}

// Less reports whether a sorts strictly before b.
func Less(a, b InternalKey) bool {
	return Compare(a, b) < 0
}

// CompareUserKeyTimestamp compares an InternalKey against a (timestamp,
// user key) seek target using the same ordering as Compare, without
// allocating an InternalKey for the target.
func CompareUserKeyTimestamp(a InternalKey, key []byte, ts Timestamp) int {
	if c := bytes.Compare(a.UserKey, key); c != 0 {
		return c
	}
	switch {
	case a.Timestamp > ts:
		return -1
	case a.Timestamp < ts:
		return 1
	default:
		return 0
	}
}
