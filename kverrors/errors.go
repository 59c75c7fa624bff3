// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package kverrors defines the error taxonomy used across the sstable and
// router layers, built on top of github.com/cockroachdb/errors.
package kverrors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// Kind classifies an error by the condition that produced it.
type Kind int

const (
	// KindCorrupted marks a malformed on-disk structure.
	KindCorrupted Kind = iota
	// KindNotFound marks a routing lookup miss.
	KindNotFound
	// KindIO marks an underlying reader/writer failure.
	KindIO
	// KindInvalidArgument marks a violated caller precondition.
	KindInvalidArgument
	// KindExpiredShardInfo marks a hash partition whose slot count
	// disagrees with the materialised shard list.
	KindExpiredShardInfo
)

func (k Kind) String() string {
	switch k {
	case KindCorrupted:
		return "corrupted"
	case KindNotFound:
		return "not found"
	case KindIO:
		return "io"
	case KindInvalidArgument:
		return "invalid argument"
	case KindExpiredShardInfo:
		return "expired shard info"
	default:
		return "unknown"
	}
}

type kindMarker struct{ kind Kind }

func (m kindMarker) Error() string { return m.kind.String() }

// New constructs an error of the given kind with a redactable message. User
// keys and other payload bytes passed as args should be wrapped in
// redact.Safe only when they are known-safe (ids, counts); raw key bytes are
// left unmarked so they are redacted in production log output.
func New(kind Kind, format string, args ...interface{}) error {
	err := errors.Newf(format, args...)
	return errors.Mark(err, kindMarker{kind})
}

// Wrap attaches a Kind to an existing error without discarding its cause
// chain.
func Wrap(kind Kind, cause error, format string, args ...interface{}) error {
	if cause == nil {
		return nil
	}
	err := errors.Wrapf(cause, format, args...)
	return errors.Mark(err, kindMarker{kind})
}

// Is reports whether err (or any error in its cause chain) was constructed
// with the given Kind.
func Is(err error, kind Kind) bool {
	return errors.Is(err, kindMarker{kind})
}

// NotFoundf builds a KindNotFound error with a human-readable context
// string, e.g. "shard (key=[..])" or "group (shard=..)".
func NotFoundf(format string, args ...interface{}) error {
	return New(KindNotFound, format, args...)
}

// Corruptf builds a KindCorrupted error.
func Corruptf(format string, args ...interface{}) error {
	return New(KindCorrupted, format, args...)
}

// InvalidArgumentf builds a KindInvalidArgument error.
func InvalidArgumentf(format string, args ...interface{}) error {
	return New(KindInvalidArgument, format, args...)
}

// ExpiredShardInfof builds a KindExpiredShardInfo error.
func ExpiredShardInfof(format string, args ...interface{}) error {
	return New(KindExpiredShardInfo, format, args...)
}

// SafeKey redacts a user key for inclusion in error/log messages, printing
// only its length; the key bytes themselves are never included.
func SafeKey(key []byte) redact.SafeString {
	return redact.SafeString(fmt.Sprintf("<%d bytes>", len(key)))
}
