// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package quorumfuture implements a quorum-write combinator: it runs N
// per-replica write operations concurrently and completes as soon as a
// strict majority have reported ready, cancelling the rest.
package quorumfuture

import (
	"context"
	"time"

	"github.com/engula-go/storekv/kverrors"
)

// Op is one per-replica write operation.
type Op func(ctx context.Context) error

// Write runs ops concurrently, each under a context that is cancelled as
// soon as Write returns. It returns once strictly more than half of ops
// have completed without error (a "> N/2" strict majority, `count >
// len(ops) / 2`), or once a majority becomes impossible because too many
// have already failed. timeout wraps the whole quorum; on expiry Write
// fails.
func Write(ctx context.Context, timeout time.Duration, ops []Op) error {
	if len(ops) == 0 {
		return kverrors.InvalidArgumentf("quorumfuture: no replica operations supplied")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make(chan error, len(ops))
	for _, op := range ops {
		op := op
		go func() { results <- op(ctx) }()
	}

	needed := len(ops)/2 + 1
	succeeded, failed := 0, 0
	for i := 0; i < len(ops); i++ {
		select {
		case err := <-results:
			if err == nil {
				succeeded++
				if succeeded >= needed {
					return nil
				}
			} else {
				failed++
				if len(ops)-failed < needed {
					return kverrors.Wrap(kverrors.KindIO, err, "quorumfuture: quorum unreachable")
				}
			}
		case <-ctx.Done():
			return kverrors.Wrap(kverrors.KindIO, ctx.Err(), "quorumfuture: quorum timed out")
		}
	}
	return kverrors.New(kverrors.KindIO, "quorumfuture: quorum unreachable")
}
