// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package router

import (
	"context"
	"time"

	"github.com/cockroachdb/tokenbucket"
	"golang.org/x/sync/errgroup"

	"github.com/engula-go/storekv/internal/base"
)

// EventStream is a single subscription's event source: each call to Recv
// blocks until the next WatchResponse or a terminal error, modelling a
// server-streaming RPC response.
type EventStream interface {
	Recv() (WatchResponse, error)
}

// RootClient opens a watch subscription against the root service,
// starting from the given per-group epoch watermark.
type RootClient interface {
	Watch(ctx context.Context, groupEpochs map[uint64]uint64) (EventStream, error)
}

// RouterOptions configures an Updater's reconnect backoff and rate limit.
// The zero value is not ready to use; pass it through EnsureDefaults (or
// call NewUpdater, which does so automatically) to fill in the documented
// defaults below.
type RouterOptions struct {
	// MinBackoff is the delay before the first retry after a failed watch
	// connection attempt.
	MinBackoff time.Duration
	// MaxBackoff caps the exponential backoff delay.
	MaxBackoff time.Duration
	// ReconnectRate is the steady-state number of reconnect attempts per
	// second the rate limiter admits.
	ReconnectRate float64
	// ReconnectBurst is the number of reconnect attempts the rate limiter
	// allows to burst above ReconnectRate.
	ReconnectBurst float64
}

// DefaultRouterOptions returns the options used when none are supplied:
// 1ms-1s exponential backoff, rate-limited to 5 reconnects/sec with a
// burst of 5.
func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		MinBackoff:     time.Millisecond,
		MaxBackoff:     time.Second,
		ReconnectRate:  5,
		ReconnectBurst: 5,
	}
}

// EnsureDefaults returns a copy of o with every zero-valued field filled in
// from DefaultRouterOptions.
func (o RouterOptions) EnsureDefaults() RouterOptions {
	d := DefaultRouterOptions()
	if o.MinBackoff == 0 {
		o.MinBackoff = d.MinBackoff
	}
	if o.MaxBackoff == 0 {
		o.MaxBackoff = d.MaxBackoff
	}
	if o.ReconnectRate == 0 {
		o.ReconnectRate = d.ReconnectRate
	}
	if o.ReconnectBurst == 0 {
		o.ReconnectBurst = d.ReconnectBurst
	}
	return o
}

// Updater is the single long-running task that subscribes to descriptor
// events and applies them to a State. It never fails terminally: transport
// errors trigger exponential backoff and retry while the state continues
// serving its last-known values.
type Updater struct {
	state   *State
	client  RootClient
	log     base.Logger
	metrics *UpdaterMetrics
	options RouterOptions

	// reconnectLimiter additionally rate-limits reconnect attempts so a
	// root service that accepts and immediately drops connections cannot
	// cause a reconnect storm even if backoff bookkeeping were broken.
	reconnectLimiter tokenbucket.TokenBucket
}

// NewUpdater returns an Updater that will apply events from client into
// state, logging through log. Zero-valued fields of options are filled in
// from DefaultRouterOptions.
func NewUpdater(state *State, client RootClient, log base.Logger, metrics *UpdaterMetrics, options RouterOptions) *Updater {
	options = options.EnsureDefaults()
	u := &Updater{state: state, client: client, log: log, metrics: metrics, options: options}
	u.reconnectLimiter.Init(tokenbucket.Rate(options.ReconnectRate), tokenbucket.Burst(options.ReconnectBurst))
	return u
}

// Run drives the watch loop and a metrics-export goroutine under a shared
// errgroup, until ctx is cancelled.
func (u *Updater) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return u.watchLoop(ctx) })
	if u.metrics != nil {
		g.Go(func() error { return u.exportLoop(ctx) })
	}
	return g.Wait()
}

func (u *Updater) watchLoop(ctx context.Context) error {
	backoff := u.options.MinBackoff
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		groupEpochs := u.state.GroupEpochs()

		if err := u.reconnectLimiter.Wait(ctx, 1); err != nil {
			return ctx.Err()
		}

		stream, err := u.client.Watch(ctx, groupEpochs)
		if err != nil {
			u.log.Errorf("watch events: %v", err)
			if u.metrics != nil {
				u.metrics.ReconnectCount.Inc()
				u.metrics.BackoffIntervalMs.Set(float64(backoff.Milliseconds()))
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
			if backoff > u.options.MaxBackoff {
				backoff = u.options.MaxBackoff
			}
			continue
		}

		backoff = u.options.MinBackoff
		if u.metrics != nil {
			u.metrics.BackoffIntervalMs.Set(0)
		}
		if err := u.drain(ctx, stream); err != nil {
			u.log.Errorf("watch events: %v", err)
			continue
		}
	}
}

// drain consumes stream until it ends or errors, applying every batch's
// updates then its deletes inside brief critical sections.
func (u *Updater) drain(ctx context.Context, stream EventStream) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		resp, err := stream.Recv()
		if err != nil {
			return err
		}
		for _, ev := range resp.Updates {
			u.state.ApplyUpdate(ev)
		}
		for _, ev := range resp.Deletes {
			u.state.ApplyDelete(ev)
		}
	}
}

func (u *Updater) exportLoop(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if u.metrics != nil {
				u.metrics.TotalGroups.Set(float64(len(u.state.GroupEpochs())))
			}
		}
	}
}
