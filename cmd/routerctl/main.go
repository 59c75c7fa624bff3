// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Command routerctl issues ad-hoc find_group queries against a
// locally-loaded router snapshot, can graph reconnect-backoff samples as
// an ASCII sparkline, and runs a quorum-write demo. It has no find_shard
// command.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/engula-go/storekv/internal/quorumfuture"
	"github.com/engula-go/storekv/router"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{Use: "routerctl"}
	root.AddCommand(newFindGroupCmd(), newBackoffGraphCmd(), newQuorumWriteCmd())
	return root
}

// snapshotDesc is the on-disk shape a routerctl snapshot file is decoded
// from: a flat list of group descriptors applied in order, the same shape
// the real RouterUpdater would replay from a watch stream. Shard
// partitions are given in a flattened, JSON-friendly form since
// router.ShardPartition is an interface that cannot decode directly.
type snapshotDesc struct {
	Groups []snapshotGroup `json:"groups"`
}

type snapshotGroup struct {
	ID       uint64           `json:"id"`
	Epoch    uint64           `json:"epoch"`
	Shards   []snapshotShard  `json:"shards"`
	Replicas []snapshotReplica `json:"replicas"`
}

type snapshotShard struct {
	ID           uint64 `json:"id"`
	CollectionID uint64 `json:"collection_id"`
	HashSlotID   *uint32 `json:"hash_slot_id,omitempty"`
	HashSlots    *uint32 `json:"hash_slots,omitempty"`
	RangeStart   []byte `json:"range_start,omitempty"`
	RangeEnd     []byte `json:"range_end,omitempty"`
}

type snapshotReplica struct {
	ID     uint64 `json:"id"`
	NodeID uint64 `json:"node_id"`
}

func (s snapshotShard) toShardDesc() router.ShardDesc {
	desc := router.ShardDesc{ID: s.ID, CollectionID: s.CollectionID}
	if s.HashSlotID != nil && s.HashSlots != nil {
		desc.Partition = router.HashShardPartition{SlotID: *s.HashSlotID, Slots: *s.HashSlots}
	} else {
		desc.Partition = router.RangeShardPartition{Start: s.RangeStart, End: s.RangeEnd}
	}
	return desc
}

func loadSnapshot(path string) (*router.State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var snap snapshotDesc
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return nil, err
	}

	state := router.NewState(nil)
	for _, g := range snap.Groups {
		shards := make([]router.ShardDesc, len(g.Shards))
		for i, s := range g.Shards {
			shards[i] = s.toShardDesc()
		}
		replicas := make([]router.ReplicaDesc, len(g.Replicas))
		for i, r := range g.Replicas {
			replicas[i] = router.ReplicaDesc{ID: r.ID, NodeID: r.NodeID}
		}
		desc := router.GroupDesc{ID: g.ID, Epoch: g.Epoch, Shards: shards, Replicas: replicas}
		state.ApplyUpdate(router.UpdateEvent{Group: &desc})
	}
	return state, nil
}

func newFindGroupCmd() *cobra.Command {
	var snapshotPath string
	cmd := &cobra.Command{
		Use:   "find-group <group-id>",
		Short: "Look up a group's materialised view in a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := loadSnapshot(snapshotPath)
			if err != nil {
				return err
			}
			var id uint64
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
				return fmt.Errorf("invalid group id %q: %w", args[0], err)
			}
			locator := router.NewShardLocator(state)
			view, err := locator.FindGroup(id)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		},
	}
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "path to a router snapshot JSON file")
	cmd.MarkFlagRequired("snapshot")
	return cmd
}

// newQuorumWriteCmd demonstrates internal/quorumfuture by fanning a single
// value out to one file per replica path and waiting for a strict majority
// to land, the same shape a group leader uses to ack a client write once
// enough followers have persisted it.
func newQuorumWriteCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "quorum-write <value> <replica-file>...",
		Short: "Write a value to replica files concurrently, acking at strict majority",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, replicaPaths := []byte(args[0]), args[1:]
			ops := make([]quorumfuture.Op, len(replicaPaths))
			for i, path := range replicaPaths {
				path := path
				ops[i] = func(ctx context.Context) error {
					return os.WriteFile(path, value, 0o644)
				}
			}

			recorder := quorumfuture.NewLatencyRecorder()
			err := quorumfuture.WriteTimed(recorder, func() error {
				return quorumfuture.Write(context.Background(), timeout, ops)
			})
			fmt.Fprintf(cmd.OutOrStdout(), "quorum write latency p50=%dus p99=%dus\n",
				recorder.ValueAtQuantile(50), recorder.ValueAtQuantile(99))
			return err
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "overall quorum timeout")
	return cmd
}

func newBackoffGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backoff-graph <samples-ms...>",
		Short: "Render a list of backoff-interval samples as an ASCII sparkline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			samples := make([]float64, len(args))
			for i, a := range args {
				var v float64
				if _, err := fmt.Sscanf(a, "%f", &v); err != nil {
					return fmt.Errorf("invalid sample %q: %w", a, err)
				}
				samples[i] = v
			}
			graph := asciigraph.Plot(samples, asciigraph.Height(10), asciigraph.Caption("backoff interval (ms)"))
			fmt.Fprintln(cmd.OutOrStdout(), graph)
			return nil
		},
	}
	return cmd
}
