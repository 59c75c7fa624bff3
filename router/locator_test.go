// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package router

import (
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/engula-go/storekv/kverrors"
)

func TestFindShardHashPartitionRoutesToOwningSlot(t *testing.T) {
	s := NewState(nil)
	const slots = 4
	var shards []ShardDesc
	for slot := uint32(0); slot < slots; slot++ {
		shards = append(shards, ShardDesc{
			ID:           uint64(slot) + 1,
			CollectionID: 1,
			Partition:    HashShardPartition{SlotID: slot, Slots: slots},
		})
	}
	s.applyGroupDescriptorLocked(groupDesc(1, 1, shards...))

	locator := NewShardLocator(s)
	desc := CollectionDesc{ID: 1, Partition: HashPartition{Slots: slots}}

	key := []byte("some-key")
	wantSlot := crc32.ChecksumIEEE(key) % slots

	view, shard, err := locator.FindShard(desc, key)
	require.NoError(t, err)
	require.Equal(t, uint64(1), view.ID)
	require.Equal(t, wantSlot, shard.Partition.(HashShardPartition).SlotID)
}

func TestFindShardHashPartitionDetectsExpiredShardInfo(t *testing.T) {
	s := NewState(nil)
	s.applyGroupDescriptorLocked(groupDesc(1, 1, ShardDesc{
		ID:           1,
		CollectionID: 1,
		Partition:    HashShardPartition{SlotID: 0, Slots: 4},
	}))

	locator := NewShardLocator(s)
	// desc.Partition.Slots disagrees with the single materialised shard.
	desc := CollectionDesc{ID: 1, Partition: HashPartition{Slots: 4}}

	_, _, err := locator.FindShard(desc, []byte("key"))
	require.Error(t, err)
	require.True(t, kverrors.Is(err, kverrors.KindExpiredShardInfo))
}

func TestFindShardRangePartitionPicksContainingShard(t *testing.T) {
	s := NewState(nil)
	s.applyGroupDescriptorLocked(groupDesc(1, 1,
		ShardDesc{ID: 1, CollectionID: 1, Partition: RangeShardPartition{Start: nil, End: []byte("m")}},
		ShardDesc{ID: 2, CollectionID: 1, Partition: RangeShardPartition{Start: []byte("m"), End: nil}},
	))

	locator := NewShardLocator(s)
	desc := CollectionDesc{ID: 1}

	_, shard, err := locator.FindShard(desc, []byte("apple"))
	require.NoError(t, err)
	require.Equal(t, uint64(1), shard.ID)

	_, shard, err = locator.FindShard(desc, []byte("zebra"))
	require.NoError(t, err)
	require.Equal(t, uint64(2), shard.ID)
}

func TestFindShardNotFoundForUnknownCollection(t *testing.T) {
	s := NewState(nil)
	locator := NewShardLocator(s)
	_, _, err := locator.FindShard(CollectionDesc{ID: 99}, []byte("key"))
	require.Error(t, err)
	require.True(t, kverrors.Is(err, kverrors.KindNotFound))
}

func TestFindNodeAddrAndTotalNodes(t *testing.T) {
	s := NewState(nil)
	s.ApplyUpdate(UpdateEvent{Node: &NodeDesc{ID: 1, Addr: "10.0.0.1:1234"}})
	s.ApplyUpdate(UpdateEvent{Node: &NodeDesc{ID: 2, Addr: "10.0.0.2:1234"}})

	locator := NewShardLocator(s)
	addr, err := locator.FindNodeAddr(1)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1:1234", addr)
	require.Equal(t, 2, locator.TotalNodes())

	nodeID := uint64(1)
	s.ApplyDelete(DeleteEvent{Node: &nodeID})
	require.Equal(t, 1, locator.TotalNodes())
}
