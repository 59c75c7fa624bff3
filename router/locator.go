// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package router

import (
	"bytes"
	"hash/crc32"

	"github.com/engula-go/storekv/kverrors"
)

// ShardLocator answers routing queries against a State kept up to date by
// a RouterUpdater.
type ShardLocator struct {
	state *State
}

// NewShardLocator returns a ShardLocator backed by state.
func NewShardLocator(state *State) *ShardLocator {
	return &ShardLocator{state: state}
}

// FindShard returns the group currently owning the shard of desc's
// collection that contains key, and that shard's descriptor.
func (l *ShardLocator) FindShard(desc CollectionDesc, key []byte) (GroupView, ShardDesc, error) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()

	shards, ok := l.state.coShardsLookup.Get(desc.ID)
	if !ok {
		return GroupView{}, ShardDesc{}, kverrors.NotFoundf("shard (key=%s)", kverrors.SafeKey(key))
	}

	if hp, isHash := desc.Partition.(HashPartition); isHash {
		if uint32(len(shards)) != hp.Slots {
			return GroupView{}, ShardDesc{}, kverrors.ExpiredShardInfof("expired shard info")
		}
		slot := crc32.ChecksumIEEE(key) % hp.Slots
		for _, shard := range shards {
			sp, ok := shard.Partition.(HashShardPartition)
			if ok && sp.SlotID == slot {
				view, ok := l.findGroupByShardLocked(shard.ID)
				if !ok {
					return GroupView{}, ShardDesc{}, kverrors.NotFoundf("shard (key=%s) group", kverrors.SafeKey(key))
				}
				return view, shard, nil
			}
		}
		return GroupView{}, ShardDesc{}, kverrors.NotFoundf("shard (key=%s)", kverrors.SafeKey(key))
	}

	for _, shard := range shards {
		rp, ok := shard.Partition.(RangeShardPartition)
		if !ok {
			continue
		}
		if bytes.Compare(rp.Start, key) > 0 {
			continue
		}
		if len(rp.End) == 0 || bytes.Compare(rp.End, key) > 0 {
			view, ok := l.findGroupByShardLocked(shard.ID)
			if !ok {
				return GroupView{}, ShardDesc{}, kverrors.NotFoundf("shard (key=%s) group", kverrors.SafeKey(key))
			}
			return view, shard, nil
		}
	}
	return GroupView{}, ShardDesc{}, kverrors.NotFoundf("shard (key=%s)", kverrors.SafeKey(key))
}

// FindGroupByShard returns the group currently owning shardID.
func (l *ShardLocator) FindGroupByShard(shardID uint64) (GroupView, error) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	view, ok := l.findGroupByShardLocked(shardID)
	if !ok {
		return GroupView{}, kverrors.NotFoundf("group (shard=%d)", shardID)
	}
	return view, nil
}

// findGroupByShardLocked resolves a shard to its current owning group. A
// shard whose recorded owner epoch is older than its owning group's
// current epoch has already migrated away and is hidden until the new
// owner's descriptor lands.
func (l *ShardLocator) findGroupByShardLocked(shardID uint64) (GroupView, bool) {
	ge, ok := l.state.shardGroupLookup.Get(shardID)
	if !ok {
		return GroupView{}, false
	}
	view, ok := l.state.groupIDLookup[ge.groupID]
	if !ok {
		return GroupView{}, false
	}
	if view.Epoch > ge.epoch {
		return GroupView{}, false
	}
	return *view, true
}

// FindGroup returns the materialised view of group id.
func (l *ShardLocator) FindGroup(id uint64) (GroupView, error) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	view, ok := l.state.groupIDLookup[id]
	if !ok {
		return GroupView{}, kverrors.NotFoundf("group (id=%d)", id)
	}
	return *view, nil
}

// FindNodeAddr returns the address registered for node id.
func (l *ShardLocator) FindNodeAddr(id uint64) (string, error) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	addr, ok := l.state.nodeIDLookup[id]
	if !ok {
		return "", kverrors.NotFoundf("node_addr (node_id=%d)", id)
	}
	return addr, nil
}

// TotalNodes returns the number of nodes currently known.
func (l *ShardLocator) TotalNodes() int {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	return len(l.state.nodeIDLookup)
}
