// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package router maintains the client-side view of shard ownership: a
// RouterState reconciled from descriptor events streamed by a root
// service, and a ShardLocator that answers routing queries against it.
package router

// NodeDesc is a physical endpoint for a node.
type NodeDesc struct {
	ID   uint64
	Addr string
}

// DatabaseDesc is database metadata.
type DatabaseDesc struct {
	ID   uint64
	Name string
}

// CollectionDesc is collection metadata, including its partitioning mode.
type CollectionDesc struct {
	ID        uint64
	DBID      uint64
	Name      string
	Partition CollectionPartition
}

// CollectionPartition is either HashPartition or nil (range partitioning,
// which carries no collection-level parameters).
type CollectionPartition interface {
	isCollectionPartition()
}

// HashPartition partitions a collection into a fixed number of hash slots.
type HashPartition struct {
	Slots uint32
}

func (HashPartition) isCollectionPartition() {}

// ShardDesc is a single shard of a collection.
type ShardDesc struct {
	ID           uint64
	CollectionID uint64
	Partition    ShardPartition
}

// ShardPartition is either HashShardPartition or RangeShardPartition.
type ShardPartition interface {
	isShardPartition()
}

// HashShardPartition assigns a shard one slot of its collection's hash
// partitioning.
type HashShardPartition struct {
	SlotID uint32
	Slots  uint32
}

func (HashShardPartition) isShardPartition() {}

// RangeShardPartition assigns a shard the half-open key range [Start, End).
// An empty End means +∞.
type RangeShardPartition struct {
	Start []byte
	End   []byte
}

func (RangeShardPartition) isShardPartition() {}

// ReplicaDesc describes one replica of a group.
type ReplicaDesc struct {
	ID     uint64
	NodeID uint64
}

// RaftRole is a replica's role in its group's consensus protocol.
type RaftRole int

const (
	RoleFollower RaftRole = iota
	RoleLeader
	RoleCandidate
)

// ReplicaState is a single replica's reported leadership state, as carried
// by a GroupStateEvent.
type ReplicaState struct {
	ReplicaID uint64
	Role      RaftRole
	Term      uint64
}

// GroupStateEvent is the wire event carrying a group's observed leadership
// state, prior to being fused into a GroupView.
type GroupStateEvent struct {
	GroupID  uint64
	LeaderID *uint64
	Replicas []ReplicaState
}

// GroupDesc is the authoritative descriptor for a replica group: its
// epoch, the shards it owns, and its replica set.
type GroupDesc struct {
	ID       uint64
	Epoch    uint64
	Shards   []ShardDesc
	Replicas []ReplicaDesc
}

// LeaderState is the derived (replica, term) identifying a group's current
// leader, derived from the replicas reporting the Leader role.
type LeaderState struct {
	ReplicaID uint64
	Term      uint64
}

// GroupView is the materialised, queryable view of a replica group:
// descriptor fields plus a leader_state carried forward across descriptor
// updates.
type GroupView struct {
	ID          uint64
	Epoch       uint64
	LeaderState *LeaderState
	Replicas    map[uint64]ReplicaDesc
}

// UpdateEvent is a tagged union over the five kinds of update events the
// root service's watch stream may deliver; exactly one field is non-nil.
type UpdateEvent struct {
	Node       *NodeDesc
	Group      *GroupDesc
	GroupState *GroupStateEvent
	Database   *DatabaseDesc
	Collection *CollectionDesc
}

// DeleteEvent is a tagged union over the five kinds of delete events,
// identified by id; exactly one field is non-nil.
type DeleteEvent struct {
	Node       *uint64
	Group      *uint64
	GroupState *uint64
	Database   *uint64
	Collection *uint64
}

// WatchResponse is one message of the root service's event stream.
type WatchResponse struct {
	Updates []UpdateEvent
	Deletes []DeleteEvent
}
