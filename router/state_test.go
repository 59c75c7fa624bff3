// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package router

import (
	"strings"
	"testing"

	"github.com/kr/pretty"
	"github.com/stretchr/testify/require"
)

func hashShard(id uint64) ShardDesc {
	return ShardDesc{
		ID:           id,
		CollectionID: 1,
		Partition:    HashShardPartition{SlotID: 1, Slots: 1},
	}
}

func groupDesc(id, epoch uint64, shards ...ShardDesc) GroupDesc {
	return GroupDesc{ID: id, Epoch: epoch, Shards: shards}
}

// Scenario A: shard migrates from group 1 to group 2, but group 2's
// descriptor listing the shard has not arrived yet. Once group 1 publishes
// a higher-epoch descriptor that omits it, the shard no longer resolves to
// group 1 and stays unresolved until the new owner reports.
func TestApplyGroupDescriptorMigrationReceiverDescriptorMissing(t *testing.T) {
	s := NewState(nil)
	s.applyGroupDescriptorLocked(groupDesc(1, 1, hashShard(1)))
	s.applyGroupDescriptorLocked(groupDesc(2, 1))

	locator := NewShardLocator(s)
	view, err := locator.FindGroupByShard(1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), view.ID)

	// Shard migrates to group 2: group 1 bumps its shard-set version.
	s.applyGroupDescriptorLocked(groupDesc(1, 1+(1<<32)))
	_, err = locator.FindGroupByShard(1)
	require.Error(t, err)
}

// Scenario B: the new owner's descriptor arrives before the donor's.
func TestApplyGroupDescriptorMigrationNewOwnerReportsFirst(t *testing.T) {
	s := NewState(nil)
	s.applyGroupDescriptorLocked(groupDesc(1, 1, hashShard(1)))
	s.applyGroupDescriptorLocked(groupDesc(2, 1))

	locator := NewShardLocator(s)
	view, err := locator.FindGroupByShard(1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), view.ID)

	s.applyGroupDescriptorLocked(groupDesc(2, 1+(1<<32), hashShard(1)))
	view, err = locator.FindGroupByShard(1)
	require.NoError(t, err)
	require.Equal(t, uint64(2), view.ID)

	// Donor's own late descriptor at the same higher epoch must not undo
	// the migration.
	s.applyGroupDescriptorLocked(groupDesc(1, 1+(1<<32)))
	view, err = locator.FindGroupByShard(1)
	require.NoError(t, err)
	require.Equal(t, uint64(2), view.ID)
}

// Scenario C: the donor group changes its replica configuration (a
// config-version bump, not a shard-set bump) before the migration
// finishes; this must not disturb the in-flight migration.
func TestApplyGroupDescriptorConfigChangeDuringMigration(t *testing.T) {
	s := NewState(nil)
	s.applyGroupDescriptorLocked(groupDesc(1, 1, hashShard(1)))
	s.applyGroupDescriptorLocked(groupDesc(2, 1))

	locator := NewShardLocator(s)
	view, err := locator.FindGroupByShard(1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), view.ID)

	s.applyGroupDescriptorLocked(groupDesc(2, 1+(1<<32), hashShard(1)))
	view, err = locator.FindGroupByShard(1)
	require.NoError(t, err)
	require.Equal(t, uint64(2), view.ID)

	// Group 1 bumps only its config version: still stale relative to the
	// shard's migrated epoch, must not take the shard back.
	s.applyGroupDescriptorLocked(groupDesc(1, 2))
	view, err = locator.FindGroupByShard(1)
	require.NoError(t, err)
	require.Equal(t, uint64(2), view.ID)

	// Group 1 finally finishes its own migration bookkeeping at a higher
	// shard-set version; shard 1 still belongs to group 2.
	s.applyGroupDescriptorLocked(groupDesc(1, 2+(1<<32)))
	view, err = locator.FindGroupByShard(1)
	require.NoError(t, err)
	require.Equal(t, uint64(2), view.ID)
}

func TestLeaderStateCarriesForwardAcrossDescriptorUpdates(t *testing.T) {
	s := NewState(nil)
	s.applyGroupDescriptorLocked(groupDesc(1, 1))

	leaderID := uint64(7)
	s.ApplyUpdate(UpdateEvent{GroupState: &GroupStateEvent{
		GroupID:  1,
		LeaderID: &leaderID,
		Replicas: []ReplicaState{
			{ReplicaID: 7, Role: RoleLeader, Term: 3},
			{ReplicaID: 8, Role: RoleFollower, Term: 9},
		},
	}})

	view := s.groupIDLookup[1]
	require.NotNil(t, view.LeaderState)
	require.Equal(t, uint64(7), view.LeaderState.ReplicaID)
	require.Equal(t, uint64(3), view.LeaderState.Term)

	// A later descriptor update must not clobber the leader state.
	s.applyGroupDescriptorLocked(groupDesc(1, 2))
	view = s.groupIDLookup[1]
	require.NotNil(t, view.LeaderState)
	require.Equal(t, uint64(7), view.LeaderState.ReplicaID)
}

func TestLeaderStateDerivationPicksHighestTermAmongLeaders(t *testing.T) {
	leaderID := uint64(1)
	gs := GroupStateEvent{
		GroupID:  1,
		LeaderID: &leaderID,
		Replicas: []ReplicaState{
			{ReplicaID: 1, Role: RoleLeader, Term: 2},
			{ReplicaID: 2, Role: RoleLeader, Term: 5},
			{ReplicaID: 3, Role: RoleFollower, Term: 9},
		},
	}
	leader := deriveLeaderState(gs)
	require.NotNil(t, leader)
	require.Equal(t, uint64(2), leader.ReplicaID)
	require.Equal(t, uint64(5), leader.Term)
}

func TestCachedGroupStateFusesOnDescriptorArrival(t *testing.T) {
	s := NewState(nil)
	leaderID := uint64(9)
	s.ApplyUpdate(UpdateEvent{GroupState: &GroupStateEvent{
		GroupID:  1,
		LeaderID: &leaderID,
		Replicas: []ReplicaState{{ReplicaID: 9, Role: RoleLeader, Term: 1}},
	}})
	require.Empty(t, s.groupIDLookup)

	s.applyGroupDescriptorLocked(groupDesc(1, 1))
	view := s.groupIDLookup[1]
	require.NotNil(t, view.LeaderState)
	require.Equal(t, uint64(9), view.LeaderState.ReplicaID)
	require.Empty(t, s.cachedGroupStates)
}

func TestDatabaseRenameUpdatesNameLookup(t *testing.T) {
	s := NewState(nil)
	s.ApplyUpdate(UpdateEvent{Database: &DatabaseDesc{ID: 1, Name: "old"}})
	s.ApplyUpdate(UpdateEvent{Database: &DatabaseDesc{ID: 1, Name: "new"}})

	_, ok := s.dbNameLookup["old"]
	require.False(t, ok)
	id, ok := s.dbNameLookup["new"]
	require.True(t, ok)
	require.Equal(t, uint64(1), id)
}

// requireGroupViewEqual renders a field-by-field diff on failure; plain
// require.Equal on a GroupView (which embeds a map and a pointer) collapses
// a mismatch into a single opaque blob, so a mismatching leader_state or
// replica set is easier to spot this way.
func requireGroupViewEqual(t *testing.T, want, got GroupView) {
	t.Helper()
	if diff := pretty.Diff(want, got); len(diff) > 0 {
		t.Fatalf("group view mismatch:\n%s", strings.Join(diff, "\n"))
	}
}

func TestApplyGroupDescriptorBuildsReplicaMap(t *testing.T) {
	s := NewState(nil)
	s.applyGroupDescriptorLocked(GroupDesc{
		ID:    3,
		Epoch: 1,
		Replicas: []ReplicaDesc{
			{ID: 10, NodeID: 1},
			{ID: 11, NodeID: 2},
		},
	})

	want := GroupView{
		ID:    3,
		Epoch: 1,
		Replicas: map[uint64]ReplicaDesc{
			10: {ID: 10, NodeID: 1},
			11: {ID: 11, NodeID: 2},
		},
	}
	requireGroupViewEqual(t, want, *s.groupIDLookup[3])
}

func TestDeleteGroupCascadesShardOwnership(t *testing.T) {
	s := NewState(nil)
	s.applyGroupDescriptorLocked(groupDesc(1, 1, hashShard(1)))

	id := uint64(1)
	s.ApplyDelete(DeleteEvent{Group: &id})

	_, ok := s.groupIDLookup[1]
	require.False(t, ok)
	_, ok = s.shardGroupLookup.Get(1)
	require.False(t, ok)
}
