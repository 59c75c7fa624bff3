// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package router

import (
	"sort"
	"sync"

	"github.com/cockroachdb/swiss"
)

// groupEpoch is the (group, epoch) pair recorded per shard in
// shardGroupLookup.
type groupEpoch struct {
	groupID uint64
	epoch   uint64
}

type coNameKey struct {
	dbID uint64
	name string
}

// State is the in-memory model of shard ownership: nodes, databases,
// collections, shards, and groups, reconciled from descriptor events by a
// single RouterUpdater and read by any number of foreground queries under
// a short-critical-section mutex.
type State struct {
	mu sync.Mutex

	nodeIDLookup map[uint64]string
	dbIDLookup   map[uint64]DatabaseDesc
	dbNameLookup map[string]uint64
	coIDLookup   map[uint64]CollectionDesc
	coNameLookup map[coNameKey]uint64

	// coShardsLookup and shardGroupLookup are the hottest maps on the read
	// path (consulted on every ShardLocator.FindShard call), so they use
	// cockroachdb/swiss for its lower per-lookup overhead over the builtin
	// map.
	coShardsLookup   *swiss.Map[uint64, []ShardDesc]
	shardGroupLookup *swiss.Map[uint64, groupEpoch]

	groupIDLookup map[uint64]*GroupView

	cachedGroupStates map[uint64]GroupStateEvent

	// metrics is optional; when set, epoch-rejected descriptor updates
	// (the "never lower the epoch" rule firing) are counted.
	metrics *UpdaterMetrics
}

// NewState returns an empty State. metrics may be nil.
func NewState(metrics *UpdaterMetrics) *State {
	return &State{
		nodeIDLookup:      make(map[uint64]string),
		dbIDLookup:        make(map[uint64]DatabaseDesc),
		dbNameLookup:      make(map[string]uint64),
		coIDLookup:        make(map[uint64]CollectionDesc),
		coNameLookup:      make(map[coNameKey]uint64),
		coShardsLookup:    swiss.New[uint64, []ShardDesc](16),
		shardGroupLookup:  swiss.New[uint64, groupEpoch](16),
		groupIDLookup:     make(map[uint64]*GroupView),
		cachedGroupStates: make(map[uint64]GroupStateEvent),
		metrics:           metrics,
	}
}

// GroupEpochs snapshots the currently-known {group_id -> epoch} map, used
// by RouterUpdater as the watermark for a new subscription.
func (s *State) GroupEpochs() map[uint64]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uint64]uint64, len(s.groupIDLookup))
	for id, v := range s.groupIDLookup {
		out[id] = v.Epoch
	}
	return out
}

// ApplyUpdate applies one update event under the state lock.
func (s *State) ApplyUpdate(event UpdateEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case event.Node != nil:
		s.nodeIDLookup[event.Node.ID] = event.Node.Addr
	case event.Group != nil:
		s.applyGroupDescriptorLocked(*event.Group)
	case event.GroupState != nil:
		gs := *event.GroupState
		if group, ok := s.groupIDLookup[gs.GroupID]; ok {
			group.LeaderState = deriveLeaderState(gs)
		} else {
			s.cachedGroupStates[gs.GroupID] = gs
		}
	case event.Database != nil:
		db := *event.Database
		if old, ok := s.dbIDLookup[db.ID]; ok && old.Name != db.Name {
			delete(s.dbNameLookup, old.Name)
		}
		s.dbIDLookup[db.ID] = db
		s.dbNameLookup[db.Name] = db.ID
	case event.Collection != nil:
		co := *event.Collection
		if old, ok := s.coIDLookup[co.ID]; ok && old.Name != co.Name {
			delete(s.coNameLookup, coNameKey{old.DBID, old.Name})
		}
		s.coIDLookup[co.ID] = co
		s.coNameLookup[coNameKey{co.DBID, co.Name}] = co.ID
	}
}

// ApplyDelete applies one delete event under the state lock. A Group
// delete removes the group view, any cached leader report, and every
// shard ownership entry pointing at that group id; the collection shard
// lists are left as they are. A GroupState delete drops any cached leader
// report and clears the materialised group's leader state (see DESIGN.md's
// open-question decisions for the reasoning behind this cascade).
func (s *State) ApplyDelete(event DeleteEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case event.Node != nil:
		delete(s.nodeIDLookup, *event.Node)
	case event.Database != nil:
		if desc, ok := s.dbIDLookup[*event.Database]; ok {
			delete(s.dbIDLookup, *event.Database)
			delete(s.dbNameLookup, desc.Name)
		}
	case event.Collection != nil:
		if desc, ok := s.coIDLookup[*event.Collection]; ok {
			delete(s.coIDLookup, *event.Collection)
			delete(s.coNameLookup, coNameKey{desc.DBID, desc.Name})
			s.coShardsLookup.Delete(*event.Collection)
		}
	case event.Group != nil:
		s.deleteGroupLocked(*event.Group)
	case event.GroupState != nil:
		delete(s.cachedGroupStates, *event.GroupState)
		if group, ok := s.groupIDLookup[*event.GroupState]; ok {
			group.LeaderState = nil
		}
	}
}

func (s *State) deleteGroupLocked(groupID uint64) {
	delete(s.groupIDLookup, groupID)
	delete(s.cachedGroupStates, groupID)

	s.shardGroupLookup.All(func(shardID uint64, ge groupEpoch) bool {
		if ge.groupID == groupID {
			s.shardGroupLookup.Delete(shardID)
		}
		return true
	})
}

// applyGroupDescriptorLocked reconciles one incoming group descriptor:
// it builds the replica map, carries forward or consumes a cached leader
// report, overwrites the materialised GroupView, and upserts per-shard
// ownership under a never-lower-epoch rule.
func (s *State) applyGroupDescriptorLocked(desc GroupDesc) {
	replicas := make(map[uint64]ReplicaDesc, len(desc.Replicas))
	for _, r := range desc.Replicas {
		replicas[r.ID] = r
	}

	view := &GroupView{ID: desc.ID, Epoch: desc.Epoch, Replicas: replicas}

	if old, ok := s.groupIDLookup[desc.ID]; ok {
		view.LeaderState = old.LeaderState
	} else if cached, ok := s.cachedGroupStates[desc.ID]; ok {
		view.LeaderState = deriveLeaderState(cached)
		delete(s.cachedGroupStates, desc.ID)
	}

	s.groupIDLookup[desc.ID] = view

	for _, shard := range desc.Shards {
		if entry, ok := s.shardGroupLookup.Get(shard.ID); !ok {
			s.shardGroupLookup.Put(shard.ID, groupEpoch{groupID: desc.ID, epoch: desc.Epoch})
		} else if entry.epoch < desc.Epoch {
			s.shardGroupLookup.Put(shard.ID, groupEpoch{groupID: desc.ID, epoch: desc.Epoch})
		} else if entry.groupID != desc.ID && s.metrics != nil {
			s.metrics.EpochRejections.Inc()
		}

		shards, _ := s.coShardsLookup.Get(shard.CollectionID)
		filtered := shards[:0:0]
		for _, existing := range shards {
			if existing.ID != shard.ID {
				filtered = append(filtered, existing)
			}
		}
		filtered = append(filtered, shard)
		s.coShardsLookup.Put(shard.CollectionID, filtered)
	}
}

// deriveLeaderState picks the highest-term replica reporting a Leader
// role, ties broken by taking the last after a stable sort by term. It
// intentionally ignores gs.LeaderID beyond gating on its presence (see
// DESIGN.md's open-question decisions).
func deriveLeaderState(gs GroupStateEvent) *LeaderState {
	if gs.LeaderID == nil {
		return nil
	}
	var candidates []ReplicaState
	for _, r := range gs.Replicas {
		if r.Role == RoleLeader {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Term < candidates[j].Term
	})
	best := candidates[len(candidates)-1]
	return &LeaderState{ReplicaID: best.ReplicaID, Term: best.Term}
}
