// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package replication

import (
	"sync"
	"time"

	"synap/internal/snapshot"
)

// ReplicaState is the master's bookkeeping for one connected replica.
type ReplicaState struct {
	ID            string
	ReplicaOffset uint64
	LastAckAt     time.Time
}

// Master tracks the replication log and every known replica's offset, and
// produces the PartialSync/FullSync/Heartbeat messages the transport
// collaborator is responsible for delivering.
type Master struct {
	Log *Log

	mu       sync.Mutex
	replicas map[string]*ReplicaState
}

// NewMaster builds a Master around log.
func NewMaster(log *Log) *Master {
	return &Master{Log: log, replicas: make(map[string]*ReplicaState)}
}

// Connect registers a new replica at the given starting offset (0 for a
// brand-new replica, or the replica's last-known offset on reconnect).
func (m *Master) Connect(replicaID string, startOffset uint64) *ReplicaState {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs := &ReplicaState{ID: replicaID, ReplicaOffset: startOffset, LastAckAt: time.Now()}
	m.replicas[replicaID] = rs
	return rs
}

// Disconnect forgets a replica, e.g. after a connection drop.
func (m *Master) Disconnect(replicaID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.replicas, replicaID)
}

// Ack records a replica's reported applied offset.
func (m *Master) Ack(replicaID string, ack Ack) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rs, ok := m.replicas[replicaID]; ok {
		rs.ReplicaOffset = ack.ReplicaOffset
		rs.LastAckAt = time.Now()
	}
}

// NextSync computes what a replica should receive on its next push tick:
// a PartialSync if the master still retains everything after the
// replica's offset, or a FullSync (built from src) if the replica has
// fallen too far behind the ring.
func (m *Master) NextSync(replicaID string, src snapshot.Sources) (partial *PartialSync, full *FullSync) {
	m.mu.Lock()
	rs, ok := m.replicas[replicaID]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}

	entries, ok := m.Log.Since(rs.ReplicaOffset)
	if !ok {
		var atOffset uint64
		if current := m.Log.CurrentOffset(); current > 0 {
			atOffset = current - 1
		}
		snap := snapshot.Capture(src, atOffset)
		return nil, &FullSync{Snapshot: snap, AtOffset: snap.WALOffset}
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &PartialSync{
		FromOffset: rs.ReplicaOffset,
		ToOffset:   entries[len(entries)-1].Offset,
		Entries:    entries,
	}, nil
}

// Heartbeat builds the current heartbeat message.
func (m *Master) Heartbeat() Heartbeat {
	return Heartbeat{MasterOffset: m.Log.CurrentOffset(), TS: time.Now().UnixNano()}
}

// LagOperations returns how many committed ops a replica has not yet
// acknowledged.
func (m *Master) LagOperations(replicaID string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs, ok := m.replicas[replicaID]
	if !ok {
		return 0, false
	}
	highest := m.Log.CurrentOffset() - 1
	if highest < rs.ReplicaOffset {
		return 0, true
	}
	return int64(highest - rs.ReplicaOffset), true
}

// ReplicaOffset returns a known replica's last acknowledged offset.
func (m *Master) ReplicaOffset(replicaID string) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs, ok := m.replicas[replicaID]
	if !ok {
		return 0, false
	}
	return rs.ReplicaOffset, true
}

// ReplicaIDs returns the IDs of every currently connected replica, for the
// monitoring replication INFO section and cluster failure detection's
// candidate lists.
func (m *Master) ReplicaIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.replicas))
	for id := range m.replicas {
		ids = append(ids, id)
	}
	return ids
}
