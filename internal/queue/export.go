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

package queue

import "container/heap"

// Snapshot is a point-in-time export of one queue's messages, used by
// internal/snapshot. Pending (in-flight) messages are snapshotted back
// into the ready set on restore — a restart does not preserve consumer
// in-flight state, matching recovery's "replay from durable log" model.
type Snapshot struct {
	Name       string
	MaxSize    int
	MaxDLQSize int
	Ready      []*Message
	DLQ        []*Message
}

// ExportAll captures every queue's current state.
func (m *Manager) ExportAll() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, 0, len(m.queues))
	for name, q := range m.queues {
		q.mu.Lock()
		snap := Snapshot{Name: name, MaxSize: q.maxSize, MaxDLQSize: q.maxDLQSize}
		snap.Ready = append(snap.Ready, []*Message(q.ready)...)
		for _, inf := range q.pending {
			snap.Ready = append(snap.Ready, inf.msg)
		}
		snap.DLQ = append(snap.DLQ, q.dlq...)
		q.mu.Unlock()
		out = append(out, snap)
	}
	return out
}

// ImportAll restores every queue from a set of Snapshots into an empty
// Manager.
func (m *Manager) ImportAll(snaps []Snapshot) {
	for _, snap := range snaps {
		m.Create(snap.Name, snap.MaxSize, snap.MaxDLQSize)
		q, err := m.get(snap.Name)
		if err != nil {
			continue
		}
		q.mu.Lock()
		for _, msg := range snap.Ready {
			q.ready = append(q.ready, msg)
		}
		heap.Init(&q.ready)
		q.dlq = append(q.dlq, snap.DLQ...)
		q.mu.Unlock()
	}
}
