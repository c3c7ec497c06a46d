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

package stream

// Snapshot is a point-in-time export of one room, used by
// internal/snapshot.
type Snapshot struct {
	Name        string
	MaxEvents   int
	Events      []Event
	FirstOffset uint64
	NextOffset  uint64
}

// ExportAll captures every room's current state.
func (m *Manager) ExportAll() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, 0, len(m.rooms))
	for name, r := range m.rooms {
		r.mu.Lock()
		snap := Snapshot{
			Name:        name,
			MaxEvents:   r.maxEvents,
			Events:      append([]Event(nil), r.events...),
			FirstOffset: r.firstOffset,
			NextOffset:  r.nextOffset,
		}
		r.mu.Unlock()
		out = append(out, snap)
	}
	return out
}

// ImportAll restores every room from a set of Snapshots into an empty
// Manager.
func (m *Manager) ImportAll(snaps []Snapshot) {
	for _, snap := range snaps {
		m.Create(snap.Name, snap.MaxEvents)
		r, err := m.get(snap.Name)
		if err != nil {
			continue
		}
		r.mu.Lock()
		r.events = snap.Events
		r.firstOffset = snap.FirstOffset
		r.nextOffset = snap.NextOffset
		r.mu.Unlock()
	}
}
