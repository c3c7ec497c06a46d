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

// Package stream implements append-only "room" logs with dense monotonic
// offsets and bounded retention (spec component E). A room never
// renumbers entries on eviction: the oldest prefix is simply dropped and
// the offset index shifts its base accordingly.
package stream

import (
	"sync"
	"time"

	"synap/internal/synaperr"
)

// Event is a single entry appended to a room.
type Event struct {
	Offset    uint64
	Type      string
	Payload   []byte
	Timestamp time.Time
}

// Stats summarizes a room's occupancy.
type Stats struct {
	Count       int
	FirstOffset uint64
	NextOffset  uint64
}

// Manager owns every named room.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

// NewManager builds an empty room manager.
func NewManager() *Manager {
	return &Manager{rooms: make(map[string]*room)}
}

type room struct {
	mu          sync.Mutex
	maxEvents   int
	events      []Event // events[0] is the oldest retained entry
	firstOffset uint64  // offset of events[0]; dense before truncation
	nextOffset  uint64
}

// Create registers a new room with a bounded retention window. Idempotent
// on an existing name, matching queue.Manager.Create's tolerant style.
func (m *Manager) Create(name string, maxEvents int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[name]; ok {
		return
	}
	if maxEvents <= 0 {
		maxEvents = 10000
	}
	m.rooms[name] = &room{maxEvents: maxEvents}
}

// Delete removes a room entirely.
func (m *Manager) Delete(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[name]; !ok {
		return false
	}
	delete(m.rooms, name)
	return true
}

// List returns every known room name.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.rooms))
	for name := range m.rooms {
		out = append(out, name)
	}
	return out
}

func (m *Manager) get(name string) (*room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[name]
	if !ok {
		return nil, synaperr.Newf(synaperr.KindRoomNotFound, "room %q not found", name)
	}
	return r, nil
}

// Publish appends an event and returns its assigned offset.
func (m *Manager) Publish(name, eventType string, payload []byte) (uint64, error) {
	r, err := m.get(name)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	offset := r.nextOffset
	r.events = append(r.events, Event{
		Offset:    offset,
		Type:      eventType,
		Payload:   payload,
		Timestamp: nowFunc(),
	})
	r.nextOffset++

	if len(r.events) > r.maxEvents {
		drop := len(r.events) - r.maxEvents
		r.events = r.events[drop:]
		r.firstOffset = r.events[0].Offset
	}
	return offset, nil
}

// Consume returns events with Offset >= fromOffset (up to limit), optionally
// filtered by eventType (empty string means no filter).
func (m *Manager) Consume(name string, fromOffset uint64, limit int, eventType string) ([]Event, error) {
	r, err := m.get(name)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if fromOffset < r.firstOffset {
		fromOffset = r.firstOffset
	}
	start := int(fromOffset - r.firstOffset)
	if start < 0 || start >= len(r.events) {
		return nil, nil
	}

	out := make([]Event, 0, limit)
	for _, ev := range r.events[start:] {
		if eventType != "" && ev.Type != eventType {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Stats reports a room's occupancy and offset range.
func (m *Manager) Stats(name string) (Stats, error) {
	r, err := m.get(name)
	if err != nil {
		return Stats{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{Count: len(r.events), FirstOffset: r.firstOffset, NextOffset: r.nextOffset}, nil
}

// nowFunc is indirected for deterministic testing.
var nowFunc = time.Now
