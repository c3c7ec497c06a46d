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

// Package replication implements the master-maintained operation log and
// the master/replica sync protocol (spec components K and L). The actual
// socket transport that carries these messages between nodes is an edge
// collaborator (spec.md §1: "the core does not perform cross-node RPC
// framing itself... a transport collaborator delivers bytes in order per
// connection"); this package only defines the ring buffer, the wire
// messages, and the state machines that drive them.
package replication

import (
	"sync"
	"time"
)

// Entry is one logged operation, ready for PartialSync shipment.
type Entry struct {
	Offset uint64
	TS     int64
	Op     []byte
}

// DefaultCapacity bounds the ring at a size that can absorb a replica's
// maximum expected catch-up window before forcing a full resync (spec
// §4.10: "size N, default ≥ operation rate × max replica catch-up
// window").
const DefaultCapacity = 65536

// Log is the master-side replication ring: a bounded, append-only record
// of committed ops that backpressures by dropping the oldest entry rather
// than blocking the write path (spec §9, "Replication backpressure").
type Log struct {
	mu           sync.Mutex
	capacity     int
	entries      []Entry
	oldestOffset uint64
	nextOffset   uint64
}

// NewLog builds a replication ring of the given capacity (DefaultCapacity
// if capacity <= 0). Offsets start at 1, so a replica offset of 0 means
// nothing has been applied yet.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity, nextOffset: 1}
}

// AppendOp appends op as the next offset, evicting the oldest entry if
// the ring is full. It implements dispatch.Replicator so the dispatcher
// can call it without importing this package's concrete type.
func (l *Log) AppendOp(op []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{Offset: l.nextOffset, TS: time.Now().UnixNano(), Op: append([]byte(nil), op...)}
	l.nextOffset++

	if len(l.entries) >= l.capacity {
		l.entries = l.entries[1:]
		l.oldestOffset = l.entries[0].Offset
	}
	l.entries = append(l.entries, entry)
}

// CurrentOffset is the next offset that will be assigned; i.e. one past
// the highest committed offset.
func (l *Log) CurrentOffset() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextOffset
}

// OldestOffset is the smallest offset still resident in the ring.
func (l *Log) OldestOffset() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.oldestOffset
}

// Since returns every entry with offset > fromOffset, or ok=false if
// fromOffset is older than the ring's retained window (the caller must
// FullSync instead).
func (l *Log) Since(fromOffset uint64) (entries []Entry, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) > 0 && fromOffset < l.oldestOffset {
		return nil, false
	}
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if e.Offset > fromOffset {
			out = append(out, e)
		}
	}
	return out, true
}
