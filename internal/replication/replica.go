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

	"synap/internal/dispatch"
	"synap/internal/snapshot"
	"synap/internal/synaperr"
)

// Applier is the replica side of the protocol: it applies commands
// received from the master in order, tracks its own offset, and halts
// permanently on the first apply failure (spec §4.10: "If apply fails
// deterministically... the replica halts and waits for manual
// intervention").
type Applier struct {
	d   *dispatch.Dispatcher
	src snapshot.Sources

	mu            sync.Mutex
	replicaOffset uint64
	appliedSince  int
	halted        bool
	haltErr       error
}

// NewApplier builds an Applier bound to d, which executes every applied
// command, and src, which FullSync restores into.
func NewApplier(d *dispatch.Dispatcher, src snapshot.Sources) *Applier {
	return &Applier{d: d, src: src}
}

// Halted reports whether a prior apply failed; once true the Applier
// never processes further messages.
func (a *Applier) Halted() (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.halted, a.haltErr
}

// ReplicaOffset is the highest offset durably applied so far.
func (a *Applier) ReplicaOffset() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.replicaOffset
}

// ApplyFullSync restores full.Snapshot and fast-forwards the replica
// offset to the offset it was taken at.
func (a *Applier) ApplyFullSync(full FullSync) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.halted {
		return a.haltErr
	}
	snapshot.Restore(full.Snapshot, a.src)
	a.replicaOffset = full.AtOffset
	return nil
}

// ApplyPartialSync applies every entry in order, halting at the first
// one that fails to decode or apply.
func (a *Applier) ApplyPartialSync(partial PartialSync) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.halted {
		return a.haltErr
	}

	for _, entry := range partial.Entries {
		if entry.Offset <= a.replicaOffset {
			continue
		}
		if entry.Offset != a.replicaOffset+1 {
			err := synaperr.Newf(synaperr.KindInternal, "replication gap: have offset %d, got %d", a.replicaOffset, entry.Offset)
			a.halted = true
			a.haltErr = err
			return err
		}
		cmd, err := dispatch.DecodeCommand(entry.Op)
		if err != nil {
			a.halted = true
			a.haltErr = err
			return err
		}
		if err := a.d.Apply(cmd); err != nil {
			a.halted = true
			a.haltErr = err
			return err
		}
		a.replicaOffset = entry.Offset
		a.appliedSince++
	}
	return nil
}

// ShouldAck reports whether enough ops have accumulated since the last
// Ack to send another one (spec §4.10: "acks every N ops or every
// heartbeat").
func (a *Applier) ShouldAck(everyNOps int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.appliedSince >= everyNOps {
		a.appliedSince = 0
		return true
	}
	return false
}

// BuildAck produces the Ack message to send upstream.
func (a *Applier) BuildAck() Ack {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Ack{ReplicaOffset: a.replicaOffset}
}

// LagMillis estimates replication lag from a heartbeat's timestamp.
func LagMillis(hb Heartbeat) int64 {
	return (time.Now().UnixNano() - hb.TS) / int64(time.Millisecond)
}
