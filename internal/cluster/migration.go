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

package cluster

import "synap/internal/synaperr"

// KeyMover streams one key's value from the source node to the
// destination during migration. internal/engine supplies the real
// implementation (reading from the owning store, writing into the
// destination's, deleting locally once confirmed); cluster only drives
// the three-phase state machine spec §4.11 prescribes.
type KeyMover interface {
	// Keys returns every key currently in slot.
	Keys(slot int) []string
	// Move transfers key to destNodeID and deletes it locally, atomically
	// from the perspective of routing: once Move returns nil, Check must
	// answer Moved/Ask for that key rather than serve it locally.
	Move(key string, destNodeID string) error
}

// BeginMigration marks slot Migrating on the source (this node), the
// source side of spec §4.11 phase 1. It changes only the local slot map;
// the destination records its side with MarkImporting, and propagating
// either update to the rest of the cluster via the consensus log is an
// internal/engine concern (spec §9: "slot assignment changes go through
// consensus").
func (t *Topology) BeginMigration(slot int, destNodeID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	info := t.slots[slot]
	if info.Owner != t.selfID {
		return synaperr.New(synaperr.KindSlotNotAssigned, "only the owning node may begin migration")
	}
	if info.Status != SlotStable {
		return synaperr.New(synaperr.KindSlotMigrating, "slot already migrating")
	}
	t.slots[slot] = SlotInfo{Owner: t.selfID, Status: SlotMigrating, MigrateTo: destNodeID}
	return nil
}

// MarkImporting is called on the destination node to record that it is
// importing slot from srcNodeID (spec §4.11 phase 1, destination side).
func (t *Topology) MarkImporting(slot int, srcNodeID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots[slot] = SlotInfo{Owner: srcNodeID, Status: SlotImporting, ImportOf: t.selfID}
}

// StreamSlot performs phase 2: the source scans its keys for slot and
// moves each one via mover, batchSize at a time. It returns the number
// of keys moved. The caller (internal/engine) is responsible for pacing
// batches and for sending the resulting topology update once StreamSlot
// returns 0 remaining keys and FinishMigration is called.
func (t *Topology) StreamSlot(slot int, mover KeyMover, batchSize int) (int, error) {
	t.mu.RLock()
	info := t.slots[slot]
	t.mu.RUnlock()
	if info.Status != SlotMigrating || info.Owner != t.selfID {
		return 0, synaperr.New(synaperr.KindSlotNotAssigned, "slot is not migrating from this node")
	}

	keys := mover.Keys(slot)
	if batchSize <= 0 || batchSize > len(keys) {
		batchSize = len(keys)
	}
	moved := 0
	for _, key := range keys[:batchSize] {
		if err := mover.Move(key, info.MigrateTo); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// FinishMigration performs phase 3 on the source: once the slot is
// empty locally, both nodes publish a topology update removing the
// migration marks and setting the destination as owner. Called
// independently (with the same slot/destNodeID) on both nodes once each
// side has confirmed the handoff.
func (t *Topology) FinishMigration(slot int, destNodeID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots[slot] = SlotInfo{Owner: destNodeID, Status: SlotStable}
}
