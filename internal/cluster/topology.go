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

import (
	"sync"
	"time"

	"synap/internal/synaperr"
)

// NodeState is a cluster member's liveness, as tracked by the local
// failure detector.
type NodeState string

const (
	NodeOnline  NodeState = "online"
	NodeOffline NodeState = "offline"
)

// Role distinguishes a master from a replica within the topology.
type Role string

const (
	RoleMaster  Role = "master"
	RoleReplica Role = "replica"
)

// SlotStatus marks a slot's migration phase (spec §4.11).
type SlotStatus int

const (
	// SlotStable means the slot is owned outright by exactly one node.
	SlotStable SlotStatus = iota
	// SlotMigrating means the owning (source) node is streaming the
	// slot's keys to a destination; writes for keys already moved are
	// redirected, reads are still served locally.
	SlotMigrating
	// SlotImporting means this node is the destination of an in-flight
	// migration and does not yet own the slot for routing purposes.
	SlotImporting
)

// Node is one member of the cluster topology.
type Node struct {
	ID       string
	Address  string
	State    NodeState
	Role     Role
	SlotsOf  []int // slots this node owns as master; empty for replicas
	LastPing time.Time
}

// SlotInfo is the per-slot routing state.
type SlotInfo struct {
	Owner     string // node ID
	Status    SlotStatus
	MigrateTo string // destination node ID, set only during SlotMigrating
	ImportOf  string // importing (local) node ID, set only during SlotImporting; Owner holds the source
}

// Topology is the local view of the cluster: node set plus the
// 16384-entry slot map. It implements dispatch.SlotChecker so the
// dispatcher can consult it directly.
type Topology struct {
	mu     sync.RWMutex
	selfID string
	nodes  map[string]*Node
	slots  [NumSlots]SlotInfo
}

// NewTopology builds an empty Topology for the local node selfID.
func NewTopology(selfID string) *Topology {
	return &Topology{selfID: selfID, nodes: make(map[string]*Node)}
}

// AddNode registers or updates a node's static info.
func (t *Topology) AddNode(n Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n.State == "" {
		n.State = NodeOnline
	}
	cp := n
	t.nodes[n.ID] = &cp
}

// RemoveNode drops a node from the topology entirely.
func (t *Topology) RemoveNode(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.nodes, id)
}

// Node returns a copy of a known node's state.
func (t *Topology) Node(id string) (Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// AssignSlot sets slot's owner outright (steady-state assignment, not a
// migration step).
func (t *Topology) AssignSlot(slot int, ownerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots[slot] = SlotInfo{Owner: ownerID, Status: SlotStable}
}

// AssignRange assigns a contiguous inclusive range of slots to ownerID.
func (t *Topology) AssignRange(from, to int, ownerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for s := from; s <= to; s++ {
		t.slots[s] = SlotInfo{Owner: ownerID, Status: SlotStable}
	}
}

// Slot returns a copy of one slot's routing info.
func (t *Topology) Slot(slot int) SlotInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.slots[slot]
}

// FullyCovered reports whether every slot has an owner (spec §4.11:
// "Full-coverage check: every slot has an owner").
func (t *Topology) FullyCovered() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, s := range t.slots {
		if s.Owner == "" {
			return false
		}
	}
	return true
}

// Check implements dispatch.SlotChecker: it returns a Moved/Ask error if
// key's slot is not currently servable by the local node, or nil if it
// is.
func (t *Topology) Check(key string) error {
	slot := HashSlot(key)
	info := t.Slot(slot)

	if info.Owner == "" {
		return synaperr.New(synaperr.KindSlotNotAssigned, "slot has no owner")
	}

	switch info.Status {
	case SlotStable:
		if info.Owner != t.selfID {
			addr := t.addressOf(info.Owner)
			return synaperr.NewMoved(slot, addr)
		}
		return nil
	case SlotMigrating:
		// Reads and not-yet-moved writes are still served locally by
		// spec §4.11; the key-by-key handoff logic (component-level,
		// not slot-level) decides whether a specific key has already
		// moved and returns Ask for it. At the slot level we allow it.
		if info.Owner != t.selfID {
			addr := t.addressOf(info.Owner)
			return synaperr.NewMoved(slot, addr)
		}
		return nil
	case SlotImporting:
		if t.selfID != info.ImportOf {
			addr := t.addressOf(info.Owner)
			return synaperr.NewAsk(slot, addr)
		}
		// The importing node does not yet own the slot for routing
		// purposes; ask callers to retry against the source.
		addr := t.addressOf(info.Owner)
		return synaperr.NewAsk(slot, addr)
	}
	return nil
}

func (t *Topology) addressOf(nodeID string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n, ok := t.nodes[nodeID]; ok {
		return n.Address
	}
	return ""
}
