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
	"time"

	"github.com/cespare/xxhash/v2"
	rendezvous "github.com/dgryski/go-rendezvous"
)

// Heartbeat records that nodeID was reachable at the given time (spec
// §4.11: "each node pings its peers every heartbeat").
func (t *Topology) Heartbeat(nodeID string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n, ok := t.nodes[nodeID]; ok {
		n.LastPing = at
		n.State = NodeOnline
	}
}

// CheckTimeouts marks any node whose last ping exceeds nodeTimeout as
// Offline and returns the set newly marked, so the caller can drive
// replica promotion for each one via internal/replication.Promote. A
// node with a zero LastPing (never pinged since process start) is
// never timed out by this pass.
func (t *Topology) CheckTimeouts(now time.Time, nodeTimeout time.Duration) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var timedOut []string
	for id, n := range t.nodes {
		if n.LastPing.IsZero() || n.State == NodeOffline {
			continue
		}
		if now.Sub(n.LastPing) > nodeTimeout {
			n.State = NodeOffline
			timedOut = append(timedOut, id)
		}
	}
	return timedOut
}

// ReplicasOf returns the IDs of every replica-role node with a known
// address, other than masterID itself. The topology keeps no per-master
// replica list, so it does not check which master a replica reports to.
func (t *Topology) ReplicasOf(masterID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	for id, n := range t.nodes {
		if n.Role == RoleReplica && n.Address != "" && id != masterID {
			// Membership in a master's replica set is recorded by the
			// caller via AddNode's Role field combined with engine-level
			// bookkeeping; cluster itself has no per-master replica list,
			// so this only filters by role. internal/engine narrows
			// further using its own replication.Master registry.
			out = append(out, id)
		}
	}
	return out
}

// PickReplacement chooses which of candidateIDs should be promoted when
// a master fails, using rendezvous (highest random weight) hashing keyed
// on the failed master's ID so every surviving node computes the same
// answer without a coordinator round-trip. candidateIDs should be the
// failed master's known replicas.
func PickReplacement(failedMasterID string, candidateIDs []string) (string, bool) {
	if len(candidateIDs) == 0 {
		return "", false
	}
	r := rendezvous.New(candidateIDs, xxhash.Sum64String)
	return r.Lookup(failedMasterID), true
}
