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

import "synap/internal/snapshot"

// PartialSync carries the ops a replica is missing, in offset order.
type PartialSync struct {
	FromOffset uint64
	ToOffset   uint64
	Entries    []Entry
}

// FullSync carries a complete snapshot for a replica whose requested
// offset has already fallen off the master's ring.
type FullSync struct {
	Snapshot snapshot.Snapshot
	AtOffset uint64
}

// Heartbeat is sent on a fixed interval so idle replicas can still track
// master_offset and detect a stalled connection.
type Heartbeat struct {
	MasterOffset uint64
	TS           int64
}

// Ack is sent replica-to-master, reporting the highest offset the
// replica has durably applied.
type Ack struct {
	ReplicaOffset uint64
}
