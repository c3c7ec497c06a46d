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

package monitoring

// ReplicationInfo is the replication INFO section's source data, supplied
// by internal/engine (which alone knows whether this node is a master or a
// replica and holds the relevant internal/replication handles).
type ReplicationInfo struct {
	Role             string // "master" or "replica"
	MasterOffset     uint64
	ReplicaOffset    uint64
	LagOperations    int64
	ConnectedReplica []string
}

// ServerSection is spec §4.12's "server" INFO section.
type ServerSection struct {
	UptimeSeconds float64
	Version       string
}

// MemorySection is spec §4.12's "memory" INFO section.
type MemorySection struct {
	Bytes  int64
	Policy string
}

// StatsSection is spec §4.12's "stats" INFO section.
type StatsSection struct {
	Hits        uint64
	Misses      uint64
	OpsByCmd    map[string][2]uint64 // command -> [success, failure]
}

// KeyspaceSection is spec §4.12's "keyspace" INFO section.
type KeyspaceSection struct {
	ShardCounts []int64
	TotalKeys   int64
}

// Info is the full INFO response: every section spec §4.12 names.
type Info struct {
	Server      ServerSection
	Memory      MemorySection
	Stats       StatsSection
	Replication ReplicationInfo
	Keyspace    KeyspaceSection
}

// BuildInfo assembles an Info snapshot from the Collector's own counters
// plus caller-supplied memory/replication/keyspace data (the pieces
// Collector has no visibility into on its own).
func (c *Collector) BuildInfo(memBytes int64, memPolicy string, repl ReplicationInfo, shardCounts []int64) Info {
	hits, misses := c.HitMiss()
	var total int64
	for _, n := range shardCounts {
		total += n
	}
	return Info{
		Server:      ServerSection{UptimeSeconds: c.Uptime().Seconds(), Version: c.Version()},
		Memory:      MemorySection{Bytes: memBytes, Policy: memPolicy},
		Stats:       StatsSection{Hits: hits, Misses: misses, OpsByCmd: c.CommandCounts()},
		Replication: repl,
		Keyspace:    KeyspaceSection{ShardCounts: shardCounts, TotalKeys: total},
	}
}
