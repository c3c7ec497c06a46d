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

package engine

import (
	"synap/internal/dispatch"
	"synap/internal/monitoring"
)

// registerMonitoringHandlers adds server.info and server.slowlog to the
// dispatcher. They live here rather than in internal/dispatch because
// building an Info snapshot needs the KV shard counts, the replication
// role/offsets, and the memory policy — state only Engine holds all of at
// once.
func registerMonitoringHandlers(e *Engine) {
	e.Dispatcher.RegisterHandler("server.info", false, func(_ *dispatch.Dispatcher, _ map[string]any) (any, error) {
		return e.buildInfoPayload(), nil
	})
	e.Dispatcher.RegisterHandler("server.slowlog", false, func(_ *dispatch.Dispatcher, _ map[string]any) (any, error) {
		return e.Monitor.SlowLog(), nil
	})
}

func (e *Engine) buildInfoPayload() monitoring.Info {
	repl := monitoring.ReplicationInfo{Role: e.Config.Replication.Role}
	if e.ReplMaster != nil {
		for _, id := range e.ReplMaster.ReplicaIDs() {
			lag, ok := e.ReplMaster.LagOperations(id)
			if ok {
				repl.ConnectedReplica = append(repl.ConnectedReplica, id)
				repl.LagOperations += lag
			}
		}
	}
	if e.ReplApplier != nil {
		repl.ReplicaOffset = e.ReplApplier.ReplicaOffset()
	}

	policy := string(e.Config.KVStore.EvictionPolicy)
	if policy == "" {
		policy = "none"
	}
	shardCounts := e.KV.ShardCounts()

	return e.Monitor.BuildInfo(e.KV.Stats().Bytes, policy, repl, shardCounts)
}
