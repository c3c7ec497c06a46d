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
	"time"

	"github.com/go-co-op/gocron/v2"

	"synap/internal/cluster"
	"synap/internal/logx"
)

// registerReplicationHeartbeat wires the master's heartbeat production
// onto the shared scheduler, the same one-job-per-concern shape as
// kv.RegisterTTLSweeper and queue.RegisterAckSweeper: the actual send to
// each connected replica is a transport concern cmd/synap-server's
// connection handlers perform; this job only keeps the lag gauge current
// and does not drop replicas that stopped acking.
func registerReplicationHeartbeat(sched gocron.Scheduler, e *Engine) {
	interval := time.Duration(e.Config.Replication.HeartbeatIntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	_, err := sched.NewJob(gocron.DurationJob(interval), gocron.NewTask(func() {
		var totalLag int64
		for _, id := range e.ReplMaster.ReplicaIDs() {
			if lag, ok := e.ReplMaster.LagOperations(id); ok {
				totalLag += lag
			}
		}
		e.Monitor.RecordReplicaLag(totalLag)
	}))
	if err != nil {
		logx.Errorf("engine: registering replication heartbeat job: %v", err)
	}
}

// registerClusterFailureDetection wires Topology.CheckTimeouts onto the
// shared scheduler; a node found offline triggers PickReplacement among
// its known replicas so every surviving node can independently agree on
// who should be promoted (spec §4.11's ping/timeout detection plus
// §4.10's failover, joined at the engine layer).
func registerClusterFailureDetection(sched gocron.Scheduler, e *Engine) {
	interval := time.Duration(e.Config.Cluster.NodeTimeoutMS) * time.Millisecond / 2
	if interval <= 0 {
		interval = 2500 * time.Millisecond
	}
	nodeTimeout := time.Duration(e.Config.Cluster.NodeTimeoutMS) * time.Millisecond
	if nodeTimeout <= 0 {
		nodeTimeout = 5 * time.Second
	}
	_, err := sched.NewJob(gocron.DurationJob(interval), gocron.NewTask(func() {
		timedOut := e.Topology.CheckTimeouts(time.Now(), nodeTimeout)
		for _, nodeID := range timedOut {
			logx.Warnf("engine: cluster node %s timed out", nodeID)
			candidates := e.Topology.ReplicasOf(nodeID)
			if replacement, ok := cluster.PickReplacement(nodeID, candidates); ok {
				logx.Infof("engine: node %s selected as replacement for failed master %s", replacement, nodeID)
			}
		}
	}))
	if err != nil {
		logx.Errorf("engine: registering cluster failure detection job: %v", err)
	}
}
