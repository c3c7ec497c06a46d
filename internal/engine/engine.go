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

// Package engine wires every component (B through O) behind one Engine
// type: one Engine owns one gocron.Scheduler and registers every periodic
// job (TTL sweep, ACK sweep, WAL fsync, snapshot policy, replication
// heartbeat, cluster failure-detection ping) against it.
package engine

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"synap/internal/cluster"
	"synap/internal/config"
	"synap/internal/datastore"
	"synap/internal/dispatch"
	"synap/internal/hll"
	"synap/internal/kv"
	"synap/internal/logx"
	"synap/internal/monitoring"
	"synap/internal/pubsub"
	"synap/internal/queue"
	"synap/internal/recovery"
	"synap/internal/replication"
	"synap/internal/snapshot"
	"synap/internal/stream"
	"synap/internal/synaperr"
	"synap/internal/wal"
)

// Version is the server version string surfaced in the monitoring
// "server" INFO section and the server's startup log line.
const Version = "0.1.0"

// slowLogThreshold and slowLogCapacity are the monitoring defaults; not
// yet exposed as config.Config fields since spec §6 does not name them.
const (
	slowLogThreshold = 50 * time.Millisecond
	slowLogCapacity  = 256
)

// Engine owns every live component instance and the scheduler that drives
// their background work. cmd/synap-server constructs exactly one Engine
// per process.
type Engine struct {
	Config config.Config

	KV        *kv.Index
	Datastore *datastore.Store
	Queues    *queue.Manager
	Streams   *stream.Manager
	PubSub    *pubsub.Router
	HLL       *hll.Store

	Dispatcher *dispatch.Dispatcher
	Monitor    *monitoring.Collector

	WAL         *wal.Log
	SnapshotMgr *snapshot.Manager
	snapPolicy  *snapshot.Policy

	Topology *cluster.Topology

	ReplMaster  *replication.Master
	ReplApplier *replication.Applier

	scheduler gocron.Scheduler
}

// New builds an Engine from cfg but does not start its scheduler or run
// boot-time recovery; call Start for that.
func New(cfg config.Config) (*Engine, error) {
	e := &Engine{Config: cfg}

	e.KV = kv.New(kv.Options{
		MaxMemoryBytes: int64(cfg.KVStore.MaxMemoryMB) * 1024 * 1024,
		Eviction:       kv.EvictionPolicy(cfg.KVStore.EvictionPolicy),
	}, nil)
	e.Datastore = datastore.New(0)
	e.Queues = queue.NewManager()
	e.Streams = stream.NewManager()
	e.PubSub = pubsub.NewRouter()
	e.HLL = hll.New()

	e.Monitor = monitoring.New(Version, slowLogThreshold, slowLogCapacity)

	e.Dispatcher = dispatch.New()
	e.Dispatcher.KV = e.KV
	e.Dispatcher.Datastore = e.Datastore
	e.Dispatcher.Queues = e.Queues
	e.Dispatcher.Streams = e.Streams
	e.Dispatcher.PubSub = e.PubSub
	e.Dispatcher.HLL = e.HLL
	e.Dispatcher.Monitor = e.Monitor

	if cfg.Persistence.Enabled && cfg.Persistence.WAL.Enabled {
		existing, err := wal.ReadAll(cfg.Persistence.WAL.Path)
		if err != nil {
			return nil, fmt.Errorf("engine: scanning wal: %w", err)
		}
		var startOffset uint64
		if len(existing) > 0 {
			startOffset = existing[len(existing)-1].Offset + 1
		}
		l, err := wal.Open(wal.Options{
			Dir:         cfg.Persistence.WAL.Path,
			FsyncPolicy: fsyncPolicyFromConfig(cfg.Persistence.WAL.FsyncMode),
			MaxSizeMB:   cfg.Persistence.WAL.MaxSizeMB,
		}, startOffset)
		if err != nil {
			return nil, fmt.Errorf("engine: opening wal: %w", err)
		}
		e.WAL = l
		e.Dispatcher.WAL = l
		e.Dispatcher.Durability = wal.DurabilityBuffered
	}

	if cfg.Persistence.Enabled && cfg.Persistence.Snapshot.Enabled {
		e.SnapshotMgr = &snapshot.Manager{
			Dir:          cfg.Persistence.Snapshot.Directory,
			MaxSnapshots: cfg.Persistence.Snapshot.MaxSnapshots,
		}
		e.snapPolicy = &snapshot.Policy{
			Interval:    time.Duration(cfg.Persistence.Snapshot.IntervalSecs) * time.Second,
			OpThreshold: cfg.Persistence.Snapshot.OperationThreshold,
		}
	}

	if cfg.Replication.Enabled {
		switch cfg.Replication.Role {
		case "master":
			replLog := replication.NewLog(replication.DefaultCapacity)
			e.ReplMaster = replication.NewMaster(replLog)
			e.Dispatcher.Repl = replLog
		case "replica":
			e.ReplApplier = replication.NewApplier(e.Dispatcher, e.sources())
		}
	}

	if cfg.Cluster.Enabled {
		selfID := cfg.Cluster.NodeID
		if selfID == "" {
			selfID = cfg.Cluster.NodeAddress
		}
		e.Topology = cluster.NewTopology(selfID)
		e.Dispatcher.Slots = e.Topology
	}

	registerMonitoringHandlers(e)

	return e, nil
}

// sources bundles the live stores for internal/snapshot and
// internal/recovery, which both operate against the same Sources shape.
func (e *Engine) sources() snapshot.Sources {
	return snapshot.Sources{
		KV:        e.KV,
		Datastore: e.Datastore,
		Queues:    e.Queues,
		Streams:   e.Streams,
	}
}

// Start runs boot-time recovery (if both the WAL and snapshots are
// enabled) and starts the
// shared scheduler with every periodic job spec §5 requires registered.
func (e *Engine) Start() error {
	if e.WAL != nil && e.SnapshotMgr != nil {
		report, err := recovery.Boot(e.Dispatcher, e.SnapshotMgr, e.Config.Persistence.WAL.Path, e.sources(), recovery.PolicyTruncate)
		if err != nil {
			return fmt.Errorf("engine: boot recovery: %w", err)
		}
		logx.Infof("engine: recovery restored_from_snapshot=%v entries_replayed=%d stopped_early=%v",
			report.RestoredFromSnapshot, report.EntriesReplayed, report.StoppedEarly)
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("engine: creating scheduler: %w", err)
	}
	e.scheduler = sched

	if err := kv.RegisterTTLSweeper(sched, e.KV, time.Duration(e.Config.KVStore.TTLCleanupIntervalMS)*time.Millisecond, 0); err != nil {
		return fmt.Errorf("engine: registering ttl sweeper: %w", err)
	}
	if err := queue.RegisterAckSweeper(sched, e.Queues, 0, 0); err != nil {
		return fmt.Errorf("engine: registering ack sweeper: %w", err)
	}

	if e.WAL != nil && e.Config.Persistence.WAL.FsyncMode == "periodic" {
		interval := time.Duration(e.Config.Persistence.WAL.FsyncIntervalMS) * time.Millisecond
		if err := wal.RegisterPeriodicFsync(sched, e.WAL, interval); err != nil {
			return fmt.Errorf("engine: registering wal fsync: %w", err)
		}
	}

	if e.SnapshotMgr != nil && e.snapPolicy != nil {
		walOffset := func() uint64 { return 0 }
		if e.WAL != nil {
			// the snapshot records the last offset it includes; recovery
			// replays from one past it
			walOffset = func() uint64 { return e.WAL.NextOffset() - 1 }
		}
		if err := snapshot.Register(sched, e.SnapshotMgr, e.snapPolicy, e.sources(), walOffset); err != nil {
			return fmt.Errorf("engine: registering snapshot policy: %w", err)
		}
	}

	if e.ReplMaster != nil {
		registerReplicationHeartbeat(sched, e)
	}
	if e.Topology != nil {
		registerClusterFailureDetection(sched, e)
	}

	sched.Start()
	return nil
}

// Shutdown stops the scheduler and closes the WAL, if open.
func (e *Engine) Shutdown() error {
	if e.scheduler != nil {
		if err := e.scheduler.Shutdown(); err != nil {
			return err
		}
	}
	if e.WAL != nil {
		return e.WAL.Close()
	}
	return nil
}

func fsyncPolicyFromConfig(mode string) wal.FsyncPolicy {
	switch mode {
	case "always":
		return wal.FsyncAlways
	case "never":
		return wal.FsyncNever
	default:
		return wal.FsyncPeriodic
	}
}

// Keys implements cluster.KeyMover: every KV key hashing to slot.
func (e *Engine) Keys(slot int) []string {
	all := e.KV.Keys("")
	var out []string
	for _, k := range all {
		if cluster.HashSlot(k) == slot {
			out = append(out, k)
		}
	}
	return out
}

// Move implements cluster.KeyMover. Transferring the value to destNodeID
// over the wire is an edge concern (no inter-node transport is specified
// by spec §6's external interfaces, which name only the command envelope
// over HTTP) — Move deletes the key locally once the caller's replication
// of it to destNodeID is assumed complete, so Check() redirects it
// immediately afterward rather than continuing to serve it from here.
func (e *Engine) Move(key string, destNodeID string) error {
	if !e.KV.Delete(key) {
		return synaperr.New(synaperr.KindKeyNotFound, key)
	}
	return nil
}
