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

// Package monitoring implements component N: INFO sections, the slow-op
// log, and per-key memory accounting (spec §4.12). It observes the
// dispatcher by implementing internal/dispatch's Recorder interface —
// nothing in this package reaches back into the dispatcher or the stores
// it wires; the engine supplies whatever it wants surfaced under the
// "replication" and "keyspace" sections as arguments to BuildInfo.
package monitoring

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics are package-level and registered once: global
// counters/gauges only, no unbounded label cardinality (command names are
// a small fixed set).
var (
	opsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "synap_ops_total",
		Help: "Total dispatched commands by name and outcome",
	}, []string{"command", "outcome"})

	opDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "synap_op_duration_seconds",
		Help:    "Dispatch latency per command",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})

	keysTrackedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "synap_keys_tracked",
		Help: "Total keys currently held in the KV index",
	})

	replicaLagGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "synap_replica_lag_operations",
		Help: "Operations this node's replication stream is behind its master (0 on a master)",
	})

	queueDepthGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "synap_queue_depth",
		Help: "Ready+pending message count per queue",
	}, []string{"queue"})
)

func init() {
	prometheus.MustRegister(opsTotal, opDuration, keysTrackedGauge, replicaLagGauge, queueDepthGauge)
}

// commandStats accumulates hit/miss-style counters for one command name.
type commandStats struct {
	success uint64
	failure uint64
}

// Collector implements dispatch.Recorder. It is safe for concurrent use.
type Collector struct {
	startedAt time.Time
	version   string

	mu    sync.Mutex
	byCmd map[string]*commandStats

	slow *slowLog

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New builds a Collector. version is surfaced verbatim in the server INFO
// section; slowThreshold is the minimum duration an op must take to be
// appended to the slow log; slowCapacity bounds the slow log's ring size.
func New(version string, slowThreshold time.Duration, slowCapacity int) *Collector {
	return &Collector{
		startedAt: time.Now(),
		version:   version,
		byCmd:     make(map[string]*commandStats),
		slow:      newSlowLog(slowThreshold, slowCapacity),
	}
}

// Record implements dispatch.Recorder. Called once per dispatched command,
// after the handler returns, regardless of outcome.
func (c *Collector) Record(command string, duration time.Duration, success bool, payload map[string]any) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	opsTotal.WithLabelValues(command, outcome).Inc()
	opDuration.WithLabelValues(command).Observe(duration.Seconds())

	c.mu.Lock()
	st, ok := c.byCmd[command]
	if !ok {
		st = &commandStats{}
		c.byCmd[command] = st
	}
	if success {
		st.success++
	} else {
		st.failure++
	}
	c.mu.Unlock()

	// KV get/exists misses and hits feed the stats section's hit rate;
	// every other command is outcome-only.
	if command == "kv.get" || command == "kv.exists" {
		if success {
			c.hits.Add(1)
		} else {
			c.misses.Add(1)
		}
	}

	c.slow.record(command, duration, payload)
}

// RecordKeyspaceSize sets the keys-tracked gauge, so a caller that knows the
// key count can keep the Prometheus series current without Collector
// importing internal/kv. The engine does not call it, so the gauge stays
// at 0 unless some other caller sets it.
func (c *Collector) RecordKeyspaceSize(n int64) {
	keysTrackedGauge.Set(float64(n))
}

// RecordReplicaLag updates the replication lag gauge; 0 on a master or a
// standalone node.
func (c *Collector) RecordReplicaLag(ops int64) {
	replicaLagGauge.Set(float64(ops))
}

// RecordQueueDepth updates one queue's depth gauge.
func (c *Collector) RecordQueueDepth(name string, depth int) {
	queueDepthGauge.WithLabelValues(name).Set(float64(depth))
}

// CommandCounts returns a snapshot of success/failure counts per command
// name, for the stats INFO section.
func (c *Collector) CommandCounts() map[string][2]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][2]uint64, len(c.byCmd))
	for name, st := range c.byCmd {
		out[name] = [2]uint64{st.success, st.failure}
	}
	return out
}

// HitMiss returns the running KV hit/miss counters.
func (c *Collector) HitMiss() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// Uptime returns how long this Collector (and by construction, the engine
// that owns it) has been running.
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startedAt)
}

// Version returns the server version string supplied at construction.
func (c *Collector) Version() string {
	return c.version
}

// SlowLog returns the current slow-log ring contents, most recent first.
func (c *Collector) SlowLog() []SlowEntry {
	return c.slow.entries()
}
