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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synap/internal/cluster"
	"synap/internal/config"
	"synap/internal/dispatch"
)

func standaloneConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.KVStore.TTLCleanupIntervalMS = 50
	return cfg
}

// TestEngineDispatchesKVRoundTrip covers a KV set/get round trip end to
// end through the real Engine/Dispatcher wiring, not a hand-built test
// dispatcher.
func TestEngineDispatchesKVRoundTrip(t *testing.T) {
	t.Parallel()
	e, err := New(standaloneConfig(t))
	require.NoError(t, err)
	require.NoError(t, e.Start())
	t.Cleanup(func() { _ = e.Shutdown() })

	setResp := e.Dispatcher.Dispatch(dispatch.Envelope{
		Command: "kv.set", RequestID: "r1",
		Payload: map[string]any{"key": "greeting", "value": "hello"},
	})
	require.True(t, setResp.Success)

	getResp := e.Dispatcher.Dispatch(dispatch.Envelope{
		Command: "kv.get", RequestID: "r2",
		Payload: map[string]any{"key": "greeting"},
	})
	require.True(t, getResp.Success)
}

// TestEngineSurfacesInfoAndSlowlog exercises component N end to end: a
// command dispatched through the real engine shows up in both INFO's
// stats section and (once slow enough) the slow log.
func TestEngineSurfacesInfoAndSlowlog(t *testing.T) {
	t.Parallel()
	e, err := New(standaloneConfig(t))
	require.NoError(t, err)
	require.NoError(t, e.Start())
	t.Cleanup(func() { _ = e.Shutdown() })

	e.Dispatcher.Dispatch(dispatch.Envelope{
		Command: "kv.set", RequestID: "r1",
		Payload: map[string]any{"key": "k1", "value": "v1"},
	})

	infoResp := e.Dispatcher.Dispatch(dispatch.Envelope{Command: "server.info", RequestID: "r2"})
	require.True(t, infoResp.Success)

	slowResp := e.Dispatcher.Dispatch(dispatch.Envelope{Command: "server.slowlog", RequestID: "r3"})
	require.True(t, slowResp.Success)
}

// TestEngineRecoversAcrossRestart covers scenario S5: writes survive a
// simulated crash/restart via WAL replay with no snapshot yet taken.
func TestEngineRecoversAcrossRestart(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := standaloneConfig(t)
	cfg.Persistence.Enabled = true
	cfg.Persistence.WAL.Enabled = true
	cfg.Persistence.WAL.Path = filepath.Join(dir, "wal")
	cfg.Persistence.WAL.FsyncMode = "always"
	cfg.Persistence.Snapshot.Enabled = true
	cfg.Persistence.Snapshot.Directory = filepath.Join(dir, "snapshots")
	cfg.Persistence.Snapshot.MaxSnapshots = 3
	cfg.Persistence.Snapshot.IntervalSecs = 3600
	cfg.Persistence.Snapshot.OperationThreshold = 0

	e1, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, e1.Start())

	resp := e1.Dispatcher.Dispatch(dispatch.Envelope{
		Command: "kv.set", RequestID: "r1",
		Payload: map[string]any{"key": "durable", "value": "yes"},
	})
	require.True(t, resp.Success)
	require.NoError(t, e1.Shutdown())

	e2, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, e2.Start())
	t.Cleanup(func() { _ = e2.Shutdown() })

	getResp := e2.Dispatcher.Dispatch(dispatch.Envelope{
		Command: "kv.get", RequestID: "r2",
		Payload: map[string]any{"key": "durable"},
	})
	require.True(t, getResp.Success)
	payload, ok := getResp.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "yes", payload["value"])
}

// TestEngineClusterModeRedirectsForeignSlot covers scenario S6: once
// cluster mode is enabled and this node owns no slots, every KV command
// is redirected rather than served locally.
func TestEngineClusterModeRedirectsForeignSlot(t *testing.T) {
	t.Parallel()
	cfg := standaloneConfig(t)
	cfg.Cluster.Enabled = true
	cfg.Cluster.NodeID = "node-a"
	cfg.Cluster.NodeAddress = "127.0.0.1:7000"
	cfg.Cluster.NodeTimeoutMS = 200

	e, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, e.Start())
	t.Cleanup(func() { _ = e.Shutdown() })

	e.Topology.AddNode(cluster.Node{ID: "node-b", Address: "127.0.0.1:7001"})
	e.Topology.AssignRange(0, 16383, "node-b")

	resp := e.Dispatcher.Dispatch(dispatch.Envelope{
		Command: "kv.set", RequestID: "r1",
		Payload: map[string]any{"key": "anything", "value": "v"},
	})
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "Moved", resp.Error.Kind)
}

func TestEngineKeyMoverFiltersBySlot(t *testing.T) {
	t.Parallel()
	e, err := New(standaloneConfig(t))
	require.NoError(t, err)
	require.NoError(t, e.Start())
	t.Cleanup(func() { _ = e.Shutdown() })

	require.NoError(t, e.KV.Set("user:{1001}:profile", []byte("p"), 0))
	require.NoError(t, e.KV.Set("user:{1001}:settings", []byte("s"), 0))

	slot := cluster.HashSlot("{1001}")
	keys := e.Keys(slot)
	assert.ElementsMatch(t, []string{"user:{1001}:profile", "user:{1001}:settings"}, keys)

	require.NoError(t, e.Move("user:{1001}:profile", "node-b"))
	assert.False(t, e.KV.Exists("user:{1001}:profile"))
}

func TestStartThenShutdownSucceeds(t *testing.T) {
	t.Parallel()
	e, err := New(standaloneConfig(t))
	require.NoError(t, err)
	require.NoError(t, e.Start())
	require.NoError(t, e.Shutdown())
}

