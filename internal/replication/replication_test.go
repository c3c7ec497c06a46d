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

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synap/internal/datastore"
	"synap/internal/dispatch"
	"synap/internal/kv"
	"synap/internal/pubsub"
	"synap/internal/queue"
	"synap/internal/snapshot"
	"synap/internal/stream"
)

func newTestDispatcher() (*dispatch.Dispatcher, snapshot.Sources) {
	d := dispatch.New()
	d.KV = kv.New(kv.Options{}, nil)
	d.Datastore = datastore.New(0)
	d.Queues = queue.NewManager()
	d.Streams = stream.NewManager()
	d.PubSub = pubsub.NewRouter()
	src := snapshot.Sources{KV: d.KV, Datastore: d.Datastore, Queues: d.Queues, Streams: d.Streams}
	return d, src
}

func commandOp(t *testing.T, name string, payload map[string]any) Entry {
	t.Helper()
	op, err := dispatch.EncodeCommand(dispatch.Command{Name: name, Payload: payload})
	require.NoError(t, err)
	return Entry{Op: op}
}

func TestLogAppendAndSince(t *testing.T) {
	t.Parallel()
	log := NewLog(10)
	log.AppendOp([]byte("op1"))
	log.AppendOp([]byte("op2"))
	log.AppendOp([]byte("op3"))

	entries, ok := log.Since(0)
	require.True(t, ok)
	require.Len(t, entries, 3)
	assert.Equal(t, uint64(1), entries[0].Offset)
	assert.Equal(t, uint64(3), entries[2].Offset)
}

func TestLogEvictsOldestBeyondCapacity(t *testing.T) {
	t.Parallel()
	log := NewLog(2)
	log.AppendOp([]byte("op1"))
	log.AppendOp([]byte("op2"))
	log.AppendOp([]byte("op3"))

	assert.Equal(t, uint64(2), log.OldestOffset())

	_, ok := log.Since(0)
	assert.False(t, ok)

	entries, ok := log.Since(2)
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(3), entries[0].Offset)
}

func TestMasterNextSyncProducesPartialSync(t *testing.T) {
	t.Parallel()
	log := NewLog(100)
	log.AppendOp([]byte("op1"))
	log.AppendOp([]byte("op2"))

	m := NewMaster(log)
	m.Connect("replica-1", 0)

	_, src := newTestDispatcher()
	partial, full := m.NextSync("replica-1", src)
	require.NotNil(t, partial)
	require.Nil(t, full)
	assert.Len(t, partial.Entries, 2)
}

func TestMasterNextSyncFallsBackToFullSyncWhenReplicaTooFarBehind(t *testing.T) {
	t.Parallel()
	log := NewLog(2)
	log.AppendOp([]byte("op1"))
	log.AppendOp([]byte("op2"))
	log.AppendOp([]byte("op3"))

	m := NewMaster(log)
	m.Connect("replica-1", 0)

	_, src := newTestDispatcher()
	partial, full := m.NextSync("replica-1", src)
	assert.Nil(t, partial)
	require.NotNil(t, full)
}

func TestMasterLagOperationsTracksAcks(t *testing.T) {
	t.Parallel()
	log := NewLog(100)
	log.AppendOp([]byte("op1"))
	log.AppendOp([]byte("op2"))
	log.AppendOp([]byte("op3"))

	m := NewMaster(log)
	m.Connect("replica-1", 0)

	lag, ok := m.LagOperations("replica-1")
	require.True(t, ok)
	assert.Equal(t, int64(3), lag)

	m.Ack("replica-1", Ack{ReplicaOffset: 2})
	lag, ok = m.LagOperations("replica-1")
	require.True(t, ok)
	assert.Equal(t, int64(1), lag)
}

func TestApplierAppliesPartialSyncInOrder(t *testing.T) {
	t.Parallel()
	d, src := newTestDispatcher()
	applier := NewApplier(d, src)

	e1 := commandOp(t, "kv.set", map[string]any{"key": "a", "value": "1"})
	e1.Offset = 1
	e2 := commandOp(t, "kv.set", map[string]any{"key": "b", "value": "2"})
	e2.Offset = 2

	err := applier.ApplyPartialSync(PartialSync{FromOffset: 0, ToOffset: 2, Entries: []Entry{e1, e2}})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), applier.ReplicaOffset())

	val, ok := d.KV.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), val)
}

func TestApplierHaltsOnGap(t *testing.T) {
	t.Parallel()
	d, src := newTestDispatcher()
	applier := NewApplier(d, src)

	e := commandOp(t, "kv.set", map[string]any{"key": "a", "value": "1"})
	e.Offset = 5 // not replicaOffset+1

	err := applier.ApplyPartialSync(PartialSync{Entries: []Entry{e}})
	require.Error(t, err)

	halted, haltErr := applier.Halted()
	assert.True(t, halted)
	assert.Error(t, haltErr)

	err = applier.ApplyPartialSync(PartialSync{Entries: []Entry{e}})
	assert.Error(t, err)
}

func TestApplierFullSyncRestoresAndFastForwards(t *testing.T) {
	t.Parallel()
	d, src := newTestDispatcher()
	require.NoError(t, d.KV.Set("preexisting", []byte("v"), 0))
	snap := snapshot.Capture(src, 41)

	d2, src2 := newTestDispatcher()
	applier := NewApplier(d2, src2)
	require.NoError(t, applier.ApplyFullSync(FullSync{Snapshot: snap, AtOffset: 41}))
	assert.Equal(t, uint64(41), applier.ReplicaOffset())

	val, ok := d2.KV.Get("preexisting")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), val)
}

func TestBackoffDoublesUpToMax(t *testing.T) {
	t.Parallel()
	b := NewBackoff(10*time.Millisecond, 100*time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, b.Next())
	assert.Equal(t, 20*time.Millisecond, b.Next())
	assert.Equal(t, 40*time.Millisecond, b.Next())
	assert.Equal(t, 80*time.Millisecond, b.Next())
	assert.Equal(t, 100*time.Millisecond, b.Next()) // capped

	b.Reset()
	assert.Equal(t, 10*time.Millisecond, b.Next())
}

func TestPromoteWaitsForLagThenSwitchesRole(t *testing.T) {
	t.Parallel()
	calls := 0
	lag := func() (int64, error) {
		calls++
		if calls < 3 {
			return 5, nil
		}
		return 1, nil
	}
	severed := false
	becameMaster := false

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := Promote(ctx, lag, func() error { severed = true; return nil }, func() error { becameMaster = true; return nil })
	require.NoError(t, err)
	assert.True(t, severed)
	assert.True(t, becameMaster)
}

func TestPromoteTimesOutIfLagNeverDrops(t *testing.T) {
	t.Parallel()
	lag := func() (int64, error) { return 100, nil }

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	err := Promote(ctx, lag, func() error { return nil }, func() error { return nil })
	assert.Error(t, err)
}
