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

package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synap/internal/datastore"
	"synap/internal/kv"
	"synap/internal/queue"
	"synap/internal/stream"
)

func buildSources(t *testing.T) Sources {
	t.Helper()
	idx := kv.New(kv.Options{}, nil)
	require.NoError(t, idx.Set("k1", []byte("v1"), 0))

	ds := datastore.New(0)
	ds.HSet("h1", "f1", []byte("v"))

	qm := queue.NewManager()
	qm.Create("q1", 0, 0)
	_, err := qm.Publish("q1", []byte("payload"), 5, 0)
	require.NoError(t, err)

	sm := stream.NewManager()
	sm.Create("room1", 0)
	_, err = sm.Publish("room1", "msg", []byte("event"))
	require.NoError(t, err)

	return Sources{KV: idx, Datastore: ds, Queues: qm, Streams: sm}
}

func TestCaptureAndRestoreRoundTrip(t *testing.T) {
	t.Parallel()
	src := buildSources(t)
	snap := Capture(src, 42)
	assert.Equal(t, uint64(42), snap.WALOffset)
	assert.Equal(t, Version, snap.Version)

	dst := Sources{
		KV:        kv.New(kv.Options{}, nil),
		Datastore: datastore.New(0),
		Queues:    queue.NewManager(),
		Streams:   stream.NewManager(),
	}
	Restore(snap, dst)

	v, ok := dst.KV.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "v1", string(v))

	hv, ok := dst.Datastore.HGet("h1", "f1")
	require.True(t, ok)
	assert.Equal(t, "v", string(hv))

	stats, err := dst.Queues.Stats("q1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Ready)

	sstats, err := dst.Streams.Stats("room1")
	require.NoError(t, err)
	assert.Equal(t, 1, sstats.Count)
}

func TestManagerWriteAndNewestPrunesOldSnapshots(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	mgr := &Manager{Dir: dir, MaxSnapshots: 2}
	src := buildSources(t)

	for i := 0; i < 4; i++ {
		snap := Capture(src, uint64(i))
		require.NoError(t, mgr.Write(snap))
	}

	seqs, err := mgr.list()
	require.NoError(t, err)
	assert.Len(t, seqs, 2, "expected pruning to keep only MaxSnapshots files")

	newest, ok, err := mgr.Newest()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(3), newest.WALOffset)
}

func TestNewestReturnsFalseWhenEmpty(t *testing.T) {
	t.Parallel()
	mgr := &Manager{Dir: t.TempDir()}
	_, ok, err := mgr.Newest()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPolicyThresholdReached(t *testing.T) {
	t.Parallel()
	p := &Policy{OpThreshold: 3}
	assert.False(t, p.thresholdReached())
	p.NoteOp()
	p.NoteOp()
	p.NoteOp()
	assert.True(t, p.thresholdReached())
}

func TestPolicyIntervalZeroNeverThresholds(t *testing.T) {
	t.Parallel()
	p := &Policy{Interval: time.Millisecond}
	assert.False(t, p.thresholdReached(), "OpThreshold unset must never trigger on count")
}
