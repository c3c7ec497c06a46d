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

package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synap/internal/datastore"
	"synap/internal/hll"
	"synap/internal/kv"
	"synap/internal/pubsub"
	"synap/internal/queue"
	"synap/internal/stream"
	"synap/internal/wal"
)

type fakeReplicator struct {
	ops [][]byte
}

func (f *fakeReplicator) AppendOp(op []byte) {
	f.ops = append(f.ops, op)
}

type fakeSlotChecker struct {
	err error
}

func (f *fakeSlotChecker) Check(string) error { return f.err }

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	d := New()
	d.KV = kv.New(kv.Options{}, nil)
	d.Datastore = datastore.New(0)
	d.Queues = queue.NewManager()
	d.Streams = stream.NewManager()
	d.PubSub = pubsub.NewRouter()
	d.HLL = hll.New()
	return d
}

func TestDispatchUnknownCommand(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	resp := d.Dispatch(Envelope{Command: "nonexistent.op", RequestID: "r1"})
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UnknownCommand", resp.Error.Kind)
}

func TestDispatchKVSetGetRoundTrip(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	setResp := d.Dispatch(Envelope{
		Command:   "kv.set",
		RequestID: "r1",
		Payload:   map[string]any{"key": "a", "value": "1"},
	})
	require.True(t, setResp.Success)

	getResp := d.Dispatch(Envelope{
		Command:   "kv.get",
		RequestID: "r2",
		Payload:   map[string]any{"key": "a"},
	})
	require.True(t, getResp.Success)
	payload, ok := getResp.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1", payload["value"])
}

func TestDispatchWriteCommandAppendsToWALAndReplicator(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)
	dir := t.TempDir()
	log, err := wal.Open(wal.Options{Dir: dir, FsyncPolicy: wal.FsyncNever, MaxSizeMB: 16}, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })
	d.WAL = log
	repl := &fakeReplicator{}
	d.Repl = repl

	resp := d.Dispatch(Envelope{
		Command:   "kv.set",
		RequestID: "r1",
		Payload:   map[string]any{"key": "a", "value": "1"},
	})
	require.True(t, resp.Success)
	assert.Len(t, repl.ops, 1)
}

func TestDispatchReadCommandSkipsWAL(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)
	repl := &fakeReplicator{}
	d.Repl = repl

	resp := d.Dispatch(Envelope{Command: "kv.stats", RequestID: "r1"})
	require.True(t, resp.Success)
	assert.Empty(t, repl.ops)
}

func TestDispatchSlotCheckBlocksOnError(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)
	wantErr := &moveError{}
	d.Slots = &fakeSlotChecker{err: wantErr}

	resp := d.Dispatch(Envelope{
		Command:   "kv.set",
		RequestID: "r1",
		Payload:   map[string]any{"key": "a", "value": "1"},
	})
	require.False(t, resp.Success)
}

func TestApplyBypassesSlotsAndWAL(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)
	d.Slots = &fakeSlotChecker{err: &moveError{}}

	err := d.Apply(Command{Name: "kv.set", Payload: map[string]any{"key": "a", "value": "1"}})
	require.NoError(t, err)

	resp := d.Dispatch(Envelope{Command: "kv.get", RequestID: "r1", Payload: map[string]any{"key": "a"}})
	d.Slots = nil
	resp = d.Dispatch(Envelope{Command: "kv.get", RequestID: "r1", Payload: map[string]any{"key": "a"}})
	require.True(t, resp.Success)
}

func TestDispatchPubSubPublishSubscribeDrain(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	subResp := d.Dispatch(Envelope{
		Command:   "pubsub.subscribe",
		RequestID: "r1",
		Payload:   map[string]any{"topic": "orders.*"},
	})
	require.True(t, subResp.Success)
	payload := subResp.Payload.(map[string]any)
	subID := payload["subscription_id"].(string)
	require.NotEmpty(t, subID)

	pubResp := d.Dispatch(Envelope{
		Command:   "pubsub.publish",
		RequestID: "r2",
		Payload:   map[string]any{"topic": "orders.created", "payload": "hi"},
	})
	require.True(t, pubResp.Success)

	msgs := d.Drain(subID)
	require.Len(t, msgs, 1)
	assert.Equal(t, "orders.created", msgs[0].Topic)
}

func TestDispatchHyperLogLog(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	addResp := d.Dispatch(Envelope{
		Command:   "hyperloglog.pfadd",
		RequestID: "r1",
		Payload:   map[string]any{"key": "visitors", "elements": []any{"u1", "u2"}},
	})
	require.True(t, addResp.Success)

	countResp := d.Dispatch(Envelope{
		Command:   "hyperloglog.pfcount",
		RequestID: "r2",
		Payload:   map[string]any{"key": "visitors"},
	})
	require.True(t, countResp.Success)
	payload := countResp.Payload.(map[string]any)
	count, ok := payload["count"].(uint64)
	require.True(t, ok)
	assert.InDelta(t, 2, count, 1)
}

func TestDispatchUnimplementedCommandsReturnUnknownCommand(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	for _, name := range []string{"script.eval", "transaction.multi"} {
		resp := d.Dispatch(Envelope{Command: name, RequestID: "r1"})
		require.False(t, resp.Success)
		assert.Equal(t, "UnknownCommand", resp.Error.Kind)
	}
}

// moveError is a minimal stand-in for the real cluster redirect error; the
// dispatcher only needs it to be non-nil.
type moveError struct{}

func (*moveError) Error() string { return "MOVED" }
