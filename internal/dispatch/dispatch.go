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

// Package dispatch implements the command dispatcher (spec component G):
// it resolves a dot-namespaced command envelope to a handler, optionally
// checks cluster slot ownership, invokes the handler, and — for write
// commands — appends the operation to the WAL and the replication log
// atomically with the in-memory state change.
package dispatch

import (
	"encoding/gob"
	"sync"
	"time"

	"synap/internal/datastore"
	"synap/internal/kv"
	"synap/internal/pubsub"
	"synap/internal/queue"
	"synap/internal/stream"
	"synap/internal/synaperr"
	"synap/internal/wal"
)

func init() {
	gob.Register(Command{})
	// Payload values arrive as decoded JSON (map[string]any), so every
	// concrete type JSON can produce must be registered for gob to store
	// it inside an interface{} slot.
	gob.Register(float64(0))
	gob.Register("")
	gob.Register(false)
	gob.Register([]any{})
	gob.Register(map[string]any{})
}

// Command is the logged/replicated unit: a dispatcher-resolved envelope,
// stripped of request_id (which is only meaningful to the original
// caller), ready to be gob-encoded into the WAL and replication log.
type Command struct {
	Name    string
	Payload map[string]any
}

// Envelope is the wire request shape from spec.md §6.
type Envelope struct {
	Command   string         `json:"command"`
	RequestID string         `json:"request_id"`
	Payload   map[string]any `json:"payload"`
}

// Response is the wire response shape from spec.md §6.
type Response struct {
	Success   bool           `json:"success"`
	RequestID string         `json:"request_id"`
	Payload   any            `json:"payload,omitempty"`
	Error     *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the wire shape of a dispatcher/handler failure.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SlotChecker is implemented by internal/cluster's Topology. Dispatcher
// treats a nil SlotChecker as "cluster mode is off" (spec §4.5b).
type SlotChecker interface {
	// Check returns a redirect error (KindMoved/KindAsk) if key's slot is
	// not owned by this node, or nil if the local node may serve it.
	Check(key string) error
}

// Replicator is implemented by internal/replication's Log. It is only
// invoked for write commands, after the WAL append succeeds.
type Replicator interface {
	AppendOp(op []byte)
}

// Recorder is implemented by internal/monitoring's Collector. Dispatch
// reports every resolved command's outcome, latency, and request payload to
// it; a nil Recorder means monitoring is off. payload is passed for
// slow-log args summarization only — Recorder must not retain or mutate it.
type Recorder interface {
	Record(command string, duration time.Duration, success bool, payload map[string]any)
}

// handlerFunc executes one resolved command against the live stores. It
// returns the response payload plus whether this command is a write
// (mutating) operation, which gates the WAL/replication append.
type handlerFunc func(d *Dispatcher, payload map[string]any) (any, bool, error)

// Dispatcher wires the command registry to the live component instances.
type Dispatcher struct {
	KV        *kv.Index
	Datastore *datastore.Store
	Queues    *queue.Manager
	Streams   *stream.Manager
	PubSub    *pubsub.Router
	HLL       HyperLogLogStore

	WAL        *wal.Log
	Durability wal.Durability
	Repl       Replicator
	Slots      SlotChecker
	Monitor    Recorder

	handlers  map[string]handlerFunc
	mailboxMu sync.Mutex
	mailboxes map[string]*mailbox
}

// HyperLogLogStore is implemented by internal/hll's Store. Kept as an
// interface here so dispatch does not need to import internal/hll for
// types it only calls through three methods.
type HyperLogLogStore interface {
	PFAdd(key string, elements ...[]byte) (bool, error)
	PFCount(keys ...string) (uint64, error)
	PFMerge(dest string, sources ...string) error
}

// New builds a Dispatcher with every known command registered. WAL, Repl,
// and Slots may be nil (durability/replication/cluster mode off).
func New() *Dispatcher {
	d := &Dispatcher{handlers: make(map[string]handlerFunc)}
	registerKVHandlers(d)
	registerDatastoreHandlers(d)
	registerQueueHandlers(d)
	registerStreamHandlers(d)
	registerPubSubHandlers(d)
	registerHLLHandlers(d)
	registerUnimplementedHandlers(d)
	return d
}

func (d *Dispatcher) register(name string, write bool, fn func(d *Dispatcher, payload map[string]any) (any, error)) {
	d.handlers[name] = func(d *Dispatcher, payload map[string]any) (any, bool, error) {
		result, err := fn(d, payload)
		return result, write, err
	}
}

// RegisterHandler adds or replaces a command handler after construction. It
// is exported for internal/engine, which registers commands (server.info,
// server.slowlog, cluster admin ops) that need cross-component state
// (monitoring.Collector, cluster.Topology) Dispatcher itself has no field
// for.
func (d *Dispatcher) RegisterHandler(name string, write bool, fn func(d *Dispatcher, payload map[string]any) (any, error)) {
	d.register(name, write, fn)
}

// Dispatch resolves and executes req, producing a wire Response. It never
// panics back to the caller: an unexpected error from a handler is
// reported as KindInternal rather than propagated as a Go panic.
func (d *Dispatcher) Dispatch(req Envelope) (resp Response) {
	resp.RequestID = req.RequestID
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			resp.Success = false
			resp.Error = &ErrorResponse{Kind: string(synaperr.KindInternal), Message: "internal error"}
		}
		if d.Monitor != nil {
			d.Monitor.Record(req.Command, time.Since(start), resp.Success, req.Payload)
		}
	}()

	handler, ok := d.handlers[req.Command]
	if !ok {
		return errorResponse(req.RequestID, synaperr.New(synaperr.KindUnknownCommand, req.Command))
	}

	if d.Slots != nil {
		if key := primaryKey(req.Command, req.Payload); key != "" {
			if err := d.Slots.Check(key); err != nil {
				return errorResponse(req.RequestID, err)
			}
		}
	}

	payload, isWrite, err := handler(d, req.Payload)
	if err != nil {
		return errorResponse(req.RequestID, err)
	}

	if isWrite && d.WAL != nil {
		cmd := Command{Name: req.Command, Payload: req.Payload}
		op, encErr := EncodeCommand(cmd)
		if encErr != nil {
			return errorResponse(req.RequestID, synaperr.New(synaperr.KindSerialization, encErr.Error()))
		}
		if _, err := d.WAL.Append(op, d.Durability); err != nil {
			return errorResponse(req.RequestID, synaperr.New(synaperr.KindInternal, err.Error()))
		}
		if d.Repl != nil {
			d.Repl.AppendOp(op)
		}
	}

	return Response{Success: true, RequestID: req.RequestID, Payload: payload}
}

// Apply replays a previously-logged Command directly against the stores,
// bypassing slot checks, the WAL, and replication — used by
// internal/recovery when replaying the WAL and by a replica applying
// commands received from its master.
func (d *Dispatcher) Apply(cmd Command) error {
	handler, ok := d.handlers[cmd.Name]
	if !ok {
		return synaperr.New(synaperr.KindUnknownCommand, cmd.Name)
	}
	_, _, err := handler(d, cmd.Payload)
	return err
}

func errorResponse(requestID string, err error) Response {
	se, ok := err.(*synaperr.Error)
	if !ok {
		return Response{RequestID: requestID, Error: &ErrorResponse{Kind: string(synaperr.KindInternal), Message: err.Error()}}
	}
	return Response{RequestID: requestID, Error: &ErrorResponse{Kind: string(se.Kind), Message: se.Message}}
}

// primaryKey extracts the key a command's slot ownership should be
// checked against. Commands with no natural single key (list/stats/etc.)
// return "", which skips the slot check.
func primaryKey(command string, payload map[string]any) string {
	field := "key"
	switch {
	case command == "queue.create" || command == "queue.publish" || command == "queue.consume" ||
		command == "queue.ack" || command == "queue.nack" || command == "queue.stats" || command == "queue.delete":
		field = "name"
	case command == "stream.create" || command == "stream.publish" || command == "stream.consume" || command == "stream.stats":
		field = "name"
	case command == "pubsub.publish" || command == "pubsub.subscribe" || command == "pubsub.unsubscribe":
		field = "topic"
	}
	v, ok := payload[field]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func stringField(payload map[string]any, field string) (string, bool) {
	v, ok := payload[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func bytesField(payload map[string]any, field string) ([]byte, bool) {
	v, ok := payload[field]
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case []byte:
		return t, true
	case string:
		return []byte(t), true
	}
	return nil, false
}

func intField(payload map[string]any, field string) (int, bool) {
	v, ok := payload[field]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	}
	return 0, false
}

func float64Field(payload map[string]any, field string) (float64, bool) {
	v, ok := payload[field]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	}
	return 0, false
}
