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

// Package queue implements the priority work queue engine: a ready-set
// ordered by (priority desc, publish time asc), an in-flight pending set
// ordered by ACK deadline, and a bounded dead-letter queue for messages
// that exhaust their retry budget (spec component D).
package queue

import (
	"container/heap"
	"sync"
	"time"

	"github.com/google/uuid"

	"synap/internal/synaperr"
)

// Message is a single unit of work moving through a queue.
type Message struct {
	ID         string
	Payload    []byte
	Priority   int
	PublishTS  time.Time
	Attempts   int
	MaxRetries int
}

// Stats summarizes a queue's current occupancy.
type Stats struct {
	Ready   int
	Pending int
	DLQ     int
}

// Manager owns every named queue. One coarse lock per queue (spec §5:
// "queue ... behind their own ... lock") rather than a single manager-wide
// lock, so independent queues never contend.
type Manager struct {
	mu     sync.RWMutex
	queues map[string]*queue
}

// NewManager builds an empty queue manager.
func NewManager() *Manager {
	return &Manager{queues: make(map[string]*queue)}
}

type queue struct {
	mu         sync.Mutex
	name       string
	maxSize    int
	maxDLQSize int

	ready   readyHeap
	pending pendingHeap
	byID    map[string]*inflight
	dlq     []*Message
}

type inflight struct {
	msg      *Message
	deadline time.Time
	index    int // position in pending heap
}

// Create registers a new queue. Re-creating an existing name is a no-op
// returning the existing queue's current stats semantics (idempotent
// create, matching kv.Index's tolerant style).
func (m *Manager) Create(name string, maxSize, maxDLQSize int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.queues[name]; ok {
		return
	}
	if maxSize <= 0 {
		maxSize = 100000
	}
	if maxDLQSize <= 0 {
		maxDLQSize = 1000
	}
	m.queues[name] = &queue{
		name:       name,
		maxSize:    maxSize,
		maxDLQSize: maxDLQSize,
		byID:       make(map[string]*inflight),
	}
}

// Delete removes a queue entirely.
func (m *Manager) Delete(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.queues[name]; !ok {
		return false
	}
	delete(m.queues, name)
	return true
}

// List returns every known queue name.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.queues))
	for name := range m.queues {
		out = append(out, name)
	}
	return out
}

func (m *Manager) get(name string) (*queue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.queues[name]
	if !ok {
		return nil, synaperr.Newf(synaperr.KindQueueNotFound, "queue %q not found", name)
	}
	return q, nil
}

// Publish enqueues payload with the given priority (higher goes first).
func (m *Manager) Publish(name string, payload []byte, priority, maxRetries int) (*Message, error) {
	q, err := m.get(name)
	if err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ready)+len(q.byID) >= q.maxSize {
		return nil, synaperr.Newf(synaperr.KindQueueFull, "queue %q is full", name)
	}
	msg := &Message{
		ID:         uuid.NewString(),
		Payload:    payload,
		Priority:   priority,
		PublishTS:  nowFunc(),
		MaxRetries: maxRetries,
	}
	heap.Push(&q.ready, msg)
	return msg, nil
}

// Consume pops the highest-priority ready message and moves it to pending
// with an ACK deadline of now+visibilityTimeout.
func (m *Manager) Consume(name string, visibilityTimeout time.Duration) (*Message, error) {
	q, err := m.get(name)
	if err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ready) == 0 {
		return nil, nil
	}
	msg := heap.Pop(&q.ready).(*Message)
	msg.Attempts++
	if visibilityTimeout <= 0 {
		visibilityTimeout = 30 * time.Second
	}
	inf := &inflight{msg: msg, deadline: nowFunc().Add(visibilityTimeout)}
	q.byID[msg.ID] = inf
	heap.Push(&q.pending, inf)
	return msg, nil
}

// Ack permanently removes a message from the pending set.
func (m *Manager) Ack(name, id string) error {
	q, err := m.get(name)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	inf, ok := q.byID[id]
	if !ok {
		return synaperr.Newf(synaperr.KindMessageNotFound, "message %q not found", id)
	}
	delete(q.byID, id)
	heap.Remove(&q.pending, inf.index)
	return nil
}

// Nack returns a message to the ready set for retry, or to the DLQ once
// MaxRetries is exhausted.
func (m *Manager) Nack(name, id string) error {
	q, err := m.get(name)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	inf, ok := q.byID[id]
	if !ok {
		return synaperr.Newf(synaperr.KindMessageNotFound, "message %q not found", id)
	}
	delete(q.byID, id)
	heap.Remove(&q.pending, inf.index)
	q.requeueOrDeadLetter(inf.msg)
	return nil
}

func (q *queue) requeueOrDeadLetter(msg *Message) {
	if msg.MaxRetries > 0 && msg.Attempts >= msg.MaxRetries {
		q.dlq = append(q.dlq, msg)
		if len(q.dlq) > q.maxDLQSize {
			q.dlq = q.dlq[len(q.dlq)-q.maxDLQSize:]
		}
		return
	}
	heap.Push(&q.ready, msg)
}

// Stats reports a queue's occupancy.
func (m *Manager) Stats(name string) (Stats, error) {
	q, err := m.get(name)
	if err != nil {
		return Stats{}, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{Ready: len(q.ready), Pending: len(q.pending), DLQ: len(q.dlq)}, nil
}

// SweepExpired requeues (or dead-letters) every pending message whose ACK
// deadline has passed, up to budget messages, and reports how many moved.
func (m *Manager) SweepExpired(budget int) int {
	m.mu.RLock()
	queues := make([]*queue, 0, len(m.queues))
	for _, q := range m.queues {
		queues = append(queues, q)
	}
	m.mu.RUnlock()

	now := nowFunc()
	moved := 0
	for _, q := range queues {
		q.mu.Lock()
		for moved < budget && len(q.pending) > 0 && q.pending[0].deadline.Before(now) {
			inf := heap.Pop(&q.pending).(*inflight)
			delete(q.byID, inf.msg.ID)
			q.requeueOrDeadLetter(inf.msg)
			moved++
		}
		q.mu.Unlock()
		if moved >= budget {
			break
		}
	}
	return moved
}

// nowFunc is indirected for deterministic testing of deadline behavior.
var nowFunc = time.Now
