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
	"sync"

	"github.com/google/uuid"

	"synap/internal/synaperr"
)

// mailbox is the Subscriber implementation the dispatcher hands to
// pubsub.Router for a subscription made over the command protocol. The
// actual push transport (WebSocket, long-poll) is an edge concern per
// spec §1; the dispatcher only buffers deliveries so an edge can drain
// them without ever blocking a publisher.
type mailbox struct {
	mu       sync.Mutex
	messages []mailboxMessage
}

type mailboxMessage struct {
	Topic   string
	Payload []byte
}

func (m *mailbox) Deliver(topic string, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, mailboxMessage{Topic: topic, Payload: payload})
}

// Drain removes and returns every buffered message for subscriptionID.
func (d *Dispatcher) Drain(subscriptionID string) []mailboxMessage {
	d.mailboxMu.Lock()
	mb, ok := d.mailboxes[subscriptionID]
	d.mailboxMu.Unlock()
	if !ok {
		return nil
	}
	mb.mu.Lock()
	defer mb.mu.Unlock()
	out := mb.messages
	mb.messages = nil
	return out
}

func registerPubSubHandlers(d *Dispatcher) {
	d.mailboxMu.Lock()
	d.mailboxes = make(map[string]*mailbox)
	d.mailboxMu.Unlock()

	d.register("pubsub.publish", false, handlePubSubPublish)
	d.register("pubsub.subscribe", false, handlePubSubSubscribe)
	d.register("pubsub.unsubscribe", false, handlePubSubUnsubscribe)
}

func handlePubSubPublish(d *Dispatcher, payload map[string]any) (any, error) {
	topic, ok := stringField(payload, "topic")
	if !ok {
		return nil, synaperr.New(synaperr.KindInvalidValue, "pubsub.publish requires a string topic")
	}
	val, _ := bytesField(payload, "payload")
	n := d.PubSub.Publish(topic, val)
	return map[string]any{"delivered": n}, nil
}

func handlePubSubSubscribe(d *Dispatcher, payload map[string]any) (any, error) {
	pattern, ok := stringField(payload, "topic")
	if !ok {
		return nil, synaperr.New(synaperr.KindInvalidValue, "pubsub.subscribe requires a string topic pattern")
	}
	subID, ok := stringField(payload, "subscription_id")
	if !ok || subID == "" {
		subID = uuid.NewString()
	}
	mb := &mailbox{}
	d.mailboxMu.Lock()
	d.mailboxes[subID] = mb
	d.mailboxMu.Unlock()
	d.PubSub.Subscribe(subID, pattern, mb)
	return map[string]any{"subscription_id": subID}, nil
}

func handlePubSubUnsubscribe(d *Dispatcher, payload map[string]any) (any, error) {
	pattern, ok := stringField(payload, "topic")
	if !ok {
		return nil, synaperr.New(synaperr.KindInvalidValue, "pubsub.unsubscribe requires a string topic pattern")
	}
	subID, _ := stringField(payload, "subscription_id")
	removed := d.PubSub.Unsubscribe(subID, pattern)
	d.mailboxMu.Lock()
	delete(d.mailboxes, subID)
	d.mailboxMu.Unlock()
	return map[string]any{"unsubscribed": removed}, nil
}
