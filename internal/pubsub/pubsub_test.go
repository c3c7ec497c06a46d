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

package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubscriber struct {
	received []string
}

func (r *recordingSubscriber) Deliver(topic string, payload []byte) {
	r.received = append(r.received, topic+":"+string(payload))
}

func TestExactTopicMatch(t *testing.T) {
	t.Parallel()
	r := NewRouter()
	sub := &recordingSubscriber{}
	r.Subscribe("s1", "orders.created", sub)

	n := r.Publish("orders.created", []byte("x"))
	assert.Equal(t, 1, n)
	require.Len(t, sub.received, 1)
	assert.Equal(t, "orders.created:x", sub.received[0])

	n = r.Publish("orders.updated", []byte("y"))
	assert.Zero(t, n)
}

func TestSingleSegmentWildcard(t *testing.T) {
	t.Parallel()
	r := NewRouter()
	sub := &recordingSubscriber{}
	r.Subscribe("s1", "orders.*", sub)

	r.Publish("orders.created", []byte("a"))
	r.Publish("orders.updated", []byte("b"))
	n := r.Publish("orders.created.extra", []byte("c"))

	assert.Zero(t, n, "* must match exactly one segment")
	assert.Len(t, sub.received, 2)
}

func TestTrailingHashWildcard(t *testing.T) {
	t.Parallel()
	r := NewRouter()
	sub := &recordingSubscriber{}
	r.Subscribe("s1", "orders.#", sub)

	r.Publish("orders", []byte("zero"))
	r.Publish("orders.created", []byte("one"))
	r.Publish("orders.created.extra", []byte("two"))

	assert.Len(t, sub.received, 3)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()
	r := NewRouter()
	sub := &recordingSubscriber{}
	r.Subscribe("s1", "a.b", sub)
	require.True(t, r.Unsubscribe("s1", "a.b"))
	assert.False(t, r.Unsubscribe("s1", "a.b"), "expected second unsubscribe to report false")

	n := r.Publish("a.b", []byte("x"))
	assert.Zero(t, n)
}

func TestDedupesMultiplePatternMatchesPerSubscriber(t *testing.T) {
	t.Parallel()
	r := NewRouter()
	sub := &recordingSubscriber{}
	r.Subscribe("s1", "a.*", sub)
	r.Subscribe("s2", "a.#", sub)

	n := r.Publish("a.b", []byte("x"))
	assert.Equal(t, 1, n, "same subscriber matched twice must be delivered once")
}
