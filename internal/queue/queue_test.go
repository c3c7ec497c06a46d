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

package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synap/internal/synaperr"
)

func TestPublishConsumeAck(t *testing.T) {
	t.Parallel()
	m := NewManager()
	m.Create("q1", 0, 0)

	_, err := m.Publish("q1", []byte("payload"), 0, 3)
	require.NoError(t, err)

	msg, err := m.Consume("q1", time.Second)
	require.NoError(t, err)
	require.NotNil(t, msg)

	require.NoError(t, m.Ack("q1", msg.ID))
	err = m.Ack("q1", msg.ID)
	assert.True(t, synaperr.Is(err, synaperr.KindMessageNotFound))

	stats, err := m.Stats("q1")
	require.NoError(t, err)
	assert.Zero(t, stats.Ready)
	assert.Zero(t, stats.Pending)
}

func TestPriorityOrdering(t *testing.T) {
	t.Parallel()
	m := NewManager()
	m.Create("q1", 0, 0)
	m.Publish("q1", []byte("low"), 1, 0)
	m.Publish("q1", []byte("high"), 10, 0)
	m.Publish("q1", []byte("mid"), 5, 0)

	first, err := m.Consume("q1", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "high", string(first.Payload))

	second, err := m.Consume("q1", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "mid", string(second.Payload))
}

func TestNackRequeuesThenDeadLetters(t *testing.T) {
	t.Parallel()
	m := NewManager()
	m.Create("q1", 0, 0)
	m.Publish("q1", []byte("payload"), 0, 2)

	msg, err := m.Consume("q1", time.Second)
	require.NoError(t, err)
	require.NoError(t, m.Nack("q1", msg.ID))

	stats, err := m.Stats("q1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Ready, "expected requeue after first nack")

	msg, err = m.Consume("q1", time.Second)
	require.NoError(t, err)
	require.NoError(t, m.Nack("q1", msg.ID))

	stats, err = m.Stats("q1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DLQ, "expected dead-lettered after exhausting retries")
	assert.Zero(t, stats.Ready)
}

func TestQueueFull(t *testing.T) {
	t.Parallel()
	m := NewManager()
	m.Create("q1", 1, 0)
	_, err := m.Publish("q1", []byte("a"), 0, 0)
	require.NoError(t, err)

	_, err = m.Publish("q1", []byte("b"), 0, 0)
	assert.True(t, synaperr.Is(err, synaperr.KindQueueFull))
}

func TestSweepExpiredRequeuesTimedOutMessages(t *testing.T) {
	t.Parallel()
	m := NewManager()
	m.Create("q1", 0, 0)
	m.Publish("q1", []byte("payload"), 0, 0)

	_, err := m.Consume("q1", time.Millisecond)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	n := m.SweepExpired(10)
	assert.Equal(t, 1, n)

	stats, err := m.Stats("q1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Ready)
	assert.Zero(t, stats.Pending)
}

func TestQueueNotFound(t *testing.T) {
	t.Parallel()
	m := NewManager()
	_, err := m.Publish("missing", []byte("x"), 0, 0)
	assert.True(t, synaperr.Is(err, synaperr.KindQueueNotFound))
}
