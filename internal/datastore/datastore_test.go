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

package datastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashRoundTrip(t *testing.T) {
	t.Parallel()
	s := New(0)
	s.HSet("h1", "f1", []byte("v1"))
	s.HSet("h1", "f2", []byte("v2"))

	v, ok := s.HGet("h1", "f1")
	require.True(t, ok)
	assert.Equal(t, "v1", string(v))

	all := s.HGetAll("h1")
	assert.Len(t, all, 2)

	assert.True(t, s.HDel("h1", "f1"))
	assert.False(t, s.HDel("h1", "f1"))
	_, ok = s.HGet("h1", "f1")
	assert.False(t, ok)
}

func TestListPushPopAndRange(t *testing.T) {
	t.Parallel()
	s := New(0)
	s.RPush("l1", []byte("a"))
	s.RPush("l1", []byte("b"))
	s.LPush("l1", []byte("z"))

	got := s.LRange("l1", 0, -1)
	require.Len(t, got, 3)
	assert.Equal(t, "z", string(got[0]))
	assert.Equal(t, "a", string(got[1]))
	assert.Equal(t, "b", string(got[2]))

	v, ok := s.LPop("l1")
	require.True(t, ok)
	assert.Equal(t, "z", string(v))

	v, ok = s.RPop("l1")
	require.True(t, ok)
	assert.Equal(t, "b", string(v))

	_, ok = s.LPop("empty-key")
	assert.False(t, ok)
}

func TestSetMembership(t *testing.T) {
	t.Parallel()
	s := New(0)
	assert.True(t, s.SAdd("s1", "a"))
	assert.False(t, s.SAdd("s1", "a"), "duplicate add must report false")
	s.SAdd("s1", "b")

	assert.True(t, s.SIsMember("s1", "a"))
	assert.False(t, s.SIsMember("s1", "z"))
	assert.Equal(t, []string{"a", "b"}, s.SMembers("s1"))

	assert.True(t, s.SRem("s1", "a"))
	assert.False(t, s.SRem("s1", "a"))
}

func TestZSetOrdering(t *testing.T) {
	t.Parallel()
	s := New(0)
	s.ZAdd("z1", "alice", 3)
	s.ZAdd("z1", "bob", 1)
	s.ZAdd("z1", "carl", 1)

	got := s.ZRange("z1", 0, -1)
	require.Len(t, got, 3)
	assert.Equal(t, "bob", got[0].Member)
	assert.Equal(t, "carl", got[1].Member)
	assert.Equal(t, "alice", got[2].Member)

	score, ok := s.ZScore("z1", "alice")
	require.True(t, ok)
	assert.Equal(t, 3.0, score)

	assert.True(t, s.ZRem("z1", "alice"))
	_, ok = s.ZScore("z1", "alice")
	assert.False(t, ok)
}
