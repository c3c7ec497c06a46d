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

package cluster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synap/internal/synaperr"
)

func TestHashSlotIsWithinRange(t *testing.T) {
	t.Parallel()
	slot := HashSlot("user:1001")
	assert.GreaterOrEqual(t, slot, 0)
	assert.Less(t, slot, NumSlots)
}

func TestHashTagCoLocatesKeys(t *testing.T) {
	t.Parallel()
	a := HashSlot("user:{1001}:profile")
	b := HashSlot("user:{1001}:settings")
	c := HashSlot("{1001}")
	assert.Equal(t, a, b)
	assert.Equal(t, b, c)
}

func TestHashSlotWithoutTagIsStable(t *testing.T) {
	t.Parallel()
	first := HashSlot("user:1001")
	second := HashSlot("user:1001")
	assert.Equal(t, first, second)
}

func TestExtractHashTagEmptyBracesFallsBackToWholeKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", extractHashTag("user:{}:profile"))
}

func TestTopologyFullyCoveredRequiresEveryOwnerSet(t *testing.T) {
	t.Parallel()
	topo := NewTopology("node-a")
	assert.False(t, topo.FullyCovered())
	topo.AssignRange(0, NumSlots-1, "node-a")
	assert.True(t, topo.FullyCovered())
}

func TestCheckReturnsNilForOwnedSlot(t *testing.T) {
	t.Parallel()
	topo := NewTopology("node-a")
	topo.AddNode(Node{ID: "node-a", Address: "10.0.0.1:7000"})
	topo.AssignRange(0, NumSlots-1, "node-a")

	err := topo.Check("any-key")
	assert.NoError(t, err)
}

func TestCheckReturnsMovedForForeignSlot(t *testing.T) {
	t.Parallel()
	topo := NewTopology("node-a")
	topo.AddNode(Node{ID: "node-b", Address: "10.0.0.2:7000"})
	topo.AssignRange(0, NumSlots-1, "node-b")

	err := topo.Check("any-key")
	require.Error(t, err)
	assert.True(t, synaperr.Is(err, synaperr.KindMoved))
}

func TestCheckReturnsAskForImportingSlot(t *testing.T) {
	t.Parallel()
	topo := NewTopology("node-a")
	topo.AddNode(Node{ID: "node-b", Address: "10.0.0.2:7000"})
	slot := HashSlot("migrating-key")
	topo.MarkImporting(slot, "node-b")

	err := topo.Check("migrating-key")
	require.Error(t, err)
	assert.True(t, synaperr.Is(err, synaperr.KindAsk))
}

type fakeMover struct {
	keys  []string
	moved []string
}

func (f *fakeMover) Keys(slot int) []string { return f.keys }
func (f *fakeMover) Move(key, dest string) error {
	f.moved = append(f.moved, key)
	return nil
}

func TestMigrationThreePhases(t *testing.T) {
	t.Parallel()
	src := NewTopology("node-a")
	slot := HashSlot("migrating-key")
	src.AssignSlot(slot, "node-a")

	require.NoError(t, src.BeginMigration(slot, "node-b"))
	assert.Equal(t, SlotMigrating, src.Slot(slot).Status)

	mover := &fakeMover{keys: []string{"k1", "k2"}}
	moved, err := src.StreamSlot(slot, mover, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)
	assert.ElementsMatch(t, []string{"k1", "k2"}, mover.moved)

	src.FinishMigration(slot, "node-b")
	info := src.Slot(slot)
	assert.Equal(t, SlotStable, info.Status)
	assert.Equal(t, "node-b", info.Owner)
}

func TestCheckTimeoutsMarksStaleNodesOffline(t *testing.T) {
	t.Parallel()
	topo := NewTopology("node-a")
	topo.AddNode(Node{ID: "node-b", Address: "x"})
	topo.Heartbeat("node-b", time.Now().Add(-time.Hour))

	timedOut := topo.CheckTimeouts(time.Now(), 5*time.Second)
	require.Len(t, timedOut, 1)
	assert.Equal(t, "node-b", timedOut[0])

	n, ok := topo.Node("node-b")
	require.True(t, ok)
	assert.Equal(t, NodeOffline, n.State)
}

func TestPickReplacementIsDeterministicAcrossCalls(t *testing.T) {
	t.Parallel()
	candidates := []string{"replica-1", "replica-2", "replica-3"}
	first, ok := PickReplacement("master-1", candidates)
	require.True(t, ok)
	second, ok := PickReplacement("master-1", candidates)
	require.True(t, ok)
	assert.Equal(t, first, second)
	assert.Contains(t, candidates, first)
}

func TestPickReplacementNoCandidates(t *testing.T) {
	t.Parallel()
	_, ok := PickReplacement("master-1", nil)
	assert.False(t, ok)
}
