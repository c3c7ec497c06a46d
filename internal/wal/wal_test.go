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

package wal

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndReadAllRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	l, err := Open(Options{Dir: dir, FsyncPolicy: FsyncAlways}, 0)
	require.NoError(t, err)

	o0, err := l.Append([]byte("op-a"), DurabilitySynced)
	require.NoError(t, err)
	o1, err := l.Append([]byte("op-b"), DurabilitySynced)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), o0)
	assert.Equal(t, uint64(1), o1)
	require.NoError(t, l.Close())

	entries, err := ReadAll(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "op-a", string(entries[0].Op))
	assert.Equal(t, "op-b", string(entries[1].Op))
}

func TestRotationCreatesNewSegment(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	l, err := Open(Options{Dir: dir, FsyncPolicy: FsyncAlways, MaxSizeMB: 0}, 0)
	require.NoError(t, err)
	// force a tiny effective max so the second append rotates
	l.maxSizeBytes = 40

	_, err = l.Append([]byte("small"), DurabilitySynced)
	require.NoError(t, err)
	_, err = l.Append([]byte("another-entry-that-forces-rotation"), DurabilitySynced)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 2, "expected rotation to create a second segment file")
}

func TestReadAllDiscardsTruncatedTrailingEntry(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	l, err := Open(Options{Dir: dir, FsyncPolicy: FsyncAlways}, 0)
	require.NoError(t, err)
	_, err = l.Append([]byte("good"), DurabilitySynced)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	f, err := os.OpenFile(l.segmentPath(0), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	entries, err := ReadAll(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "good", string(entries[0].Op))
}

func TestNextOffsetResumesFromStartOffset(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	l, err := Open(Options{Dir: dir}, 42)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), l.NextOffset())
}
