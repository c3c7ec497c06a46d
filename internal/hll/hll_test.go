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

package hll

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPFAddPFCountWithinErrorBound(t *testing.T) {
	t.Parallel()

	s := New()
	const n = 100000
	for i := 0; i < n; i++ {
		_, err := s.PFAdd("visitors", []byte(fmt.Sprintf("user-%d", i)))
		require.NoError(t, err)
	}

	got, err := s.PFCount("visitors")
	require.NoError(t, err)

	errRate := math.Abs(float64(got)-n) / n
	assert.Lessf(t, errRate, 0.03, "estimate %d too far from actual %d", got, n)
}

func TestPFCountMissingKeyIsZero(t *testing.T) {
	t.Parallel()

	s := New()
	got, err := s.PFCount("nope")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got)
}

func TestPFCountUnionOfMultipleKeys(t *testing.T) {
	t.Parallel()

	s := New()
	for i := 0; i < 5000; i++ {
		_, err := s.PFAdd("a", []byte(fmt.Sprintf("shared-%d", i)))
		require.NoError(t, err)
	}
	for i := 2500; i < 7500; i++ {
		_, err := s.PFAdd("b", []byte(fmt.Sprintf("shared-%d", i)))
		require.NoError(t, err)
	}

	got, err := s.PFCount("a", "b")
	require.NoError(t, err)

	errRate := math.Abs(float64(got)-7500) / 7500
	assert.Lessf(t, errRate, 0.05, "union estimate %d too far from actual 7500", got)
}

func TestPFMergeFoldsSourcesIntoDest(t *testing.T) {
	t.Parallel()

	s := New()
	for i := 0; i < 3000; i++ {
		_, err := s.PFAdd("src1", []byte(fmt.Sprintf("x-%d", i)))
		require.NoError(t, err)
	}
	for i := 3000; i < 6000; i++ {
		_, err := s.PFAdd("src2", []byte(fmt.Sprintf("x-%d", i)))
		require.NoError(t, err)
	}

	require.NoError(t, s.PFMerge("dest", "src1", "src2"))

	got, err := s.PFCount("dest")
	require.NoError(t, err)
	errRate := math.Abs(float64(got)-6000) / 6000
	assert.Lessf(t, errRate, 0.05, "merged estimate %d too far from actual 6000", got)
}

func TestDeleteRemovesSketch(t *testing.T) {
	t.Parallel()

	s := New()
	_, err := s.PFAdd("temp", []byte("v"))
	require.NoError(t, err)

	assert.True(t, s.Delete("temp"))
	assert.False(t, s.Delete("temp"))

	got, err := s.PFCount("temp")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got)
}
