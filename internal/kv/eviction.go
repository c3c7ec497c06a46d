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

package kv

import "math/rand"

// evictOne removes a single entry chosen by the configured policy,
// sampling a small random set of keys from each shard, one shard lock at a
// time, and evicting the worst candidate across all samples rather than
// taking a global lock (spec §4.1: "approximate, to avoid global locks").
// It reports whether anything was evicted.
func (idx *Index) evictOne() bool {
	order := rand.Perm(len(idx.shards))
	var victimShard *shard
	var victimKey string
	var victimVal *value
	for _, i := range order {
		sh := idx.shards[i]
		entries := sh.sample(idx.opts.SampleSize)
		if len(entries) == 0 {
			continue
		}
		best := 0
		for i := 1; i < len(entries); i++ {
			if idx.worseThan(entries[i].val, entries[best].val) {
				best = i
			}
		}
		if victimVal == nil || idx.worseThan(entries[best].val, victimVal) {
			victimShard, victimKey, victimVal = sh, entries[best].key, entries[best].val
		}
	}
	if victimShard == nil || !victimShard.delete(victimKey) {
		return false
	}
	idx.memUsed.Add(-int64(len(victimVal.data)))
	if idx.cache != nil {
		idx.cache.invalidate(victimKey)
	}
	return true
}

// worseThan reports whether candidate is a better eviction target than
// current under the active policy (smaller is evicted first).
func (idx *Index) worseThan(candidate, current *value) bool {
	switch idx.opts.Eviction {
	case EvictLFU:
		return candidate.freq < current.freq
	case EvictTTL:
		return rankTTL(candidate) < rankTTL(current)
	default: // EvictLRU and fallback
		return candidate.lastAccess < current.lastAccess
	}
}

// rankTTL orders expiring entries before persistent ones (which never
// expire and rank last), and among expiring entries by nearest deadline.
func rankTTL(v *value) int64 {
	if v.expiresAt == 0 {
		return int64(^uint64(0) >> 1) // max int64: persistent entries evict last
	}
	return v.expiresAt
}
