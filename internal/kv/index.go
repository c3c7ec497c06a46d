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

import (
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"synap/internal/synaperr"
)

// EvictionPolicy selects how Index reclaims memory once MaxMemoryBytes is
// exceeded (spec §4.1).
type EvictionPolicy string

const (
	EvictNone EvictionPolicy = "none"
	EvictLRU  EvictionPolicy = "lru"
	EvictLFU  EvictionPolicy = "lfu"
	EvictTTL  EvictionPolicy = "ttl"
)

// Options configures an Index.
type Options struct {
	// NumShards must be a power of two; defaults to 64.
	NumShards int
	// UpgradeThreshold is the per-shard key count at which a shard
	// promotes from map to radix trie representation; defaults to 10000.
	UpgradeThreshold int
	// MaxMemoryBytes bounds the approximate memory Index tracks via
	// stored payload sizes. Zero disables the limit.
	MaxMemoryBytes int64
	// Eviction selects the reclaim policy once MaxMemoryBytes is hit.
	Eviction EvictionPolicy
	// SampleSize bounds how many keys an approximate LRU/LFU/TTL
	// eviction sweep samples per shard (spec §4.1: "across a small
	// random sample per shard").
	SampleSize int
}

func (o *Options) setDefaults() {
	if o.NumShards <= 0 {
		o.NumShards = 64
	}
	if o.UpgradeThreshold <= 0 {
		o.UpgradeThreshold = 10000
	}
	if o.SampleSize <= 0 {
		o.SampleSize = 5
	}
	if o.Eviction == "" {
		o.Eviction = EvictNone
	}
}

// Stats is the snapshot returned by Index.Stats.
type Stats struct {
	Count    int64
	Bytes    int64
	Hits     uint64
	Misses   uint64
	HitRate  float64
}

// Index is the sharded KV index (spec §4.1 / component B). Each shard owns
// an exclusive slice of the key space chosen by a fast non-cryptographic
// hash of the key (xxhash).
type Index struct {
	shards  []*shard
	mask    uint64
	opts    Options
	memUsed atomic.Int64
	cache   *L1Cache
}

// New builds an Index. cache may be nil to disable the L1 read-through
// cache entirely (spec §4.1: "The cache is advisory").
func New(opts Options, cache *L1Cache) *Index {
	opts.setDefaults()
	n := opts.NumShards
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = newShard(opts.UpgradeThreshold)
	}
	return &Index{shards: shards, mask: uint64(n - 1), opts: opts, cache: cache}
}

func (idx *Index) shardFor(key string) *shard {
	h := xxhash.Sum64String(key)
	return idx.shards[h&idx.mask]
}

// Get returns the value for key, or (nil, false) if absent or expired.
func (idx *Index) Get(key string) ([]byte, bool) {
	if idx.cache != nil {
		if data, ok := idx.cache.get(key); ok {
			return data, true
		}
	}
	now := time.Now()
	v, ok := idx.shardFor(key).get(key, now)
	if !ok {
		return nil, false
	}
	if idx.cache != nil {
		idx.cache.put(key, v.data)
	}
	return v.data, true
}

// Exists reports whether key is present and unexpired, without populating
// the L1 cache (a pure membership check should not perturb cache state any
// more than a Get already does, but callers that only check existence
// should not pay the extra cache write).
func (idx *Index) Exists(key string) bool {
	_, ok := idx.shardFor(key).get(key, time.Now())
	return ok
}

// Set stores key=val. ttl<=0 means persistent; ttl>0 creates an expiring
// entry with that time-to-live, its deadline kept in whole Unix seconds
// (rounded down), so a ttl under one second can expire at once. It fails with MemoryLimitExceeded if
// MaxMemoryBytes is set, the write would exceed it, and the eviction policy
// is EvictNone (spec §4.1).
func (idx *Index) Set(key string, val []byte, ttl time.Duration) error {
	sh := idx.shardFor(key)
	old, existed := sh.peek(key)
	delta := int64(len(val))
	if existed {
		delta -= int64(len(old.data))
	}
	if err := idx.admit(delta); err != nil {
		return err
	}
	var v *value
	if ttl > 0 {
		v = newExpiring(val, ttl)
	} else {
		v = newPersistent(val)
	}
	sh.set(key, v)
	idx.memUsed.Add(delta)
	if idx.cache != nil {
		idx.cache.put(key, val)
	}
	return nil
}

// admit ensures that adding delta bytes will not exceed MaxMemoryBytes,
// evicting under the configured policy as needed first.
func (idx *Index) admit(delta int64) error {
	if idx.opts.MaxMemoryBytes <= 0 || delta <= 0 {
		return nil
	}
	for idx.memUsed.Load()+delta > idx.opts.MaxMemoryBytes {
		if idx.opts.Eviction == EvictNone {
			return synaperr.New(synaperr.KindMemoryLimitExceeded, "max_memory_mb exceeded and eviction policy is none")
		}
		if !idx.evictOne() {
			return synaperr.New(synaperr.KindMemoryLimitExceeded, "max_memory_mb exceeded and nothing left to evict")
		}
	}
	return nil
}

// Delete removes key, reporting whether it was present.
func (idx *Index) Delete(key string) bool {
	sh := idx.shardFor(key)
	old, existed := sh.peek(key)
	if !existed {
		return false
	}
	sh.delete(key)
	idx.memUsed.Add(-int64(len(old.data)))
	if idx.cache != nil {
		idx.cache.invalidate(key)
	}
	return true
}

// Incr adds delta to the integer value stored at key (creating it at 0 if
// absent) and returns the new value. It fails with InvalidValue if the
// stored value is not a valid base-10 integer, and fails (rather than
// wrapping) on overflow.
func (idx *Index) Incr(key string, delta int64) (int64, error) {
	sh := idx.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	now := time.Now()
	v, ok := sh.repr.get(key)
	var cur int64
	if ok {
		if v.expired(now) {
			sh.repr.delete(key)
			ok = false
		} else {
			n, err := strconv.ParseInt(string(v.data), 10, 64)
			if err != nil {
				return 0, synaperr.New(synaperr.KindInvalidValue, "value is not an integer")
			}
			cur = n
		}
	}
	next, overflow := addOverflow(cur, delta)
	if overflow {
		return 0, synaperr.New(synaperr.KindInvalidValue, "increment would overflow int64")
	}
	data := []byte(strconv.FormatInt(next, 10))
	if ok {
		oldLen := len(v.data)
		v.data = data
		idx.memUsed.Add(int64(len(data) - oldLen))
	} else {
		sh.repr.set(key, newPersistent(data))
		idx.memUsed.Add(int64(len(data)))
		sh.maybeUpgrade()
	}
	if idx.cache != nil {
		idx.cache.put(key, data)
	}
	return next, nil
}

// Decr is Incr with the delta negated.
func (idx *Index) Decr(key string, delta int64) (int64, error) {
	if delta == minInt64 {
		return 0, synaperr.New(synaperr.KindInvalidValue, "decrement would overflow int64")
	}
	return idx.Incr(key, -delta)
}

const minInt64 = -1 << 63

func addOverflow(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, true
	}
	return sum, false
}

// ScanOptions controls Scan/Keys behavior.
type ScanOptions struct {
	Prefix        string
	Limit         int
	Deterministic bool
}

// Scan returns up to Limit keys with the given Prefix. Each shard is
// scanned independently and results are concatenated in shard order; the
// whole operation is not globally atomic (spec §4.1/§5) but each shard's
// slice is a consistent point-in-time read.
func (idx *Index) Scan(opts ScanOptions) []string {
	now := time.Now()
	var out []string
	remaining := opts.Limit
	for _, sh := range idx.shards {
		if opts.Limit > 0 && remaining <= 0 {
			break
		}
		lim := 0
		if opts.Limit > 0 {
			lim = remaining
		}
		keys := sh.scanPrefix(opts.Prefix, lim, now)
		out = append(out, keys...)
		remaining -= len(keys)
	}
	if opts.Deterministic {
		sort.Strings(out)
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

// Keys is Scan without a result cap other than the prefix filter.
func (idx *Index) Keys(prefix string) []string {
	return idx.Scan(ScanOptions{Prefix: prefix, Deterministic: true})
}

// Stats reports aggregate counters across all shards. HitRate is computed
// from the shards' own hit/miss counters; it does not include the L1
// cache's hit rate.
func (idx *Index) Stats() Stats {
	var count int64
	var hits, misses uint64
	for _, sh := range idx.shards {
		sh.mu.RLock()
		count += int64(sh.repr.len())
		hits += sh.hits
		misses += sh.misses
		sh.mu.RUnlock()
	}
	st := Stats{Count: count, Bytes: idx.memUsed.Load(), Hits: hits, Misses: misses}
	if hits+misses > 0 {
		st.HitRate = float64(hits) / float64(hits+misses)
	}
	return st
}

// ShardCounts returns the live key count of each shard, in shard order, for
// the monitoring keyspace section (spec §4.12: "keyspace (per-shard
// counts)").
func (idx *Index) ShardCounts() []int64 {
	counts := make([]int64, len(idx.shards))
	for i, sh := range idx.shards {
		sh.mu.RLock()
		counts[i] = int64(sh.repr.len())
		sh.mu.RUnlock()
	}
	return counts
}

// FlushDB removes every key from every shard and returns the count removed.
func (idx *Index) FlushDB() int64 {
	var n int64
	for _, sh := range idx.shards {
		n += int64(sh.flush())
	}
	idx.memUsed.Store(0)
	if idx.cache != nil {
		idx.cache.clear()
	}
	return n
}

// SweepExpired walks a bounded sample of shards looking for expired keys
// and deletes them eagerly. It is meant to be called from a periodic
// scheduler tick (spec §4.1: "The sweep must bound wall-clock time per
// tick"); budget caps how many keys are inspected in this call.
func (idx *Index) SweepExpired(budget int) int {
	if budget <= 0 {
		return 0
	}
	now := time.Now()
	removed := 0
	inspected := 0
	for _, sh := range idx.shards {
		if inspected >= budget {
			break
		}
		var expiredKeys []string
		sh.forEach(func(k string, v *value) bool {
			inspected++
			if v.expired(now) {
				expiredKeys = append(expiredKeys, k)
			}
			return inspected < budget
		})
		for _, k := range expiredKeys {
			if sh.delete(k) {
				removed++
				if idx.cache != nil {
					idx.cache.invalidate(k)
				}
			}
		}
	}
	return removed
}
