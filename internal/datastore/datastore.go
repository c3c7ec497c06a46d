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

// Package datastore implements the secondary structured containers layered
// on top of the same sharding discipline as internal/kv: hash, list, set,
// and sorted-set, each keyed by a top-level container name and sharded by
// that name so a single container's operations never cross a lock boundary
// (§4.1b / spec.md component C).
package datastore

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	"synap/internal/synaperr"
)

const defaultShards = 64

// Store owns every hash/list/set/sorted-set container. It mirrors
// kv.Index's shard-per-hash-bucket layout (internal/kv/index.go) rather
// than sharing code with it, since the container value shapes differ
// enough that a common representation interface would not pay for itself.
type Store struct {
	shards []*shard
	mask   uint64
}

type shard struct {
	mu     sync.RWMutex
	hashes map[string]map[string][]byte
	lists  map[string][][]byte
	sets   map[string]map[string]struct{}
	zsets  map[string]map[string]float64
}

func newShard() *shard {
	return &shard{
		hashes: make(map[string]map[string][]byte),
		lists:  make(map[string][][]byte),
		sets:   make(map[string]map[string]struct{}),
		zsets:  make(map[string]map[string]float64),
	}
}

// New builds a Store with numShards shards (defaulting to 64, matching
// kv.Index's default).
func New(numShards int) *Store {
	if numShards <= 0 {
		numShards = defaultShards
	}
	shards := make([]*shard, numShards)
	for i := range shards {
		shards[i] = newShard()
	}
	return &Store{shards: shards, mask: uint64(numShards - 1)}
}

func (s *Store) shardFor(key string) *shard {
	h := xxhash.Sum64String(key)
	return s.shards[h&s.mask]
}

// --- hash -------------------------------------------------------------

func (s *Store) HSet(key, field string, val []byte) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	h, ok := sh.hashes[key]
	if !ok {
		h = make(map[string][]byte)
		sh.hashes[key] = h
	}
	h[field] = val
}

func (s *Store) HGet(key, field string) ([]byte, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	h, ok := sh.hashes[key]
	if !ok {
		return nil, false
	}
	v, ok := h[field]
	return v, ok
}

// HDel removes field from key's hash and reports whether it was present.
func (s *Store) HDel(key, field string) bool {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	h, ok := sh.hashes[key]
	if !ok {
		return false
	}
	if _, ok := h[field]; !ok {
		return false
	}
	delete(h, field)
	if len(h) == 0 {
		delete(sh.hashes, key)
	}
	return true
}

// HGetAll returns a snapshot copy of every field in key's hash.
func (s *Store) HGetAll(key string) map[string][]byte {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	h, ok := sh.hashes[key]
	if !ok {
		return nil
	}
	out := make(map[string][]byte, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// --- list ---------------------------------------------------------------

func (s *Store) LPush(key string, val []byte) int {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.lists[key] = append([][]byte{val}, sh.lists[key]...)
	return len(sh.lists[key])
}

func (s *Store) RPush(key string, val []byte) int {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.lists[key] = append(sh.lists[key], val)
	return len(sh.lists[key])
}

func (s *Store) LPop(key string) ([]byte, bool) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	l := sh.lists[key]
	if len(l) == 0 {
		return nil, false
	}
	v := l[0]
	sh.lists[key] = l[1:]
	if len(sh.lists[key]) == 0 {
		delete(sh.lists, key)
	}
	return v, true
}

func (s *Store) RPop(key string) ([]byte, bool) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	l := sh.lists[key]
	if len(l) == 0 {
		return nil, false
	}
	v := l[len(l)-1]
	sh.lists[key] = l[:len(l)-1]
	if len(sh.lists[key]) == 0 {
		delete(sh.lists, key)
	}
	return v, true
}

// LRange returns a copy of elements in [start, stop] (inclusive, 0-based,
// negative indices count from the end, following the conventional list
// range contract).
func (s *Store) LRange(key string, start, stop int) [][]byte {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	l := sh.lists[key]
	n := len(l)
	if n == 0 {
		return nil
	}
	start = normalizeIndex(start, n)
	stop = normalizeIndex(stop, n)
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop {
		return nil
	}
	out := make([][]byte, stop-start+1)
	copy(out, l[start:stop+1])
	return out
}

func normalizeIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	return i
}

// --- set ------------------------------------------------------------

func (s *Store) SAdd(key, member string) bool {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	set, ok := sh.sets[key]
	if !ok {
		set = make(map[string]struct{})
		sh.sets[key] = set
	}
	if _, exists := set[member]; exists {
		return false
	}
	set[member] = struct{}{}
	return true
}

func (s *Store) SRem(key, member string) bool {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	set, ok := sh.sets[key]
	if !ok {
		return false
	}
	if _, exists := set[member]; !exists {
		return false
	}
	delete(set, member)
	if len(set) == 0 {
		delete(sh.sets, key)
	}
	return true
}

func (s *Store) SIsMember(key, member string) bool {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	_, exists := sh.sets[key][member]
	return exists
}

// SMembers returns the set's members in deterministic (sorted) order so
// callers get reproducible output across calls.
func (s *Store) SMembers(key string) []string {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	set := sh.sets[key]
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// --- sorted set -------------------------------------------------------

func (s *Store) ZAdd(key, member string, score float64) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	z, ok := sh.zsets[key]
	if !ok {
		z = make(map[string]float64)
		sh.zsets[key] = z
	}
	z[member] = score
}

func (s *Store) ZRem(key, member string) bool {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	z, ok := sh.zsets[key]
	if !ok {
		return false
	}
	if _, exists := z[member]; !exists {
		return false
	}
	delete(z, member)
	if len(z) == 0 {
		delete(sh.zsets, key)
	}
	return true
}

func (s *Store) ZScore(key, member string) (float64, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	score, ok := sh.zsets[key][member]
	return score, ok
}

// ZMember pairs a member with its score for ZRange output.
type ZMember struct {
	Member string
	Score  float64
}

// ZRange returns members in [start, stop] (inclusive, 0-based, negative
// indices count from the end) ordered by score ascending, ties broken
// lexicographically by member (spec §4.1b).
func (s *Store) ZRange(key string, start, stop int) []ZMember {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	z := sh.zsets[key]
	all := make([]ZMember, 0, len(z))
	for m, sc := range z {
		all = append(all, ZMember{Member: m, Score: sc})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score < all[j].Score
		}
		return all[i].Member < all[j].Member
	})
	n := len(all)
	if n == 0 {
		return nil
	}
	start = normalizeIndex(start, n)
	stop = normalizeIndex(stop, n)
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop {
		return nil
	}
	return all[start : stop+1]
}

// KeyNotFound is returned by callers (the dispatcher) when a container
// operation needs a stable not-found error; the store itself reports
// presence via bool returns so callers can decide whether absence is an
// error in their context.
var errKeyNotFound = synaperr.New(synaperr.KindKeyNotFound, "key not found")

// ErrKeyNotFound exposes the stable not-found error for dispatcher use.
func ErrKeyNotFound() error { return errKeyNotFound }
