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
	"strings"
	"sync"
	"time"
)

// representation is the capability set both shard storage variants
// implement (spec §9: "Polymorphic representation (map/trie)... define a
// capability set {get, set, delete, scan, len, keys}; the shard holds one
// variant tag and dispatches accordingly. No inheritance.").
type representation interface {
	get(key string) (*value, bool)
	set(key string, v *value)
	delete(key string) bool
	len() int
	scanPrefix(prefix string, limit int) []string
	forEach(f func(key string, v *value) bool)
}

// mapRepr is the "small" representation: a plain hash map. Cheap random
// access, linear prefix scans.
type mapRepr struct {
	m map[string]*value
}

func newMapRepr() *mapRepr { return &mapRepr{m: make(map[string]*value)} }

func (m *mapRepr) get(key string) (*value, bool) { v, ok := m.m[key]; return v, ok }
func (m *mapRepr) set(key string, v *value)       { m.m[key] = v }
func (m *mapRepr) delete(key string) bool {
	if _, ok := m.m[key]; !ok {
		return false
	}
	delete(m.m, key)
	return true
}
func (m *mapRepr) len() int { return len(m.m) }

func (m *mapRepr) scanPrefix(prefix string, limit int) []string {
	var out []string
	for k := range m.m {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *mapRepr) forEach(f func(key string, v *value) bool) {
	for k, v := range m.m {
		if !f(k, v) {
			return
		}
	}
}

// trieRepr adapts radixTrie to the representation interface.
type trieRepr struct{ t *radixTrie }

func (r *trieRepr) get(key string) (*value, bool)  { return r.t.get(key) }
func (r *trieRepr) set(key string, v *value)        { r.t.set(key, v) }
func (r *trieRepr) delete(key string) bool           { return r.t.delete(key) }
func (r *trieRepr) len() int                         { return r.t.len() }
func (r *trieRepr) scanPrefix(p string, l int) []string { return r.t.scanPrefix(p, l) }
func (r *trieRepr) forEach(f func(key string, v *value) bool) { r.t.forEach(f) }

// shard owns an exclusive slice of the key space. Concurrent operations on
// distinct shards never contend; every operation on this shard takes mu.
type shard struct {
	mu            sync.RWMutex
	repr          representation
	upgradeAt     int
	hits, misses  uint64
}

func newShard(upgradeAt int) *shard {
	return &shard{repr: newMapRepr(), upgradeAt: upgradeAt}
}

// maybeUpgrade promotes a map shard to a trie once it crosses upgradeAt
// keys. Per spec §3/§9 the threshold is evaluated per shard and the
// upgrade is one-way: a trie shard is never rebuilt back into a map.
func (s *shard) maybeUpgrade() {
	if _, isTrie := s.repr.(*trieRepr); isTrie {
		return
	}
	if s.repr.len() < s.upgradeAt {
		return
	}
	trie := newRadixTrie()
	s.repr.forEach(func(k string, v *value) bool {
		trie.set(k, v)
		return true
	})
	s.repr = &trieRepr{t: trie}
}

func (s *shard) get(key string, now time.Time) (*value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.repr.get(key)
	if !ok {
		s.misses++
		return nil, false
	}
	if v.expired(now) {
		s.repr.delete(key)
		s.misses++
		return nil, false
	}
	v.touch()
	s.hits++
	return v, true
}

// peek looks a key up without mutating access statistics — used by
// Index.Set and Index.Delete for memory accounting so they never perturb
// LRU/LFU ordering.
func (s *shard) peek(key string) (*value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.repr.get(key)
}

func (s *shard) set(key string, v *value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repr.set(key, v)
	s.maybeUpgrade()
}

func (s *shard) delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repr.delete(key)
}

func (s *shard) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.repr.len()
}

func (s *shard) scanPrefix(prefix string, limit int, now time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	candidates := s.repr.scanPrefix(prefix, 0)
	out := make([]string, 0, len(candidates))
	for _, k := range candidates {
		v, _ := s.repr.get(k)
		if v != nil && v.expired(now) {
			continue
		}
		out = append(out, k)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// forEach visits every live (key, value) pair under the shard lock. The
// callback must not call back into the shard.
func (s *shard) forEach(f func(key string, v *value) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.repr.forEach(f)
}

// sample returns up to n (key, value) pairs for approximate eviction
// selection without walking the whole shard.
func (s *shard) sample(n int) []struct {
	key string
	val *value
} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []struct {
		key string
		val *value
	}
	s.repr.forEach(func(k string, v *value) bool {
		out = append(out, struct {
			key string
			val *value
		}{k, v})
		return len(out) < n
	})
	return out
}

func (s *shard) flush() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.repr.len()
	s.repr = newMapRepr()
	return n
}
