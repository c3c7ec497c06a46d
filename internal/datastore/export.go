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

// Snapshot is a full point-in-time export of every container, used by
// internal/snapshot to capture and restore Store state.
type Snapshot struct {
	Hashes map[string]map[string][]byte
	Lists  map[string][][]byte
	Sets   map[string]map[string]struct{}
	ZSets  map[string]map[string]float64
}

// Export collects every container across every shard into one Snapshot.
func (s *Store) Export() Snapshot {
	snap := Snapshot{
		Hashes: make(map[string]map[string][]byte),
		Lists:  make(map[string][][]byte),
		Sets:   make(map[string]map[string]struct{}),
		ZSets:  make(map[string]map[string]float64),
	}
	for _, sh := range s.shards {
		sh.mu.RLock()
		for k, v := range sh.hashes {
			snap.Hashes[k] = v
		}
		for k, v := range sh.lists {
			snap.Lists[k] = v
		}
		for k, v := range sh.sets {
			snap.Sets[k] = v
		}
		for k, v := range sh.zsets {
			snap.ZSets[k] = v
		}
		sh.mu.RUnlock()
	}
	return snap
}

// Import loads a Snapshot into an empty Store.
func (s *Store) Import(snap Snapshot) {
	for k, v := range snap.Hashes {
		sh := s.shardFor(k)
		sh.mu.Lock()
		sh.hashes[k] = v
		sh.mu.Unlock()
	}
	for k, v := range snap.Lists {
		sh := s.shardFor(k)
		sh.mu.Lock()
		sh.lists[k] = v
		sh.mu.Unlock()
	}
	for k, v := range snap.Sets {
		sh := s.shardFor(k)
		sh.mu.Lock()
		sh.sets[k] = v
		sh.mu.Unlock()
	}
	for k, v := range snap.ZSets {
		sh := s.shardFor(k)
		sh.mu.Lock()
		sh.zsets[k] = v
		sh.mu.Unlock()
	}
}
