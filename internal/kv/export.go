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

// Entry is a point-in-time export of one stored key, used by
// internal/snapshot to capture and restore Index state.
type Entry struct {
	Key       string
	Data      []byte
	ExpiresAt int64 // unix seconds; 0 = no expiry
}

// Export walks every shard and returns a snapshot of all live entries. It
// is not a single atomic operation across shards (each shard's slice is
// consistent; the whole is a fuzzy snapshot), matching Scan's documented
// behavior.
func (idx *Index) Export() []Entry {
	var out []Entry
	for _, sh := range idx.shards {
		sh.forEach(func(k string, v *value) bool {
			out = append(out, Entry{Key: k, Data: append([]byte(nil), v.data...), ExpiresAt: v.expiresAt})
			return true
		})
	}
	return out
}

// Import loads entries into an empty Index, bypassing the memory-limit
// admission check since recovery/snapshot-load must restore exactly what
// was captured, not re-validate it against the live policy.
func (idx *Index) Import(entries []Entry) {
	for _, e := range entries {
		v := &value{data: e.Data, expiresAt: e.ExpiresAt}
		idx.shardFor(e.Key).set(e.Key, v)
		idx.memUsed.Add(int64(len(e.Data)))
	}
}
