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

// Package kv implements the sharded KV index: a hybrid map/trie
// representation per shard, TTL expiry, LRU/LFU/TTL eviction, and an
// adaptive L1 read cache in front of it. Each shard is an independently
// locked container of per-key entries with a last-access timestamp,
// choosing between a hash map and a radix trie as it grows.
package kv

import "time"

// value is the stored entry. The persistent/expiring duality from spec §3
// is represented by expiresAt: zero means persistent, non-zero is an
// absolute Unix-second deadline.
type value struct {
	data       []byte
	expiresAt  int64 // unix seconds; 0 = no expiry
	lastAccess int64 // unix nano, updated on every read
	freq       uint32 // LFU access counter
}

func newPersistent(data []byte) *value {
	return &value{data: data, lastAccess: time.Now().UnixNano()}
}

func newExpiring(data []byte, ttl time.Duration) *value {
	return &value{
		data:       data,
		expiresAt:  time.Now().Add(ttl).Unix(),
		lastAccess: time.Now().UnixNano(),
	}
}

// expired reports whether the value must be treated as absent at time now.
func (v *value) expired(now time.Time) bool {
	return v.expiresAt > 0 && v.expiresAt <= now.Unix()
}

func (v *value) touch() {
	v.lastAccess = time.Now().UnixNano()
	v.freq++
}

func (v *value) clone() *value {
	cp := *v
	cp.data = append([]byte(nil), v.data...)
	return &cp
}
