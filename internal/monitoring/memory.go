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

package monitoring

import "unsafe"

// wordSize approximates the per-value/per-pointer overhead a Go map or
// slice header carries on a 64-bit platform, used only to keep the byte
// estimate realistic for container types with no payload of their own
// (e.g. a set's presence-only members).
const wordSize = int(unsafe.Sizeof(uintptr(0)))

// EstimateBytes walks a stored value and returns an approximate memory
// footprint in bytes (spec §4.12: "Memory-usage query per key walks the
// container and returns a byte estimate"). It is deliberately approximate —
// Go's runtime gives no cheap exact accounting for map/slice overhead — but
// stable enough to compare keys against each other and to budget against
// kv.Options.MaxMemoryBytes.
func EstimateBytes(v any) int64 {
	switch t := v.(type) {
	case nil:
		return 0
	case []byte:
		return int64(len(t))
	case string:
		return int64(len(t))
	case map[string][]byte: // hash
		var n int64
		for k, val := range t {
			n += int64(len(k)) + int64(len(val)) + int64(wordSize)
		}
		return n
	case [][]byte: // list
		var n int64
		for _, val := range t {
			n += int64(len(val)) + int64(wordSize)
		}
		return n
	case map[string]struct{}: // set
		var n int64
		for k := range t {
			n += int64(len(k)) + int64(wordSize)
		}
		return n
	case []ScoredMember:
		var n int64
		for _, m := range t {
			n += int64(len(m.Member)) + 8 /* score */ + int64(wordSize)
		}
		return n
	default:
		return int64(wordSize)
	}
}

// ScoredMember mirrors internal/datastore's ZMember shape so callers can
// pass a sorted-set snapshot through EstimateBytes without this package
// importing internal/datastore.
type ScoredMember struct {
	Member string
	Score  float64
}
