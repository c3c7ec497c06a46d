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

// Package cluster implements hash-slot routing, topology tracking, slot
// migration, and failure detection (spec component M).
package cluster

// NumSlots is the fixed cluster-wide slot count (spec §4.11).
const NumSlots = 16384

// crc16Table is the CCITT polynomial table (0x1021) used by Redis
// Cluster for CRC16. No CRC16 library exists anywhere in the retrieval
// pack (hash/crc32 is stdlib and covers only CRC32), so this table and
// crc16 are hand-rolled from the well-known Redis polynomial/init value,
// the same way internal/wal hand-rolls its CRC32 framing checksum from
// stdlib.
var crc16Table = func() [256]uint16 {
	const poly = 0x1021
	var table [256]uint16
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}()

// crc16 computes CRC16/CCITT with initial value 0, matching Redis's
// `crc16` used for hash slot computation.
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = (crc << 8) ^ crc16Table[byte(crc>>8)^b]
	}
	return crc
}

// HashSlot computes the cluster hash slot for key (spec §4.11): CRC16 of
// the key (or its hash tag, if present) mod NumSlots.
func HashSlot(key string) int {
	tag := extractHashTag(key)
	if tag != "" {
		key = tag
	}
	return int(crc16([]byte(key))) % NumSlots
}

// extractHashTag returns the substring inside the first "{...}" in key,
// provided it is non-empty, per spec §4.11 ("if the key contains {tag}
// with non-empty tag, hash only tag"). Returns "" if no valid tag is
// present, in which case the whole key is hashed.
func extractHashTag(key string) string {
	start := -1
	for i := 0; i < len(key); i++ {
		if key[i] == '{' {
			start = i
			break
		}
	}
	if start == -1 {
		return ""
	}
	end := -1
	for i := start + 1; i < len(key); i++ {
		if key[i] == '}' {
			end = i
			break
		}
	}
	if end == -1 || end == start+1 {
		return ""
	}
	return key[start+1 : end]
}
