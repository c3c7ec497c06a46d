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

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// SlowEntry is one slow-log record (spec §4.12: "ring of the N most recent
// ops whose duration exceeded a threshold").
type SlowEntry struct {
	ID          uint64
	TS          time.Time
	DurationUS  int64
	Command     string
	ArgsSummary string
}

// slowLog is a fixed-capacity ring of SlowEntry, oldest overwritten first.
type slowLog struct {
	threshold time.Duration
	nextID    atomic.Uint64

	mu   sync.Mutex
	buf  []SlowEntry
	head int
	size int
}

func newSlowLog(threshold time.Duration, capacity int) *slowLog {
	if capacity <= 0 {
		capacity = 128
	}
	return &slowLog{threshold: threshold, buf: make([]SlowEntry, capacity)}
}

func (s *slowLog) record(command string, duration time.Duration, payload map[string]any) {
	if duration < s.threshold {
		return
	}
	entry := SlowEntry{
		ID:          s.nextID.Add(1),
		TS:          time.Now(),
		DurationUS:  duration.Microseconds(),
		Command:     command,
		ArgsSummary: summarizeArgs(payload),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf[s.head] = entry
	s.head = (s.head + 1) % len(s.buf)
	if s.size < len(s.buf) {
		s.size++
	}
}

// entries returns the ring's contents, most recent first.
func (s *slowLog) entries() []SlowEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SlowEntry, 0, s.size)
	for i := 0; i < s.size; i++ {
		idx := (s.head - 1 - i + len(s.buf)) % len(s.buf)
		out = append(out, s.buf[idx])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// summarizeArgs renders a payload as a compact, deterministically-ordered
// "field=value" list, truncated so a large blob value never dominates the
// slow log entry. Byte slices and strings longer than 32 bytes are
// elided to their length rather than printed in full.
func summarizeArgs(payload map[string]any) string {
	if len(payload) == 0 {
		return ""
	}
	fields := make([]string, 0, len(payload))
	for k := range payload {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, k := range fields {
		parts = append(parts, fmt.Sprintf("%s=%s", k, summarizeValue(payload[k])))
	}
	return strings.Join(parts, " ")
}

func summarizeValue(v any) string {
	const maxLen = 32
	switch t := v.(type) {
	case []byte:
		if len(t) > maxLen {
			return fmt.Sprintf("<%d bytes>", len(t))
		}
		return string(t)
	case string:
		if len(t) > maxLen {
			return fmt.Sprintf("<%d chars>", len(t))
		}
		return t
	default:
		s := fmt.Sprintf("%v", t)
		if len(s) > maxLen {
			return s[:maxLen] + "..."
		}
		return s
	}
}
