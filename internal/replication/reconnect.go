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

package replication

import "time"

// Backoff computes reconnect delays for a replica whose upstream
// connection dropped (spec §4.10: "retries with exponential backoff if
// auto_reconnect"). No backoff library appears anywhere in the retrieval
// pack, so this is a small stdlib-only doubling-with-cap sequence rather
// than a dependency.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	attempt int
}

// NewBackoff builds a Backoff starting at initial and capped at max.
func NewBackoff(initial, max time.Duration) *Backoff {
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	if max <= 0 {
		max = 30 * time.Second
	}
	return &Backoff{Initial: initial, Max: max}
}

// Next returns the delay before the next reconnect attempt and advances
// the sequence.
func (b *Backoff) Next() time.Duration {
	d := b.Initial << b.attempt
	if d <= 0 || d > b.Max {
		d = b.Max
	}
	b.attempt++
	return d
}

// Reset returns the sequence to its initial delay, called after a
// successful reconnect.
func (b *Backoff) Reset() {
	b.attempt = 0
}
