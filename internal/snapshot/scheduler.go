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

package snapshot

import (
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"

	"synap/internal/logx"
)

// Policy decides when an automatic snapshot should fire: either an
// interval tick or an operation-count threshold, whichever comes first
// (spec §4.7).
type Policy struct {
	Interval     time.Duration
	OpThreshold  int64
	opsSinceLast atomic.Int64
}

// NoteOp increments the op counter that the threshold half of the policy
// checks between interval ticks. The dispatcher does not call it, so in the
// engine the counter stays at 0 and snapshots fire on the interval only.
func (p *Policy) NoteOp() {
	p.opsSinceLast.Add(1)
}

func (p *Policy) thresholdReached() bool {
	if p.OpThreshold <= 0 {
		return false
	}
	return p.opsSinceLast.Load() >= p.OpThreshold
}

// checkInterval is how often Register's job wakes to evaluate the policy.
// It must be short relative to Policy.Interval so the op-count threshold
// half of "whichever comes first" can fire promptly between interval
// ticks, not just on them.
const checkInterval = 5 * time.Second

// Register wires a periodic check onto the shared scheduler: on every
// wake it snapshots if either the configured interval has elapsed since
// the last snapshot or the op-count threshold was crossed, whichever
// comes first (spec §4.7).
func Register(sched gocron.Scheduler, mgr *Manager, policy *Policy, src Sources, walOffset func() uint64) error {
	interval := policy.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	var lastSnapshot time.Time
	_, err := sched.NewJob(gocron.DurationJob(checkInterval),
		gocron.NewTask(func() {
			due := time.Since(lastSnapshot) >= interval || policy.thresholdReached()
			if lastSnapshot.IsZero() {
				due = false // skip the very first wake; there's nothing new to capture yet
				lastSnapshot = time.Now()
			}
			if !due {
				return
			}
			snap := Capture(src, walOffset())
			if err := mgr.Write(snap); err != nil {
				logx.Errorf("snapshot: write failed: %v", err)
				return
			}
			policy.opsSinceLast.Store(0)
			lastSnapshot = time.Now()
			logx.Debugf("snapshot: captured at wal_offset=%d", snap.WALOffset)
		}))
	return err
}
