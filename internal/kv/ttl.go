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
	"time"

	"github.com/go-co-op/gocron/v2"

	"synap/internal/logx"
)

// DefaultSweepInterval is how often the TTL sweeper ticks when the caller
// does not override it.
const DefaultSweepInterval = 100 * time.Millisecond

// DefaultSweepBudget bounds how many keys a single sweep tick inspects, so
// a sweep never holds up the scheduler goroutine for long (spec §4.1: "The
// sweep must bound wall-clock time per tick").
const DefaultSweepBudget = 20000

// RegisterTTLSweeper schedules idx.SweepExpired on sched every interval,
// one job per concern against the shared scheduler.
func RegisterTTLSweeper(sched gocron.Scheduler, idx *Index, interval time.Duration, budget int) error {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if budget <= 0 {
		budget = DefaultSweepBudget
	}
	_, err := sched.NewJob(gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if n := idx.SweepExpired(budget); n > 0 {
				logx.Debugf("kv: ttl sweep removed %d expired keys", n)
			}
		}))
	return err
}
