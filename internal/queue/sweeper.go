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

package queue

import (
	"time"

	"github.com/go-co-op/gocron/v2"

	"synap/internal/logx"
)

// DefaultSweepInterval is how often the ACK-deadline sweeper ticks.
const DefaultSweepInterval = 250 * time.Millisecond

// DefaultSweepBudget bounds how many expired-deadline messages one sweep
// tick requeues, mirroring kv.DefaultSweepBudget's per-tick bound.
const DefaultSweepBudget = 10000

// RegisterAckSweeper wires Manager.SweepExpired onto the shared scheduler,
// following the same one-job-per-concern pattern as kv.RegisterTTLSweeper.
func RegisterAckSweeper(sched gocron.Scheduler, m *Manager, interval time.Duration, budget int) error {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if budget <= 0 {
		budget = DefaultSweepBudget
	}
	_, err := sched.NewJob(gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if n := m.SweepExpired(budget); n > 0 {
				logx.Debugf("queue: ack sweep requeued %d expired messages", n)
			}
		}))
	return err
}
