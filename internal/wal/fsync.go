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

package wal

import (
	"time"

	"github.com/go-co-op/gocron/v2"

	"synap/internal/logx"
)

// RegisterPeriodicFsync wires a background fsync tick onto the shared
// scheduler for logs opened with FsyncPeriodic. A no-op registration is
// harmless for the always/never policies, but callers should only invoke
// this when the policy is actually FsyncPeriodic.
func RegisterPeriodicFsync(sched gocron.Scheduler, l *Log, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultFsyncInterval
	}
	_, err := sched.NewJob(gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := l.Sync(); err != nil {
				logx.Errorf("wal: periodic fsync failed: %v", err)
			}
		}))
	return err
}
