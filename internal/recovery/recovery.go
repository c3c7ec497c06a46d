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

// Package recovery implements boot-time recovery (spec component J):
// restore the newest valid snapshot, then replay the WAL from the
// snapshot's offset to the end, applying each op through the dispatcher.
package recovery

import (
	"synap/internal/dispatch"
	"synap/internal/logx"
	"synap/internal/snapshot"
	"synap/internal/wal"
)

// CorruptionPolicy selects what happens when WAL replay encounters an
// entry that fails to decode or apply (spec §4.8: "configurable: halt vs
// truncate").
type CorruptionPolicy int

const (
	// PolicyHalt stops replay at the first corrupt/failing entry and
	// returns an error; the operator must intervene.
	PolicyHalt CorruptionPolicy = iota
	// PolicyTruncate stops replay at the first corrupt/failing entry but
	// returns successfully with whatever was applied, treating the
	// remainder of the log as if it had never been written.
	PolicyTruncate
)

// Report summarizes what Boot did, for startup logging.
type Report struct {
	RestoredFromSnapshot bool
	SnapshotWALOffset    uint64
	EntriesReplayed      int
	StoppedEarly         bool
}

// Boot performs the full recovery sequence against a running Dispatcher:
// locate the newest valid snapshot (if any), restore it, then replay
// every WAL entry after the snapshot's offset by calling d.Apply.
func Boot(d *dispatch.Dispatcher, snapMgr *snapshot.Manager, walDir string, src snapshot.Sources, policy CorruptionPolicy) (Report, error) {
	var report Report
	var fromOffset uint64

	snap, ok, err := snapMgr.Newest()
	if err != nil {
		return report, err
	}
	if ok {
		snapshot.Restore(snap, src)
		report.RestoredFromSnapshot = true
		report.SnapshotWALOffset = snap.WALOffset
		fromOffset = snap.WALOffset + 1
	}

	entries, err := wal.ReadAll(walDir)
	if err != nil {
		return report, err
	}

	for _, entry := range entries {
		if entry.Offset < fromOffset {
			continue
		}
		cmd, decErr := dispatch.DecodeCommand(entry.Op)
		if decErr != nil {
			logx.Errorf("recovery: failed to decode WAL entry at offset %d: %v", entry.Offset, decErr)
			report.StoppedEarly = true
			if policy == PolicyHalt {
				return report, decErr
			}
			break
		}
		if applyErr := d.Apply(cmd); applyErr != nil {
			logx.Errorf("recovery: failed to apply WAL entry at offset %d: %v", entry.Offset, applyErr)
			report.StoppedEarly = true
			if policy == PolicyHalt {
				return report, applyErr
			}
			break
		}
		report.EntriesReplayed++
	}

	return report, nil
}
