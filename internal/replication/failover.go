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

import (
	"context"
	"time"

	"synap/internal/synaperr"
)

// LagSource reports a connection's current replication lag, in ops. The
// replica-listen endpoint and the upstream connection teardown are edge
// concerns (spec §1); Promote only drives the wait-then-sever-then-switch
// sequence spec §4.10 prescribes and calls back into sever/becomeMaster to
// perform them.
type LagSource func() (lagOperations int64, err error)

// Promote performs manual failover of a replica to master: it waits for
// lagOperations <= 1 (or ctx's deadline, whichever comes first), then
// severs the upstream connection and switches role. sever and
// becomeMaster are supplied by the caller since they touch the actual
// network connection and role-state, which live outside this package.
func Promote(ctx context.Context, lag LagSource, sever func() error, becomeMaster func() error) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		lagOps, err := lag()
		if err != nil {
			return err
		}
		if lagOps <= 1 {
			break
		}
		select {
		case <-ctx.Done():
			return synaperr.New(synaperr.KindInternal, "failover timed out waiting for replica to catch up")
		case <-ticker.C:
		}
	}

	if err := sever(); err != nil {
		return err
	}
	return becomeMaster()
}

// Demote performs the symmetric operation on a former master: sever its
// replica-listen endpoint, then reconnect as a replica of the new
// master. Both steps are supplied by the caller for the same reason as
// Promote.
func Demote(closeListener func() error, connectAsReplica func() error) error {
	if err := closeListener(); err != nil {
		return err
	}
	return connectAsReplica()
}
