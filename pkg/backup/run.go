// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
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

package backup

import (
	"time"

	"github.com/google/uuid"

	"github.com/NVIDIA/sysopt/pkg/defaults"
)

// Run is the state of one tuning invocation.
type Run struct {
	// ID uniquely identifies the run in reports and logs.
	ID string

	// Started is when the run began.
	Started time.Time

	// Timestamp is Started formatted with defaults.TimestampLayout. It is
	// shared by every snapshot taken during the run.
	Timestamp string

	modified  []string
	snapshots map[string]string
}

// NewRun creates a run whose timestamp is fixed to now.
func NewRun(now time.Time) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Started:   now,
		Timestamp: now.Format(defaults.TimestampLayout),
		snapshots: make(map[string]string),
	}
}

// Modified returns the original paths backed up so far, in backup order.
func (r *Run) Modified() []string {
	out := make([]string, len(r.modified))
	copy(out, r.modified)
	return out
}

// SnapshotOf returns the snapshot path taken for original during this run.
func (r *Run) SnapshotOf(original string) (string, bool) {
	p, ok := r.snapshots[original]
	return p, ok
}

func (r *Run) record(original, snapshot string) {
	r.modified = append(r.modified, original)
	r.snapshots[original] = snapshot
}
