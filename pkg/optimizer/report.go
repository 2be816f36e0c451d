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

package optimizer

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/NVIDIA/sysopt/pkg/backup"
	"github.com/NVIDIA/sysopt/pkg/errors"
	"github.com/NVIDIA/sysopt/pkg/file"
	"github.com/NVIDIA/sysopt/pkg/header"
	"github.com/NVIDIA/sysopt/pkg/host"
)

// State is the run state.
type State string

const (
	StateIdle        State = "Idle"
	StateRunning     State = "Running"
	StateSucceeded   State = "Succeeded"
	StateFailed      State = "Failed"
	StateRollingBack State = "RollingBack"
	StateRolledBack  State = "RolledBack"
)

var transitions = map[State][]State{
	StateIdle:        {StateRunning},
	StateRunning:     {StateSucceeded, StateFailed},
	StateFailed:      {StateRollingBack},
	StateRollingBack: {StateRolledBack},
}

// CanTransition reports whether from → to is a legal run transition.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible. Failed is
// never terminal; it always continues to RollingBack.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateRolledBack
}

// StepStatus is the outcome of one step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// StepResult records one step of a run.
type StepResult struct {
	Name      string           `json:"name" yaml:"name"`
	Target    string           `json:"target,omitempty" yaml:"target,omitempty"`
	Snapshot  string           `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
	Status    StepStatus       `json:"status" yaml:"status"`
	Duration  string           `json:"duration,omitempty" yaml:"duration,omitempty"`
	Replaced  []file.Pair      `json:"replaced,omitempty" yaml:"replaced,omitempty"`
	Commands  []string         `json:"commands,omitempty" yaml:"commands,omitempty"`
	Drift     []file.Pair      `json:"drift,omitempty" yaml:"drift,omitempty"`
	ErrorCode errors.ErrorCode `json:"errorCode,omitempty" yaml:"errorCode,omitempty"`
	Error     string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failure is the first error of a failed run.
type Failure struct {
	// Step is empty when the run failed before any step started.
	Step    string           `json:"step,omitempty" yaml:"step,omitempty"`
	Code    errors.ErrorCode `json:"code" yaml:"code"`
	Message string           `json:"message" yaml:"message"`
}

// Report is the outcome of one run.
type Report struct {
	header.Header `json:",inline" yaml:",inline"`

	RunID     string     `json:"runID" yaml:"runID"`
	Timestamp string     `json:"timestamp" yaml:"timestamp"`
	Started   time.Time  `json:"started" yaml:"started"`
	State     State      `json:"state" yaml:"state"`
	Host      *host.Info `json:"host,omitempty" yaml:"host,omitempty"`

	// ErrorCode is the failure code, or ROLLBACK_INCOMPLETE when some file
	// could not be restored.
	ErrorCode errors.ErrorCode `json:"errorCode,omitempty" yaml:"errorCode,omitempty"`

	Steps        []StepResult         `json:"steps" yaml:"steps"`
	Failure      *Failure             `json:"failure,omitempty" yaml:"failure,omitempty"`
	Restorations []backup.Restoration `json:"restorations,omitempty" yaml:"restorations,omitempty"`

	// RollbackComplete is set once rollback ends with every file restored.
	RollbackComplete bool `json:"rollbackComplete" yaml:"rollbackComplete"`

	// RebootRequired is set on success; grub and kernel changes apply at boot.
	RebootRequired bool `json:"rebootRequired,omitempty" yaml:"rebootRequired,omitempty"`

	err error
}

// Succeeded reports whether every step completed.
func (r *Report) Succeeded() bool {
	return r.State == StateSucceeded
}

// Err returns nil on success, otherwise the run error. A partial rollback
// wraps the step error in a ROLLBACK_INCOMPLETE error.
func (r *Report) Err() error {
	if r.Succeeded() {
		return nil
	}

	cause := r.err
	if cause == nil {
		cause = errors.New(errors.ErrCodeInternal, fmt.Sprintf("run ended in state %s", r.State))
	}

	if r.ErrorCode == errors.ErrCodeRollbackIncomplete {
		return errors.WrapWithContext(errors.ErrCodeRollbackIncomplete,
			"rollback did not restore every modified file", cause,
			map[string]any{"run": r.RunID, "failed": r.FailedRestorations()})
	}
	return cause
}

// FailedRestorations returns the paths rollback could not restore.
func (r *Report) FailedRestorations() []string {
	var out []string
	for _, rs := range r.Restorations {
		if rs.Failed() {
			out = append(out, rs.Path)
		}
	}
	return out
}

// ExitCode maps a report to the process exit status.
func ExitCode(r *Report) int {
	if r != nil && r.Succeeded() {
		return 0
	}
	return 1
}

// Table implements serializer.Tabular.
func (r *Report) Table() ([]string, [][]string) {
	title := cases.Title(language.English)
	rows := make([][]string, 0, len(r.Steps))
	for _, s := range r.Steps {
		rows = append(rows, []string{
			title.String(s.Name),
			dash(s.Target),
			string(s.Status),
			dash(s.Duration),
			dash(s.Snapshot),
			dash(string(s.ErrorCode)),
		})
	}
	return []string{"STEP", "TARGET", "STATUS", "DURATION", "SNAPSHOT", "ERROR"}, rows
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
