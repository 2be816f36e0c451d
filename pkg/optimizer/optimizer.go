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
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/NVIDIA/sysopt/pkg/backup"
	"github.com/NVIDIA/sysopt/pkg/errors"
	"github.com/NVIDIA/sysopt/pkg/header"
	"github.com/NVIDIA/sysopt/pkg/host"
	"github.com/NVIDIA/sysopt/pkg/tuning"
)

// PrivilegeChecker returns a PRIVILEGE error when the process may not
// modify system files.
type PrivilegeChecker func() error

// RequireRoot fails unless the effective user is root.
func RequireRoot() error {
	if euid := os.Geteuid(); euid != 0 {
		return errors.NewWithContext(errors.ErrCodePrivilege, "must be run as root",
			map[string]any{"euid": euid})
	}
	return nil
}

// Optimizer runs tuning steps against a backup store.
type Optimizer struct {
	store     *backup.Store
	steps     []tuning.Step
	privilege PrivilegeChecker
	now       func() time.Time
	metrics   *Metrics
	version   string
	host      HostCollector
}

// HostCollector describes the machine a report was produced on.
type HostCollector interface {
	Collect(ctx context.Context) (*host.Info, error)
}

// Option is a functional option for configuring Optimizer instances.
type Option func(*Optimizer)

// WithPrivilegeChecker replaces the root check.
func WithPrivilegeChecker(p PrivilegeChecker) Option {
	return func(o *Optimizer) {
		o.privilege = p
	}
}

// WithClock sets the time source used for the run timestamp.
func WithClock(now func() time.Time) Option {
	return func(o *Optimizer) {
		o.now = now
	}
}

// WithMetrics records run metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(o *Optimizer) {
		o.metrics = m
	}
}

// WithVersion stamps reports with the tool version.
func WithVersion(v string) Option {
	return func(o *Optimizer) {
		o.version = v
	}
}

// WithHost attaches host information from c to every report.
func WithHost(c HostCollector) Option {
	return func(o *Optimizer) {
		o.host = c
	}
}

// New returns an Optimizer that runs steps in order.
func New(store *backup.Store, steps []tuning.Step, opts ...Option) *Optimizer {
	o := &Optimizer{
		store:     store,
		steps:     steps,
		privilege: RequireRoot,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes every step. It never panics; step panics become INTERNAL
// failures and trigger rollback like any other error.
func (o *Optimizer) Run(ctx context.Context) *Report {
	started := o.now()
	run := backup.NewRun(started)
	r := o.newReport(run, header.KindRunReport)

	defer func() {
		o.metrics.observeRun(r, o.now().Sub(started))
	}()

	o.transition(r, StateRunning)
	o.describeHost(ctx, r)
	slog.Info("starting tuning run", "run", run.ID, "timestamp", run.Timestamp,
		"steps", len(o.steps), "backupDir", o.store.Dir())

	// Every failure, including those before the first step, goes through
	// rollback. Nothing is restored when nothing was backed up.
	if err := o.checkPrivilege(); err != nil {
		o.abort(r, run, "", err)
		return r
	}

	if err := o.store.Init(); err != nil {
		o.abort(r, run, "", err)
		return r
	}

	unlock, err := o.store.Lock()
	if err != nil {
		o.abort(r, run, "", err)
		return r
	}
	defer func() {
		if err := unlock(); err != nil {
			slog.Warn("failed to release backup store lock", "error", err)
		}
	}()

	for i, step := range o.steps {
		res := &r.Steps[i]

		if err := ctx.Err(); err != nil {
			res.Status = StepSkipped
			o.abort(r, run, step.Name(), errors.Wrap(errors.ErrCodeCanceled, "run canceled", err))
			return r
		}

		if err := o.runStep(ctx, run, step, res); err != nil {
			o.abort(r, run, step.Name(), err)
			return r
		}
	}

	o.transition(r, StateSucceeded)
	r.RebootRequired = true
	slog.Info("tuning run succeeded", "run", run.ID, "modified", len(run.Modified()))
	slog.Warn("reboot required for bootloader and kernel changes to take effect")
	return r
}

func (o *Optimizer) describeHost(ctx context.Context, r *Report) {
	if o.host == nil {
		return
	}
	info, err := o.host.Collect(ctx)
	if err != nil {
		slog.Debug("failed to describe host", "error", err)
		return
	}
	r.Host = info

	attrs := []any{"hostname", info.Hostname, "kernel", info.Kernel, "os", info.OS}
	if info.KernelVersion != nil {
		attrs = append(attrs, "kernelFlavor", info.KernelVersion.Flavor())
	}
	slog.Debug("described host", attrs...)
}

func (o *Optimizer) checkPrivilege() error {
	if o.privilege == nil {
		return nil
	}
	return o.privilege()
}

// runStep backs up the step target, then applies the step.
func (o *Optimizer) runStep(ctx context.Context, run *backup.Run, step tuning.Step, res *StepResult) (err error) {
	start := time.Now()
	slog.Info("applying step", "step", step.Name(), "target", step.Target())

	defer func() {
		if p := recover(); p != nil {
			err = errors.NewWithContext(errors.ErrCodeInternal, fmt.Sprintf("step panicked: %v", p),
				map[string]any{"step": step.Name()})
		}

		d := time.Since(start)
		res.Duration = d.Round(time.Millisecond).String()
		if err != nil {
			res.Status = StepFailed
			res.ErrorCode = errors.CodeOf(err)
			res.Error = err.Error()
		} else {
			res.Status = StepSucceeded
		}
		o.metrics.observeStep(step.Name(), res.Status, d)
	}()

	if target := step.Target(); target != "" {
		snap, err := o.store.Backup(run, target)
		if err != nil {
			return err
		}
		res.Snapshot = snap.Path
		o.metrics.observeBackup()
	}

	change, err := step.Apply(ctx)
	if change != nil {
		res.Replaced = change.Replaced
		res.Commands = change.Commands
		res.Drift = change.Drift
	}
	if err != nil {
		return err
	}

	slog.Info("step completed", "step", step.Name())
	return nil
}

// fail records the first failure and moves the run to Failed.
func (o *Optimizer) fail(r *Report, step string, err error) {
	code := errors.CodeOf(err)
	r.err = err
	r.ErrorCode = code
	r.Failure = &Failure{Step: step, Code: code, Message: err.Error()}

	for i := range r.Steps {
		if r.Steps[i].Status == StepPending {
			r.Steps[i].Status = StepSkipped
		}
	}

	o.transition(r, StateFailed)
	slog.Error("tuning run failed", "run", r.RunID, "step", step, "code", code, "error", err)
}

// abort records err as the run failure and rolls back.
func (o *Optimizer) abort(r *Report, run *backup.Run, step string, err error) {
	o.fail(r, step, err)
	o.rollback(r, run)
}

// rollback restores every file modified in run. Restoration does not use
// the run context, so cancellation cannot interrupt it.
func (o *Optimizer) rollback(r *Report, run *backup.Run) {
	o.transition(r, StateRollingBack)
	slog.Warn("rolling back modified files", "run", run.ID, "files", len(run.Modified()))

	r.Restorations = o.store.RestoreAll(run)

	complete := true
	for _, rs := range r.Restorations {
		o.metrics.observeRestoration(rs.Failed())
		if rs.Failed() {
			complete = false
		}
	}
	r.RollbackComplete = complete

	o.transition(r, StateRolledBack)
	if !complete {
		r.ErrorCode = errors.ErrCodeRollbackIncomplete
		slog.Error("rollback incomplete, manual recovery required",
			"run", run.ID, "failed", r.FailedRestorations(), "backupDir", o.store.Dir())
		return
	}
	slog.Info("rollback complete", "run", run.ID, "restored", len(r.Restorations))
}

func (o *Optimizer) transition(r *Report, to State) {
	if r.State.Terminal() {
		slog.Error("run already finished", "run", r.RunID, "state", r.State, "to", to)
		return
	}
	if !CanTransition(r.State, to) {
		slog.Error("invalid run state transition", "from", r.State, "to", to)
	}
	slog.Debug("run state", "run", r.RunID, "from", r.State, "to", to)
	r.State = to
}

func (o *Optimizer) newReport(run *backup.Run, kind header.Kind) *Report {
	opts := []header.Option{header.WithKind(kind), header.WithTimestamp(run.Started)}
	if o.version != "" {
		opts = append(opts, header.WithMetadata("version", o.version))
	}

	r := &Report{
		Header:    *header.New(opts...),
		RunID:     run.ID,
		Timestamp: run.Timestamp,
		Started:   run.Started,
		State:     StateIdle,
		Steps:     make([]StepResult, 0, len(o.steps)),
	}
	for _, s := range o.steps {
		r.Steps = append(r.Steps, StepResult{
			Name:   s.Name(),
			Target: s.Target(),
			Status: StepPending,
		})
	}
	return r
}
