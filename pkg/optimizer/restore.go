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
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/NVIDIA/sysopt/pkg/backup"
	"github.com/NVIDIA/sysopt/pkg/errors"
	"github.com/NVIDIA/sysopt/pkg/header"
)

// RestoreReport is the outcome of a manual restore.
type RestoreReport struct {
	header.Header `json:",inline" yaml:",inline"`

	Restorations []backup.Restoration `json:"restorations" yaml:"restorations"`

	// Skipped lists files that have no snapshot in the store.
	Skipped []string `json:"skipped,omitempty" yaml:"skipped,omitempty"`

	Complete bool `json:"complete" yaml:"complete"`

	err error
}

// Err returns nil when every file with a snapshot was restored.
func (r *RestoreReport) Err() error {
	return r.err
}

// Table implements serializer.Tabular.
func (r *RestoreReport) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(r.Restorations)+len(r.Skipped))
	for _, rs := range r.Restorations {
		result := "restored"
		if rs.Failed() {
			result = "failed: " + rs.Error
		}
		rows = append(rows, []string{rs.Path, dash(filepath.Base(rs.Snapshot)), result})
	}
	for _, p := range r.Skipped {
		rows = append(rows, []string{p, "-", "no snapshot"})
	}
	return []string{"FILE", "SNAPSHOT", "RESULT"}, rows
}

// Restore copies the latest snapshot of each path back over it. Paths
// without a snapshot are skipped; it is an error when none has one.
func (o *Optimizer) Restore(ctx context.Context, paths []string) *RestoreReport {
	r := &RestoreReport{
		Header: *header.New(header.WithKind(header.KindRestoreReport), header.WithTimestamp(o.now())),
	}
	if o.version != "" {
		r.Metadata["version"] = o.version
	}

	if err := o.restore(ctx, paths, r); err != nil {
		r.err = err
		slog.Error("restore failed", "code", errors.CodeOf(err), "error", err)
		return r
	}

	r.Complete = true
	slog.Info("restore complete", "restored", len(r.Restorations), "skipped", len(r.Skipped))
	return r
}

func (o *Optimizer) restore(ctx context.Context, paths []string, r *RestoreReport) error {
	if err := o.checkPrivilege(); err != nil {
		return err
	}

	if _, err := os.Stat(o.store.Dir()); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			r.Skipped = append(r.Skipped, paths...)
			return errors.NewWithContext(errors.ErrCodeNotFound, "backup directory does not exist",
				map[string]any{"dir": o.store.Dir()})
		}
		return errors.WrapWithContext(errors.ErrCodeIO, "failed to stat backup directory", err,
			map[string]any{"dir": o.store.Dir()})
	}

	unlock, err := o.store.Lock()
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(); err != nil {
			slog.Warn("failed to release backup store lock", "error", err)
		}
	}()

	var failed []string
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.ErrCodeCanceled, "restore canceled", err)
		}

		if _, err := o.store.Latest(filepath.Base(p)); err != nil {
			if errors.IsCode(err, errors.ErrCodeNotFound) {
				slog.Warn("no snapshot for file, skipping", "path", p)
				r.Skipped = append(r.Skipped, p)
				continue
			}
			return err
		}

		rs := o.store.Restore(p)
		r.Restorations = append(r.Restorations, rs)
		o.metrics.observeRestoration(rs.Failed())
		if rs.Failed() {
			failed = append(failed, p)
		}
	}

	if len(failed) > 0 {
		return errors.NewWithContext(errors.ErrCodeRollbackIncomplete, "some files could not be restored",
			map[string]any{"failed": failed})
	}
	if len(r.Restorations) == 0 {
		return errors.NewWithContext(errors.ErrCodeNotFound, "no snapshot found for any file",
			map[string]any{"dir": o.store.Dir(), "files": paths})
	}
	return nil
}
