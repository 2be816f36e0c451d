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
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sys/unix"

	"github.com/NVIDIA/sysopt/pkg/defaults"
	"github.com/NVIDIA/sysopt/pkg/errors"
)

const lockFileName = ".lock"

// Snapshot is one backup file in the store.
type Snapshot struct {
	// Original is the base name of the file that was backed up.
	Original string `json:"original" yaml:"original"`

	// Timestamp is the run timestamp encoded in the name.
	Timestamp string `json:"timestamp" yaml:"timestamp"`

	// Path is the absolute snapshot location.
	Path string `json:"path" yaml:"path"`

	// Size is the snapshot size in bytes.
	Size int64 `json:"size" yaml:"size"`
}

// Time parses Timestamp in the local zone.
func (s Snapshot) Time() (time.Time, error) {
	return time.ParseInLocation(defaults.TimestampLayout, s.Timestamp, time.Local)
}

// Restoration is the outcome of restoring one file.
type Restoration struct {
	Path     string `json:"path" yaml:"path"`
	Snapshot string `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`

	err error
}

// Failed reports whether the file could not be restored.
func (r Restoration) Failed() bool {
	return r.err != nil || r.Error != ""
}

// Err returns the restoration error, if any.
func (r Restoration) Err() error {
	return r.err
}

// Store manages snapshots in a single directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. Nothing is created until Init.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = defaults.BackupDir
	}
	return &Store{dir: filepath.Clean(dir)}
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Init creates the store directory if it does not exist.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.dir, defaults.BackupDirMode); err != nil {
		return errors.WrapWithContext(errors.ErrCodeIO, "failed to create backup directory", err,
			map[string]any{"dir": s.dir})
	}
	return nil
}

// SnapshotPath returns where the snapshot of original for timestamp lives.
func (s *Store) SnapshotPath(original, timestamp string) string {
	return filepath.Join(s.dir, filepath.Base(original)+"_"+timestamp)
}

// Backup copies path into the store under run's timestamp and records it
// as modified in run. Backing up the same path twice in one run is refused.
func (s *Store) Backup(run *Run, path string) (*Snapshot, error) {
	if run == nil {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "backup requires a run")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "invalid path", err)
	}

	if prev, ok := run.SnapshotOf(abs); ok {
		return nil, errors.NewWithContext(errors.ErrCodeDuplicateBackup,
			"file already backed up in this run",
			map[string]any{"path": abs, "snapshot": prev, "run": run.ID})
	}

	dst := s.SnapshotPath(abs, run.Timestamp)
	if err := copyFile(abs, dst, true); err != nil {
		if stderrors.Is(err, fs.ErrExist) {
			return nil, errors.WrapWithContext(errors.ErrCodeConflict, "snapshot already exists", err,
				map[string]any{"path": abs, "snapshot": dst})
		}
		// Leave no partial snapshot behind; it would shadow older ones.
		if rmErr := os.Remove(dst); rmErr != nil && !stderrors.Is(rmErr, fs.ErrNotExist) {
			slog.Warn("failed to remove partial snapshot", "snapshot", dst, "error", rmErr)
		}
		return nil, errors.WrapWithContext(errors.ErrCodeIO, "failed to back up file", err,
			map[string]any{"path": abs, "snapshot": dst})
	}

	run.record(abs, dst)

	snap := &Snapshot{
		Original:  filepath.Base(abs),
		Timestamp: run.Timestamp,
		Path:      dst,
	}
	if fi, err := os.Stat(dst); err == nil {
		snap.Size = fi.Size()
	}

	slog.Info("backed up file", "path", abs, "snapshot", dst, "run", run.ID)
	return snap, nil
}

// Latest returns the snapshot of the given base name with the greatest
// timestamp.
func (s *Store) Latest(basename string) (*Snapshot, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	var latest *Snapshot
	for i := range all {
		if all[i].Original != basename {
			continue
		}
		if latest == nil || all[i].Timestamp > latest.Timestamp {
			latest = &all[i]
		}
	}

	if latest == nil {
		return nil, errors.NewWithContext(errors.ErrCodeNotFound, "no snapshot found",
			map[string]any{"file": basename, "dir": s.dir})
	}
	return latest, nil
}

// List returns every snapshot in the store, newest first. Entries whose
// name does not end in a run timestamp are ignored.
func (s *Store) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return []Snapshot{}, nil
		}
		return nil, errors.WrapWithContext(errors.ErrCodeIO, "failed to read backup directory", err,
			map[string]any{"dir": s.dir})
	}

	res := make([]Snapshot, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		original, ts, ok := ParseSnapshotName(e.Name())
		if !ok {
			continue
		}
		snap := Snapshot{
			Original:  original,
			Timestamp: ts,
			Path:      filepath.Join(s.dir, e.Name()),
		}
		if fi, err := e.Info(); err == nil {
			snap.Size = fi.Size()
		}
		res = append(res, snap)
	}

	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Timestamp != res[j].Timestamp {
			return res[i].Timestamp > res[j].Timestamp
		}
		return res[i].Original < res[j].Original
	})
	return res, nil
}

// Restore copies the latest snapshot of path's base name over path.
func (s *Store) Restore(path string) Restoration {
	r := Restoration{Path: path}

	snap, err := s.Latest(filepath.Base(path))
	if err != nil {
		r.err = err
		r.Error = err.Error()
		slog.Error("no snapshot to restore from", "path", path, "error", err)
		return r
	}
	r.Snapshot = snap.Path

	if err := copyFile(snap.Path, path, false); err != nil {
		r.err = errors.WrapWithContext(errors.ErrCodeIO, "failed to restore file", err,
			map[string]any{"path": path, "snapshot": snap.Path})
		r.Error = r.err.Error()
		slog.Error("failed to restore file", "path", path, "snapshot", snap.Path, "error", err)
		return r
	}

	slog.Info("restored file from backup", "path", path, "snapshot", snap.Path)
	return r
}

// RestoreAll restores every file modified in run, in backup order. Each
// file is attempted even when an earlier one fails.
func (s *Store) RestoreAll(run *Run) []Restoration {
	if run == nil {
		return nil
	}
	modified := run.Modified()
	res := make([]Restoration, 0, len(modified))
	for _, path := range modified {
		res = append(res, s.Restore(path))
	}
	return res
}

// Lock takes an exclusive advisory lock on the store so concurrent runs
// fail fast. The returned function releases it.
func (s *Store) Lock() (func() error, error) {
	path := filepath.Join(s.dir, lockFileName)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeIO, "failed to open lock file", err,
			map[string]any{"path": path})
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if stderrors.Is(err, unix.EWOULDBLOCK) {
			return nil, errors.WrapWithContext(errors.ErrCodeConflict,
				"another run holds the backup store lock", err, map[string]any{"path": path})
		}
		return nil, errors.WrapWithContext(errors.ErrCodeIO, "failed to lock backup store", err,
			map[string]any{"path": path})
	}

	return func() error {
		defer f.Close()
		return unix.Flock(int(f.Fd()), unix.LOCK_UN)
	}, nil
}

// ParseSnapshotName splits "<basename>_<YYYYMMDD_HHMMSS>" into its parts.
func ParseSnapshotName(name string) (original, timestamp string, ok bool) {
	n := len(defaults.TimestampLayout)
	if len(name) < n+2 || name[len(name)-n-1] != '_' {
		return "", "", false
	}
	original, timestamp = name[:len(name)-n-1], name[len(name)-n:]
	if _, err := time.Parse(defaults.TimestampLayout, timestamp); err != nil {
		return "", "", false
	}
	return original, timestamp, true
}

// String renders a one-line description of the snapshot.
func (s Snapshot) String() string {
	return fmt.Sprintf("%s@%s", s.Original, s.Timestamp)
}
