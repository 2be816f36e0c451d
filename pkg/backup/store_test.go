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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/sysopt/pkg/errors"
)

var runTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func newFixture(t *testing.T) (store *Store, etc string) {
	t.Helper()
	root := t.TempDir()
	store = NewStore(filepath.Join(root, "backups"))
	require.NoError(t, store.Init())
	etc = filepath.Join(root, "etc")
	require.NoError(t, os.MkdirAll(etc, 0o755))
	return store, etc
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestNewRun(t *testing.T) {
	run := NewRun(runTime)

	assert.Equal(t, "20240102_030405", run.Timestamp)
	assert.NotEmpty(t, run.ID)
	assert.Empty(t, run.Modified())
	assert.NotEqual(t, run.ID, NewRun(runTime).ID)
}

func TestNewStore_DefaultDir(t *testing.T) {
	assert.Equal(t, "/var/backups/sysopt", NewStore("").Dir())
}

func TestInit_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, NewStore(dir).Init())

	fi, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
	assert.Equal(t, os.FileMode(0o700), fi.Mode().Perm())
}

func TestBackup(t *testing.T) {
	store, etc := newFixture(t)
	fstab := filepath.Join(etc, "fstab")
	writeFile(t, fstab, "UUID=abc / ext4 defaults 0 1\n")
	require.NoError(t, os.Chmod(fstab, 0o640))
	mtime := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(fstab, mtime, mtime))

	run := NewRun(runTime)
	snap, err := store.Backup(run, fstab)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(store.Dir(), "fstab_20240102_030405"), snap.Path)
	assert.Equal(t, "fstab", snap.Original)
	assert.Equal(t, "20240102_030405", snap.Timestamp)
	assert.Equal(t, int64(len("UUID=abc / ext4 defaults 0 1\n")), snap.Size)
	assert.Equal(t, "UUID=abc / ext4 defaults 0 1\n", readFile(t, snap.Path))
	assert.Equal(t, []string{fstab}, run.Modified())

	fi, err := os.Stat(snap.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), fi.Mode().Perm())
	assert.True(t, fi.ModTime().Equal(mtime), "mtime %v != %v", fi.ModTime(), mtime)

	got, ok := run.SnapshotOf(fstab)
	assert.True(t, ok)
	assert.Equal(t, snap.Path, got)
}

func TestBackup_DuplicateInRun(t *testing.T) {
	store, etc := newFixture(t)
	fstab := filepath.Join(etc, "fstab")
	writeFile(t, fstab, "original\n")

	run := NewRun(runTime)
	_, err := store.Backup(run, fstab)
	require.NoError(t, err)

	writeFile(t, fstab, "mutated\n")
	_, err = store.Backup(run, fstab)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDuplicateBackup, errors.CodeOf(err))

	// The first snapshot is untouched and the path is recorded once.
	snap, _ := run.SnapshotOf(fstab)
	assert.Equal(t, "original\n", readFile(t, snap))
	assert.Equal(t, []string{fstab}, run.Modified())
}

func TestBackup_MissingFile(t *testing.T) {
	store, etc := newFixture(t)

	run := NewRun(runTime)
	_, err := store.Backup(run, filepath.Join(etc, "sysctl.conf"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeIO, errors.CodeOf(err))
	assert.Empty(t, run.Modified())

	snaps, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestBackup_ExistingSnapshotConflict(t *testing.T) {
	store, etc := newFixture(t)
	grub := filepath.Join(etc, "grub")
	writeFile(t, grub, "GRUB_TIMEOUT=5\n")

	existing := store.SnapshotPath(grub, "20240102_030405")
	writeFile(t, existing, "from another run\n")

	run := NewRun(runTime)
	_, err := store.Backup(run, grub)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConflict, errors.CodeOf(err))
	assert.Equal(t, "from another run\n", readFile(t, existing))
	assert.Empty(t, run.Modified())
}

func TestBackup_NilRun(t *testing.T) {
	store, _ := newFixture(t)
	_, err := store.Backup(nil, "/etc/fstab")
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
}

func TestLatest_PicksGreatestTimestamp(t *testing.T) {
	store, _ := newFixture(t)
	for name, content := range map[string]string{
		"fstab_20240101_000000":       "first",
		"fstab_20240102_000000":       "second",
		"fstab.bak_20991231_000000":   "other file",
		"sysctl.conf_20990101_000000": "other file",
		"fstab_latest":                "not a timestamp",
		"fstab_20241399_000000":       "invalid date",
		".lock":                       "",
	} {
		writeFile(t, filepath.Join(store.Dir(), name), content)
	}

	snap, err := store.Latest("fstab")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Dir(), "fstab_20240102_000000"), snap.Path)
	assert.Equal(t, "second", readFile(t, snap.Path))
}

func TestLatest_NotFound(t *testing.T) {
	store, _ := newFixture(t)
	_, err := store.Latest("grub")
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestList(t *testing.T) {
	store, _ := newFixture(t)
	writeFile(t, filepath.Join(store.Dir(), "grub_20240101_000000"), "g")
	writeFile(t, filepath.Join(store.Dir(), "fstab_20240102_000000"), "ff")
	writeFile(t, filepath.Join(store.Dir(), "fstab_20240101_000000"), "f")
	writeFile(t, filepath.Join(store.Dir(), ".lock"), "")
	require.NoError(t, os.Mkdir(filepath.Join(store.Dir(), "dir_20240101_000000"), 0o700))

	snaps, err := store.List()
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	assert.Equal(t, "fstab@20240102_000000", snaps[0].String())
	assert.Equal(t, int64(2), snaps[0].Size)
	assert.Equal(t, "fstab@20240101_000000", snaps[1].String())
	assert.Equal(t, "grub@20240101_000000", snaps[2].String())
}

func TestList_MissingDir(t *testing.T) {
	snaps, err := NewStore(filepath.Join(t.TempDir(), "missing")).List()
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestRestoreAll(t *testing.T) {
	store, etc := newFixture(t)
	fstab := filepath.Join(etc, "fstab")
	sysctl := filepath.Join(etc, "sysctl.conf")
	writeFile(t, fstab, "fstab original\n")
	writeFile(t, sysctl, "vm.swappiness = 60\n")

	run := NewRun(runTime)
	_, err := store.Backup(run, fstab)
	require.NoError(t, err)
	_, err = store.Backup(run, sysctl)
	require.NoError(t, err)

	writeFile(t, fstab, "fstab mutated\n")
	writeFile(t, sysctl, "vm.swappiness = 10\n")

	res := store.RestoreAll(run)
	require.Len(t, res, 2)
	assert.Equal(t, fstab, res[0].Path)
	assert.Equal(t, sysctl, res[1].Path)
	for _, r := range res {
		assert.False(t, r.Failed(), r.Error)
	}

	assert.Equal(t, "fstab original\n", readFile(t, fstab))
	assert.Equal(t, "vm.swappiness = 60\n", readFile(t, sysctl))
}

func TestRestoreAll_ContinuesAfterFailure(t *testing.T) {
	store, etc := newFixture(t)
	fstab := filepath.Join(etc, "fstab")
	grub := filepath.Join(etc, "grub")
	writeFile(t, fstab, "fstab original\n")
	writeFile(t, grub, "GRUB_TIMEOUT=5\n")

	run := NewRun(runTime)
	fsnap, err := store.Backup(run, fstab)
	require.NoError(t, err)
	_, err = store.Backup(run, grub)
	require.NoError(t, err)

	require.NoError(t, os.Remove(fsnap.Path))
	writeFile(t, grub, "GRUB_TIMEOUT=2\n")

	res := store.RestoreAll(run)
	require.Len(t, res, 2)
	assert.True(t, res[0].Failed())
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(res[0].Err()))
	assert.False(t, res[1].Failed())
	assert.Equal(t, "GRUB_TIMEOUT=5\n", readFile(t, grub))
}

func TestRestore_UsesMostRecentSnapshot(t *testing.T) {
	store, etc := newFixture(t)
	fstab := filepath.Join(etc, "fstab")
	writeFile(t, fstab, "current\n")
	writeFile(t, filepath.Join(store.Dir(), "fstab_20240101_000000"), "older\n")
	writeFile(t, filepath.Join(store.Dir(), "fstab_20240102_000000"), "newer\n")

	r := store.Restore(fstab)
	require.False(t, r.Failed(), r.Error)
	assert.Equal(t, filepath.Join(store.Dir(), "fstab_20240102_000000"), r.Snapshot)
	assert.Equal(t, "newer\n", readFile(t, fstab))
}

func TestRestore_KeepsInode(t *testing.T) {
	store, etc := newFixture(t)
	fstab := filepath.Join(etc, "fstab")
	writeFile(t, fstab, "before\n")
	before, err := os.Stat(fstab)
	require.NoError(t, err)

	writeFile(t, filepath.Join(store.Dir(), "fstab_20240101_000000"), "snapshot\n")
	require.False(t, store.Restore(fstab).Failed())

	after, err := os.Stat(fstab)
	require.NoError(t, err)
	assert.True(t, os.SameFile(before, after))
}

func TestLock(t *testing.T) {
	store, _ := newFixture(t)

	unlock, err := store.Lock()
	require.NoError(t, err)

	_, err = store.Lock()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConflict, errors.CodeOf(err))

	require.NoError(t, unlock())

	unlock2, err := store.Lock()
	require.NoError(t, err)
	require.NoError(t, unlock2())
}

func TestParseSnapshotName(t *testing.T) {
	tests := []struct {
		name     string
		original string
		ts       string
		ok       bool
	}{
		{"fstab_20240101_000000", "fstab", "20240101_000000", true},
		{"sysctl.conf_20250115_103000", "sysctl.conf", "20250115_103000", true},
		{"my_file_20250115_103000", "my_file", "20250115_103000", true},
		{"_20250115_103000", "", "", false},
		{"fstab20250115_103000", "", "", false},
		{"fstab_2025011_103000", "", "", false},
		{"fstab_latest", "", "", false},
		{".lock", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original, ts, ok := ParseSnapshotName(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.original, original)
			assert.Equal(t, tt.ts, ts)
		})
	}
}
