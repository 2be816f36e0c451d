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
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/sysopt/pkg/errors"
	"github.com/NVIDIA/sysopt/pkg/header"
)

func TestRestore_AfterSuccessfulRun(t *testing.T) {
	e := newEnv(t)
	o := e.optimizer(e.steps())
	require.True(t, o.Run(context.Background()).Succeeded())

	r := o.Restore(context.Background(), []string{e.fstab, e.sysctl, e.grub})

	require.NoError(t, r.Err())
	assert.True(t, r.Complete)
	assert.Equal(t, header.KindRestoreReport, r.Kind)
	assert.Len(t, r.Restorations, 3)
	assert.Empty(t, r.Skipped)
	e.assertOriginals(t)
}

func TestRestore_SkipsFilesWithoutSnapshot(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.Init())
	snap := e.store.SnapshotPath(e.fstab, "20240101_000000")
	require.NoError(t, os.WriteFile(snap, []byte("old fstab\n"), 0o600))

	r := e.optimizer(nil).Restore(context.Background(), []string{e.fstab, e.grub})

	require.NoError(t, r.Err())
	assert.Equal(t, []string{e.grub}, r.Skipped)
	assert.Equal(t, "old fstab\n", readFile(t, e.fstab))
	assert.Equal(t, origGrub, readFile(t, e.grub))

	headers, rows := r.Table()
	assert.Equal(t, []string{"FILE", "SNAPSHOT", "RESULT"}, headers)
	require.Len(t, rows, 2)
	assert.Equal(t, "fstab_20240101_000000", rows[0][1])
	assert.Equal(t, "no snapshot", rows[1][2])
}

func TestRestore_NoBackupDir(t *testing.T) {
	e := newEnv(t)
	r := e.optimizer(nil).Restore(context.Background(), []string{e.fstab})

	assert.False(t, r.Complete)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(r.Err()))
	assert.Equal(t, []string{e.fstab}, r.Skipped)
}

func TestRestore_NothingToRestore(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.Init())

	r := e.optimizer(nil).Restore(context.Background(), []string{e.fstab, e.sysctl})
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(r.Err()))
	assert.Len(t, r.Skipped, 2)
}

func TestRestore_PrivilegeFailure(t *testing.T) {
	e := newEnv(t)
	denied := errors.New(errors.ErrCodePrivilege, "must be run as root")

	r := e.optimizer(nil, WithPrivilegeChecker(func() error { return denied })).
		Restore(context.Background(), []string{e.fstab})

	assert.Equal(t, errors.ErrCodePrivilege, errors.CodeOf(r.Err()))
	assert.Empty(t, r.Restorations)
}

func TestRestore_Canceled(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.Init())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := e.optimizer(nil).Restore(ctx, []string{e.fstab})
	assert.Equal(t, errors.ErrCodeCanceled, errors.CodeOf(r.Err()))
}
