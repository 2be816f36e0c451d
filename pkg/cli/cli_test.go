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

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/sysopt/pkg/backup"
	"github.com/NVIDIA/sysopt/pkg/config"
	"github.com/NVIDIA/sysopt/pkg/errors"
	"github.com/NVIDIA/sysopt/pkg/executor"
	"github.com/NVIDIA/sysopt/pkg/header"
	"github.com/NVIDIA/sysopt/pkg/optimizer"
	"github.com/NVIDIA/sysopt/pkg/serializer"
)

const (
	origFstab  = "UUID=abc-123 / ext4 defaults 0 1\n/dev/sda1 /var/log ext4 defaults 0 0\n"
	origSysctl = "vm.swappiness = 60\n"
	origGrub   = "GRUB_TIMEOUT=5\nGRUB_CMDLINE_LINUX_DEFAULT=\"quiet splash\"\n"
)

type testHost struct {
	dir, config, backups string
	fstab, sysctl, grub  string
	runner               *executor.Recorder
}

func newTestHost(t *testing.T) *testHost {
	t.Helper()
	dir := t.TempDir()
	h := &testHost{
		dir:     dir,
		config:  filepath.Join(dir, "config.yaml"),
		backups: filepath.Join(dir, "backups"),
		fstab:   filepath.Join(dir, "fstab"),
		sysctl:  filepath.Join(dir, "sysctl.conf"),
		grub:    filepath.Join(dir, "grub"),
		runner:  executor.NewRecorder(),
	}
	require.NoError(t, os.WriteFile(h.fstab, []byte(origFstab), 0o644))
	require.NoError(t, os.WriteFile(h.sysctl, []byte(origSysctl), 0o644))
	require.NoError(t, os.WriteFile(h.grub, []byte(origGrub), 0o644))

	cfg := fmt.Sprintf("paths:\n  fstab: %s\n  sysctl: %s\n  grub: %s\nbackupDir: %s\n",
		h.fstab, h.sysctl, h.grub, h.backups)
	require.NoError(t, os.WriteFile(h.config, []byte(cfg), 0o600))

	prevCheck, prevRunner := privilegeCheck, newRunner
	privilegeCheck = func() error { return nil }
	newRunner = func(*config.Config) executor.Runner { return h.runner }
	t.Cleanup(func() {
		privilegeCheck, newRunner = prevCheck, prevRunner
	})
	return h
}

func (h *testHost) run(args ...string) error {
	cmd := newRootCmd()
	cmd.Writer = io.Discard
	cmd.ErrWriter = io.Discard
	full := append([]string{name, "--config", h.config}, args...)
	return cmd.Run(context.Background(), full)
}

func readJSON[T any](t *testing.T, path string) *T {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var v T
	require.NoError(t, json.Unmarshal(b, &v))
	return &v
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestApply_Success(t *testing.T) {
	h := newTestHost(t)
	out := filepath.Join(h.dir, "report.json")
	prom := filepath.Join(h.dir, "sysopt.prom")

	err := h.run("--format", "json", "--output", out, "--metrics-file", prom, "apply")
	require.NoError(t, err)

	report := readJSON[optimizer.Report](t, out)
	assert.Equal(t, optimizer.StateSucceeded, report.State)
	assert.Equal(t, header.KindRunReport, report.Kind)
	assert.Len(t, report.Steps, 4)

	assert.Contains(t, readFile(t, h.fstab), "tmpfs /tmp tmpfs")
	assert.Contains(t, readFile(t, h.grub), "GRUB_TIMEOUT=2")
	assert.Contains(t, readFile(t, prom), `sysopt_runs_total{code="",state="Succeeded"} 1`)

	snaps, err := backup.NewStore(h.backups).List()
	require.NoError(t, err)
	assert.Len(t, snaps, 3)
}

func TestApply_FailureRollsBack(t *testing.T) {
	h := newTestHost(t)
	h.runner.FailOn("update-grub", 1)
	out := filepath.Join(h.dir, "report.yaml")

	err := h.run("--format", "yaml", "--output", out, "apply")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeExternalCommand, errors.CodeOf(err))

	report := &optimizer.Report{}
	require.NoError(t, serializer.IntoFile(out, report))
	assert.Equal(t, optimizer.StateRolledBack, report.State)
	assert.True(t, report.RollbackComplete)
	assert.Equal(t, "grub", report.Failure.Step)

	assert.Equal(t, origFstab, readFile(t, h.fstab))
	assert.Equal(t, origSysctl, readFile(t, h.sysctl))
	assert.Equal(t, origGrub, readFile(t, h.grub))
}

func TestApply_PrivilegeDenied(t *testing.T) {
	h := newTestHost(t)
	privilegeCheck = func() error { return errors.New(errors.ErrCodePrivilege, "must be run as root") }

	err := h.run("--output", filepath.Join(h.dir, "r.yaml"), "apply")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodePrivilege, errors.CodeOf(err))

	_, statErr := os.Stat(h.backups)
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, origFstab, readFile(t, h.fstab))
}

func TestApply_IsDefaultCommand(t *testing.T) {
	h := newTestHost(t)
	require.NoError(t, h.run("--output", filepath.Join(h.dir, "r.yaml")))
	assert.Contains(t, readFile(t, h.fstab), "noatime,nodiratime,discard")
}

func TestApply_BackupDirOverride(t *testing.T) {
	h := newTestHost(t)
	other := filepath.Join(h.dir, "elsewhere")

	require.NoError(t, h.run("--backup-dir", other, "--output", filepath.Join(h.dir, "r.yaml"), "apply"))

	snaps, err := backup.NewStore(other).List()
	require.NoError(t, err)
	assert.Len(t, snaps, 3)
	_, statErr := os.Stat(h.backups)
	assert.True(t, os.IsNotExist(statErr))
}

func TestApply_InvalidSysctlReload(t *testing.T) {
	h := newTestHost(t)
	err := h.run("apply", "--sysctl-reload", "reboot")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
	assert.Equal(t, origFstab, readFile(t, h.fstab))
}

func TestRestore_AfterApply(t *testing.T) {
	h := newTestHost(t)
	require.NoError(t, h.run("--output", filepath.Join(h.dir, "apply.yaml"), "apply"))

	out := filepath.Join(h.dir, "restore.json")
	require.NoError(t, h.run("--format", "json", "--output", out, "restore"))

	report := readJSON[optimizer.RestoreReport](t, out)
	assert.True(t, report.Complete)
	assert.Len(t, report.Restorations, 3)
	assert.Equal(t, origFstab, readFile(t, h.fstab))
	assert.Equal(t, origSysctl, readFile(t, h.sysctl))
	assert.Equal(t, origGrub, readFile(t, h.grub))
}

func TestRestore_NoBackups(t *testing.T) {
	h := newTestHost(t)
	err := h.run("--output", filepath.Join(h.dir, "r.yaml"), "restore", h.fstab)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestBackups_List(t *testing.T) {
	h := newTestHost(t)
	require.NoError(t, h.run("--output", filepath.Join(h.dir, "apply.yaml"), "apply"))

	out := filepath.Join(h.dir, "backups.json")
	require.NoError(t, h.run("--format", "json", "--output", out, "backups", "--file", "fstab"))

	list := readJSON[BackupList](t, out)
	assert.Equal(t, header.KindBackupList, list.Kind)
	assert.Equal(t, h.backups, list.Dir)
	require.Len(t, list.Backups, 1)
	assert.Equal(t, "fstab", list.Backups[0].File)
	assert.Equal(t, int64(len(origFstab)), list.Backups[0].Size)
}

func TestBackups_EmptyStore(t *testing.T) {
	h := newTestHost(t)
	out := filepath.Join(h.dir, "backups.json")
	require.NoError(t, h.run("--format", "json", "--output", out, "backups"))
	assert.Empty(t, readJSON[BackupList](t, out).Backups)
}

func TestBackupList_Table(t *testing.T) {
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.Local)
	snaps := []backup.Snapshot{
		{Original: "fstab", Timestamp: "20240102_100000", Path: "/b/fstab_20240102_100000", Size: 1536},
	}

	headers, rows := newBackupList("/b", snaps, now).Table()
	assert.Equal(t, []string{"FILE", "TIMESTAMP", "AGE", "SIZE", "PATH"}, headers)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"fstab", "20240102_100000", "2 hours ago", "1.5 KiB", "/b/fstab_20240102_100000"}, rows[0])
}

func TestGlobalFlags_Invalid(t *testing.T) {
	h := newTestHost(t)

	err := h.run("--format", "xml", "backups")
	require.Error(t, err)

	err = h.run("--log-format", "logfmt", "backups")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		name       string
		format     string
		wantFormat serializer.Format
		wantErr    bool
	}{
		{name: "valid yaml format", format: "yaml", wantFormat: serializer.FormatYAML},
		{name: "valid json format", format: "json", wantFormat: serializer.FormatJSON},
		{name: "valid table format", format: "table", wantFormat: serializer.FormatTable},
		{name: "invalid format xml", format: "xml", wantErr: true},
		{name: "empty format", format: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cli.Command{
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Value: tt.format,
					},
				},
				Action: func(_ context.Context, c *cli.Command) error {
					got, err := parseOutputFormat(c)
					if (err != nil) != tt.wantErr {
						t.Errorf("parseOutputFormat() error = %v, wantErr %v", err, tt.wantErr)
						return nil
					}
					if !tt.wantErr && got != tt.wantFormat {
						t.Errorf("parseOutputFormat() = %v, want %v", got, tt.wantFormat)
					}
					return nil
				},
			}

			if err := cmd.Run(context.Background(), []string{"test"}); err != nil {
				t.Fatalf("failed to run command: %v", err)
			}
		})
	}
}

func TestWatchSignals(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	var out bytes.Buffer
	done := make(chan struct{})
	go func() {
		watchSignals(sigCh, &out, cancel)
		close(done)
	}()

	sigCh <- os.Interrupt
	<-done

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Contains(t, out.String(), "rolling back")
	assert.Contains(t, out.String(), "force exit")
}

func TestWatchSignals_Closed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal)
	close(sigCh)
	var out bytes.Buffer
	watchSignals(sigCh, &out, cancel)

	assert.NoError(t, ctx.Err())
	assert.Empty(t, out.String())
}
