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

package systemd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"

	"github.com/NVIDIA/sysopt/pkg/defaults"
	"github.com/NVIDIA/sysopt/pkg/errors"
)

const (
	// SysctlUnit applies sysctl configuration files at boot.
	SysctlUnit = "systemd-sysctl.service"

	// jobDone is the result systemd reports for a successful job.
	jobDone = "done"

	restartMode = "replace"
)

// sysctlDirs are the directories systemd-sysctl reads *.conf files from.
var sysctlDirs = []string{"/etc/sysctl.d", "/run/sysctl.d", "/usr/local/lib/sysctl.d", "/usr/lib/sysctl.d"}

// LoadsSysctlFile reports whether systemd-sysctl.service applies path:
// /etc/sysctl.conf or a *.conf file directly inside a sysctl.d directory.
func LoadsSysctlFile(path string) bool {
	path = filepath.Clean(path)
	if path == defaults.SysctlPath {
		return true
	}
	if !strings.HasSuffix(path, ".conf") {
		return false
	}
	dir := filepath.Dir(path)
	for _, d := range sysctlDirs {
		if dir == d {
			return true
		}
	}
	return false
}

// Conn is the subset of the systemd D-Bus connection used here.
type Conn interface {
	RestartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	Close()
}

// Dialer opens a systemd connection.
type Dialer func(ctx context.Context) (Conn, error)

func dialSystemd(ctx context.Context) (Conn, error) {
	conn, err := dbus.NewSystemdConnectionContext(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Reloader restarts a unit and waits for its job result.
type Reloader struct {
	Unit    string
	Timeout time.Duration
	Dial    Dialer
}

// NewReloader returns a Reloader for systemd-sysctl.service.
func NewReloader() *Reloader {
	return &Reloader{
		Unit:    SysctlUnit,
		Timeout: defaults.SystemdJobTimeout,
		Dial:    dialSystemd,
	}
}

// Action describes the reload for run reports.
func (r *Reloader) Action() string {
	return fmt.Sprintf("systemctl restart %s", r.unit())
}

// Reload restarts the unit. It returns an EXTERNAL_COMMAND error when the
// job does not finish with "done" before the timeout.
func (r *Reloader) Reload(ctx context.Context, path string) (string, error) {
	action := r.Action()
	if err := ctx.Err(); err != nil {
		return action, err
	}

	unit := r.unit()
	if unit == SysctlUnit && !LoadsSysctlFile(path) {
		return action, errors.NewWithContext(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("%s does not read %s", unit, path),
			map[string]any{"unit": unit, "path": path})
	}

	dial := r.Dial
	if dial == nil {
		dial = dialSystemd
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaults.SystemdJobTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := dial(ctx)
	if err != nil {
		return action, errors.Wrap(errors.ErrCodeExternalCommand, "failed to connect to systemd", err)
	}
	defer conn.Close()

	ch := make(chan string, 1)
	jobID, err := conn.RestartUnitContext(ctx, unit, restartMode, ch)
	if err != nil {
		return action, errors.WrapWithContext(errors.ErrCodeExternalCommand, "failed to restart unit", err,
			map[string]any{"unit": unit})
	}

	select {
	case result := <-ch:
		if result != jobDone {
			return action, errors.NewWithContext(errors.ErrCodeExternalCommand,
				fmt.Sprintf("unit restart finished with result %q", result),
				map[string]any{"unit": unit, "job": jobID, "result": result})
		}
	case <-ctx.Done():
		return action, errors.WrapWithContext(errors.ErrCodeExternalCommand, "timed out waiting for unit restart",
			ctx.Err(), map[string]any{"unit": unit, "job": jobID})
	}

	slog.Debug("restarted unit", "unit", unit, "job", jobID, "path", path)
	return action, nil
}

func (r *Reloader) unit() string {
	if r.Unit == "" {
		return SysctlUnit
	}
	return r.Unit
}
