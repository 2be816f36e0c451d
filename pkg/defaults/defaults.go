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

package defaults

import "time"

// Target configuration files.
const (
	// FstabPath is the static filesystem mount table.
	FstabPath = "/etc/fstab"

	// SysctlPath is the kernel parameter file rewritten by the sysctl step.
	SysctlPath = "/etc/sysctl.conf"

	// GrubPath is the bootloader defaults file.
	GrubPath = "/etc/default/grub"

	// ProcSysRoot exposes live kernel parameters.
	ProcSysRoot = "/proc/sys"
)

// Backup store and tool configuration locations.
const (
	// BackupDir holds one snapshot per (file, run).
	BackupDir = "/var/backups/sysopt"

	// BackupDirMode is applied when the store directory is created.
	BackupDirMode = 0o700

	// ConfigPath is the optional YAML configuration file.
	ConfigPath = "/etc/sysopt/config.yaml"
)

// Snapshot naming.
const (
	// TimestampLayout formats a run timestamp (YYYYMMDD_HHMMSS). Values of
	// this layout sort lexicographically in chronological order.
	TimestampLayout = "20060102_150405"
)

// Command timeouts for external tool invocations.
const (
	// CommandTimeout bounds short commands such as sysctl or update-grub.
	CommandTimeout = 2 * time.Minute

	// PackageInstallTimeout bounds the package index update and kernel install.
	PackageInstallTimeout = 30 * time.Minute

	// SystemdJobTimeout bounds waiting for a systemd unit restart job.
	SystemdJobTimeout = 30 * time.Second

	// CommandWaitDelay bounds waiting for output pipes after a command's
	// process group was killed.
	CommandWaitDelay = 2 * time.Second
)

// Limits for reading configuration files.
const (
	// MaxConfigFileSize is the largest target file the steps will parse.
	MaxConfigFileSize = 1 << 20

	// MaxProcSysValueSize bounds a single /proc/sys read.
	MaxProcSysValueSize = 64 << 10

	// CommandOutputTail is how many bytes of failed command output are kept
	// in error context.
	CommandOutputTail = 4096
)
