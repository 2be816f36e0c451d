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

// Package cli implements the sysopt command line.
//
// # Commands
//
// apply - Tune the host (default command):
//
//	sysopt apply
//
// Backs up and rewrites /etc/fstab, /etc/sysctl.conf and /etc/default/grub,
// reloads kernel parameters, regenerates the bootloader configuration and
// installs the XanMod kernel. If any step fails, every file modified so far
// is restored from its snapshot and the command exits 1.
//
// restore - Restore target files from their latest snapshots:
//
//	sysopt restore [FILE...]
//
// backups - List snapshots in the backup store:
//
//	sysopt backups [--file fstab]
//
// # Global Flags
//
//	--config         Configuration file (default: /etc/sysopt/config.yaml if present)
//	--backup-dir     Backup store directory (default: /var/backups/sysopt)
//	--output, -o     Output file path (default: stdout)
//	--format, -t     Output format: yaml, json, table (default: yaml)
//	--metrics-file   Write run metrics in Prometheus text format
//	--log-level      debug, info, warn, error (default: info)
//	--log-format     json or text (default: json)
//
// Every flag can also be set through a SYSOPT_* environment variable, for
// example SYSOPT_BACKUP_DIR. LOG_LEVEL is honored as well.
//
// # Exit Codes
//
//	0  every step succeeded
//	1  any failure, including a rollback that could not restore every file
package cli
