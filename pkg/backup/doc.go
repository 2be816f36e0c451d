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

// Package backup snapshots configuration files before they are modified and
// restores them when a tuning run fails.
//
// # Layout
//
// The store is a flat directory. Each snapshot is named after the original
// file's base name and the run timestamp:
//
//	/var/backups/sysopt/fstab_20250115_103000
//	/var/backups/sysopt/sysctl.conf_20250115_103000
//	/var/backups/sysopt/grub_20250115_103000
//
// Snapshots are never deleted by sysopt; they accumulate across runs.
//
// # Runs
//
// A Run carries the fixed timestamp of one invocation and the ordered list
// of files backed up so far. It is created by the caller and passed to every
// Backup and RestoreAll call; the store itself holds no per-run state.
//
//	run := backup.NewRun(time.Now())
//	if _, err := store.Backup(run, "/etc/fstab"); err != nil {
//	    return err
//	}
//	// ... mutate /etc/fstab ...
//	for _, r := range store.RestoreAll(run) {
//	    if r.Failed() { ... }
//	}
//
// # Snapshot Selection
//
// Restoration picks, among snapshots whose name is "<basename>_<timestamp>",
// the one with the lexicographically greatest timestamp. The timestamp layout
// is fixed width and zero padded, so this is also the most recent one.
//
// # Metadata
//
// Copies preserve permission bits, ownership (when permitted), access and
// modification times, and extended attributes (when the filesystem supports
// them).
package backup
