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

// Package optimizer sequences the tuning steps with backup and rollback.
//
// A run moves through
//
//	Idle → Running → Succeeded
//	               → Failed → RollingBack → RolledBack
//
// Before each step that rewrites a file, the file is copied into the backup
// store under the run timestamp. The first step error stops the run and
// every file backed up so far is restored from its latest snapshot. A
// failure before the first backup (missing privileges, unusable store)
// ends in Failed with nothing to roll back.
//
// Run never returns an error. The returned Report carries the final state,
// per-step results, restorations and the error code; ExitCode maps it to
// the process exit status.
package optimizer
