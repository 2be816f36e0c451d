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

// Package defaults provides centralized configuration constants for sysopt.
//
// This package defines file locations, timeouts and naming formats used across
// the codebase. Centralizing these values keeps the CLI, the config loader and
// the tuning steps consistent.
//
// # Categories
//
//   - Paths: target configuration files and the backup store
//   - Command timeouts: for kernel parameter reload, bootloader regeneration
//     and package installation
//   - Snapshot naming: the run timestamp layout
//
// # Usage
//
//	import "github.com/NVIDIA/sysopt/pkg/defaults"
//
//	ctx, cancel := context.WithTimeout(ctx, defaults.CommandTimeout)
//	defer cancel()
package defaults
