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

// Package logging provides structured logging utilities for sysopt.
//
// # Overview
//
// This package wraps the standard library slog package with sysopt defaults
// so every step, backup and restoration emits a timestamped, leveled line.
// It supports level parsing, module/version
// context injection and source location tracking for debug logs.
//
// # Log Levels
//
// Supported log levels (case-insensitive):
//   - DEBUG: Detailed diagnostic information with source location
//   - INFO: General informational messages (default)
//   - WARN/WARNING: Potentially problematic situations
//   - ERROR: Failures requiring attention
//
// # Usage
//
//	logging.SetDefault(logging.NewLogger(os.Stderr, "sysopt", "v1.0.0", "info", logging.FormatJSON))
//	slog.Info("backing up file", "path", "/etc/fstab")
//
// # Environment Configuration
//
// The CLI reads the level from --log-level, SYSOPT_LOG_LEVEL or LOG_LEVEL:
//
//	LOG_LEVEL=debug sysopt apply
//
// # Output Format
//
// Logs are written to stderr in JSON format by default:
//
//	{
//	    "time": "2025-01-15T10:30:00.123Z",
//	    "level": "INFO",
//	    "msg": "backed up file",
//	    "module": "sysopt",
//	    "version": "v1.0.0",
//	    "path": "/etc/fstab"
//	}
package logging
