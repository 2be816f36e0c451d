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

// Package errors provides structured error types used across sysopt so that
// failures can be classified programmatically and reported with context.
//
// Every step of a tuning run returns either nil or an error carrying an
// ErrorCode. The run controller is the only place that inspects codes: it
// records the code of the first failure in the run report and decides the
// process exit status from it.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeExternalCommand,
//	    "failed to regenerate bootloader config",
//	    cause,
//	    map[string]any{
//	        "command":  "update-grub",
//	        "exitCode": 1,
//	    },
//	)
//
//	if errors.CodeOf(err) == errors.ErrCodePrivilege {
//	    // nothing was modified
//	}
package errors
