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

// Package executor runs external tools on behalf of the tuning steps.
//
// Steps never call os/exec directly. They receive a Runner, which keeps the
// sequencing logic testable without touching a real system: production code
// uses Exec, tests use Recorder.
//
// A command that cannot be started, exits non-zero or outlives its timeout
// yields an error with code EXTERNAL_COMMAND. The error context carries the
// command line, the exit code and the tail of the combined output.
package executor
