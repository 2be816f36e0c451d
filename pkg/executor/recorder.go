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

package executor

import (
	"context"
	"fmt"
	"sync"
)

// Recorder is a Runner that records invocations and returns scripted
// results instead of starting processes.
type Recorder struct {
	mu       sync.Mutex
	commands []Command
	failures map[string]int

	// OnRun, when set, is called for every command before the scripted
	// result is returned. A non-nil error is returned as the run error.
	OnRun func(cmd Command) error
}

// NewRecorder returns an empty Recorder where every command succeeds.
func NewRecorder() *Recorder {
	return &Recorder{failures: make(map[string]int)}
}

// FailOn makes any command whose Name equals name exit with exitCode.
func (r *Recorder) FailOn(name string, exitCode int) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[name] = exitCode
	return r
}

// Run implements Runner.
func (r *Recorder) Run(ctx context.Context, cmd Command) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	code, fail := r.failures[cmd.Name]
	hook := r.OnRun
	r.mu.Unlock()

	if hook != nil {
		if err := hook(cmd); err != nil {
			return nil, err
		}
	}

	res := &Result{}
	if fail {
		res.ExitCode = code
		res.Output = []byte(fmt.Sprintf("%s: simulated failure", cmd.Name))
		return res, CommandError(cmd, res,
			fmt.Sprintf("command exited with status %d", code), fmt.Errorf("exit status %d", code))
	}
	return res, nil
}

// Commands returns a copy of the recorded invocations in order.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Names returns the recorded command names in order.
func (r *Recorder) Names() []string {
	cmds := r.Commands()
	names := make([]string, 0, len(cmds))
	for _, c := range cmds {
		names = append(names, c.Name)
	}
	return names
}
