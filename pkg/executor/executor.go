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
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/NVIDIA/sysopt/pkg/defaults"
	"github.com/NVIDIA/sysopt/pkg/errors"
)

// Command describes one external tool invocation.
type Command struct {
	// Name is the executable, resolved through PATH.
	Name string

	// Args are passed verbatim, no shell expansion.
	Args []string

	// Stdin is fed to the process when non-nil.
	Stdin []byte

	// Timeout overrides the runner default when positive.
	Timeout time.Duration
}

// Shell builds a command that runs script through /bin/sh -c.
func Shell(script string) Command {
	return Command{Name: "sh", Args: []string{"-c", script}}
}

// String renders the command line for logs and errors.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the outcome of a finished command.
type Result struct {
	ExitCode int
	Output   []byte
	Duration time.Duration
}

// Runner invokes external commands synchronously.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// Exec runs commands with os/exec.
type Exec struct {
	// Timeout applies to commands without their own. Zero means
	// defaults.CommandTimeout.
	Timeout time.Duration
}

// NewExec returns an Exec runner with default timeout.
func NewExec() *Exec {
	return &Exec{Timeout: defaults.CommandTimeout}
}

// Run executes cmd and waits for it. Combined stdout/stderr is captured.
// A non-zero exit returns both the Result and an EXTERNAL_COMMAND error.
func (e *Exec) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Name == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "command name cannot be empty")
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = e.Timeout
	}
	if timeout <= 0 {
		timeout = defaults.CommandTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out bytes.Buffer
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Stdout = &out
	c.Stderr = &out
	// Run in its own process group so cancellation reaches every process of
	// a shell pipeline, not just sh.
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		return unix.Kill(-c.Process.Pid, unix.SIGKILL)
	}
	c.WaitDelay = defaults.CommandWaitDelay
	if cmd.Stdin != nil {
		c.Stdin = bytes.NewReader(cmd.Stdin)
	}

	slog.Debug("running command", "command", cmd.String(), "timeout", timeout)

	start := time.Now()
	err := c.Run()
	res := &Result{
		ExitCode: -1,
		Output:   out.Bytes(),
		Duration: time.Since(start),
	}
	if c.ProcessState != nil {
		res.ExitCode = c.ProcessState.ExitCode()
	}

	if err == nil {
		slog.Debug("command finished", "command", cmd.String(), "duration", res.Duration)
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}

	var exitErr *exec.ExitError
	msg := "command failed to start"
	if stderrors.As(err, &exitErr) {
		msg = fmt.Sprintf("command exited with status %d", res.ExitCode)
	}

	return res, CommandError(cmd, res, msg, err)
}

// CommandError builds the EXTERNAL_COMMAND error for a failed invocation.
func CommandError(cmd Command, res *Result, msg string, cause error) error {
	ctx := map[string]any{
		"command": cmd.String(),
	}
	if res != nil {
		ctx["exitCode"] = res.ExitCode
		ctx["output"] = tail(res.Output, defaults.CommandOutputTail)
	}
	return errors.WrapWithContext(errors.ErrCodeExternalCommand,
		fmt.Sprintf("%s: %s", cmd.Name, msg), cause, ctx)
}

func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return strings.TrimSpace(string(b))
}
