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

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/sysopt/pkg/errors"
	"github.com/NVIDIA/sysopt/pkg/logging"
)

const (
	name           = "sysopt"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Execute runs the root command with the process arguments and exits
// non-zero on failure.
func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM so an interrupted run still rolls back
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go watchSignals(sigCh, os.Stderr, cancel)

	if err := newRootCmd().Run(ctx, os.Args); err != nil {
		slog.Error("command failed", "code", errors.CodeOf(err), "error", err)
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1) //nolint:gocritic // cancel is called explicitly above
	}
}

// watchSignals cancels the run on the first signal and then restores the
// default handlers, so a second interrupt terminates the process at once.
func watchSignals(sigCh chan os.Signal, w io.Writer, cancel context.CancelFunc) {
	sig, ok := <-sigCh
	if !ok {
		return
	}
	signal.Stop(sigCh)
	fmt.Fprintf(w, "\nReceived %s, rolling back (interrupt again to force exit)...\n", sig)
	cancel()
}

func newRootCmd() *cli.Command {
	return &cli.Command{
		Name:                  name,
		Usage:                 "Host tuning with all-or-nothing rollback",
		Version:               fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		EnableShellCompletion: true,
		Description: `Rewrites the mount table, kernel parameters and bootloader defaults for
SSD-backed, latency-sensitive hosts and installs the XanMod kernel.

Every file is copied into the backup store before it is changed. If any step
fails, all files changed during the run are restored.`,
		Flags:          globalFlags(),
		Before:         initLogger,
		DefaultCommand: "apply",
		Commands: []*cli.Command{
			applyCmd(),
			restoreCmd(),
			backupsCmd(),
		},
	}
}

// initLogger configures slog after flags are parsed so --log-level and
// --log-format take effect before any command executes.
func initLogger(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	level := cmd.String("log-level")
	format := logging.Format(cmd.String("log-format"))
	if format != logging.FormatJSON && format != logging.FormatText {
		return ctx, errors.New(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("unknown log format %q, supported: json, text", format))
	}

	w := cmd.Root().ErrWriter
	if w == nil {
		w = os.Stderr
	}
	logging.SetDefault(logging.NewLogger(w, name, version, level, format))
	slog.Debug("starting",
		"name", name,
		"version", version,
		"commit", commit,
		"date", date,
		"logLevel", level)
	return ctx, nil
}
