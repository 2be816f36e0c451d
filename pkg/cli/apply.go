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
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/sysopt/pkg/optimizer"
)

func applyCmd() *cli.Command {
	return &cli.Command{
		Name:                  "apply",
		EnableShellCompletion: true,
		Usage:                 "Back up, tune and roll back on failure",
		Description: `Run every tuning step in order:
  1. fstab  - mount /tmp, /var/log, /var/spool and /var/tmp as tmpfs and set
              SSD mount options on the root filesystem
  2. sysctl - overwrite the kernel parameter file and reload it
  3. grub   - set kernel command line and boot timeout, run update-grub
  4. kernel - register the XanMod repository and install its kernel

Each file is copied to the backup store before it is changed. The first
failing step stops the run and every changed file is restored.

The run report is written in the selected format. The command exits 1 on
any failure.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "sysctl-reload",
				Usage:   "How kernel parameters are reloaded (exec, systemd; overrides config)",
				Sources: cli.EnvVars("SYSOPT_SYSCTL_RELOAD"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if _, err := parseOutputFormat(cmd); err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			metrics := optimizer.NewMetrics()
			report := newOptimizer(cfg, optimizer.WithMetrics(metrics)).Run(ctx)
			writeMetrics(cmd, metrics)

			slog.Info("run finished",
				"run", report.RunID,
				"state", report.State,
				"code", report.ErrorCode)

			if err := writeOutput(ctx, cmd, report); err != nil {
				return err
			}
			return report.Err()
		},
	}
}
