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
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/sysopt/pkg/errors"
)

func restoreCmd() *cli.Command {
	return &cli.Command{
		Name:                  "restore",
		EnableShellCompletion: true,
		Usage:                 "Restore files from their latest snapshots",
		ArgsUsage:             "[FILE...]",
		Description: `Copy the newest snapshot of each file back over it. Without arguments the
files rewritten by apply are restored. Files without a snapshot are skipped.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if _, err := parseOutputFormat(cmd); err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				paths = cfg.Targets()
			}
			for i, p := range paths {
				abs, err := filepath.Abs(p)
				if err != nil {
					return errors.Wrap(errors.ErrCodeInvalidRequest, "invalid path", err)
				}
				paths[i] = abs
			}

			report := newOptimizer(cfg).Restore(ctx, paths)
			if err := writeOutput(ctx, cmd, report); err != nil {
				return err
			}
			return report.Err()
		},
	}
}
