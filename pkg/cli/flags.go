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
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/sysopt/pkg/backup"
	"github.com/NVIDIA/sysopt/pkg/config"
	"github.com/NVIDIA/sysopt/pkg/defaults"
	"github.com/NVIDIA/sysopt/pkg/errors"
	"github.com/NVIDIA/sysopt/pkg/executor"
	"github.com/NVIDIA/sysopt/pkg/host"
	"github.com/NVIDIA/sysopt/pkg/optimizer"
	"github.com/NVIDIA/sysopt/pkg/serializer"
	"github.com/NVIDIA/sysopt/pkg/tuning"
)

// globalFlags returns new flag instances for each command tree.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   fmt.Sprintf("Configuration file (default %s if present)", defaults.ConfigPath),
			Sources: cli.EnvVars("SYSOPT_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "backup-dir",
			Usage:   "Backup store directory (overrides config)",
			Value:   defaults.BackupDir,
			Sources: cli.EnvVars("SYSOPT_BACKUP_DIR"),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file path (default: stdout)",
			Sources: cli.EnvVars("SYSOPT_OUTPUT"),
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"t"},
			Usage:   fmt.Sprintf("Output format (supported values: %v)", serializer.SupportedFormats()),
			Value:   string(serializer.FormatYAML),
			Sources: cli.EnvVars("SYSOPT_FORMAT"),
		},
		&cli.StringFlag{
			Name:    "metrics-file",
			Usage:   "Write run metrics to this file in Prometheus text format",
			Sources: cli.EnvVars("SYSOPT_METRICS_FILE"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("SYSOPT_LOG_LEVEL", "LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (json, text)",
			Value:   "json",
			Sources: cli.EnvVars("SYSOPT_LOG_FORMAT"),
		},
	}
}

// Test hooks.
var (
	privilegeCheck = optimizer.RequireRoot
	newRunner      = defaultRunner
)

func defaultRunner(cfg *config.Config) executor.Runner {
	return cfg.Runner()
}

func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	return serializer.ParseFormat(cmd.String("format"))
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("backup-dir") {
		cfg.BackupDir = cmd.String("backup-dir")
	}
	if cmd.IsSet("sysctl-reload") {
		mode, err := config.ParseReloadMode(cmd.String("sysctl-reload"))
		if err != nil {
			return nil, err
		}
		cfg.Sysctl.Reload = mode
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newOptimizer(cfg *config.Config, opts ...optimizer.Option) *optimizer.Optimizer {
	runner := newRunner(cfg)
	base := []optimizer.Option{
		optimizer.WithPrivilegeChecker(privilegeCheck),
		optimizer.WithVersion(version),
		optimizer.WithHost(&host.Collector{}),
	}
	return optimizer.New(
		backup.NewStore(cfg.BackupDir),
		tuning.DefaultSteps(cfg.TuningOptions(runner)),
		append(base, opts...)...,
	)
}

// writeOutput serializes v to --output in --format.
func writeOutput(ctx context.Context, cmd *cli.Command, v any) error {
	format, err := parseOutputFormat(cmd)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidRequest, "invalid output format", err)
	}

	w, err := serializer.NewFileWriterOrStdout(format, cmd.String("output"))
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, "failed to open output", err)
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil {
			slog.Warn("failed to close output", "error", closeErr)
		}
	}()

	if err := w.Serialize(ctx, v); err != nil {
		return errors.Wrap(errors.ErrCodeIO, "failed to write output", err)
	}
	return nil
}

// writeMetrics writes m when --metrics-file is set. Failures are logged
// only; they never change the run outcome.
func writeMetrics(cmd *cli.Command, m *optimizer.Metrics) {
	path := cmd.String("metrics-file")
	if path == "" {
		return
	}
	if err := m.WriteTextfile(path); err != nil {
		slog.Warn("failed to write metrics", "path", path, "error", err)
		return
	}
	slog.Debug("wrote metrics", "path", path)
}
