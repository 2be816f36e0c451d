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

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/NVIDIA/sysopt/pkg/defaults"
	"github.com/NVIDIA/sysopt/pkg/errors"
	"github.com/NVIDIA/sysopt/pkg/executor"
	"github.com/NVIDIA/sysopt/pkg/serializer"
	"github.com/NVIDIA/sysopt/pkg/systemd"
	"github.com/NVIDIA/sysopt/pkg/tuning"
)

// ReloadMode selects how kernel parameters are applied after the sysctl
// file is rewritten.
type ReloadMode string

const (
	// ReloadExec runs "sysctl -p <file>".
	ReloadExec ReloadMode = "exec"
	// ReloadSystemd restarts systemd-sysctl.service over D-Bus.
	ReloadSystemd ReloadMode = "systemd"
)

// ParseReloadMode returns the mode named by s.
func ParseReloadMode(s string) (ReloadMode, error) {
	m := ReloadMode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ReloadExec, ReloadSystemd:
		return m, nil
	default:
		return "", errors.NewWithContext(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("unknown sysctl reload mode %q", s),
			map[string]any{"supported": []string{string(ReloadExec), string(ReloadSystemd)}})
	}
}

// Paths are the files rewritten by the tuning steps.
type Paths struct {
	Fstab  string `json:"fstab,omitempty" yaml:"fstab,omitempty"`
	Sysctl string `json:"sysctl,omitempty" yaml:"sysctl,omitempty"`
	Grub   string `json:"grub,omitempty" yaml:"grub,omitempty"`
}

// Sysctl configures the sysctl step.
type Sysctl struct {
	Reload ReloadMode `json:"reload,omitempty" yaml:"reload,omitempty"`
}

// Config is the full tool configuration.
type Config struct {
	Paths          Paths               `json:"paths" yaml:"paths"`
	BackupDir      string              `json:"backupDir,omitempty" yaml:"backupDir,omitempty"`
	CommandTimeout time.Duration       `json:"commandTimeout,omitempty" yaml:"commandTimeout,omitempty"`
	Sysctl         Sysctl              `json:"sysctl" yaml:"sysctl"`
	Kernel         tuning.KernelConfig `json:"kernel" yaml:"kernel"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Paths: Paths{
			Fstab:  defaults.FstabPath,
			Sysctl: defaults.SysctlPath,
			Grub:   defaults.GrubPath,
		},
		BackupDir:      defaults.BackupDir,
		CommandTimeout: defaults.CommandTimeout,
		Sysctl:         Sysctl{Reload: ReloadExec},
		Kernel:         tuning.DefaultKernelConfig(),
	}
}

// Load reads path over the defaults and validates the result. An empty
// path means defaults.ConfigPath, which may be absent; an explicit path
// must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	optional := path == ""
	if optional {
		path = defaults.ConfigPath
	}

	fi, err := os.Stat(path)
	switch {
	case err == nil:
	case os.IsNotExist(err) && optional:
		slog.Debug("no configuration file, using defaults", "path", path)
		return cfg, nil
	case os.IsNotExist(err):
		return nil, errors.WrapWithContext(errors.ErrCodeNotFound, "configuration file not found", err,
			map[string]any{"path": path})
	default:
		return nil, errors.WrapWithContext(errors.ErrCodeIO, "failed to stat configuration file", err,
			map[string]any{"path": path})
	}

	if fi.Size() > defaults.MaxConfigFileSize {
		return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest, "configuration file too large",
			map[string]any{"path": path, "size": fi.Size()})
	}

	if err := serializer.IntoFile(path, cfg); err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeInvalidRequest, "failed to parse configuration file", err,
			map[string]any{"path": path})
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("loaded configuration", "path", path)
	return cfg, nil
}

// Validate checks that every path is absolute and every setting is known.
func (c *Config) Validate() error {
	var problems []string

	for name, p := range map[string]string{
		"paths.fstab":  c.Paths.Fstab,
		"paths.sysctl": c.Paths.Sysctl,
		"paths.grub":   c.Paths.Grub,
		"backupDir":    c.BackupDir,
	} {
		if !filepath.IsAbs(p) {
			problems = append(problems, fmt.Sprintf("%s must be an absolute path, got %q", name, p))
		}
	}

	if c.CommandTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("commandTimeout must be positive, got %s", c.CommandTimeout))
	}

	if _, err := ParseReloadMode(string(c.Sysctl.Reload)); err != nil {
		problems = append(problems, fmt.Sprintf("sysctl.reload must be %q or %q, got %q",
			ReloadExec, ReloadSystemd, c.Sysctl.Reload))
	}

	if c.Sysctl.Reload == ReloadSystemd && !systemd.LoadsSysctlFile(c.Paths.Sysctl) {
		problems = append(problems, fmt.Sprintf("sysctl.reload %q does not apply paths.sysctl %q; use %q",
			ReloadSystemd, c.Paths.Sysctl, ReloadExec))
	}

	if c.Kernel.InstallTimeout < 0 {
		problems = append(problems, fmt.Sprintf("kernel.installTimeout must not be negative, got %s",
			c.Kernel.InstallTimeout))
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return errors.NewWithContext(errors.ErrCodeInvalidRequest, "invalid configuration",
			map[string]any{"problems": problems})
	}

	return c.Kernel.Validate()
}

// Runner returns the external command runner configured with the command
// timeout.
func (c *Config) Runner() *executor.Exec {
	r := executor.NewExec()
	r.Timeout = c.CommandTimeout
	return r
}

// TuningOptions maps the configuration onto the tuning pipeline.
func (c *Config) TuningOptions(runner executor.Runner) tuning.Options {
	kernel := c.Kernel
	// A longer general timeout also lifts the install timeout.
	kernel.InstallTimeout = max(kernel.InstallTimeout, c.CommandTimeout)

	opts := tuning.Options{
		FstabPath:  c.Paths.Fstab,
		SysctlPath: c.Paths.Sysctl,
		GrubPath:   c.Paths.Grub,
		Kernel:     kernel,
		Runner:     runner,
	}

	if c.Sysctl.Reload == ReloadSystemd {
		opts.Reloader = systemd.NewReloader()
	} else {
		opts.Reloader = &tuning.ExecReloader{Runner: runner}
	}
	return opts
}

// Targets returns the files the pipeline rewrites, in step order.
func (c *Config) Targets() []string {
	return []string{c.Paths.Fstab, c.Paths.Sysctl, c.Paths.Grub}
}
