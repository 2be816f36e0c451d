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

package tuning

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/NVIDIA/sysopt/pkg/defaults"
	"github.com/NVIDIA/sysopt/pkg/errors"
	"github.com/NVIDIA/sysopt/pkg/executor"
)

// KernelName is the step name.
const KernelName = "kernel"

// KernelConfig describes the package repository and kernel to install.
type KernelConfig struct {
	// KeyURL serves the ASCII-armored repository signing key.
	KeyURL string `json:"keyURL" yaml:"keyURL"`

	// Keyring is where the dearmored key is written.
	Keyring string `json:"keyring" yaml:"keyring"`

	// RepoList is the apt sources list file for the repository.
	RepoList string `json:"repoList" yaml:"repoList"`

	// RepoURL and Suite form the "deb" line.
	RepoURL string `json:"repoURL" yaml:"repoURL"`
	Suite   string `json:"suite" yaml:"suite"`

	// Package is the kernel package to install.
	Package string `json:"package" yaml:"package"`

	// InstallTimeout bounds the package index update and install. Zero
	// means defaults.PackageInstallTimeout.
	InstallTimeout time.Duration `json:"installTimeout,omitempty" yaml:"installTimeout,omitempty"`
}

// DefaultKernelConfig returns the XanMod x86-64-v3 kernel settings.
func DefaultKernelConfig() KernelConfig {
	return KernelConfig{
		KeyURL:   "https://dl.xanmod.org/archive.key",
		Keyring:  "/usr/share/keyrings/xanmod-archive-keyring.gpg",
		RepoList: "/etc/apt/sources.list.d/xanmod-release.list",
		RepoURL:  "http://deb.xanmod.org",
		Suite:    "releases main",
		Package:  "linux-xanmod-x64v3",

		InstallTimeout: defaults.PackageInstallTimeout,
	}
}

// Validate reports missing fields.
func (c KernelConfig) Validate() error {
	missing := make([]string, 0)
	for name, v := range map[string]string{
		"keyURL":   c.KeyURL,
		"keyring":  c.Keyring,
		"repoList": c.RepoList,
		"repoURL":  c.RepoURL,
		"package":  c.Package,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.New(errors.ErrCodeInvalidRequest,
			"kernel config missing required fields: "+strings.Join(missing, ", "))
	}
	return nil
}

// Commands returns the three commands run by the kernel step, in order:
// import the signing key, register the repository, install the kernel.
func (c KernelConfig) Commands() []executor.Command {
	importKey := executor.Shell(fmt.Sprintf("wget -qO - %s | gpg --batch --yes --dearmor -o %s",
		shellQuote(c.KeyURL), shellQuote(c.Keyring)))

	repoLine := fmt.Sprintf("deb [signed-by=%s] %s %s", c.Keyring, c.RepoURL, c.Suite)
	addRepo := executor.Shell(fmt.Sprintf("echo %s | tee %s",
		shellQuote(strings.TrimSpace(repoLine)), shellQuote(c.RepoList)))

	install := executor.Shell(fmt.Sprintf("apt-get update && apt-get install -y %s",
		shellQuote(c.Package)))
	install.Timeout = c.InstallTimeout
	if install.Timeout <= 0 {
		install.Timeout = defaults.PackageInstallTimeout
	}

	return []executor.Command{importKey, addRepo, install}
}

// KernelStep installs the kernel package. It rewrites no file tracked by
// the backup store; the keyring and repository list it creates are not
// restored on failure.
type KernelStep struct {
	Config KernelConfig
	Runner executor.Runner
}

// NewKernelStep returns the kernel install step.
func NewKernelStep(cfg KernelConfig, runner executor.Runner) *KernelStep {
	return &KernelStep{Config: cfg, Runner: runner}
}

// Name implements Step.
func (s *KernelStep) Name() string { return KernelName }

// Target implements Step.
func (s *KernelStep) Target() string { return "" }

// Apply implements Step.
func (s *KernelStep) Apply(ctx context.Context) (*Change, error) {
	if err := s.Config.Validate(); err != nil {
		return nil, err
	}

	change := &Change{}
	for _, cmd := range s.Config.Commands() {
		if err := ctx.Err(); err != nil {
			return change, err
		}
		change.Commands = append(change.Commands, cmd.String())
		if _, err := s.Runner.Run(ctx, cmd); err != nil {
			slog.Error("failed to execute", "command", cmd.String(), "error", err)
			return change, err
		}
	}

	slog.Info("installed kernel package", "package", s.Config.Package)
	return change, nil
}

// shellQuote wraps s in single quotes for /bin/sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
