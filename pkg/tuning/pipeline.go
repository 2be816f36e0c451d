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
	"github.com/NVIDIA/sysopt/pkg/defaults"
	"github.com/NVIDIA/sysopt/pkg/executor"
)

// Options configures the default pipeline.
type Options struct {
	FstabPath  string
	SysctlPath string
	GrubPath   string
	Kernel     KernelConfig

	// Runner executes external commands. Required.
	Runner executor.Runner

	// Reloader applies the sysctl file. Defaults to ExecReloader over Runner.
	Reloader Reloader

	// ProcSysRoot is where live kernel parameters are read back from after
	// a reload. Defaults to /proc/sys.
	ProcSysRoot string
}

// DefaultSteps returns fstab, sysctl, grub and kernel steps in run order.
func DefaultSteps(opts Options) []Step {
	if opts.FstabPath == "" {
		opts.FstabPath = defaults.FstabPath
	}
	if opts.SysctlPath == "" {
		opts.SysctlPath = defaults.SysctlPath
	}
	if opts.GrubPath == "" {
		opts.GrubPath = defaults.GrubPath
	}
	if opts.Kernel == (KernelConfig{}) {
		opts.Kernel = DefaultKernelConfig()
	}
	if opts.Reloader == nil {
		opts.Reloader = &ExecReloader{Runner: opts.Runner}
	}

	sysctl := NewSysctlStep(opts.SysctlPath, opts.Reloader)
	sysctl.Live = &LiveParams{Root: opts.ProcSysRoot}

	return []Step{
		NewFstabStep(opts.FstabPath),
		sysctl,
		NewGrubStep(opts.GrubPath, opts.Runner),
		NewKernelStep(opts.Kernel, opts.Runner),
	}
}
