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

package host

import (
	"context"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	"github.com/NVIDIA/sysopt/pkg/file"
	"github.com/NVIDIA/sysopt/pkg/version"
)

var releasePaths = []string{"/etc/os-release", "/usr/lib/os-release"}

// Info is a point-in-time description of the host.
type Info struct {
	Hostname      string           `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Kernel        string           `json:"kernel,omitempty" yaml:"kernel,omitempty"`
	KernelVersion *version.Version `json:"kernelVersion,omitempty" yaml:"kernelVersion,omitempty"`
	Arch          string           `json:"arch,omitempty" yaml:"arch,omitempty"`
	OS            string           `json:"os,omitempty" yaml:"os,omitempty"`
}

// Collector gathers Info. Zero value reads the live system.
type Collector struct {
	Uname        func(*unix.Utsname) error
	Hostname     func() (string, error)
	ReleasePaths []string
}

// Collect returns whatever could be read. Individual sources that fail are
// logged and left empty; only cancellation is returned as an error.
func (c *Collector) Collect(ctx context.Context) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info := &Info{}

	hostname := c.Hostname
	if hostname == nil {
		hostname = os.Hostname
	}
	if h, err := hostname(); err == nil {
		info.Hostname = h
	} else {
		slog.Debug("failed to read hostname", "error", err)
	}

	uname := c.Uname
	if uname == nil {
		uname = unix.Uname
	}
	var u unix.Utsname
	if err := uname(&u); err == nil {
		info.Kernel = unix.ByteSliceToString(u.Release[:])
		info.Arch = unix.ByteSliceToString(u.Machine[:])
		if v, err := version.Parse(info.Kernel); err == nil {
			info.KernelVersion = &v
		} else {
			slog.Debug("unparsable kernel release", "release", info.Kernel, "error", err)
		}
	} else {
		slog.Debug("uname failed", "error", err)
	}

	info.OS = c.prettyName()
	return info, nil
}

// prettyName reads PRETTY_NAME from the first os-release file present.
func (c *Collector) prettyName() string {
	paths := c.ReleasePaths
	if len(paths) == 0 {
		paths = releasePaths
	}

	parser := file.NewParser(file.WithVTrimChars(`"'`))
	for _, p := range paths {
		m, err := parser.GetMap(p)
		if err != nil {
			continue
		}
		if name := m["PRETTY_NAME"]; name != "" {
			return name
		}
		return m["NAME"]
	}
	return ""
}
