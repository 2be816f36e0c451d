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
	"log/slog"
	"strings"

	"github.com/NVIDIA/sysopt/pkg/executor"
	"github.com/NVIDIA/sysopt/pkg/file"
)

// SysctlName is the step name.
const SysctlName = "sysctl"

var sysctlParams = []Param{
	{"net.core.rmem_max", "16777216"},
	{"net.core.wmem_max", "16777216"},
	{"net.ipv4.tcp_rmem", "4096 87380 16777216"},
	{"net.ipv4.tcp_wmem", "4096 87380 16777216"},
	{"net.ipv4.tcp_window_scaling", "1"},
	{"net.ipv4.tcp_timestamps", "1"},
	{"net.ipv4.tcp_mtu_probing", "1"},
	{"net.ipv4.tcp_base_mss", "1460"},
	{"net.ipv4.tcp_congestion_control", "westwood+"},
	{"net.ipv4.tcp_slow_start_after_idle", "1"},
	{"net.ipv4.tcp_sack", "0"},
	{"net.ipv4.tcp_max_tw_buckets", "200000"},
	{"net.ipv4.tcp_max_orphans", "200000"},
	{"net.ipv4.udp_rmem_min", "4096"},
	{"net.ipv4.udp_wmem_min", "4096"},
	{"net.ipv4.udp_rmem_def", "87380"},
	{"net.ipv4.udp_wmem_def", "87380"},
	{"net.ipv4.udp_rmem_max", "16777216"},
	{"net.ipv4.udp_wmem_max", "16777216"},
	{"net.ipv4.udp_checksum", "1"},
	{"net.ipv4.udp_mem", "16777216 16777216 16777216"},
	{"net.ipv4.udp_frag", "1"},
	{"net.ipv4.udp_checksum_verify", "0"},
	{"net.ipv4.udp_timeout", "300"},
	{"net.core.netdev_max_backlog", "10000"},
	{"net.core.somaxconn", "1024"},
	{"net.ipv4.tcp_max_syn_backlog", "1024"},
	{"net.ipv4.tcp_tw_reuse", "1"},
	{"net.ipv4.tcp_tw_recycle", "1"},
	{"vm.dirty_ratio", "10"},
	{"vm.dirty_background_ratio", "5"},
	{"vm.swappiness", "10"},
	{"vm.vfs_cache_pressure", "50"},
	{"kernel.sched_latency_ns", "1000000"},
	{"kernel.sched_migration_cost_ns", "50000"},
	{"kernel.sched_min_granularity_ns", "1000000"},
	{"vm.overcommit_memory", "1"},
	{"vm.overcommit_ratio", "50"},
	{"fs.file-max", "1000000"},
	{"fs.nr_open", "1000000"},
	{"kernel.threads-max", "1000000"},
	{"vm.max_map_count", "262144"},
}

// SysctlParams returns the fixed kernel parameter set in file order.
func SysctlParams() []Param {
	out := make([]Param, len(sysctlParams))
	copy(out, sysctlParams)
	return out
}

// RenderSysctl renders params as "key = value" lines.
func RenderSysctl(params []Param) string {
	var b strings.Builder
	for _, p := range params {
		b.WriteString(p.Key)
		b.WriteString(" = ")
		b.WriteString(p.Value)
		b.WriteString("\n")
	}
	return b.String()
}

// Reloader applies a sysctl file to the running kernel. It returns a
// description of the action taken for the run report.
type Reloader interface {
	Reload(ctx context.Context, path string) (string, error)
}

// ExecReloader runs "sysctl -p <path>".
type ExecReloader struct {
	Runner executor.Runner
}

// Reload implements Reloader.
func (r *ExecReloader) Reload(ctx context.Context, path string) (string, error) {
	cmd := SysctlReloadCommand(path)
	_, err := r.Runner.Run(ctx, cmd)
	return cmd.String(), err
}

// SysctlReloadCommand is the command ExecReloader runs.
func SysctlReloadCommand(path string) executor.Command {
	return executor.Command{Name: "sysctl", Args: []string{"-p", path}}
}

// SysctlStep overwrites the sysctl file and reloads it.
type SysctlStep struct {
	Path     string
	Params   []Param
	Reloader Reloader

	// Live, when set, is compared against Params after a reload.
	Live *LiveParams
}

// NewSysctlStep returns the sysctl step with the fixed parameter set.
func NewSysctlStep(path string, reloader Reloader) *SysctlStep {
	return &SysctlStep{
		Path:     path,
		Params:   SysctlParams(),
		Reloader: reloader,
	}
}

// Name implements Step.
func (s *SysctlStep) Name() string { return SysctlName }

// Target implements Step.
func (s *SysctlStep) Target() string { return s.Path }

// Apply implements Step.
func (s *SysctlStep) Apply(ctx context.Context) (*Change, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	old, perm, err := readTarget(s.Path)
	if err != nil {
		return nil, err
	}

	if err := writeTarget(s.Path, RenderSysctl(s.Params), perm); err != nil {
		return nil, err
	}
	slog.Info("wrote kernel parameters", "path", s.Path, "count", len(s.Params))

	change := &Change{Replaced: previousValues(old, s.Params)}

	if s.Reloader != nil {
		action, err := s.Reloader.Reload(ctx, s.Path)
		if action != "" {
			change.Commands = append(change.Commands, action)
		}
		if err != nil {
			return change, err
		}
		slog.Info("reloaded kernel parameters", "path", s.Path, "action", action)
		s.verify(ctx, change)
	}

	return change, nil
}

// verify records drift between the written and live values. It only warns.
func (s *SysctlStep) verify(ctx context.Context, change *Change) {
	if s.Live == nil {
		return
	}
	drift, err := s.Live.Drift(ctx, s.Params)
	if err != nil {
		slog.Warn("live parameter check interrupted", "error", err)
	}
	for _, d := range drift {
		slog.Warn("kernel parameter differs from configured value", "key", d.Key, "live", d.Value)
	}
	change.Drift = drift
}

// previousValues returns old values of the given keys in old file order.
func previousValues(content string, params []Param) []file.Pair {
	want := make(map[string]struct{}, len(params))
	for _, p := range params {
		want[p.Key] = struct{}{}
	}

	var res []file.Pair
	for _, kv := range file.NewParser().ParsePairs(content) {
		if _, ok := want[kv.Key]; ok {
			res = append(res, kv)
		}
	}
	return res
}
