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
	"regexp"

	"github.com/NVIDIA/sysopt/pkg/executor"
)

// GrubName is the step name.
const GrubName = "grub"

var grubSettings = []Param{
	{"GRUB_CMDLINE_LINUX_DEFAULT", `"quiet elevator=deadline ibpb=off ibrs=off kpti=off l1tf=off mds=off ` +
		`mitigations=off no_stf_barrier noibpb noibrs nopcid nopti nospec_store_bypass_disable ` +
		`nospectre_v1 nospectre_v2 pcid=off pti=off spec_store_bypass_disable=off spectre_v2=off ` +
		`stf_barrier=off"`},
	{"GRUB_TIMEOUT", "2"},
}

// GrubSettings returns the bootloader defaults written by the grub step.
func GrubSettings() []Param {
	out := make([]Param, len(grubSettings))
	copy(out, grubSettings)
	return out
}

// UpdateGrubCommand regenerates the bootloader configuration.
func UpdateGrubCommand() executor.Command {
	return executor.Command{Name: "update-grub"}
}

// TransformGrub replaces every "KEY=..." line of each setting with the
// fixed value. It returns the keys that were not present; those stay absent.
func TransformGrub(content string, settings []Param) (string, []string) {
	var missing []string
	for _, p := range settings {
		re := regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(p.Key) + `=.*$`)
		if !re.MatchString(content) {
			missing = append(missing, p.Key)
			continue
		}
		content = re.ReplaceAllLiteralString(content, p.Key+"="+p.Value)
	}
	return content, missing
}

// GrubStep rewrites bootloader defaults and regenerates the config.
type GrubStep struct {
	Path     string
	Settings []Param
	Runner   executor.Runner
}

// NewGrubStep returns the grub step with the fixed settings.
func NewGrubStep(path string, runner executor.Runner) *GrubStep {
	return &GrubStep{
		Path:     path,
		Settings: GrubSettings(),
		Runner:   runner,
	}
}

// Name implements Step.
func (s *GrubStep) Name() string { return GrubName }

// Target implements Step.
func (s *GrubStep) Target() string { return s.Path }

// Apply implements Step.
func (s *GrubStep) Apply(ctx context.Context) (*Change, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	old, perm, err := readTarget(s.Path)
	if err != nil {
		return nil, err
	}

	out, missing := TransformGrub(old, s.Settings)
	for _, key := range missing {
		slog.Warn("bootloader setting not present, leaving it absent", "path", s.Path, "key", key)
	}

	if err := writeTarget(s.Path, out, perm); err != nil {
		return nil, err
	}
	slog.Info("rewrote bootloader defaults", "path", s.Path)

	change := &Change{Replaced: previousValues(old, s.Settings)}

	cmd := UpdateGrubCommand()
	change.Commands = append(change.Commands, cmd.String())
	if _, err := s.Runner.Run(ctx, cmd); err != nil {
		return change, err
	}
	slog.Info("regenerated bootloader configuration")

	return change, nil
}
