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
	"os"

	"github.com/NVIDIA/sysopt/pkg/defaults"
	"github.com/NVIDIA/sysopt/pkg/errors"
	"github.com/NVIDIA/sysopt/pkg/file"
)

// Step is one unit of the tuning pipeline.
type Step interface {
	// Name identifies the step in logs and reports.
	Name() string

	// Target is the file the step rewrites, or "" when it rewrites none.
	Target() string

	// Apply performs the change.
	Apply(ctx context.Context) (*Change, error)
}

// Change describes what a step did.
type Change struct {
	// Replaced lists values that were present before the step and were
	// overwritten or removed.
	Replaced []file.Pair `json:"replaced,omitempty" yaml:"replaced,omitempty"`

	// Commands lists the external commands the step ran.
	Commands []string `json:"commands,omitempty" yaml:"commands,omitempty"`

	// Drift lists parameters whose live value did not match after reload.
	Drift []file.Pair `json:"drift,omitempty" yaml:"drift,omitempty"`
}

// Param is one fixed key/value setting.
type Param struct {
	Key   string
	Value string
}

func readTarget(path string) (string, os.FileMode, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", 0, errors.WrapWithContext(errors.ErrCodeIO, "failed to stat file", err,
			map[string]any{"path": path})
	}
	if fi.Size() > defaults.MaxConfigFileSize {
		return "", 0, errors.NewWithContext(errors.ErrCodeIO,
			fmt.Sprintf("file exceeds maximum size of %d bytes", defaults.MaxConfigFileSize),
			map[string]any{"path": path, "size": fi.Size()})
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return "", 0, errors.WrapWithContext(errors.ErrCodeIO, "failed to read file", err,
			map[string]any{"path": path})
	}
	return string(b), fi.Mode().Perm(), nil
}

func writeTarget(path, content string, perm os.FileMode) error {
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return errors.WrapWithContext(errors.ErrCodeIO, "failed to write file", err,
			map[string]any{"path": path})
	}
	return nil
}
