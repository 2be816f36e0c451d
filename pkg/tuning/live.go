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
	"path/filepath"
	"strings"

	"github.com/NVIDIA/sysopt/pkg/defaults"
	"github.com/NVIDIA/sysopt/pkg/file"
)

// Absent is reported as the live value of a parameter the kernel does not
// expose.
const Absent = "<absent>"

// LiveParams reads kernel parameters from Root, or defaults.ProcSysRoot
// when Root is empty.
type LiveParams struct {
	Root string
}

// Path maps "net.core.rmem_max" to <root>/net/core/rmem_max.
func (l *LiveParams) Path(key string) string {
	return filepath.Join(l.root(), filepath.FromSlash(strings.ReplaceAll(key, ".", "/")))
}

// Get returns the live value with runs of whitespace collapsed, so
// "4096\t87380\t16777216" compares equal to "4096 87380 16777216".
func (l *LiveParams) Get(key string) (string, error) {
	lines, err := file.NewParser(
		file.WithSkipComments(false),
		file.WithMaxSize(defaults.MaxProcSysValueSize),
	).GetLines(l.Path(key))
	if err != nil {
		return "", err
	}
	return normalize(strings.Join(lines, " ")), nil
}

// Drift returns the parameters whose live value differs from the wanted
// one, with the live value (or Absent) as the pair value.
func (l *LiveParams) Drift(ctx context.Context, params []Param) ([]file.Pair, error) {
	var drift []file.Pair
	for _, p := range params {
		if err := ctx.Err(); err != nil {
			return drift, err
		}
		live, err := l.Get(p.Key)
		if err != nil {
			drift = append(drift, file.Pair{Key: p.Key, Value: Absent})
			continue
		}
		if live != normalize(p.Value) {
			drift = append(drift, file.Pair{Key: p.Key, Value: live})
		}
	}
	return drift, nil
}

func (l *LiveParams) root() string {
	if l.Root == "" {
		return defaults.ProcSysRoot
	}
	return l.Root
}

func normalize(v string) string {
	return strings.Join(strings.Fields(v), " ")
}
