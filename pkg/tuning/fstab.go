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
	"strings"

	"github.com/NVIDIA/sysopt/pkg/file"
)

// FstabName is the step name.
const FstabName = "fstab"

// SSDMountOptions replace the root filesystem's mount options.
const SSDMountOptions = "noatime,nodiratime,discard"

var (
	// Any line mentioning one of these paths is dropped before the tmpfs
	// entries are appended.
	tmpfsMounts = []string{"/tmp", "/var/log", "/var/spool", "/var/tmp"}

	tmpfsEntries = []string{
		"tmpfs /tmp tmpfs defaults,noatime,mode=1777 0 0",
		"tmpfs /var/log tmpfs defaults,noatime,mode=0755 0 0",
		"tmpfs /var/spool tmpfs defaults,noatime,mode=1777 0 0",
		"tmpfs /var/tmp tmpfs defaults,noatime,mode=1777 0 0",
	}

	// UUID=<id> / <fstype> <options>
	rootEntryRegex = regexp.MustCompile(`^(\s*UUID=\S+\s+/\s+\S+\s+)(\S+)`)
)

// FstabStep rewrites the mount table.
type FstabStep struct {
	Path string
}

// NewFstabStep returns the fstab step for path.
func NewFstabStep(path string) *FstabStep {
	return &FstabStep{Path: path}
}

// Name implements Step.
func (s *FstabStep) Name() string { return FstabName }

// Target implements Step.
func (s *FstabStep) Target() string { return s.Path }

// Apply implements Step.
func (s *FstabStep) Apply(ctx context.Context) (*Change, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, perm, err := readTarget(s.Path)
	if err != nil {
		return nil, err
	}

	out, replaced := TransformFstab(content)
	if err := writeTarget(s.Path, out, perm); err != nil {
		return nil, err
	}

	slog.Info("rewrote mount table", "path", s.Path,
		"removed", len(replaced), "tmpfsEntries", len(tmpfsEntries))
	return &Change{Replaced: replaced}, nil
}

// TransformFstab removes every line that mentions a tmpfs mount point,
// applies SSDMountOptions to the root UUID entry and appends the tmpfs
// entries. It also returns what was removed or replaced.
func TransformFstab(content string) (string, []file.Pair) {
	var replaced []file.Pair
	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		if mentionsTmpfsMount(line) {
			replaced = append(replaced, file.Pair{Key: "removed", Value: strings.TrimSpace(line)})
			continue
		}
		if m := rootEntryRegex.FindStringSubmatchIndex(line); m != nil {
			prev := line[m[4]:m[5]]
			line = line[:m[4]] + SSDMountOptions + line[m[5]:]
			replaced = append(replaced, file.Pair{Key: "root options", Value: prev})
		}
		kept = append(kept, line)
	}

	var b strings.Builder
	if body := strings.TrimSpace(strings.Join(kept, "\n")); body != "" {
		b.WriteString(body)
		b.WriteString("\n")
	}
	for _, e := range tmpfsEntries {
		b.WriteString(e)
		b.WriteString("\n")
	}
	return b.String(), replaced
}

func mentionsTmpfsMount(line string) bool {
	for _, m := range tmpfsMounts {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}
