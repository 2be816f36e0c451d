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
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/sysopt/pkg/backup"
	"github.com/NVIDIA/sysopt/pkg/header"
)

// BackupEntry is one snapshot in the listing.
type BackupEntry struct {
	File      string    `json:"file" yaml:"file"`
	Timestamp string    `json:"timestamp" yaml:"timestamp"`
	Taken     time.Time `json:"taken" yaml:"taken"`
	Size      int64     `json:"size" yaml:"size"`
	Path      string    `json:"path" yaml:"path"`
}

// BackupList is the output of the backups command.
type BackupList struct {
	header.Header `json:",inline" yaml:",inline"`

	Dir     string        `json:"dir" yaml:"dir"`
	Backups []BackupEntry `json:"backups" yaml:"backups"`

	now time.Time
}

func newBackupList(dir string, snaps []backup.Snapshot, now time.Time) *BackupList {
	l := &BackupList{
		Header:  *header.New(header.WithKind(header.KindBackupList), header.WithTimestamp(now)),
		Dir:     dir,
		Backups: make([]BackupEntry, 0, len(snaps)),
		now:     now,
	}
	if version != "" {
		l.Metadata["version"] = version
	}

	for _, s := range snaps {
		e := BackupEntry{
			File:      s.Original,
			Timestamp: s.Timestamp,
			Size:      s.Size,
			Path:      s.Path,
		}
		if t, err := s.Time(); err == nil {
			e.Taken = t
		}
		l.Backups = append(l.Backups, e)
	}
	return l
}

// Table implements serializer.Tabular.
func (l *BackupList) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(l.Backups))
	for _, b := range l.Backups {
		rows = append(rows, []string{
			b.File,
			b.Timestamp,
			humanize.RelTime(b.Taken, l.now, "ago", "from now"),
			humanize.IBytes(uint64(max(b.Size, 0))),
			b.Path,
		})
	}
	return []string{"FILE", "TIMESTAMP", "AGE", "SIZE", "PATH"}, rows
}

func backupsCmd() *cli.Command {
	return &cli.Command{
		Name:                  "backups",
		EnableShellCompletion: true,
		Usage:                 "List snapshots in the backup store",
		Description:           `List snapshots newest first. Use --file to show one file's history.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "Only list snapshots of this file name (e.g. fstab)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if _, err := parseOutputFormat(cmd); err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			store := backup.NewStore(cfg.BackupDir)
			snaps, err := store.List()
			if err != nil {
				return err
			}

			if file := cmd.String("file"); file != "" {
				filtered := snaps[:0]
				for _, s := range snaps {
					if s.Original == file {
						filtered = append(filtered, s)
					}
				}
				snaps = filtered
			}

			return writeOutput(ctx, cmd, newBackupList(store.Dir(), snaps, time.Now()))
		},
	}
}
