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

package backup

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/djherbis/times"
	"github.com/pkg/xattr"
	"golang.org/x/sys/unix"
)

// copyFile copies src to dst and then applies src's metadata to dst.
// With exclusive set, dst must not exist. Otherwise dst is truncated and
// rewritten in place so its inode is kept.
func copyFile(src, dst string, exclusive bool) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if exclusive {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	out, err := os.OpenFile(dst, flags, fi.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return copyMetadata(src, dst, fi)
}

// copyMetadata applies ownership, mode, extended attributes and times.
// Ownership runs first because chown may clear setuid bits; times run last.
func copyMetadata(src, dst string, fi os.FileInfo) error {
	var st unix.Stat_t
	if err := unix.Stat(src, &st); err == nil {
		if err := unix.Lchown(dst, int(st.Uid), int(st.Gid)); err != nil && !ignorable(err) {
			return fmt.Errorf("chown %s: %w", dst, err)
		}
	}

	mode := fi.Mode() & (os.ModePerm | os.ModeSetuid | os.ModeSetgid | os.ModeSticky)
	if err := os.Chmod(dst, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", dst, err)
	}

	if err := copyXattrs(src, dst); err != nil {
		return err
	}

	atime := fi.ModTime()
	if ts, err := times.Stat(src); err == nil {
		atime = ts.AccessTime()
	}
	if err := os.Chtimes(dst, atime, fi.ModTime()); err != nil {
		return fmt.Errorf("chtimes %s: %w", dst, err)
	}
	return nil
}

func copyXattrs(src, dst string) error {
	names, err := xattr.List(src)
	if err != nil {
		if ignorable(err) {
			return nil
		}
		return fmt.Errorf("list xattrs of %s: %w", src, err)
	}

	for _, name := range names {
		value, err := xattr.Get(src, name)
		if err != nil {
			if ignorable(err) {
				continue
			}
			return fmt.Errorf("read xattr %s of %s: %w", name, src, err)
		}
		if err := xattr.Set(dst, name, value); err != nil {
			if ignorable(err) {
				slog.Debug("skipping extended attribute", "path", dst, "name", name, "error", err)
				continue
			}
			return fmt.Errorf("write xattr %s to %s: %w", name, dst, err)
		}
	}
	return nil
}

// ignorable reports metadata errors that mean "not supported here" rather
// than a broken copy.
func ignorable(err error) bool {
	return stderrors.Is(err, unix.ENOTSUP) ||
		stderrors.Is(err, unix.EOPNOTSUPP) ||
		stderrors.Is(err, unix.EPERM) ||
		stderrors.Is(err, unix.EACCES) ||
		stderrors.Is(err, unix.EINVAL) ||
		stderrors.Is(err, xattr.ENOATTR)
}
