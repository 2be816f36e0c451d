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

// Package config loads the optional sysopt configuration file.
//
// The file is YAML unless its name ends in .json; a name without an
// extension is read as YAML. In JSON, durations are integer nanoseconds.
// Every field is optional; unset fields keep the built-in defaults:
//
//	paths:
//	  fstab: /etc/fstab
//	  sysctl: /etc/sysctl.conf
//	  grub: /etc/default/grub
//	backupDir: /var/backups/sysopt
//	commandTimeout: 2m
//	sysctl:
//	  reload: exec        # or systemd
//	kernel:
//	  keyURL: https://dl.xanmod.org/archive.key
//	  keyring: /usr/share/keyrings/xanmod-archive-keyring.gpg
//	  repoList: /etc/apt/sources.list.d/xanmod-release.list
//	  repoURL: http://deb.xanmod.org
//	  suite: releases main
//	  package: linux-xanmod-x64v3
//	  installTimeout: 30m
//
// With sysctl.reload set to systemd, paths.sysctl must be a file that
// systemd-sysctl.service reads: /etc/sysctl.conf or a *.conf file in one of
// the sysctl.d directories.
//
// Unknown keys are rejected. Command-line flags and SYSOPT_* environment
// variables override file values; that layering lives in pkg/cli.
package config
