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

// Package tuning implements the individual host tuning steps.
//
// # Steps
//
// A run applies these steps in order:
//
//  1. fstab  - moves /tmp, /var/log, /var/spool and /var/tmp to tmpfs and
//     mounts the root filesystem with SSD friendly options
//  2. sysctl - rewrites /etc/sysctl.conf with a fixed parameter set and
//     reloads kernel parameters
//  3. grub   - rewrites the kernel command line and menu timeout in
//     /etc/default/grub and regenerates the bootloader config
//  4. kernel - registers the XanMod repository and installs its kernel
//
// Each step that rewrites a file reports it through Target so the caller can
// snapshot it first. Steps never back up or restore files themselves.
//
// # Transformations
//
// The text transformations are exposed as pure functions (TransformFstab,
// RenderSysctl, TransformGrub) so they can be tested without a filesystem.
//
// # External Tools
//
// Commands run through an executor.Runner. Kernel parameter reload goes
// through a Reloader so it can be swapped for a systemd unit restart.
package tuning
