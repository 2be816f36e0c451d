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

// Package systemd reloads kernel parameters through systemd.
//
// Instead of invoking sysctl directly, the Reloader restarts
// systemd-sysctl.service over D-Bus and waits for the job to finish.
// systemd-sysctl applies every configured sysctl file, including
// /etc/sysctl.conf, so the path passed to Reload is informational.
//
// # Usage
//
//	r := systemd.NewReloader()
//	action, err := r.Reload(ctx, "/etc/sysctl.conf")
//
// The D-Bus connection is opened per call and closed before returning.
package systemd
