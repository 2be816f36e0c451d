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

package optimizer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/NVIDIA/sysopt/pkg/errors"
)

// Metrics are run metrics on a private registry. A one-shot process has
// nothing to scrape, so they are written out for the node_exporter
// textfile collector instead.
type Metrics struct {
	Registry *prometheus.Registry

	runsTotal       *prometheus.CounterVec
	stepDuration    *prometheus.HistogramVec
	backupsTotal    prometheus.Counter
	restoredTotal   *prometheus.CounterVec
	lastRunSeconds  prometheus.Gauge
	lastRunDuration prometheus.Gauge
}

// NewMetrics registers the run metrics on a new registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sysopt_runs_total",
				Help: "Total number of tuning runs by final state and error code",
			},
			[]string{"state", "code"},
		),
		stepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sysopt_step_duration_seconds",
				Help:    "Tuning step duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900, 1800},
			},
			[]string{"step", "status"},
		),
		backupsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sysopt_backups_total",
				Help: "Total number of files backed up before modification",
			},
		),
		restoredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sysopt_rollback_files_total",
				Help: "Total number of files processed during rollback by result",
			},
			[]string{"result"},
		),
		lastRunSeconds: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sysopt_last_run_timestamp_seconds",
				Help: "Unix time the last tuning run started",
			},
		),
		lastRunDuration: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sysopt_last_run_duration_seconds",
				Help: "Wall time of the last tuning run in seconds",
			},
		),
	}
}

// WriteTextfile writes the registry in text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return errors.WrapWithContext(errors.ErrCodeIO, "failed to write metrics file", err,
			map[string]any{"path": path})
	}
	return nil
}

func (m *Metrics) observeStep(name string, status StepStatus, d time.Duration) {
	if m == nil {
		return
	}
	m.stepDuration.WithLabelValues(name, string(status)).Observe(d.Seconds())
}

func (m *Metrics) observeBackup() {
	if m == nil {
		return
	}
	m.backupsTotal.Inc()
}

func (m *Metrics) observeRestoration(failed bool) {
	if m == nil {
		return
	}
	result := "restored"
	if failed {
		result = "failed"
	}
	m.restoredTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) observeRun(r *Report, d time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(string(r.State), string(r.ErrorCode)).Inc()
	m.lastRunSeconds.Set(float64(r.Started.Unix()))
	m.lastRunDuration.Set(d.Seconds())
}
