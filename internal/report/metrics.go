// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package report

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bootci"

// Phases of a suite run.
const (
	PhaseBuild = "build"
	PhaseBoot  = "boot"
)

// Results of jobs.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// Metrics collects counters of a suite run. They are written to a file in
// the Prometheus text format, ready for the node exporter's textfile
// collector.
type Metrics struct {
	registry    *prometheus.Registry
	info        *prometheus.GaugeVec
	jobs        *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	tests       *prometheus.CounterVec
	selftests   *prometheus.CounterVec
	result      prometheus.Gauge
}

// NewMetrics creates the metrics for the run.
func NewMetrics(runID, suiteName string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		info: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "run_info",
				Help:      "Suite run identification",
			},
			[]string{"run_id", "suite"},
		),
		jobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_total",
				Help:      "Jobs by phase and result",
			},
			[]string{"phase", "result"},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Duration of jobs in seconds",
				Buckets:   prometheus.ExponentialBuckets(10, 2, 10),
			},
			[]string{"phase"},
		),
		tests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tests_total",
				Help:      "Tests by status",
			},
			[]string{"status"},
		),
		selftests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "selftests_total",
				Help:      "Kselftest results by status",
			},
			[]string{"status"},
		),
		result: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "run_success",
				Help:      "1 if the suite run succeeded",
			},
		),
	}

	m.registry.MustRegister(m.info, m.jobs, m.jobDuration, m.tests, m.selftests, m.result)
	m.info.WithLabelValues(runID, suiteName).Set(1)

	return m
}

// ObserveJob counts a finished or skipped job.
func (m *Metrics) ObserveJob(phase, result string, duration time.Duration) {
	m.jobs.WithLabelValues(phase, result).Inc()

	if result != ResultSkipped {
		m.jobDuration.WithLabelValues(phase).Observe(duration.Seconds())
	}
}

// ObserveTest counts a test result.
func (m *Metrics) ObserveTest(status string) {
	m.tests.WithLabelValues(status).Inc()
}

// ObserveSelftests counts kselftest results.
func (m *Metrics) ObserveSelftests(passed, failed, skipped int) {
	m.selftests.WithLabelValues("ok").Add(float64(passed))
	m.selftests.WithLabelValues("not_ok").Add(float64(failed))
	m.selftests.WithLabelValues("skip").Add(float64(skipped))
}

// SetResult records the aggregate result of the run.
func (m *Metrics) SetResult(ok bool) {
	if ok {
		m.result.Set(1)
	} else {
		m.result.Set(0)
	}
}

// Registry returns the registry of all metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteFile writes all metrics to the file atomically.
func (m *Metrics) WriteFile(path string) error {
	err := prometheus.WriteToTextfile(path, m.registry)
	if err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}

	return nil
}
