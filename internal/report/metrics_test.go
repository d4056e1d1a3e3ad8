// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package report_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aibor/bootci/internal/report"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	metrics := report.NewMetrics("run-1", "ci")

	metrics.ObserveJob(report.PhaseBuild, report.ResultOK, time.Minute)
	metrics.ObserveJob(report.PhaseBuild, report.ResultFailed, time.Minute)
	metrics.ObserveJob(report.PhaseBoot, report.ResultSkipped, 0)
	metrics.ObserveTest("ok")
	metrics.ObserveTest("ok")
	metrics.SetResult(true)

	// info, 3 job series, 1 histogram, 1 test series, result.
	assert.Equal(t, 7, testutil.CollectAndCount(metrics.Registry()))

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, metrics.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, `bootci_jobs_total{phase="build",result="failed"} 1`)
	assert.Contains(t, content, `bootci_jobs_total{phase="boot",result="skipped"} 1`)
	assert.Contains(t, content, `bootci_tests_total{status="ok"} 2`)
	assert.Contains(t, content, `bootci_run_info{run_id="run-1",suite="ci"} 1`)
	assert.Contains(t, content, "bootci_run_success 1")
	assert.Contains(t, content, `bootci_job_duration_seconds_count{phase="build"} 2`)
}
