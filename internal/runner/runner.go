// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aibor/bootci/internal/build"
	"github.com/aibor/bootci/internal/callback"
	"github.com/aibor/bootci/internal/config"
	"github.com/aibor/bootci/internal/console"
	"github.com/aibor/bootci/internal/report"
	"github.com/aibor/bootci/internal/sched"
	"github.com/aibor/bootci/internal/suite"
	"github.com/aibor/bootci/internal/sys"
)

// Files written into the suite output directory.
const (
	MetricsFile = "metrics.prom"
	RunFile     = "run.yaml"
)

// Options configures a [Runner].
type Options struct {
	Config config.Config
	// Run identifier used in metrics and the run summary.
	RunID string
	// Printer for banners and log tails. Prints to stdout if nil.
	Printer *report.Printer
	// Stdout receives the console output of VMs, unless Config.Quiet is
	// set. Console output is only written to log files if nil.
	Stdout io.Writer
	// Progress receives a progress bar per phase, if set.
	Progress io.Writer
	// Callbacks available to tests. [callback.Default] if nil.
	Callbacks *callback.Registry
	// KVMAvailable reports if the host can run KVM guests.
	// [sys.KVMAvailable] if nil.
	KVMAvailable func() bool
	// Make executable passed to the [build.Builder].
	Make string
}

type filters struct {
	kernel   *suite.Filter
	selftest *suite.Filter
	boot     *suite.Filter
	test     *suite.Filter
}

// Runner runs a [suite.Suite] as configured.
type Runner struct {
	opts     Options
	cfg      config.Config
	suite    *suite.Suite
	layout   config.Layout
	filters  filters
	builder  *build.Builder
	printer  *report.Printer
	metrics  *report.Metrics
	warnings *console.WarningFilters

	mu   sync.Mutex
	jobs []report.JobRecord
}

// New creates a new [Runner] for the suite.
func New(s *suite.Suite, opts Options) (*Runner, error) {
	if opts.Printer == nil {
		opts.Printer = report.NewPrinter(os.Stdout)
	}

	if opts.Callbacks == nil {
		opts.Callbacks = callback.Default()
	}

	if opts.KVMAvailable == nil {
		opts.KVMAvailable = sys.KVMAvailable
	}

	if opts.RunID == "" {
		opts.RunID = report.NewRunID()
	}

	cfg := opts.Config
	layout := cfg.Layout(s.DirName())

	var err error

	r := &Runner{
		opts:    opts,
		cfg:     cfg,
		suite:   s,
		layout:  layout,
		printer: opts.Printer,
		metrics: report.NewMetrics(opts.RunID, s.Name),
		builder: build.New(build.Options{
			Make:      opts.Make,
			SourceDir: cfg.SourceDir,
			ScriptDir: cfg.ScriptDir,
			ConfigDir: cfg.ConfigDir,
			BuildDir:  layout.BuildDir,
			JFactor:   cfg.JFactor,
			DryRun:    cfg.DryRun,
		}),
	}

	for _, f := range []struct {
		filter **suite.Filter
		tokens []string
	}{
		{&r.filters.kernel, cfg.KernelFilter},
		{&r.filters.selftest, cfg.SelftestFilter},
		{&r.filters.boot, cfg.BootFilter},
		{&r.filters.test, cfg.TestFilter},
	} {
		*f.filter, err = suite.NewFilter(f.tokens)
		if err != nil {
			return nil, err
		}
	}

	r.warnings, err = console.LoadWarningFilters(cfg.WarningFilters)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// Layout returns the output directory layout of the run.
func (r *Runner) Layout() config.Layout {
	return r.layout
}

// Metrics returns the metrics of the run.
func (r *Runner) Metrics() *report.Metrics {
	return r.metrics
}

// Run builds all kernels and selftests and boots all kernels afterwards.
//
// It returns true if all builds, boots and tests succeeded. The error is
// only set for failures that prevent the run itself.
func (r *Runner) Run(ctx context.Context) (bool, error) {
	started := time.Now()

	err := os.MkdirAll(r.layout.Root, 0o755)
	if err != nil {
		return false, fmt.Errorf("create output directory: %w", err)
	}

	revision := gitRevision(ctx, r.cfg.SourceDir)
	r.logStart(revision)

	ok := r.buildAll(ctx)
	if ok || r.suite.ContinueOnError {
		ok = r.bootAll(ctx) && ok
	}

	if ok {
		r.printer.Banner(report.OK, "OK")
	} else {
		r.printer.Banner(report.Failed, "Failed")
	}

	r.metrics.SetResult(ok)

	err = r.metrics.WriteFile(filepath.Join(r.layout.Root, MetricsFile))
	if err != nil {
		slog.Warn("Failed to write metrics", slog.Any("error", err))
	}

	summary := &report.Run{
		ID:       r.opts.RunID,
		Suite:    r.suite.Name,
		Revision: revision,
		Started:  started,
		Finished: time.Now(),
		Success:  ok,
		Settings: make(map[string]string),
		Jobs:     r.records(),
	}

	for _, pair := range r.cfg.Describe() {
		summary.Settings[pair[0]] = pair[1]
	}

	err = summary.WriteFile(filepath.Join(r.layout.Root, RunFile))
	if err != nil {
		slog.Warn("Failed to write run summary", slog.Any("error", err))
	}

	return ok, nil
}

func (r *Runner) logStart(revision string) {
	attrs := []any{
		slog.String("run_id", r.opts.RunID),
		slog.String("suite", r.suite.Name),
		slog.String("revision", revision),
	}

	for _, pair := range r.cfg.Describe() {
		attrs = append(attrs, slog.String(pair[0], pair[1]))
	}

	slog.Info("Starting suite run", attrs...)

	kernels, selftests, boots := r.suite.Len()
	slog.Debug("Suite size",
		slog.Int("kernels", kernels),
		slog.Int("selftests", selftests),
		slog.Int("boots", boots),
	)
}

func gitRevision(ctx context.Context, dir string) string {
	output, err := exec.CommandContext(ctx, "git", "-C", dir, "log", "-1", "--format=%h %s").Output()
	if err != nil {
		return "unknown"
	}

	return strings.TrimSpace(string(output))
}

// schedule runs the jobs of a phase and records their results.
func (r *Runner) schedule(ctx context.Context, phase string, factor int, jobs []sched.Job) *sched.Report {
	var progress *report.Progress
	if r.opts.Progress != nil {
		progress = report.NewProgress(r.opts.Progress, len(jobs), phase)
		defer progress.Close()
	}

	scheduler := sched.Scheduler{
		Factor:          factor,
		ContinueOnError: r.suite.ContinueOnError,
		OnDone: func(result sched.Result, _ int) {
			progress.Done()
			r.record(phase, result)
		},
	}

	rep := scheduler.Run(ctx, jobs)

	for _, name := range rep.Skipped {
		slog.Warn("Job not started", slog.String("job", name))
		r.recordSkipped(phase, name)
	}

	return rep
}

func (r *Runner) record(phase string, result sched.Result) {
	record := report.JobRecord{
		Name:     result.Name,
		Phase:    phase,
		Result:   report.ResultOK,
		Duration: result.Duration.Round(time.Millisecond),
	}

	if !result.OK() {
		record.Result = report.ResultFailed
		record.Error = result.Err.Error()
		record.Log = logOf(result.Err)
	}

	r.metrics.ObserveJob(phase, record.Result, result.Duration)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs = append(r.jobs, record)
}

func (r *Runner) recordSkipped(phase, name string) {
	r.metrics.ObserveJob(phase, report.ResultSkipped, 0)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs = append(r.jobs, report.JobRecord{
		Name:   name,
		Phase:  phase,
		Result: report.ResultSkipped,
	})
}

func (r *Runner) records() []report.JobRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]report.JobRecord(nil), r.jobs...)
}

func logOf(err error) string {
	var (
		buildErr *build.Error
		bootErr  *BootError
		testErr  *TestError
	)

	switch {
	case errors.As(err, &buildErr):
		return buildErr.Log
	case errors.As(err, &bootErr):
		return bootErr.Log
	case errors.As(err, &testErr):
		return testErr.Log
	default:
		return ""
	}
}
