// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package runner

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aibor/bootci/internal/build"
	"github.com/aibor/bootci/internal/report"
	"github.com/aibor/bootci/internal/sched"
)

func (r *Runner) buildJobs() []sched.Job {
	var jobs []sched.Job

	for _, kernel := range r.suite.Kernels() {
		if !r.filters.kernel.Match(kernel.Name()) {
			slog.Debug("Skipping kernel build due to filter", slog.String("kernel", kernel.Name()))
			continue
		}

		jobs = append(jobs, sched.Job{
			Name: kernel.Name(),
			Func: func(ctx context.Context, seq, total int) error {
				slog.Info("Building kernel",
					slog.Int("seq", seq),
					slog.Int("total", total),
					slog.String("kernel", kernel.String()),
				)

				return r.handleBuildError(r.builder.Kernel(ctx, kernel))
			},
		})
	}

	for _, selftest := range r.suite.Selftests() {
		if !r.filters.selftest.Match(selftest.Target) {
			slog.Debug("Skipping selftest build due to filter", slog.String("selftest", selftest.Name()))
			continue
		}

		jobs = append(jobs, sched.Job{
			Name: selftest.Name(),
			Func: func(ctx context.Context, seq, total int) error {
				slog.Info("Building selftests",
					slog.Int("seq", seq),
					slog.Int("total", total),
					slog.String("selftest", selftest.String()),
				)

				return r.handleBuildError(r.builder.Selftest(ctx, selftest))
			},
		})
	}

	return jobs
}

func (r *Runner) handleBuildError(err error) error {
	var buildErr *build.Error
	if !errors.As(err, &buildErr) {
		return err
	}

	slog.Error("Build failed", slog.String("build", buildErr.Name), slog.Any("error", buildErr.Err))

	if buildErr.Log != "" {
		r.printer.DumpLog(buildErr.Log)
	}

	return err
}

// buildAll runs all kernel and selftest builds.
func (r *Runner) buildAll(ctx context.Context) bool {
	jobs := r.buildJobs()
	if len(jobs) == 0 {
		return true
	}

	r.printer.Banner(report.Info, "Building kernels & selftests ...")

	return r.schedule(ctx, report.PhaseBuild, r.cfg.KFactor, jobs).OK()
}
