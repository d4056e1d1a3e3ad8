// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aibor/bootci/internal/suite"
	"github.com/aibor/bootci/internal/tap"
)

// Test result status as written into the boot log.
const (
	statusSuccess = "success"
	statusFailure = "failure"
	statusSkip    = "skip"
)

// ExtractedLog is the console section a qemu selftests test extracts.
const ExtractedLog = "extracted.log"

// runTests runs the scripts of all tests of the boot.
func (r *Runner) runTests(ctx context.Context, boot *suite.Boot, hostDir string) error {
	hostLog := filepath.Join(hostDir, LogFile)

	var errs []error

	for _, test := range boot.Tests {
		// Tests that only need setup, like qemu net tests.
		if !test.Runs() {
			continue
		}

		if !r.filters.test.Match(test.Name()) {
			slog.Debug("Skipping test due to filter", slog.String("test", test.Name()))
			appendLines(hostLog, "test: "+test.Name(), statusSkip+": "+test.Name())
			r.metrics.ObserveTest(statusSkip)

			continue
		}

		if r.cfg.DryRun {
			slog.Info("Would run test", slog.String("test", test.Name()), slog.String("boot", boot.Name))
			continue
		}

		err := r.runTest(ctx, boot, test, hostDir)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (r *Runner) runTest(ctx context.Context, boot *suite.Boot, test suite.Test, hostDir string) error {
	slog.Info("Testing", slog.String("test", test.Name()), slog.String("boot", boot.Name))

	testDir := filepath.Join(hostDir, TestDirPrefix+test.Name())
	testLog := filepath.Join(testDir, LogFile)

	// Each run starts with a fresh log.
	err := os.WriteFile(testLog, nil, 0o644) //nolint:gosec
	if err != nil {
		return &TestError{Test: test.Name(), Boot: boot.Name, Err: err}
	}

	start := time.Now()
	runErr := runLogged(ctx, testDir, "./"+suite.RunScript, testLog)
	took := time.Since(start).Round(time.Second)

	msg := fmt.Sprintf("running test %s on %s took %s", test.Name(), boot.Name, took)
	status := statusSuccess

	if runErr != nil {
		msg = "Failed " + msg
		status = statusFailure

		slog.Error(msg)
	} else {
		slog.Info("OK " + msg)

		msg = "OK " + msg
	}

	appendLines(testLog, msg)
	appendLines(filepath.Join(hostDir, LogFile), "test: "+test.Name(), msg, status+": "+test.Name())
	r.metrics.ObserveTest(status)

	if _, isSelftests := test.(*suite.QemuSelftestsTest); isSelftests {
		r.summarizeSelftests(filepath.Join(testDir, ExtractedLog), test.Name(), boot.Name)
	}

	if runErr != nil {
		r.printer.DumpLog(testLog)

		return &TestError{Test: test.Name(), Boot: boot.Name, Log: testLog, Err: runErr}
	}

	return nil
}

// summarizeSelftests logs the kselftest results of the extracted console
// section.
func (r *Runner) summarizeSelftests(path, test, boot string) {
	file, err := os.Open(path)
	if err != nil {
		slog.Debug("No selftest output", slog.String("path", path))
		return
	}
	defer file.Close()

	results, err := tap.Parse(file)
	if err != nil {
		slog.Warn("Failed to parse selftest output", slog.Any("error", err))
		return
	}

	counts := results.Counts()
	r.metrics.ObserveSelftests(counts.Passed, counts.Failed, counts.Skipped)

	slog.Info("Selftest results",
		slog.String("test", test),
		slog.String("boot", boot),
		slog.String("summary", results.String()),
	)

	for _, failed := range results.Failed() {
		slog.Warn("Selftest failed",
			slog.String("test", test),
			slog.String("selftest", failed.Description),
		)
	}

	if !results.Complete() {
		slog.Warn("Selftest results incomplete",
			slog.String("test", test),
			slog.Int("planned", results.Plan),
			slog.Int("seen", counts.Total()),
		)
	}
}
