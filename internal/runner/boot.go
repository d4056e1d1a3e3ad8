// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package runner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aibor/bootci/internal/build"
	"github.com/aibor/bootci/internal/qemu"
	"github.com/aibor/bootci/internal/report"
	"github.com/aibor/bootci/internal/sched"
	"github.com/aibor/bootci/internal/suite"
	"github.com/aibor/bootci/internal/sys"
)

// Files and directories in the output directory of a boot.
const (
	LogFile       = "log.txt"
	ConsoleLog    = "console.log"
	WarningsFile  = "warnings.txt"
	BootScript    = "boot.sh"
	ArtifactsLink = "artifacts"
	TestDirPrefix = "test-"
)

// Files in the build output directory of a kernel besides the
// [build.SentinelFile].
const (
	ModulesTarball = "modules.tar.gz"
	ReleaseFile    = "kernel.release"
)

var kvmRE = regexp.MustCompile(`\bkvm\b`)

func (r *Runner) bootJobs() []sched.Job {
	var (
		jobs    []sched.Job
		haveKVM = r.opts.KVMAvailable()
	)

	for _, boot := range r.suite.Boots() {
		if !r.filters.boot.Match(boot.Name) {
			slog.Debug("Skipping boot due to filter", slog.String("boot", boot.Name))
			continue
		}

		if kvmRE.MatchString(boot.ScriptName()) && !haveKVM {
			slog.Warn("Skipping boot due to KVM not present", slog.String("boot", boot.Name))
			r.recordSkipped(report.PhaseBoot, boot.Key())

			continue
		}

		jobs = append(jobs, sched.Job{
			Name: boot.Key(),
			Func: func(ctx context.Context, seq, total int) error {
				return r.bootAndTest(ctx, boot, seq, total)
			},
		})
	}

	return jobs
}

// bootAll boots all kernels and runs their tests.
func (r *Runner) bootAll(ctx context.Context) bool {
	jobs := r.bootJobs()
	if len(jobs) == 0 {
		return true
	}

	r.printer.Banner(report.Info, "Booting kernels ...")

	err := os.MkdirAll(r.layout.BootDir, 0o755)
	if err != nil {
		slog.Error("Failed to create boot directory", slog.Any("error", err))
		return false
	}

	return r.schedule(ctx, report.PhaseBoot, r.cfg.BFactor, jobs).OK()
}

// HostDir returns the output directory of the boot.
func (r *Runner) HostDir(boot *suite.Boot) string {
	return filepath.Join(r.layout.BootDir, boot.Key())
}

func (r *Runner) bootAndTest(ctx context.Context, boot *suite.Boot, seq, total int) error {
	// Test setup hooks mutate the plan.
	boot = boot.Clone()
	hostDir := r.HostDir(boot)

	err := os.MkdirAll(hostDir, 0o755)
	if err != nil {
		return &BootError{Boot: boot.String(), Err: err}
	}

	hostLog := filepath.Join(hostDir, LogFile)

	if !r.cfg.SkipBoot {
		err = os.WriteFile(hostLog, nil, 0o644) //nolint:gosec
		if err != nil {
			return &BootError{Boot: boot.String(), Err: fmt.Errorf("create log: %w", err)}
		}
	}

	setupErr := r.setupTests(boot, hostDir, hostLog)

	if r.cfg.SkipBoot {
		slog.Info("Skipping boot", slog.String("boot", boot.Name))
	} else {
		err = r.boot(ctx, boot, hostDir, seq, total)
		if err != nil {
			return errors.Join(setupErr, err)
		}
	}

	return errors.Join(setupErr, r.runTests(ctx, boot, hostDir))
}

func (r *Runner) setupTests(boot *suite.Boot, hostDir, hostLog string) error {
	env := suite.SetupEnv{
		ScriptDir: r.cfg.ScriptDir,
		BuildDir:  r.layout.BuildDir,
	}

	var errs []error

	for _, test := range boot.Tests {
		if !r.filters.test.Match(test.Name()) {
			slog.Debug("Skipping test due to filter", slog.String("test", test.Name()))
			continue
		}

		testDir := filepath.Join(hostDir, TestDirPrefix+test.Name())

		err := os.MkdirAll(testDir, 0o755)
		if err == nil {
			err = test.Setup(env, boot, testDir)
		}

		if err != nil {
			slog.Error("Test setup failed",
				slog.String("test", test.Name()),
				slog.String("boot", boot.Name),
				slog.Any("error", err),
			)

			appendLines(hostLog, "test: "+test.Name(), "failure: "+test.Name()+" [setup]")
			r.metrics.ObserveTest(statusFailure)

			errs = append(errs, &TestError{
				Test: test.Name(),
				Boot: boot.Name,
				Log:  hostLog,
				Err:  fmt.Errorf("setup: %w", err),
			})
		}
	}

	return errors.Join(errs...)
}

func (r *Runner) boot(ctx context.Context, boot *suite.Boot, hostDir string, seq, total int) error {
	profile, err := qemu.ParseProfile(boot.ScriptName())
	switch {
	case err == nil:
		return r.bootQemu(ctx, boot, profile, hostDir, seq, total)
	case errors.Is(err, qemu.ErrNotQemuProfile):
		return r.bootScript(ctx, boot, hostDir, seq, total)
	default:
		return &BootError{Boot: boot.String(), Err: err}
	}
}

// artifacts checks the kernel was built and links its build output
// directory into the boot output directory.
func (r *Runner) artifacts(boot *suite.Boot, hostDir string) (string, error) {
	dir := build.OutputDir(r.layout.BuildDir, boot.Kernel)

	// The sentinel exists even if the booted image is a different file.
	if !sys.Exists(build.Sentinel(r.layout.BuildDir, boot.Kernel)) {
		return "", fmt.Errorf("%w for %s", ErrMissingArtifacts, boot.Defconfig)
	}

	link := filepath.Join(hostDir, ArtifactsLink)

	err := os.Remove(link)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("remove artifacts link: %w", err)
	}

	err = os.Symlink(dir, link)
	if err != nil {
		return "", fmt.Errorf("link artifacts: %w", err)
	}

	return dir, nil
}

// bootScriptArgs returns the arguments for an external boot script.
func (r *Runner) bootScriptArgs(boot *suite.Boot, artifacts string) []string {
	args := []string{
		"--kernel-path " + filepath.Join(artifacts, build.SentinelFile),
		"--modules-path " + filepath.Join(artifacts, ModulesTarball),
		"--release-path " + filepath.Join(artifacts, ReleaseFile),
	}

	if boot.Cmdline != "" {
		args = append(args, "--cmdline "+shellQuote(boot.Cmdline))
	}

	for _, cb := range boot.Plan.Callbacks {
		args = append(args, "--callback "+shellQuote(cb))
	}

	if boot.Plan.SelftestsTarball != "" {
		args = append(args, "--selftests-path "+boot.Plan.SelftestsTarball)
	}

	if boot.Plan.NetTests {
		args = append(args, "--net-tests")
	}

	if boot.IsQemu() {
		if dir := qemu.BinDir(boot.Qemu, r.cfg.ScriptDir); dir != "" {
			args = append(args, "--qemu-path "+dir)
		}
	}

	args = append(args, boot.Plan.ExtraArgs...)

	return append(args, `"$@"`)
}

func (r *Runner) bootScript(ctx context.Context, boot *suite.Boot, hostDir string, seq, total int) error {
	scriptPath := filepath.Join(r.cfg.ScriptDir, "scripts", "boot", boot.ScriptName())
	if !sys.Exists(scriptPath) {
		slog.Error("Boot script doesn't exist", slog.String("path", scriptPath))
		return &BootError{Boot: boot.String(), Err: fmt.Errorf("%w: %s", ErrBootScriptNotFound, scriptPath)}
	}

	if r.cfg.DryRun {
		slog.Info("Would boot", slog.String("boot", boot.Description()))
		return nil
	}

	slog.Info("Booting",
		slog.Int("seq", seq),
		slog.Int("total", total),
		slog.String("boot", boot.Description()),
	)

	artifacts, err := r.artifacts(boot, hostDir)
	if err != nil {
		slog.Error("Boot not possible", slog.String("boot", boot.Name), slog.Any("error", err))
		return &BootError{Boot: boot.String(), Err: err}
	}

	body := scriptPath + " \\\n  " + strings.Join(r.bootScriptArgs(boot, artifacts), " \\\n  ") + "\n"

	err = suite.WriteScript(filepath.Join(hostDir, BootScript), body)
	if err != nil {
		return &BootError{Boot: boot.String(), Err: err}
	}

	logPath := filepath.Join(hostDir, LogFile)

	start := time.Now()
	err = runLogged(ctx, hostDir, "./"+BootScript, logPath)
	took := time.Since(start).Round(time.Second)

	if err != nil {
		slog.Error("Failed booting", slog.String("boot", boot.Name), slog.Duration("took", took))
		r.printer.DumpLog(logPath)

		return &BootError{Boot: boot.String(), Log: logPath, Err: err}
	}

	slog.Info("Booted", slog.String("boot", boot.Name), slog.Duration("took", took))

	return nil
}

// runLogged runs the executable in dir with its output appended to the log.
func runLogged(ctx context.Context, dir, executable, logPath string) error {
	log, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer log.Close()

	cmd := exec.CommandContext(ctx, executable)
	cmd.Dir = dir
	cmd.Stdout = log
	cmd.Stderr = log

	err = cmd.Run()
	if err != nil {
		return fmt.Errorf("run %s: %w", executable, err)
	}

	return nil
}

func appendLines(path string, lines ...string) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		slog.Warn("Failed to open log", slog.String("path", path), slog.Any("error", err))
		return
	}
	defer file.Close()

	_, err = file.WriteString(strings.Join(lines, "\n") + "\n")
	if err != nil {
		slog.Warn("Failed to write log", slog.String("path", path), slog.Any("error", err))
	}
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
