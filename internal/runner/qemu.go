// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aibor/bootci/internal/build"
	"github.com/aibor/bootci/internal/callback"
	"github.com/aibor/bootci/internal/console"
	"github.com/aibor/bootci/internal/payload"
	"github.com/aibor/bootci/internal/qemu"
	"github.com/aibor/bootci/internal/suite"
	"github.com/aibor/bootci/internal/sys"
)

// PayloadInitrd is the initrd with the payload archive appended.
const PayloadInitrd = "payload-initrd.cpio"

// Guest directory the modules archive is unpacked into.
const modulesDir = "/lib/modules"

// session is everything a console session needs to know about the booted
// system.
type session struct {
	Boot    console.BootOptions
	Release string
	CPUInfo []string
	// Guest drive letters of the attached archives. Empty if not attached.
	ModulesDrive   string
	SelftestsDrive string
	NetTests       bool
	Callbacks      []callback.Call
}

// run drives the console through the boot, all checks and callbacks and
// powers the system off.
func (s *session) run(ctx context.Context, c *console.Console) error {
	timeout := s.Boot.Timeout

	err := console.StandardBoot(ctx, c, s.Boot)
	if err != nil {
		return err
	}

	err = console.CheckRelease(ctx, c, s.Release)
	if err != nil {
		return err
	}

	if len(s.CPUInfo) > 0 {
		err = console.ExpectCPUInfo(ctx, c, s.CPUInfo)
		if err != nil {
			return err
		}
	}

	if s.ModulesDrive != "" {
		err = console.UnpackDrive(ctx, c, s.ModulesDrive, modulesDir, 2, timeout) //nolint:mnd
		if err != nil {
			return fmt.Errorf("unpack modules: %w", err)
		}
	}

	if s.SelftestsDrive != "" {
		err = console.UnpackDrive(ctx, c, s.SelftestsDrive, callback.SelftestsDir, 1, timeout)
		if err != nil {
			return fmt.Errorf("unpack selftests: %w", err)
		}
	}

	if s.NetTests {
		err = console.NetSetup(ctx, c)
		if err != nil {
			return fmt.Errorf("net setup: %w", err)
		}

		err = console.Ping(ctx, c, console.DefaultGateway, true)
		if err != nil {
			return err
		}
	}

	for _, call := range s.Callbacks {
		err = call.Run(ctx, c)
		if err != nil {
			slog.Error("Callback failed", slog.String("callback", call.String()), slog.Any("error", err))
			return err
		}
	}

	return console.Poweroff(ctx, c, timeout)
}

func readRelease(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read kernel release: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}

// commandSpec creates the QEMU command for the boot.
func (r *Runner) commandSpec(
	boot *suite.Boot,
	profile qemu.Profile,
	artifacts, hostDir string,
) (*qemu.CommandSpec, error) {
	kernel := filepath.Join(artifacts, build.SentinelFile)

	endian, err := sys.ReadELFEndian(kernel)
	if err != nil {
		return nil, err
	}

	opts := qemu.Options{
		BinDir:           qemu.BinDir(boot.Qemu, r.cfg.ScriptDir),
		Kernel:           kernel,
		Endian:           endian,
		RootDiskDir:      r.cfg.RootDiskDir,
		SelftestsTarball: boot.Plan.SelftestsTarball,
		Cmdline:          boot.Cmdline,
		ExtraArgs:        boot.Plan.ExtraArgs,
		HostSpectreV2:    sys.SpectreV2(),
	}

	if boot.Kernel.Modules {
		opts.ModulesTarball = filepath.Join(artifacts, ModulesTarball)
	}

	spec, err := qemu.NewCommandSpec(profile, opts)
	if err != nil {
		return nil, err
	}

	if len(boot.Plan.Payload) > 0 {
		if spec.Initrd == "" {
			slog.Warn("Payload is not supported with cloud images", slog.String("boot", boot.Name))
			return spec, nil
		}

		initrd := filepath.Join(hostDir, PayloadInitrd)

		err = payload.WriteInitrd(initrd, spec.Initrd, boot.Plan.Payload)
		if err != nil {
			return nil, err
		}

		spec.Initrd = initrd
	}

	return spec, nil
}

//nolint:funlen
func (r *Runner) bootQemu(
	ctx context.Context,
	boot *suite.Boot,
	profile qemu.Profile,
	hostDir string,
	seq, total int,
) error {
	bootErr := func(log string, err error) error {
		return &BootError{Boot: boot.String(), Log: log, Err: err}
	}

	// Unknown callbacks must fail before anything is booted.
	calls, err := r.opts.Callbacks.ParseAll(boot.Plan.Callbacks)
	if err != nil {
		return bootErr("", err)
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
		return bootErr("", err)
	}

	release, err := readRelease(filepath.Join(artifacts, ReleaseFile))
	if err != nil {
		return bootErr("", err)
	}

	spec, err := r.commandSpec(boot, profile, artifacts, hostDir)
	if err != nil {
		return bootErr("", err)
	}

	args, err := spec.Args()
	if err != nil {
		return bootErr("", err)
	}

	version, err := qemu.Version(ctx, spec.Executable)
	if err != nil {
		slog.Warn("Failed to get QEMU version", slog.Any("error", err))
	} else {
		slog.Info("Using QEMU", slog.String("version", version))
	}

	quoted := make([]string, 0, len(args))
	for _, arg := range args {
		quoted = append(quoted, shellQuote(arg))
	}

	command := spec.Executable + " \\\n  " + strings.Join(quoted, " \\\n  ") + "\n"

	// The script reproduces the boot without the console session.
	err = suite.WriteScript(filepath.Join(hostDir, BootScript), command)
	if err != nil {
		return bootErr("", err)
	}

	logPath := filepath.Join(hostDir, LogFile)
	appendLines(logPath, "Running: "+spec.Executable+" "+strings.Join(args, " "))

	consoleLogPath := filepath.Join(hostDir, ConsoleLog)

	start := time.Now()
	err = r.runSession(ctx, spec, args, hostDir, consoleLogPath, &session{
		Boot: console.BootOptions{
			Login:    spec.Login,
			User:     spec.User,
			Password: spec.Password,
			Prompt:   spec.Prompt,
			Timeout:  r.cfg.BootTimeout(),
		},
		Release:        release,
		CPUInfo:        spec.CPUInfo,
		ModulesDrive:   spec.ModulesDrive,
		SelftestsDrive: spec.SelftestsDrive,
		NetTests:       boot.Plan.NetTests,
		Callbacks:      calls,
	})
	took := time.Since(start).Round(time.Second)

	if err != nil {
		appendLines(logPath, fmt.Sprintf("Failed booting %s, took %s: %v", boot.Name, took, err))
		slog.Error("Failed booting",
			slog.String("boot", boot.Name),
			slog.Duration("took", took),
			slog.Any("error", err),
		)
		r.printer.DumpLog(consoleLogPath)

		return bootErr(consoleLogPath, err)
	}

	appendLines(logPath, fmt.Sprintf("Booted %s, took %s", boot.Name, took))
	slog.Info("Booted", slog.String("boot", boot.Name), slog.Duration("took", took))

	r.scanWarnings(consoleLogPath, filepath.Join(hostDir, WarningsFile))

	return nil
}

// runSession spawns QEMU on a pseudo terminal and runs the console session.
func (r *Runner) runSession(
	ctx context.Context,
	spec *qemu.CommandSpec,
	args []string,
	hostDir, consoleLogPath string,
	sess *session,
) error {
	consoleLog, err := os.Create(consoleLogPath)
	if err != nil {
		return fmt.Errorf("create console log: %w", err)
	}
	defer consoleLog.Close()

	var out io.Writer = consoleLog
	if r.opts.Stdout != nil && !r.cfg.Quiet {
		out = io.MultiWriter(consoleLog, r.opts.Stdout)
	}

	proc, err := console.Spawn(console.SpawnSpec{
		Path: spec.Executable,
		Args: args,
		Dir:  hostDir,
		Env:  os.Environ(),
	})
	if err != nil {
		return err
	}

	con, err := console.New(proc, console.Config{
		Timeout: r.cfg.Timeout,
		Log:     out,
	})
	if err != nil {
		_ = proc.Terminate()
		_ = proc.Wait()

		return err
	}

	con.SetDeadlineAfter(r.cfg.SessionTimeout())

	err = sess.run(ctx, con)
	if err != nil {
		// Fatal signatures terminate the process already.
		_ = con.Terminate(context.WithoutCancel(ctx))
	}

	closeErr := con.Close()
	if err == nil && closeErr != nil {
		err = fmt.Errorf("console: %w", closeErr)
	}

	return err
}

func (r *Runner) scanWarnings(consoleLogPath, dst string) {
	src, err := os.Open(consoleLogPath)
	if err != nil {
		slog.Warn("Failed to open console log", slog.Any("error", err))
		return
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		slog.Warn("Failed to create warnings file", slog.Any("error", err))
		return
	}
	defer out.Close()

	found, err := r.warnings.Scan(out, src)
	if err != nil {
		slog.Warn("Failed to filter console log", slog.Any("error", err))
		return
	}

	if found {
		slog.Warn("Found warnings in console log", slog.String("path", dst))
	}
}
