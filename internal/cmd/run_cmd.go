// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aibor/bootci/internal/report"
	"github.com/aibor/bootci/internal/runner"
	"github.com/spf13/cobra"
)

// RunLogFile is the copy of the log output in the suite output directory.
const RunLogFile = "log"

type runOptions struct {
	*suiteOptions

	sourceDir FilePath
	make      string
}

func newRunCmd(cfg IO, verbose *bool) *cobra.Command {
	opts := &runOptions{suiteOptions: newSuiteOptions()}

	runCmd := &cobra.Command{
		Use:   "run [flags] [src]",
		Short: "Build, boot and test the kernel source tree",
		Long: `Build all kernels and selftests of the suite from the kernel source tree
(default: the working directory), boot them and run their tests.

Additional arguments are read from the BOOTCI_ARGS environment variable and
a local .bootci-args file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := "."
			if len(args) > 0 {
				src = args[0]
			}

			err := opts.sourceDir.Set(src)
			if err != nil {
				return &ParseArgsError{msg: "source", err: err}
			}

			opts.cfg.Verbose = *verbose

			return runSuite(cmd.Context(), opts, cfg)
		},
	}

	opts.addFlags(runCmd)

	c := &opts.cfg
	flags := runCmd.Flags()

	flags.VarP(&limitedIntValue{Value: &c.JFactor}, "jfactor", "j",
		"parallelism of each build (env JFACTOR)")
	flags.VarP(&limitedIntValue{Value: &c.KFactor}, "kfactor", "k",
		"number of concurrent builds, 0 for unlimited (env KFACTOR)")
	flags.VarP(&limitedIntValue{Value: &c.BFactor}, "bfactor", "b",
		"number of concurrent boots, 0 for unlimited (env BFACTOR)")
	flags.VarP((*FilePath)(&c.OutputDir), "output", "o",
		"output `dir` (default: working directory)")
	flags.Var((*FilePath)(&c.ScriptDir), "script-dir",
		"`dir` with build Makefile, boot and test scripts (default: working directory)")
	flags.Var((*FilePath)(&c.ConfigDir), "config-dir",
		"`dir` of config fragments (default: <script-dir>/etc/configs)")
	flags.Var((*FilePath)(&c.RootDiskDir), "root-disks",
		"`dir` of root disk images (default: <script-dir>/root-disks)")
	flags.Var((*FilePath)(&c.WarningFilters), "warning-filters",
		"console warning filter `file` (default: <script-dir>/etc/filter-warnings.yaml)")
	flags.StringVar(&opts.make, "make", "make",
		"make executable used for builds")
	flags.BoolVar(&c.DryRun, "dry-run", false,
		"only log what would be built, booted and tested")
	flags.BoolVar(&c.SkipBoot, "skip-boot", false,
		"do not boot, only run the tests against existing output")
	flags.BoolVar(&c.Quiet, "quiet", false,
		"do not print VM console output")
	flags.DurationVar(&c.Timeout, "timeout", c.Timeout,
		"timeout of a single console expectation")
	flags.Var(&limitedIntValue{Value: &c.BootTimeoutFactor, min: 1}, "boot-timeout-factor",
		"boot steps wait timeout times this factor")
	flags.Var(&limitedIntValue{Value: &c.SessionTimeoutFactor, min: 1}, "session-timeout-factor",
		"whole console sessions are limited to timeout times this factor")

	return runCmd
}

func runSuite(ctx context.Context, opts *runOptions, cfg IO) error {
	opts.cfg.SourceDir = opts.sourceDir.String()

	if opts.cfg.ScriptDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("working directory: %w", err)
		}

		opts.cfg.ScriptDir = wd
	}

	err := opts.cfg.SetDefaults()
	if err != nil {
		return err //nolint:wrapcheck
	}

	err = opts.cfg.Validate()
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	err = ValidateDirPath(opts.cfg.ScriptDir)
	if err != nil {
		return fmt.Errorf("script dir: %w", err)
	}

	s, err := opts.loadSuite()
	if err != nil {
		return err
	}

	layout := opts.cfg.Layout(s.DirName())

	err = os.MkdirAll(layout.Root, 0o755)
	if err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	logFile, err := os.Create(filepath.Join(layout.Root, RunLogFile))
	if err != nil {
		return fmt.Errorf("create log file: %w", err)
	}
	defer logFile.Close()

	runID := report.NewRunID()

	setupLogging(io.MultiWriter(cfg.Stderr, logFile), opts.cfg.Verbose,
		slog.String("run_id", runID))

	runnerOpts := runner.Options{
		Config:  opts.cfg,
		RunID:   runID,
		Printer: report.NewPrinter(cfg.Stdout, logFile),
		Stdout:  cfg.Stdout,
		Make:    opts.make,
	}

	if report.IsTerminal(cfg.Stderr) && !opts.cfg.Verbose {
		runnerOpts.Progress = cfg.Stderr
	}

	r, err := runner.New(s, runnerOpts)
	if err != nil {
		return fmt.Errorf("runner: %w", err)
	}

	ok, err := r.Run(ctx)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	if !ok {
		return ErrRunFailed
	}

	return nil
}
