// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"fmt"
	"os"

	"github.com/aibor/bootci/internal/config"
	"github.com/aibor/bootci/internal/suite"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with all sub commands.
func NewRootCmd(cfg IO) *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "bootci",
		Short: "Build, boot and test kernels in virtual machines",
		Long: `bootci builds kernels and selftests as declared by a suite file, boots
them in virtual machines, drives their consoles and runs tests against them.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(*cobra.Command, []string) {
			setupLogging(cfg.Stderr, verbose)
		},
	}

	rootCmd.SetIn(cfg.Stdin)
	rootCmd.SetOut(cfg.Stdout)
	rootCmd.SetErr(cfg.Stderr)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ParseArgsError{msg: "parse args", err: err}
	})

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug output")

	rootCmd.AddCommand(
		newRunCmd(cfg, &verbose),
		newListCmd(),
		newKeyCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// suiteOptions are the flags shared by commands that load a suite.
type suiteOptions struct {
	cfg       config.Config
	suiteFile FilePath
}

func newSuiteOptions() *suiteOptions {
	return &suiteOptions{cfg: config.New()}
}

func (o *suiteOptions) addFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.VarP(&o.suiteFile, "suite", "s",
		"suite declaration `file`")
	flags.StringArrayVarP(&o.cfg.KernelFilter, "kernel-filter", "K", nil,
		"only build kernels matching the filter (repeatable)")
	flags.StringArrayVarP(&o.cfg.SelftestFilter, "selftest-filter", "S", nil,
		"only build selftests matching the filter (repeatable)")
	flags.StringArrayVarP(&o.cfg.BootFilter, "boot-filter", "B", nil,
		"only run boots matching the filter (repeatable)")
	flags.StringArrayVarP(&o.cfg.TestFilter, "test-filter", "T", nil,
		"only run tests matching the filter (repeatable)")
	flags.StringArrayVarP(&o.cfg.Images, "image", "i", nil,
		"build for the image instead of the suite's images (repeatable)")
	flags.StringArrayVarP(&o.cfg.Qemus, "qemu", "q", nil,
		"boot with the QEMU version instead of the suite's versions (repeatable)")

	_ = cmd.MarkFlagRequired("suite")
}

// loadSuite reads the suite declaration with the image and QEMU overrides
// applied.
func (o *suiteOptions) loadSuite() (*suite.Suite, error) {
	path := o.suiteFile.String()

	err := ValidateFilePath(path)
	if err != nil {
		return nil, fmt.Errorf("suite file: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open suite: %w", err)
	}
	defer file.Close()

	s, err := suite.Load(file, suite.LoadOptions{
		Images: o.cfg.Images,
		Qemus:  o.cfg.Qemus,
	})
	if err != nil {
		return nil, fmt.Errorf("load suite %s: %w", path, err)
	}

	return s, nil
}
