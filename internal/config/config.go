// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config holds the configuration of a suite run. It is resolved once
// from command line and environment and passed to all components.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Default values.
const (
	DefaultTimeout              = 60 * time.Second
	DefaultBootTimeoutFactor    = 5
	DefaultSessionTimeoutFactor = 10
	DefaultFactor               = 1
)

var (
	// ErrNotKernelTree is returned if the source path has no Makefile.
	ErrNotKernelTree = errors.New("source does not point to a kernel directory")

	// ErrTreeNotClean is returned if the source tree contains a
	// configuration from an in-tree build.
	ErrTreeNotClean = errors.New("the source tree is not clean, please run make mrproper")

	// ErrInvalidFactor is returned for parallelism factors below 0.
	ErrInvalidFactor = errors.New("factor must not be negative")
)

// Config is the configuration of a suite run.
type Config struct {
	// Kernel source tree.
	SourceDir string
	// Output root. The suite's output is written into a sub directory.
	OutputDir string
	// Directory containing "build/Makefile", "scripts/boot", "scripts/test"
	// and "external/qemu".
	ScriptDir string
	// Directory of named configuration fragments.
	ConfigDir string
	// Directory of root disk images.
	RootDiskDir string
	// Console warning filter definitions. Optional.
	WarningFilters string

	// Parallelism of each build.
	JFactor int
	// Number of concurrent builds.
	KFactor int
	// Number of concurrent boots.
	BFactor int

	// Filter tokens per entity kind.
	KernelFilter   []string
	SelftestFilter []string
	BootFilter     []string
	TestFilter     []string

	// Overrides of the suite's images and VM versions.
	Images []string
	Qemus  []string

	DryRun   bool
	SkipBoot bool
	Verbose  bool
	Quiet    bool

	// Timeout of a single console expectation.
	Timeout time.Duration
	// Boot steps wait Timeout times this factor.
	BootTimeoutFactor int
	// The whole console session is limited to Timeout times this factor.
	SessionTimeoutFactor int
}

// New returns a [Config] with defaults. The parallelism factors are read
// from the environment variables JFACTOR, KFACTOR and BFACTOR, if set.
func New() Config {
	return Config{
		JFactor:              envFactor("JFACTOR"),
		KFactor:              envFactor("KFACTOR"),
		BFactor:              envFactor("BFACTOR"),
		Timeout:              DefaultTimeout,
		BootTimeoutFactor:    DefaultBootTimeoutFactor,
		SessionTimeoutFactor: DefaultSessionTimeoutFactor,
	}
}

func envFactor(name string) int {
	factor, err := strconv.Atoi(os.Getenv(name))
	if err != nil || factor < 0 {
		return DefaultFactor
	}

	return factor
}

// SetDefaults fills empty directories relative to ScriptDir and the working
// directory.
func (c *Config) SetDefaults() error {
	if c.OutputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("working directory: %w", err)
		}

		c.OutputDir = wd
	}

	if c.ConfigDir == "" {
		c.ConfigDir = filepath.Join(c.ScriptDir, "etc", "configs")
	}

	if c.RootDiskDir == "" {
		c.RootDiskDir = filepath.Join(c.ScriptDir, "root-disks")
	}

	if c.WarningFilters == "" {
		c.WarningFilters = filepath.Join(c.ScriptDir, "etc", "filter-warnings.yaml")
	}

	return nil
}

// Validate checks the source tree and numeric settings.
func (c *Config) Validate() error {
	for _, factor := range []int{c.JFactor, c.KFactor, c.BFactor} {
		if factor < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidFactor, factor)
		}
	}

	_, err := os.Stat(filepath.Join(c.SourceDir, "Makefile"))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotKernelTree, c.SourceDir)
	}

	_, err = os.Stat(filepath.Join(c.SourceDir, ".config"))
	if err == nil {
		return ErrTreeNotClean
	}

	return nil
}

// BootTimeout is the timeout of boot steps.
func (c *Config) BootTimeout() time.Duration {
	return c.Timeout * time.Duration(c.BootTimeoutFactor)
}

// SessionTimeout is the deadline of a whole console session.
func (c *Config) SessionTimeout() time.Duration {
	return c.Timeout * time.Duration(c.SessionTimeoutFactor)
}

// Layout is the directory layout of a suite run.
type Layout struct {
	// Output directory of the suite.
	Root string
	// Kernel and selftest build outputs.
	BuildDir string
	// Boot and test outputs.
	BootDir string
}

// Layout returns the directory layout for the suite with the given
// directory safe name.
func (c *Config) Layout(suiteDir string) Layout {
	root := filepath.Join(c.OutputDir, suiteDir)

	return Layout{
		Root:     root,
		BuildDir: filepath.Join(root, "build"),
		BootDir:  filepath.Join(root, "boot"),
	}
}

// Describe returns the settings worth logging at start up as key value
// pairs.
func (c *Config) Describe() [][2]string {
	pairs := [][2]string{
		{"src", c.SourceDir},
		{"output", c.OutputDir},
		{"jfactor", strconv.Itoa(c.JFactor)},
		{"kfactor", strconv.Itoa(c.KFactor)},
		{"bfactor", strconv.Itoa(c.BFactor)},
	}

	for _, filter := range []struct {
		name   string
		tokens []string
	}{
		{"kfilter", c.KernelFilter},
		{"sfilter", c.SelftestFilter},
		{"bfilter", c.BootFilter},
		{"tfilter", c.TestFilter},
		{"images", c.Images},
		{"qemus", c.Qemus},
	} {
		if len(filter.tokens) > 0 {
			pairs = append(pairs, [2]string{filter.name, strings.Join(filter.tokens, " ")})
		}
	}

	return pairs
}
