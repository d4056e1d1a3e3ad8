// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aibor/bootci/internal/suite"
)

// Paths the build system mounts into its build containers.
const (
	containerSourceDir = "/linux"
	containerConfigDir = "/configs"
)

const (
	// LogFile is the name of the build log in the build output directory.
	LogFile = "log.txt"
	// SentinelFile exists in the output directory of a successful kernel
	// build, even if the booted image is a different file.
	SentinelFile = "vmlinux"
)

// Options configures a [Builder].
type Options struct {
	// Make executable. "make" if empty.
	Make string
	// Kernel source tree.
	SourceDir string
	// Directory containing the "build" directory with the Makefile.
	ScriptDir string
	// Directory of named configuration fragments.
	ConfigDir string
	// Output directory of all builds.
	BuildDir string
	// Parallelism of each build.
	JFactor int
	// Only log what would be done.
	DryRun bool
}

// Builder runs kernel and selftest builds.
type Builder struct {
	opts Options
}

// New creates a new [Builder].
func New(opts Options) *Builder {
	if opts.Make == "" {
		opts.Make = "make"
	}

	return &Builder{opts: opts}
}

// Sentinel returns the path of the file that exists after a successful build
// of the kernel.
func Sentinel(buildDir string, kernel *suite.KernelBuild) string {
	return filepath.Join(OutputDir(buildDir, kernel), SentinelFile)
}

// OutputDir returns the build output directory of the kernel.
func OutputDir(buildDir string, kernel *suite.KernelBuild) string {
	return filepath.Join(buildDir, kernel.DirName())
}

func (b *Builder) baseArgs() []string {
	return []string{
		"--no-print-directory",
		"-C", filepath.Join(b.opts.ScriptDir, "build"),
		"SRC=" + b.opts.SourceDir,
	}
}

func (b *Builder) commonParams() []string {
	return []string{
		"CI_OUTPUT=" + b.opts.BuildDir,
		"JFACTOR=" + strconv.Itoa(b.opts.JFactor),
		"QUIET=1",
	}
}

// KernelArgs returns the make arguments for the kernel build, the clean and
// the prune target.
func (b *Builder) KernelArgs(kernel *suite.KernelBuild) ([]string, []string, []string, error) {
	base := b.baseArgs()
	base = append(base, "DEFCONFIG="+kernel.Defconfig)
	base = append(base, b.commonParams()...)

	if kernel.Clang {
		base = append(base, "CLANG=1")
		if kernel.LLVMIAS {
			base = append(base, "LLVM_IAS=1")
		} else {
			base = append(base, "LLVM_IAS=0")
		}
	}

	if kernel.Sparse {
		base = append(base, "SPARSE=1")
	}

	fullImage := kernel.FullImage()

	build := append(slices.Clone(base), "kernel@"+fullImage)

	if kernel.Modules {
		build = append(build, "MODULES=1")
	}

	if len(kernel.MergeConfig) > 0 {
		configs, err := MungeConfigs(b.opts.SourceDir, b.opts.ConfigDir, kernel.MergeConfig)
		if err != nil {
			return nil, nil, nil, err
		}

		build = append(build, "MERGE_CONFIG="+strings.Join(configs, ","))
	}

	clean := append(slices.Clone(base), "clean-kernel@"+fullImage)
	prune := append(slices.Clone(base), "prune-kernel@"+fullImage)

	return build, clean, prune, nil
}

// SelftestArgs returns the make arguments for the selftest build, the clean
// and the prune target.
func (b *Builder) SelftestArgs(selftest *suite.SelftestBuild) ([]string, []string, []string) {
	base := append(b.baseArgs(), b.commonParams()...)

	if selftest.Target == suite.TargetPPCTests {
		base = append(base, "TARGETS=powerpc")
	}

	fullImage := selftest.FullImage()

	build := append(slices.Clone(base), "INSTALL=1", selftest.Target+"@"+fullImage)
	clean := append(slices.Clone(base), "clean-selftests@"+fullImage)
	prune := append(slices.Clone(base), "prune-selftests@"+fullImage)

	return build, clean, prune
}

// MungeConfigs resolves configuration fragment names into the paths the
// build containers see.
//
// Fragments containing a "/" are from the kernel source tree. Others are
// named fragments from the config directory, with ".config" appended if
// missing.
func MungeConfigs(sourceDir, configDir string, fragments []string) ([]string, error) {
	paths := make([]string, 0, len(fragments))

	for _, fragment := range fragments {
		var hostPath, containerPath string

		if strings.Contains(fragment, "/") {
			hostPath = filepath.Join(sourceDir, fragment)
			containerPath = containerSourceDir + "/" + fragment
		} else {
			if !strings.HasSuffix(fragment, ".config") {
				fragment += ".config"
			}

			hostPath = filepath.Join(configDir, fragment)
			containerPath = containerConfigDir + "/" + fragment
		}

		_, err := os.Stat(hostPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, hostPath)
		}

		paths = append(paths, containerPath)
	}

	return paths, nil
}

// Kernel builds the kernel. The build log is written into the build output
// directory.
func (b *Builder) Kernel(ctx context.Context, kernel *suite.KernelBuild) error {
	build, clean, prune, err := b.KernelArgs(kernel)
	if err != nil {
		return &Error{Name: kernel.Name(), Err: err}
	}

	env := []string{"DOCKER_EXTRA_ARGS=-v " + b.opts.ConfigDir + ":" + containerConfigDir + ":ro"}

	return b.run(ctx, job{
		name:   kernel.Name(),
		dir:    OutputDir(b.opts.BuildDir, kernel),
		env:    env,
		build:  build,
		clean:  clean,
		prune:  prune,
		target: kernel.Name(),
	})
}

// Selftest builds the selftests.
func (b *Builder) Selftest(ctx context.Context, selftest *suite.SelftestBuild) error {
	build, clean, prune := b.SelftestArgs(selftest)

	return b.run(ctx, job{
		name:   selftest.Name(),
		dir:    filepath.Join(b.opts.BuildDir, selftest.Name()),
		build:  build,
		clean:  clean,
		prune:  prune,
		target: selftest.Target + " for " + selftest.FullImage(),
	})
}

type job struct {
	name   string
	dir    string
	env    []string
	build  []string
	clean  []string
	prune  []string
	target string
}

func (b *Builder) run(ctx context.Context, job job) error {
	if !b.opts.DryRun {
		// A failed build must not leave old artifacts around.
		err := b.make(ctx, job.clean, job.env, nil)
		if err != nil {
			return &Error{Name: job.name, Err: fmt.Errorf("clean: %w", err)}
		}
	}

	err := os.MkdirAll(job.dir, 0o755)
	if err != nil {
		return &Error{Name: job.name, Err: err}
	}

	logPath := filepath.Join(job.dir, LogFile)

	log, err := os.Create(logPath)
	if err != nil {
		return &Error{Name: job.name, Err: fmt.Errorf("create log: %w", err)}
	}
	defer log.Close()

	slog.Debug("Build command", slog.String("args", strings.Join(job.build, " ")))

	if b.opts.DryRun {
		return nil
	}

	start := time.Now()

	err = b.make(ctx, job.build, job.env, log)
	if err != nil {
		return &Error{Name: job.name, Log: logPath, Err: err}
	}

	slog.Info("Build done",
		slog.String("build", job.target),
		slog.Duration("took", time.Since(start).Round(time.Second)),
	)

	err = b.make(ctx, job.prune, job.env, log)
	if err != nil {
		return &Error{Name: job.name, Log: logPath, Err: fmt.Errorf("prune: %w", err)}
	}

	return nil
}

func (b *Builder) make(ctx context.Context, args, env []string, log *os.File) error {
	cmd := exec.CommandContext(ctx, b.opts.Make, args...)
	cmd.Env = append(os.Environ(), env...)

	if log != nil {
		cmd.Stdout = log
		cmd.Stderr = log
	}

	err := cmd.Run()
	if err != nil {
		return fmt.Errorf("make: %w", err)
	}

	return nil
}
