// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package callback

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aibor/bootci/internal/console"
)

// SelftestsDir is the guest directory selftest archives are unpacked to.
const SelftestsDir = "/var/tmp/selftests"

const mountDebugfs = "mount -t debugfs none /sys/kernel/debug"

// Default returns a [Registry] with all builtin callbacks.
func Default() *Registry {
	registry := NewRegistry()

	registry.Register("sh", RequiredArgs, sh)
	registry.Register("set_timeout", RequiredArgs, setTimeout)
	registry.Register("cat_debugfs", RequiredArgs, catDebugfs)
	registry.Register("check_config", RequiredArgs, checkConfig)
	registry.Register("run_selftest_collections", RequiredArgs, runSelftestCollections(true))
	registry.Register("run_selftest_collections_nocheck", RequiredArgs, runSelftestCollections(false))
	registry.Register("run_selftests", OptionalArgs, runSelftestsFunc(true))
	registry.Register("run_selftests_nocheck", OptionalArgs, runSelftestsFunc(false))
	registry.Register("run_ppctests", NoArgs, runPPCTests)
	registry.Register("kasan_kunit", NoArgs, kasanKunit)
	registry.Register("lkdtm", RequiredArgs, lkdtm)
	registry.Register("lkdtm_selftests", OptionalArgs, lkdtmSelftests)
	registry.Register("xmon", RequiredArgs, xmon)

	return registry
}

// sh runs a shell command without timeout, e.g. "sh(ls /dev)".
func sh(ctx context.Context, c *console.Console, arg string) error {
	err := c.Send(arg)
	if err != nil {
		return err
	}

	return c.ExpectPromptTimeout(ctx, console.NoTimeout)
}

// setTimeout sets the session deadline in seconds from now. 0 removes it.
func setTimeout(_ context.Context, c *console.Console, arg string) error {
	seconds, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || seconds < 0 {
		return fmt.Errorf("%w: not a number of seconds: %s", ErrArgument, arg)
	}

	c.SetDeadlineAfter(time.Duration(seconds) * time.Second)

	return nil
}

// catDebugfs prints a file under debugfs, e.g.
// "cat_debugfs(powerpc/security_features)".
func catDebugfs(ctx context.Context, c *console.Console, arg string) error {
	err := c.Cmd(ctx, mountDebugfs)
	if err != nil {
		return err
	}

	// Printing page tables may take forever.
	c.SetDeadlineAfter(0)

	err = c.Send("cat /sys/kernel/debug/" + arg)
	if err != nil {
		return err
	}

	return c.ExpectPromptTimeout(ctx, console.NoTimeout)
}

// checkConfig prints matching symbols of the running kernel's
// configuration, e.g. "check_config(PREEMPT)".
func checkConfig(ctx context.Context, c *console.Console, arg string) error {
	return c.Cmd(ctx, "zcat /proc/config.gz | grep "+arg)
}

func runSelftestCollections(check bool) Func {
	return func(ctx context.Context, c *console.Console, arg string) error {
		return runSelftests(ctx, c, selftestRun{
			collections: strings.Fields(arg),
			check:       check,
		})
	}
}

func runSelftestsFunc(check bool) Func {
	return func(ctx context.Context, c *console.Console, arg string) error {
		return runSelftests(ctx, c, selftestRun{
			tests: strings.Fields(arg),
			check: check,
		})
	}
}

func runPPCTests(ctx context.Context, c *console.Console, _ string) error {
	return runSelftests(ctx, c, selftestRun{
		collections: []string{"powerpc.*"},
		check:       true,
	})
}

// kasanKunit loads the KASAN test module. It provokes bug reports on
// purpose, so bug patterns are ignored.
func kasanKunit(ctx context.Context, c *console.Console, _ string) error {
	return c.IgnoringBugs(func() error {
		return c.Cmd(ctx, "modprobe kasan_test")
	})
}

// lkdtm provokes crashes via the lkdtm debugfs interface, e.g.
// "lkdtm(BUG WARNING)".
func lkdtm(ctx context.Context, c *console.Console, arg string) error {
	for _, cmd := range []string{"modprobe lkdtm", mountDebugfs} {
		err := c.Cmd(ctx, cmd)
		if err != nil {
			return err
		}
	}

	for _, word := range strings.Fields(arg) {
		err := c.Send(fmt.Sprintf(`sh -c "echo %s > /sys/kernel/debug/provoke-crash/DIRECT"`, word))
		if err != nil {
			return err
		}

		_, err = c.ExpectIgnoringBugs(ctx, console.DefaultTimeout, c.Prompt())
		if err != nil {
			return err
		}
	}

	return nil
}

func lkdtmSelftests(ctx context.Context, c *console.Console, arg string) error {
	words := strings.Fields(arg)
	if len(words) == 0 {
		return runSelftests(ctx, c, selftestRun{
			collections: []string{"lkdtm"},
			check:       true,
		})
	}

	tests := make([]string, 0, len(words))
	for _, word := range words {
		tests = append(tests, "lkdtm:"+word+".sh")
	}

	return runSelftests(ctx, c, selftestRun{tests: tests, check: true})
}

// xmon runs semicolon separated commands in the in-kernel debugger, e.g.
// "xmon(r; di %pc 1)".
func xmon(ctx context.Context, c *console.Console, arg string) error {
	err := console.XmonEnter(ctx, c)
	if err != nil {
		return err
	}

	for cmd := range strings.SplitSeq(arg, ";") {
		cmd = strings.TrimSpace(cmd)
		if cmd == "" {
			continue
		}

		err = c.Cmd(ctx, cmd)
		if err != nil {
			return err
		}
	}

	return console.XmonExit(ctx, c)
}

type selftestRun struct {
	tests       []string
	collections []string
	check       bool
}

func (r selftestRun) args() string {
	var args []string

	switch {
	case len(r.tests) > 0:
		slog.Info("Running individual selftests", slog.String("tests", strings.Join(r.tests, ", ")))

		for _, test := range r.tests {
			args = append(args, "-t", test)
		}
	case len(r.collections) > 0:
		slog.Info("Running selftest collections", slog.String("collections", strings.Join(r.collections, ", ")))

		for _, collection := range r.collections {
			args = append(args, "-c", collection)
		}
	default:
		slog.Info("Running selftests")
	}

	return strings.Join(args, " ")
}

func runSelftests(ctx context.Context, c *console.Console, run selftestRun) error {
	// The run time of selftests is unknown.
	c.SetDeadlineAfter(0)

	// Lots of selftests need debugfs.
	err := c.Cmd(ctx, mountDebugfs)
	if err != nil {
		return err
	}

	cmd := SelftestsDir + "/run_kselftest.sh"
	if args := run.args(); args != "" {
		cmd += " " + args
	}

	err = c.Send(cmd + " | tee test.log")
	if err != nil {
		return err
	}

	_, err = c.ExpectIgnoringBugs(ctx, console.NoTimeout, c.Prompt())
	if err != nil {
		return err
	}

	if !run.check {
		return nil
	}

	err = c.Send(`grep "^[n]ot ok" test.log`)
	if err != nil {
		return err
	}

	idx, err := c.Expect(ctx, "not ok", c.Prompt())
	if err != nil {
		return err
	}

	if idx == 0 {
		// Consume the prompt following the grep output.
		err = c.ExpectPrompt(ctx)
		if err != nil {
			return err
		}

		return fmt.Errorf("%w: selftests reported failures", ErrFailed)
	}

	return nil
}
