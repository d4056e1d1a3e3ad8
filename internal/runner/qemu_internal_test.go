// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package runner

import (
	"strings"
	"testing"
	"time"

	"github.com/aibor/bootci/internal/callback"
	"github.com/aibor/bootci/internal/console"
	"github.com/aibor/bootci/internal/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prompt = "\r\n/ # "

// guest simulates a booted system that answers the session's commands.
func guest(extra func(line string) (string, bool)) func(proc **console.FakeProcess) func(string) string {
	return func(proc **console.FakeProcess) func(string) string {
		return func(line string) string {
			if extra != nil {
				if out, handled := extra(line); handled {
					return out
				}
			}

			switch {
			case strings.HasPrefix(line, `echo "booted-revision`):
				return "\r\nbooted-revision: 6.9.0-rc1" + prompt
			case line == "cat /proc/cpuinfo":
				return "\r\ncpu\t\t: POWER9 (architected)\r\nplatform\t: pSeries" + prompt
			case strings.HasPrefix(line, "ping"):
				return "\r\n3 packets transmitted, 3 packets received, 0% packet loss" + prompt
			case line == "poweroff":
				p := *proc
				go func() {
					p.Output("\r\nreboot: Power down\r\n")
					p.Exit()
				}()

				return ""
			default:
				return prompt
			}
		}
	}
}

func newSession(
	t *testing.T,
	responder func(proc **console.FakeProcess) func(string) string,
) (*console.Console, *console.FakeProcess) {
	t.Helper()

	var proc *console.FakeProcess

	proc = console.NewFakeProcess(responder(&proc))

	c, err := console.New(proc, console.Config{
		Timeout:    time.Second,
		DrainWait:  20 * time.Millisecond,
		DrainGrace: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		proc.Exit()
		assert.NoError(t, c.Close())
	})

	return c, proc
}

func TestSessionRun(t *testing.T) {
	c, proc := newSession(t, guest(nil))

	proc.Output("Linux version 6.9.0-rc1\r\nFreeing unused kernel memory: 1024K" + prompt)

	calls, err := callback.Default().ParseAll([]string{"sh(# starting-qemu-test-foo)"})
	require.NoError(t, err)

	sess := &session{
		Boot:           console.BootOptions{Timeout: time.Second},
		Release:        "6.9.0-rc1",
		CPUInfo:        []string{`cpu\s+: POWER9`, `platform\s+: pSeries`},
		ModulesDrive:   "a",
		SelftestsDrive: "b",
		NetTests:       true,
		Callbacks:      calls,
	}

	require.NoError(t, sess.run(t.Context(), c))

	sent := proc.Sent()
	assert.Contains(t, sent, "cd /lib/modules; cat /dev/vda | zcat | tar --strip-components=2 -xf -; cd -")
	assert.Contains(t, sent, "mkdir -p /lib/modules")
	assert.Contains(t, sent, "mkdir -p "+callback.SelftestsDir)
	assert.Contains(t, sent, "ping -c 3 "+console.DefaultGateway)
	assert.Contains(t, sent, "# starting-qemu-test-foo")
	assert.Equal(t, "poweroff", sent[len(sent)-1])
	assert.False(t, proc.Terminated())
}

func TestSessionRun_WrongRelease(t *testing.T) {
	c, proc := newSession(t, guest(nil))

	proc.Output("Freeing unused kernel memory: 1024K" + prompt)

	sess := &session{
		Boot:    console.BootOptions{Timeout: time.Second},
		Release: "6.10.0",
	}

	require.ErrorIs(t, sess.run(t.Context(), c), &console.TimeoutError{})
}

func TestSessionRun_KernelPanic(t *testing.T) {
	c, proc := newSession(t, guest(nil))

	proc.Output("Kernel panic - not syncing: VFS: Unable to mount root fs\r\n")

	sess := &session{
		Boot:    console.BootOptions{Login: true, User: "root", Timeout: time.Second},
		Release: "6.9.0-rc1",
	}

	require.ErrorIs(t, sess.run(t.Context(), c), &console.FatalSignatureError{})
	assert.True(t, proc.Terminated())
}

func TestSessionRun_CallbackFails(t *testing.T) {
	c, proc := newSession(t, guest(func(line string) (string, bool) {
		if strings.HasPrefix(line, "grep") {
			return "\r\nnot ok 3 selftests: powerpc: mmu" + prompt, true
		}

		return "", false
	}))

	proc.Output("Freeing unused kernel memory: 1024K" + prompt)

	calls, err := callback.Default().ParseAll([]string{"run_selftests"})
	require.NoError(t, err)

	sess := &session{
		Boot:      console.BootOptions{Timeout: time.Second},
		Release:   "6.9.0-rc1",
		Callbacks: calls,
	}

	require.ErrorIs(t, sess.run(t.Context(), c), callback.ErrFailed)
	assert.NotContains(t, proc.Sent(), "poweroff")
}

func TestBootScriptArgs(t *testing.T) {
	r := &Runner{}
	r.cfg.ScriptDir = "/ci"

	boot := &suite.Boot{
		Name:    "qemu-pseries",
		Cmdline: "it's",
		Qemu:    "8.2.0",
		Plan: suite.Plan{
			Callbacks:        []string{"sh(# starting-foo)"},
			NetTests:         true,
			SelftestsTarball: "/out/selftests.tar.gz",
			ExtraArgs:        []string{"--compat-rootfs"},
		},
	}

	expected := []string{
		"--kernel-path /build/k/vmlinux",
		"--modules-path /build/k/modules.tar.gz",
		"--release-path /build/k/kernel.release",
		`--cmdline 'it'\''s'`,
		"--callback 'sh(# starting-foo)'",
		"--selftests-path /out/selftests.tar.gz",
		"--net-tests",
		"--qemu-path /ci/external/qemu/qemu-8.2.0/install/bin",
		"--compat-rootfs",
		`"$@"`,
	}

	assert.Equal(t, expected, r.bootScriptArgs(boot, "/build/k"))
}
