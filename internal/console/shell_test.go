// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aibor/bootci/internal/console"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prompt = "\r\n/ # "

// guest returns a responder that simulates a small shell.
func guest(proc **console.FakeProcess) func(string) string {
	return func(line string) string {
		switch {
		case line == "root":
			return prompt
		case strings.HasPrefix(line, "echo \"booted-revision"):
			return "\r\nbooted-revision: 6.8.0-rc1-00001-gabcdef" + prompt
		case line == "cat /proc/version":
			return "\r\nLinux version 6.8.0-rc1 (builder@host) (gcc 13.2) #1 SMP\r" + prompt
		case strings.HasPrefix(line, "ping -c 3"):
			return "\r\n3 packets transmitted, 3 packets received, 0% packet loss" + prompt
		case line == "poweroff":
			(*proc).Exit()
			return ""
		default:
			return prompt
		}
	}
}

func TestStandardBoot(t *testing.T) {
	var proc *console.FakeProcess

	c, p := newConsole(t, guest(&proc), console.Config{Timeout: time.Second})
	proc = p

	proc.Output("[    0.5] Freeing unused kernel memory: 1024K\r\nWelcome\r\nlogin: ")

	err := console.StandardBoot(t.Context(), c, console.BootOptions{
		Login:   true,
		User:    "root",
		Timeout: time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, console.DefaultPrompt, c.Prompt())

	require.NoError(t, console.CheckRelease(t.Context(), c, "6.8.0-rc1-00001-gabcdef"))

	full, release, err := console.ProcVersion(t.Context(), c)
	require.NoError(t, err)
	assert.Equal(t, "6.8.0-rc1", release)
	assert.Equal(t, "6.8.0-rc1 (builder@host) (gcc 13.2) #1 SMP", full)

	require.NoError(t, console.NetSetup(t.Context(), c))
	require.NoError(t, console.Ping(t.Context(), c, console.DefaultGateway, true))
	require.NoError(t, console.UnpackDrive(t.Context(), c, "b", "/var/tmp/selftests", 1, time.Second))
	require.NoError(t, console.Poweroff(t.Context(), c, time.Second))

	sent := proc.Sent()
	assert.Contains(t, sent, "ping -c 3 10.0.2.2")
	assert.Contains(t, sent, "cd /var/tmp/selftests; cat /dev/vdb | zcat | tar --strip-components=1 -xf -; cd -")
	assert.Equal(t, "poweroff", sent[len(sent)-1])
}

func TestStandardBoot_PanicBeforeLogin(t *testing.T) {
	var proc *console.FakeProcess

	c, p := newConsole(t, guest(&proc), console.Config{Timeout: time.Second})
	proc = p

	proc.Output("Freeing unused kernel memory: 1024K\r\n" +
		"Kernel panic - not syncing: Attempted to kill init!\r\n" +
		"login: ")

	err := console.StandardBoot(t.Context(), c, console.BootOptions{
		Login:   true,
		User:    "root",
		Timeout: time.Second,
	})
	require.ErrorIs(t, err, &console.FatalSignatureError{})

	assert.True(t, proc.Terminated())
	assert.NotContains(t, proc.Sent(), "root", "login never sent")
}

func TestCheckRelease_Mismatch(t *testing.T) {
	var proc *console.FakeProcess

	c, p := newConsole(t, guest(&proc), console.Config{Timeout: 50 * time.Millisecond})
	proc = p

	c.PushPrompt(console.DefaultPrompt)

	err := console.CheckRelease(t.Context(), c, "6.9.0")
	require.ErrorIs(t, err, &console.TimeoutError{})
}
