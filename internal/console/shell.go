// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"
)

// Markers printed by the kernel and the guest userspace.
const (
	KernelReadyMarker = "Freeing unused kernel memory:"
	LoginMarker       = "login:"
	PasswordMarker    = "Password:"
	XmonPrompt        = "mon>"
)

// BootOptions configures [StandardBoot].
type BootOptions struct {
	// Log in with User after the kernel came up.
	Login    bool
	User     string
	Password string
	// Prompt expected after boot. [DefaultPrompt] if empty.
	Prompt string
	// Timeout for each step.
	Timeout time.Duration
}

// StandardBoot waits for the kernel to boot, logs in, if requested, and
// waits for the shell prompt. The prompt is pushed onto the prompt stack.
func StandardBoot(ctx context.Context, c *Console, opts BootOptions) error {
	prompt := opts.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}

	c.PushPrompt(prompt)

	slog.Info("Waiting for kernel to boot")

	_, err := c.ExpectTimeout(ctx, opts.Timeout, KernelReadyMarker)
	if err != nil {
		return fmt.Errorf("kernel boot: %w", err)
	}

	if opts.Login {
		slog.Info("Kernel came up, waiting for login ...")

		err = login(ctx, c, opts)
		if err != nil {
			return err
		}
	} else {
		slog.Info("Kernel came up, waiting for prompt ...")
	}

	err = c.ExpectPromptTimeout(ctx, opts.Timeout)
	if err != nil {
		return fmt.Errorf("shell prompt: %w", err)
	}

	slog.Info("Booted to shell prompt")

	return nil
}

func login(ctx context.Context, c *Console, opts BootOptions) error {
	_, err := c.ExpectTimeout(ctx, opts.Timeout, LoginMarker)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	err = c.Send(opts.User)
	if err != nil {
		return err
	}

	if opts.Password == "" {
		return nil
	}

	_, err = c.ExpectTimeout(ctx, opts.Timeout, PasswordMarker)
	if err != nil {
		return fmt.Errorf("password: %w", err)
	}

	return c.Send(opts.Password)
}

// CheckRelease verifies the running kernel reports the expected release.
func CheckRelease(ctx context.Context, c *Console, release string) error {
	slog.Info("Looking for kernel version", slog.String("release", release))

	err := c.Send("echo \"booted-revision: `uname -r`\"")
	if err != nil {
		return err
	}

	_, err = c.Expect(ctx, "booted-revision: "+regexp.QuoteMeta(release))
	if err != nil {
		return fmt.Errorf("kernel release: %w", err)
	}

	return c.ExpectPrompt(ctx)
}

// ProcVersion returns the full version string and the release of the running
// kernel.
func ProcVersion(ctx context.Context, c *Console) (string, string, error) {
	err := c.Send("cat /proc/version")
	if err != nil {
		return "", "", err
	}

	_, err = c.Expect(ctx, "Linux version (([^ ]+)[^\r]+)\r")
	if err != nil {
		return "", "", fmt.Errorf("proc version: %w", err)
	}

	match := c.Match()

	return match[1], match[2], c.ExpectPrompt(ctx)
}

// ExpectCPUInfo prints /proc/cpuinfo and waits for each pattern in order.
func ExpectCPUInfo(ctx context.Context, c *Console, patterns []string) error {
	err := c.Send("cat /proc/cpuinfo")
	if err != nil {
		return err
	}

	for _, pattern := range patterns {
		_, err = c.Expect(ctx, pattern)
		if err != nil {
			return fmt.Errorf("cpuinfo: %w", err)
		}
	}

	return c.ExpectPrompt(ctx)
}

// NetSetup configures the first ethernet interface for user mode
// networking.
func NetSetup(ctx context.Context, c *Console) error {
	for _, cmd := range []string{
		"ip addr show",
		"ls -l /sys/class/net",
		"iface=$(ls -1d /sys/class/net/e* | head -1 | cut -d/ -f 5)",
		"ip addr add dev $iface 10.0.2.15/24",
		"ip link set $iface up",
		"ip addr show",
		"ip route show",
	} {
		err := c.Cmd(ctx, cmd)
		if err != nil {
			return err
		}
	}

	return nil
}

// DefaultGateway is the host address in user mode networking.
const DefaultGateway = "10.0.2.2"

// Ping sends three pings to the address. With check set, all of them must
// be answered.
func Ping(ctx context.Context, c *Console, addr string, check bool) error {
	err := c.Send("ping -c 3 " + addr)
	if err != nil {
		return err
	}

	if check {
		_, err = c.Expect(ctx, "3 packets transmitted, 3 packets received")
		if err != nil {
			return fmt.Errorf("ping: %w", err)
		}
	}

	return c.ExpectPrompt(ctx)
}

// UnpackDrive extracts a gzipped tarball attached as virtio block device
// into dir.
func UnpackDrive(
	ctx context.Context,
	c *Console,
	drive, dir string,
	strip int,
	timeout time.Duration,
) error {
	err := c.Cmd(ctx, "mkdir -p "+dir)
	if err != nil {
		return err
	}

	err = c.Send(fmt.Sprintf(
		"cd %s; cat /dev/vd%s | zcat | tar --strip-components=%d -xf -; cd -",
		dir, drive, strip,
	))
	if err != nil {
		return err
	}

	return c.ExpectPromptTimeout(ctx, timeout)
}

// XmonEnter enters the in-kernel debugger and pushes its prompt.
func XmonEnter(ctx context.Context, c *Console) error {
	err := c.Cmd(ctx, "echo 1 > /proc/sys/kernel/sysrq")
	if err != nil {
		return err
	}

	c.PushPrompt(XmonPrompt)

	return c.Cmd(ctx, "echo x > /proc/sysrq-trigger")
}

// XmonExit leaves the in-kernel debugger and waits for the shell prompt.
func XmonExit(ctx context.Context, c *Console) error {
	err := c.Send("x")
	if err != nil {
		return err
	}

	err = c.PopPrompt()
	if err != nil {
		return err
	}

	return c.ExpectPrompt(ctx)
}

// Poweroff shuts the system down and waits for the process to exit.
func Poweroff(ctx context.Context, c *Console, timeout time.Duration) error {
	err := c.Send("poweroff")
	if err != nil {
		return err
	}

	return c.WaitForExit(ctx, timeout)
}
